package hll

import "math"

// Estimate returns the estimated number of distinct values that have been
// inserted into this Hll.  The result is always finite and non-negative.
func (h *Hll) Estimate() float64 {

	h.initOrPanic()

	sum, _ := h.storage.indicator(h.settings)

	// apply the estimate and correction to the indicator function
	estimator := h.settings.alphaMSquared / sum

	if h.zeros != 0 && estimator < h.settings.smallEstimatorCutoff {
		// following documentation courtesy of the java implementation:
		// The "small range correction" formula from the HyperLogLog
		// algorithm. Only appropriate if both the estimator is smaller than
		// (5/2) * m and there are still registers that have the zero value.
		return h.settings.smallCorrections[h.zeros-1]
	}

	if estimator <= h.settings.largeEstimatorCutoff {
		return estimator
	}

	// following documentation courtesy of the java implementation:
	// The "large range correction" formula from the HyperLogLog algorithm,
	// adapted for 64 bit hashes. Only appropriate for estimators whose
	// value exceeds the calculated cutoff.
	remaining := 1.0 - (estimator / h.settings.twoToL)
	if remaining <= 0 {
		// saturated registers can push the estimator past the hash space.
		return h.settings.twoToL
	}
	return -1 * h.settings.twoToL * math.Log(remaining)
}

// Cardinality returns Estimate rounded up to the next whole number.
func (h *Hll) Cardinality() uint64 {
	return saturatingUint64(math.Ceil(h.Estimate()))
}

// saturatingUint64 converts a non-negative f to a uint64, clamping values too
// large to represent.
func saturatingUint64(f float64) uint64 {
	if f >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(f)
}
