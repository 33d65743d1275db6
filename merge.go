package hll

// Union calculates the union of this Hll and the other Hll and stores the
// results into the receiver.  Every register takes the larger of the two
// values.  It will return ErrIncompatible if the two Hlls do not share the same
// register width and log2m.
//
// The insertion count of the receiver becomes the sum of both counts.
func (h *Hll) Union(other Hll) error {

	h.initOrPanic()
	other.initOrPanic()

	if !h.settings.compatible(other.settings) {
		return ErrIncompatible
	}

	h.zeros = h.storage.union(h.settings, other.storage)
	h.insertions += other.insertions

	if debug {
		h.verify()
	}

	return nil
}

// Intersect stores into the receiver the register-wise minimum of this Hll and
// the other Hll.  It will return ErrIncompatible if the two Hlls do not share
// the same register width and log2m.
//
// HyperLogLog registers record the largest rank observed per register rather
// than set membership, so the result is a heuristic that tends to
// over-estimate the true intersection.  EstimateUnionCardinalities usually
// gives a better intersection estimate.
//
// The insertion count of the receiver becomes the smaller of both counts.
func (h *Hll) Intersect(other Hll) error {

	h.initOrPanic()
	other.initOrPanic()

	if !h.settings.compatible(other.settings) {
		return ErrIncompatible
	}

	h.zeros = h.storage.intersect(h.settings, other.storage)
	h.insertions = min(h.insertions, other.insertions)

	if debug {
		h.verify()
	}

	return nil
}

// UnionOf returns a new Hll holding the union of a and b.  Neither operand is
// modified.
func UnionOf(a, b Hll) (Hll, error) {
	result := a.Clone()
	if err := result.Union(b); err != nil {
		return Hll{}, err
	}
	return result, nil
}

// IntersectionOf returns a new Hll holding the register-wise minimum of a and
// b.  Neither operand is modified.  See Intersect for the accuracy caveat.
func IntersectionOf(a, b Hll) (Hll, error) {
	result := a.Clone()
	if err := result.Intersect(b); err != nil {
		return Hll{}, err
	}
	return result, nil
}

// UnionAll folds Union over hlls starting from an empty Hll with the provided
// settings.  It returns an error if the settings are invalid or if any of the
// Hlls has different settings.
func UnionAll(s Settings, hlls ...Hll) (Hll, error) {

	result, err := NewHll(s)
	if err != nil {
		return Hll{}, err
	}

	for _, hll := range hlls {
		if err := result.Union(hll); err != nil {
			return Hll{}, err
		}
	}

	return result, nil
}
