package hll

import "math"

// jaccardEpsilon keeps the Jaccard index finite when the union is empty.
const jaccardEpsilon = 1e-12

// EstimatedUnionCardinalities holds independently estimated cardinalities of
// two sets and of their union.  Set algebra over the three values is exposed
// through its methods.  Every derived value is clamped since estimation noise
// can otherwise produce negative counts or a Jaccard index outside [0, 1].
type EstimatedUnionCardinalities struct {
	Left, Right, Union float64
}

// EstimateUnionCardinalities estimates a, b and their union.  It will return
// ErrIncompatible if the two Hlls do not share the same settings.
func EstimateUnionCardinalities(a, b Hll) (EstimatedUnionCardinalities, error) {
	union, err := UnionOf(a, b)
	if err != nil {
		return EstimatedUnionCardinalities{}, err
	}
	return EstimatedUnionCardinalities{
		Left:  a.Estimate(),
		Right: b.Estimate(),
		Union: union.Estimate(),
	}, nil
}

// Intersection estimates |L ∩ R| by inclusion-exclusion.
func (c EstimatedUnionCardinalities) Intersection() float64 {
	return math.Max(0, c.Left+c.Right-c.Union)
}

// LeftDifference estimates |L \ R|.
func (c EstimatedUnionCardinalities) LeftDifference() float64 {
	return math.Max(0, c.Left-c.Intersection())
}

// RightDifference estimates |R \ L|.
func (c EstimatedUnionCardinalities) RightDifference() float64 {
	return math.Max(0, c.Right-c.Intersection())
}

// SymmetricDifference estimates |L Δ R|.
func (c EstimatedUnionCardinalities) SymmetricDifference() float64 {
	return math.Max(0, c.Left+c.Right-2*c.Intersection())
}

// Jaccard estimates |L ∩ R| / |L ∪ R|.
func (c EstimatedUnionCardinalities) Jaccard() float64 {
	j := c.Intersection() / math.Max(c.Union, jaccardEpsilon)
	return math.Min(1, math.Max(0, j))
}
