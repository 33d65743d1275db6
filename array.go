package hll

import "github.com/pkg/errors"

// ErrArrayLength is returned by Array.Union when the two arrays hold a
// different number of Hlls.
var ErrArrayLength = errors.New("cannot union Arrays of different lengths")

// Array is a fixed-size collection of independent Hlls sharing the same
// settings.
type Array struct {
	hlls []Hll
}

// NewArray creates an Array of n empty Hlls.
func NewArray(s Settings, n int) (Array, error) {

	settings, err := s.toInternal()
	if err != nil {
		return Array{}, err
	}

	if n < 0 {
		return Array{}, errors.Errorf("Array length must not be negative but got %d", n)
	}

	a := Array{hlls: make([]Hll, n)}
	for i := range a.hlls {
		a.hlls[i] = newHll(settings)
	}

	return a, nil
}

// Len returns the number of Hlls in the Array.
func (a Array) Len() int {
	return len(a.hlls)
}

// At returns the i'th Hll.  Mutations through the returned pointer are visible
// to the Array.
func (a Array) At(i int) *Hll {
	return &a.hlls[i]
}

// Estimates returns the cardinality estimate of every Hll in order.
func (a Array) Estimates() []float64 {
	estimates := make([]float64, len(a.hlls))
	for i := range a.hlls {
		estimates[i] = a.hlls[i].Estimate()
	}
	return estimates
}

// Union merges other into a element by element.
func (a Array) Union(other Array) error {

	if len(a.hlls) != len(other.hlls) {
		return errors.Wrapf(ErrArrayLength, "%d != %d", len(a.hlls), len(other.hlls))
	}

	for i := range a.hlls {
		if err := a.hlls[i].Union(other.hlls[i]); err != nil {
			return errors.Wrapf(err, "index %d", i)
		}
	}

	return nil
}

// UnionCardinalities returns the union cardinality estimates for every pair
// (a[i], other[j]).
func (a Array) UnionCardinalities(other Array) ([][]EstimatedUnionCardinalities, error) {

	rightEstimates := other.Estimates()

	result := make([][]EstimatedUnionCardinalities, len(a.hlls))
	for i := range a.hlls {
		left := a.hlls[i].Estimate()
		result[i] = make([]EstimatedUnionCardinalities, len(other.hlls))

		for j := range other.hlls {
			union, err := UnionOf(a.hlls[i], other.hlls[j])
			if err != nil {
				return nil, errors.Wrapf(err, "pair (%d, %d)", i, j)
			}
			result[i][j] = EstimatedUnionCardinalities{
				Left:  left,
				Right: rightEstimates[j],
				Union: union.Estimate(),
			}
		}
	}

	return result, nil
}

// OverlapMatrix returns the estimated intersection size of every pair
// (a[i], other[j]).
func (a Array) OverlapMatrix(other Array) ([][]float64, error) {
	return a.pairwise(other, EstimatedUnionCardinalities.Intersection)
}

// DifferenceMatrix returns the estimated size of a[i] \ other[j] for every
// pair.
func (a Array) DifferenceMatrix(other Array) ([][]float64, error) {
	return a.pairwise(other, EstimatedUnionCardinalities.LeftDifference)
}

func (a Array) pairwise(other Array, metric func(EstimatedUnionCardinalities) float64) ([][]float64, error) {

	cardinalities, err := a.UnionCardinalities(other)
	if err != nil {
		return nil, err
	}

	matrix := make([][]float64, len(cardinalities))
	for i, row := range cardinalities {
		matrix[i] = make([]float64, len(row))
		for j, c := range row {
			matrix[i][j] = metric(c)
		}
	}

	return matrix, nil
}
