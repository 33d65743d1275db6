package hll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_EstimatedUnionCardinalities(t *testing.T) {

	tests := []struct {
		label         string
		cardinalities EstimatedUnionCardinalities

		intersection, leftDifference, rightDifference, symmetricDifference, jaccard float64
	}{
		{
			label:               "overlapping",
			cardinalities:       EstimatedUnionCardinalities{Left: 2, Right: 3, Union: 4},
			intersection:        1,
			leftDifference:      1,
			rightDifference:     2,
			symmetricDifference: 3,
			jaccard:             0.25,
		},
		{
			label:               "union larger than both sides combined",
			cardinalities:       EstimatedUnionCardinalities{Left: 2, Right: 3, Union: 6},
			intersection:        0,
			leftDifference:      2,
			rightDifference:     3,
			symmetricDifference: 5,
			jaccard:             0,
		},
		{
			label:               "union smaller than either side",
			cardinalities:       EstimatedUnionCardinalities{Left: 10, Right: 10, Union: 8},
			intersection:        12,
			leftDifference:      0,
			rightDifference:     0,
			symmetricDifference: 0,
			jaccard:             1,
		},
		{
			label:               "empty",
			cardinalities:       EstimatedUnionCardinalities{},
			intersection:        0,
			leftDifference:      0,
			rightDifference:     0,
			symmetricDifference: 0,
			jaccard:             0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			c := tt.cardinalities
			assert.Equal(t, tt.intersection, c.Intersection())
			assert.Equal(t, tt.leftDifference, c.LeftDifference())
			assert.Equal(t, tt.rightDifference, c.RightDifference())
			assert.Equal(t, tt.symmetricDifference, c.SymmetricDifference())
			assert.Equal(t, tt.jaccard, c.Jaccard())
		})
	}
}

func Test_EstimateUnionCardinalities(t *testing.T) {
	settings := Settings{Log2m: 14, Regwidth: 6}

	a, b := mustNewHll(t, settings), mustNewHll(t, settings)
	for i := 0; i < 20000; i++ {
		a.InsertUint64(uint64(i))
		b.InsertUint64(uint64(i + 1000000))
	}

	{ // disjoint
		c, err := EstimateUnionCardinalities(a, b)
		require.NoError(t, err)
		assert.Equal(t, a.Estimate(), c.Left)
		assert.Equal(t, b.Estimate(), c.Right)
		assert.InEpsilon(t, 40000, c.Union, 0.05)
		assert.Less(t, c.Jaccard(), 0.05)
	}
	{ // identical
		c, err := EstimateUnionCardinalities(a, a)
		require.NoError(t, err)
		assert.Equal(t, c.Left, c.Union)
		assert.Equal(t, c.Left, c.Intersection())
		assert.Equal(t, float64(0), c.SymmetricDifference())
		assert.Equal(t, float64(1), c.Jaccard())
	}
	{ // half overlapping
		h := mustNewHll(t, settings)
		for i := 10000; i < 30000; i++ {
			h.InsertUint64(uint64(i))
		}
		c, err := EstimateUnionCardinalities(a, h)
		require.NoError(t, err)
		assert.InEpsilon(t, 10000, c.Intersection(), 0.2)
		assert.InEpsilon(t, 10000, c.LeftDifference(), 0.2)
		assert.InDelta(t, 1.0/3.0, c.Jaccard(), 0.05)
	}

	// the operands are untouched.
	assert.Equal(t, uint64(20000), a.Insertions())
}
