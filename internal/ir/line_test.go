package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferConstraint_BoundaryFor(t *testing.T) {
	tc := TransferConstraint{
		From:  0,
		To:    1,
		Setup: map[JobID]int64{1: 2, 2: 3},
		Due:   map[JobID]int64{1: 6, 2: 4},
	}

	b := tc.BoundaryFor(1, 2)

	// delta_1 in [2,6], delta_2 in [3,4]
	assert.Equal(t, Boundary{ToDstMin: -3, ToDstMax: 2, ToSrcMin: -2, ToSrcMax: 3}, b)

	// Exit gap of exactly 10 can arrive anywhere in [7, 12].
	assert.Equal(t, Between(7, 12), b.TranslateToDestination(Between(10, 10)))
}

func TestTransferConstraint_NoDueIsUnbounded(t *testing.T) {
	tc := TransferConstraint{From: 0, To: 1}

	b := tc.BoundaryFor(1, 2)

	assert.Equal(t, NegInf, b.ToDstMin)
	assert.Equal(t, PosInf, b.ToDstMax)
}

func TestProductionLine_Validate(t *testing.T) {
	line := &ProductionLine{
		Name:      "two",
		Modules:   []Module{{Name: "a"}, {Name: "b"}},
		Transfers: []TransferConstraint{{From: 0, To: 1}},
	}
	require.NoError(t, line.Validate())

	line.Transfers = nil
	assert.ErrorContains(t, line.Validate(), "missing transfer 0->1")

	line.Transfers = []TransferConstraint{{From: 1, To: 0}}
	assert.ErrorContains(t, line.Validate(), "adjacent")
}
