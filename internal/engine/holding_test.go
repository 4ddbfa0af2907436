package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHoldingSetsEndowment(t *testing.T) {
	h := NewHolding(3, 100)
	assert.Equal(t, 3, h.StateID)
	assert.Equal(t, 100, h.Amount)
	assert.Empty(t, h.Backlog)
}

func TestAmountAddAndReset(t *testing.T) {
	h := NewHolding(0, 10)
	h.AmountAdd(5)
	assert.Equal(t, 15, h.Amount)
	h.AmountAdd(-20)
	assert.Equal(t, -5, h.Amount)
	h.AmountReset()
	assert.Equal(t, 0, h.Amount)
}

func TestBacklogRoundTrip(t *testing.T) {
	h := NewHolding(0, 10)
	_, ok := h.BacklogLookup("1,2")
	assert.False(t, ok)

	h.BacklogUpdate("1,2", 0.75)
	v, ok := h.BacklogLookup("1,2")
	assert.True(t, ok)
	assert.Equal(t, 0.75, v)
}
