package engine

import (
	"testing"

	"github.com/nullstate/largeworld/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestPriceAnchorAdjustBlendsTowardPrice(t *testing.T) {
	got := PriceAnchorAdjust(0.25, 10, 2)
	assert.Equal(t, 0.25*10+0.75*2, got)
}

func TestDividendAnchorAdjustBlendsTowardDividend(t *testing.T) {
	got := DividendAnchorAdjust(0.4, 8, 3)
	assert.Equal(t, 0.4*8+0.6*3, got)
}

func TestDetectPatternRequiresFullRunOfLengthPhi(t *testing.T) {
	assert.Equal(t, PatternNone, DetectPattern(3, []int{-1, -1}))
	assert.Equal(t, PatternDecreasing, DetectPattern(3, []int{1, -1, -1, -1}))
	assert.Equal(t, PatternIncreasing, DetectPattern(2, []int{1, 1}))
	assert.Equal(t, PatternNone, DetectPattern(2, []int{1, -1}))
	assert.Equal(t, PatternNone, DetectPattern(0, []int{1, -1}))
}

func TestApplyVariantOneLowersOnDecreaseRaisesOnIncrease(t *testing.T) {
	h := NewHolding(0, 10)
	h.Dividend = 20
	h.Aspiration = 5
	rep := RepVariant{Epsilon: 1}

	applyVariantOne(rep, h, PatternDecreasing)
	assert.Equal(t, 1.0, h.Aspiration)

	h.Aspiration = 5
	applyVariantOne(rep, h, PatternIncreasing)
	assert.Equal(t, 20.0, h.Aspiration)

	h.Aspiration = 5
	applyVariantOne(rep, h, PatternNone)
	assert.Equal(t, 5.0, h.Aspiration)
}

func TestApplyVariantOneDoesNotRaiseBelowCurrentOnDecrease(t *testing.T) {
	h := NewHolding(0, 10)
	h.Aspiration = 0.5
	rep := RepVariant{Epsilon: 2}

	applyVariantOne(rep, h, PatternDecreasing)
	assert.Equal(t, 0.5, h.Aspiration)
}

func TestApplyVariantTwoRemovesStateAndRescalesOthers(t *testing.T) {
	a := NewAgent(1, 0, []int{0, 1, 2}, 10)
	a.SetNotInfo(map[int]bool{})
	a.Holdings[0].Aspiration = 4
	a.Holdings[1].Aspiration = 2
	a.Holdings[1].Dividend = 100
	a.Holdings[2].Aspiration = 3
	a.Holdings[2].Dividend = 100
	rep := RepVariant{Epsilon: 0.1}

	applyVariantTwo(rep, a, 0, PatternDecreasing)

	assert.False(t, a.Uncertain[0])
	assert.Equal(t, 2, a.C())
	// post-decrement C is 2, so factor = (2+1)/2 = 1.5
	assert.Equal(t, 3.0, a.Holdings[1].Aspiration)
	assert.Equal(t, 4.5, a.Holdings[2].Aspiration)
	assert.Equal(t, 0.1, a.Holdings[0].Aspiration)
}

func TestApplyVariantTwoNoOpWhenNotDecreasingOrAlreadyCertain(t *testing.T) {
	a := NewAgent(1, 0, []int{0, 1}, 10)
	a.SetNotInfo(map[int]bool{0: true})
	a.Holdings[1].Aspiration = 3

	applyVariantTwo(RepVariant{Epsilon: 0.1}, a, 0, PatternDecreasing)
	assert.Equal(t, 3.0, a.Holdings[1].Aspiration)

	applyVariantTwo(RepVariant{Epsilon: 0.1}, a, 1, PatternIncreasing)
	assert.Equal(t, 3.0, a.Holdings[1].Aspiration)
}

func TestApplyRepresentativenessDispatchesByKind(t *testing.T) {
	a := NewAgent(1, 0, []int{0}, 10)
	a.SetNotInfo(map[int]bool{})
	a.Holdings[0].Dividend = 50
	a.Holdings[0].Aspiration = 1

	ApplyRepresentativeness(RepVariant{Kind: config.RepVariantOne, Epsilon: 0.2}, a, 0, PatternIncreasing)
	assert.Equal(t, 50.0, a.Holdings[0].Aspiration)

	ApplyRepresentativeness(RepVariant{Kind: config.RepNone}, a, 0, PatternIncreasing)
	assert.Equal(t, 50.0, a.Holdings[0].Aspiration)
}
