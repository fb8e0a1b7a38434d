package rainflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestResidue(vals ...float64) *Residue {
	r := NewResidue(len(vals) + 2)
	for i, v := range vals {
		r.Push(Tuple{Value: v, Pos: int64(i + 1)})
	}
	return r
}

func TestFinalizeResidue_NoneIgnoreNoFinalizeLeaveResidueUntouched(t *testing.T) {
	for _, p := range []FinalizePolicy{FinalizeNone, FinalizeIgnore, FinalizeNoFinalize} {
		r := newTestResidue(1, 2, 3)
		cycles := FinalizeResidue(r, p, increments{full: 2, half: 1}, nil)
		assert.Empty(t, cycles)
		assert.Equal(t, 3, r.Len())
	}
}

func TestFinalizeResidue_DiscardEmptiesResidue(t *testing.T) {
	r := newTestResidue(1, 2, 3)
	cycles := FinalizeResidue(r, FinalizeDiscard, increments{full: 2, half: 1}, nil)
	assert.Empty(t, cycles)
	assert.Equal(t, 0, r.Len())
}

func TestFinalizeResidue_HalfCyclesPairsNonOverlappingAndDropsOddTail(t *testing.T) {
	// Worked example: [0,10,0,20,0,30,0] under HALFCYCLES yields three
	// half cycles with amplitudes {5,10,15}, not six from a sliding window.
	r := newTestResidue(0, 10, 0, 20, 0, 30, 0)
	cycles := FinalizeResidue(r, FinalizeHalfCycles, increments{full: 2, half: 1}, nil)
	if assert.Len(t, cycles, 3) {
		amps := []float64{
			amplitudeOf(cycles[0]),
			amplitudeOf(cycles[1]),
			amplitudeOf(cycles[2]),
		}
		assert.Equal(t, []float64{5, 10, 15}, amps)
		for _, c := range cycles {
			assert.Equal(t, int64(1), c.CurrInc)
		}
	}
	assert.Equal(t, 0, r.Len())
}

func amplitudeOf(c ClosedCycle) float64 {
	d := c.From.Value - c.To.Value
	if d < 0 {
		d = -d
	}
	return d / 2
}

func TestFinalizeResidue_FullCyclesWeightsFullInc(t *testing.T) {
	r := newTestResidue(1, 5, 2, 6)
	cycles := FinalizeResidue(r, FinalizeFullCycles, increments{full: 2, half: 1}, nil)
	if assert.Len(t, cycles, 2) {
		assert.Equal(t, int64(2), cycles[0].CurrInc)
		assert.Equal(t, int64(2), cycles[1].CurrInc)
	}
}

func TestFinalizeResidue_ClormannSeegerClosesBracketedSignChange(t *testing.T) {
	r := newTestResidue(10, -2, 1, 8)
	cycles := FinalizeResidue(r, FinalizeClormannSeeger, increments{full: 2, half: 1}, nil)
	if assert.Len(t, cycles, 1) {
		assert.Equal(t, -2.0, cycles[0].From.Value)
		assert.Equal(t, 1.0, cycles[0].To.Value)
	}
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 10.0, r.At(0).Value)
	assert.Equal(t, 8.0, r.At(1).Value)
}

func TestFinalizeResidue_RPDIN45667PairsRisingAndFallingByDescendingMagnitude(t *testing.T) {
	r := newTestResidue(0, 5, 1, 8, 2)
	cycles := FinalizeResidue(r, FinalizeRPDIN45667, increments{full: 2, half: 1}, nil)
	if assert.Len(t, cycles, 2) {
		assert.Equal(t, 1.0, cycles[0].From.Value)
		assert.Equal(t, 8.0, cycles[0].To.Value)
		assert.Equal(t, 0.0, cycles[1].From.Value)
		assert.Equal(t, 5.0, cycles[1].To.Value)
	}
	assert.Equal(t, 0, r.Len())
}

func TestFinalizeResidue_RepeatedRefeedsTrimmedCopyAndEmptiesResidue(t *testing.T) {
	r := newTestResidue(1, 2, 3, 4, 5)
	var seen []Tuple
	refeed := func(tuples []Tuple) []ClosedCycle {
		seen = tuples
		return []ClosedCycle{{From: tuples[0], To: tuples[len(tuples)-1], CurrInc: 2}}
	}
	cycles := FinalizeResidue(r, FinalizeRepeated, increments{full: 2, half: 1}, refeed)
	assert.NotEmpty(t, seen)
	assert.Len(t, cycles, 1)
	assert.Equal(t, 0, r.Len())
}
