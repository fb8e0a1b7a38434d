package rainflow

import "math"

// FinalizePolicy selects how remaining residue tuples are resolved
// when finalize() is called (§4.5).
type FinalizePolicy int

const (
	FinalizeNone FinalizePolicy = iota
	FinalizeIgnore
	FinalizeNoFinalize
	FinalizeDiscard
	FinalizeHalfCycles
	FinalizeFullCycles
	FinalizeClormannSeeger
	FinalizeRPDIN45667
	FinalizeRepeated
)

// Refeeder lets FinalizeResidue delegate the REPEATED policy's
// replay-through-the-pipeline step back to whatever owns the filter
// and detector (Context), keeping this file free of those
// dependencies.
type Refeeder func(tuples []Tuple) []ClosedCycle

// FinalizeResidue applies policy to residue, returning any cycles the
// policy itself produced, beyond whatever interim promotion already
// fed through the normal detector. It never touches the turning-point
// log directly; the caller locks it before finalizing and credits the
// returned cycles to the matrix.
func FinalizeResidue(residue *Residue, policy FinalizePolicy, inc increments, refeed Refeeder) []ClosedCycle {
	switch policy {
	case FinalizeNone, FinalizeIgnore, FinalizeNoFinalize:
		return nil
	case FinalizeDiscard:
		residue.Clear()
		return nil
	case FinalizeHalfCycles:
		return adjacentPairs(residue, inc.half)
	case FinalizeFullCycles:
		return adjacentPairs(residue, inc.full)
	case FinalizeClormannSeeger:
		return finalizeClormannSeeger(residue, inc.full)
	case FinalizeRPDIN45667:
		return finalizeRPDIN45667(residue, inc.full)
	case FinalizeRepeated:
		return finalizeRepeated(residue, inc, refeed)
	default:
		return nil
	}
}

// adjacentPairs backs HALFCYCLES and FULLCYCLES: residue tuples are
// consumed two at a time (a trailing unpaired tuple is dropped), each
// pair becoming one cycle at the given weight, then the residue
// empties.
func adjacentPairs(residue *Residue, inc int64) []ClosedCycle {
	tuples := residue.Tuples()
	var cycles []ClosedCycle
	for i := 0; i+1 < len(tuples); i += 2 {
		cycles = append(cycles, ClosedCycle{From: tuples[i], To: tuples[i+1], CurrInc: inc})
	}
	residue.Clear()
	return cycles
}

// finalizeClormannSeeger implements the §4.5 CLORMANN_SEEGER policy:
// scanning windows of four, a sign change between the two inner
// values bracketed by a dominant outer value closes the inner pair.
func finalizeClormannSeeger(residue *Residue, fullInc int64) []ClosedCycle {
	var cycles []ClosedCycle
	i := 0
	for i+3 < residue.Len() {
		b := residue.At(i + 1)
		c := residue.At(i + 2)
		d := residue.At(i + 3)
		if b.Value*c.Value < 0 && math.Abs(d.Value) >= math.Abs(b.Value) && math.Abs(b.Value) >= math.Abs(c.Value) {
			cycles = append(cycles, ClosedCycle{From: b, To: c, CurrInc: fullInc})
			residue.RemoveIndices(i+1, i+2)
			continue
		}
		i++
	}
	return cycles
}

// finalizeRPDIN45667 implements the §4.5 RP_DIN45667 policy: slopes
// between adjacent residue tuples are split into rising/falling
// groups, each sorted by descending magnitude (dinSortSlopes), then
// paired rank-for-rank across the two groups.
func finalizeRPDIN45667(residue *Residue, fullInc int64) []ClosedCycle {
	tuples := residue.Tuples()
	n := len(tuples)
	if n < 2 {
		return nil
	}
	abs := make([]float64, n-1)
	pos := make([]int64, n-1)
	var risingIdx, fallingIdx []int
	for i := 0; i < n-1; i++ {
		slope := tuples[i+1].Value - tuples[i].Value
		abs[i] = math.Abs(slope)
		pos[i] = tuples[i].Pos
		switch {
		case slope > 0:
			risingIdx = append(risingIdx, i)
		case slope < 0:
			fallingIdx = append(fallingIdx, i)
		}
	}
	dinSortSlopes(risingIdx, abs, pos)
	dinSortSlopes(fallingIdx, abs, pos)

	pairs := len(risingIdx)
	if len(fallingIdx) < pairs {
		pairs = len(fallingIdx)
	}
	var cycles []ClosedCycle
	for k := 0; k < pairs; k++ {
		ri := risingIdx[k]
		cycles = append(cycles, ClosedCycle{From: tuples[ri], To: tuples[ri+1], CurrInc: fullInc})
	}
	residue.Clear()
	return cycles
}

// finalizeRepeated implements the §4.5 REPEATED policy: the seam
// across the end of the residue and its own repetition would close
// one extra cycle if the last four tuples satisfy the 4-point
// closure; that tail cycle is removed before the remaining copy is
// replayed through the caller-supplied pipeline.
func finalizeRepeated(residue *Residue, inc increments, refeed Refeeder) []ClosedCycle {
	tuples := residue.Tuples()
	var tail []ClosedCycle
	if n := len(tuples); n >= 4 {
		a, b, c, d := tuples[n-4], tuples[n-3], tuples[n-2], tuples[n-1]
		bLo, bHi := minMaxClass(b, c)
		aLo, aHi := minMaxClass(a, d)
		if aLo <= bLo && bHi <= aHi {
			tail = append(tail, ClosedCycle{From: b, To: c, CurrInc: inc.full})
			trimmed := make([]Tuple, 0, n-2)
			trimmed = append(trimmed, tuples[:n-3]...)
			trimmed = append(trimmed, tuples[n-1:]...)
			tuples = trimmed
		}
	}
	// The live residue still holds the pre-finalize tuples being
	// replayed; clear it before refeed pushes onto it, or the detector
	// sees stale tuples ahead of the freshly replayed ones.
	residue.Clear()
	var replayed []ClosedCycle
	if refeed != nil {
		replayed = refeed(tuples)
	}
	residue.Clear()
	return append(tail, replayed...)
}
