package rainflow

import "math"

// detectASTM implements the ASTM E1049-style 3-point method (§4.4).
// While the residue holds at least 3 tuples, it compares the last two
// ranges; when the newer range dominates, it closes A->B either as a
// half cycle (if the residue's first element Z falls inside [A,B]) or
// a full cycle otherwise, per §9's note that Z is always the *first*
// residue element at the time of the check, not a sliding window.
func detectASTM(residue *Residue, inc increments) []ClosedCycle {
	var cycles []ClosedCycle
	for residue.Len() >= 3 {
		n := residue.Len()
		a := residue.At(n - 3)
		b := residue.At(n - 2)
		c := residue.At(n - 1)
		z := residue.At(0)

		x := math.Abs(b.Value - c.Value)
		y := math.Abs(a.Value - b.Value)
		if x < y {
			break
		}

		lo, hi := a.Value, b.Value
		if lo > hi {
			lo, hi = hi, lo
		}
		if z.Value >= lo && z.Value <= hi {
			cycles = append(cycles, ClosedCycle{From: a, To: b, CurrInc: inc.half})
			residue.RemoveAt(n - 3)
		} else {
			cycles = append(cycles, ClosedCycle{From: a, To: b, CurrInc: inc.full})
			residue.RemoveIndices(n-3, n-2)
		}
	}
	return cycles
}
