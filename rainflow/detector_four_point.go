package rainflow

// detectFourPoint implements the default 4-point closed-cycle
// detector (§4.4). While the residue holds at least 4 tuples, it
// inspects the last four A,B,C,D by class; if min/max nesting shows
// B-C is fully enclosed by A-D, it closes the B->C cycle and removes
// B and C from the residue, then repeats.
//
// Grounded on the teacher's per-policy, single-purpose file layout
// (sim/admission.go and siblings: one small pure function per
// strategy, switched by an enum elsewhere).
func detectFourPoint(residue *Residue, fullInc int64) []ClosedCycle {
	var cycles []ClosedCycle
	for residue.Len() >= 4 {
		n := residue.Len()
		a := residue.At(n - 4)
		b := residue.At(n - 3)
		c := residue.At(n - 2)
		d := residue.At(n - 1)

		bLo, bHi := minMaxClass(b, c)
		aLo, aHi := minMaxClass(a, d)

		if aLo <= bLo && bHi <= aHi {
			cycles = append(cycles, ClosedCycle{From: b, To: c, CurrInc: fullInc})
			residue.RemoveIndices(n-3, n-2)
			continue
		}
		break
	}
	return cycles
}

func minMaxClass(x, y Tuple) (lo, hi int) {
	if x.Class <= y.Class {
		return x.Class, y.Class
	}
	return y.Class, x.Class
}
