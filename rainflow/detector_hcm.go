package rainflow

import "math"

// hcmState is the Clormann/Seeger 3-point stack detector (§4.4). It
// owns a persistent 1-indexed stack across Feed calls (tracked here
// as a 0-indexed Go slice, S[i] == stack[i-1]) plus the "reset floor"
// cursor IR; the stack top IZ is simply len(stack).
//
// The residue is drained head-first into the stack on every feed;
// once drained, the stack's contents ARE the residue (§4.4, "After
// exhaustion, stack contents become residue") — Context is
// responsible for copying hcmState.stack back into the shared residue
// after calling feed.
type hcmState struct {
	stack []Tuple
	ir    int
}

// requantizeAll re-derives each stacked tuple's Class from its raw
// Value, used after an autoresize widens the class range (§4.2).
func (h *hcmState) requantizeAll(classOf func(float64) int) {
	for i := range h.stack {
		h.stack[i].Class = classOf(h.stack[i].Value)
	}
}

// feed drains residue head-first through the HCM stack machine,
// returning any cycles the reductions closed.
func (h *hcmState) feed(residue *Residue, classWidth float64, fullInc int64) []ClosedCycle {
	eps := classWidth / 100
	var cycles []ClosedCycle

	for residue.Len() > 0 {
		k := residue.PopFront()
		for {
			// IR==0 is the warm-up state before the floor is established:
			// the first two points always just stack up (§4.4 step 1). Once
			// two points are on the stack, IR is raised to 1 and steps 2-5
			// take over for every point after.
			if h.ir == 0 {
				h.stack = append(h.stack, k)
				if len(h.stack) >= 2 {
					h.ir = 1
				}
				break
			}
			iz := len(h.stack)
			if iz == 0 {
				// The floor itself was just popped out from under IR;
				// re-enter warm-up rather than inspect a missing J.
				h.ir = 0
				continue
			}
			if iz > h.ir {
				i := h.stack[iz-2]
				j := h.stack[iz-1]
				if (k.Value-j.Value)*(j.Value-i.Value) >= -eps {
					h.stack = h.stack[:iz-1] // inflection at J: pop it
					if len(h.stack) < h.ir {
						h.ir = len(h.stack)
					}
					continue
				}
				if math.Abs(k.Value-j.Value) >= math.Abs(j.Value-i.Value) {
					cycles = append(cycles, ClosedCycle{From: i, To: j, CurrInc: fullInc})
					h.stack = h.stack[:iz-2]
					if len(h.stack) < h.ir {
						h.ir = len(h.stack)
					}
					continue
				}
				h.stack = append(h.stack, k)
				break
			}
			// iz == h.ir: floor element under inspection.
			j := h.stack[iz-1]
			if (k.Value-j.Value)*j.Value >= -eps {
				h.stack = h.stack[:iz-1]
				h.ir--
				continue
			}
			if math.Abs(k.Value) > math.Abs(j.Value) {
				h.ir++
			}
			h.stack = append(h.stack, k)
			break
		}
	}
	return cycles
}

// residueView returns a copy of the live stack contents, used by
// Context to keep the shared residue in sync with HCM's internal
// state after each feed.
func (h *hcmState) residueView() []Tuple {
	out := make([]Tuple, len(h.stack))
	copy(out, h.stack)
	return out
}

// reset clears the stack, used when re-initializing class parameters
// or refeeding.
func (h *hcmState) reset() {
	h.stack = nil
	h.ir = 0
}
