package rainflow

// Residue is the ordered sequence of turning points not yet closed by
// the detector (§3). Its capacity is bounded at 2*class_count+1,
// except for the transient moment where one interim point is
// appended; a class_count of 0 gets a small static allowance instead.
//
// Grounded on the teacher's WaitQueue (sim/queue.go): a slice-backed
// FIFO, generalized here to a bounded deque supporting mid-sequence
// removal, which the 4-point and HCM detectors require.
type Residue struct {
	tuples []Tuple
	cap    int
}

// NewResidue creates a residue with the given capacity. A capacity of
// 0 falls back to a small static allowance for class_count == 0
// (turning-point filtering only, no histograms).
func NewResidue(capacity int) *Residue {
	if capacity <= 0 {
		capacity = 3
	}
	return &Residue{tuples: make([]Tuple, 0, capacity+1), cap: capacity}
}

// Len returns the number of tuples currently held.
func (r *Residue) Len() int { return len(r.tuples) }

// Push appends t. It allows exactly one transient element beyond
// capacity (the interim turning point); a second excess push is a
// caller bug and returns an error.
func (r *Residue) Push(t Tuple) error {
	if len(r.tuples) > r.cap {
		return newErr("Residue.Push", ErrMemory, nil)
	}
	r.tuples = append(r.tuples, t)
	return nil
}

// At returns the tuple at 0-based index i.
func (r *Residue) At(i int) Tuple { return r.tuples[i] }

// Set overwrites the tuple at 0-based index i.
func (r *Residue) Set(i int, t Tuple) { r.tuples[i] = t }

// Last returns the most recently pushed tuple.
func (r *Residue) Last() Tuple { return r.tuples[len(r.tuples)-1] }

// PopBack removes and returns the last tuple.
func (r *Residue) PopBack() Tuple {
	t := r.tuples[len(r.tuples)-1]
	r.tuples = r.tuples[:len(r.tuples)-1]
	return t
}

// PopFront removes and returns the first tuple.
func (r *Residue) PopFront() Tuple {
	t := r.tuples[0]
	r.tuples = r.tuples[1:]
	return t
}

// RemoveAt removes the tuple at 0-based index i, preserving order.
func (r *Residue) RemoveAt(i int) {
	r.tuples = append(r.tuples[:i], r.tuples[i+1:]...)
}

// RemoveIndices removes tuples at the given 0-based indices (which
// must be sorted ascending), preserving order of the rest.
func (r *Residue) RemoveIndices(idx ...int) {
	if len(idx) == 0 {
		return
	}
	remove := make(map[int]bool, len(idx))
	for _, i := range idx {
		remove[i] = true
	}
	out := r.tuples[:0:0]
	for i, t := range r.tuples {
		if !remove[i] {
			out = append(out, t)
		}
	}
	r.tuples = out
}

// Tuples returns a copy of the held tuples, in order.
func (r *Residue) Tuples() []Tuple {
	out := make([]Tuple, len(r.tuples))
	copy(out, r.tuples)
	return out
}

// Clear empties the residue.
func (r *Residue) Clear() { r.tuples = r.tuples[:0] }

// Replace swaps the held tuples wholesale, used to mirror the HCM
// stack into the residue and by TPLog.Prune to write back shifted
// back-references.
func (r *Residue) Replace(tuples []Tuple) { r.tuples = tuples }

// RequantizeAll re-derives every held tuple's Class from its raw
// Value, used after an autoresize widens the class range (§4.2).
func (r *Residue) RequantizeAll(classOf func(float64) int) {
	for i := range r.tuples {
		r.tuples[i].Class = classOf(r.tuples[i].Value)
	}
}
