package rainflow

import "sort"

// TPBackend lets a host back the turning-point log with external
// storage via three callbacks (§4.3). When unset, the log keeps an
// internal dynamic array.
//
// Grounded on the teacher's pluggable-strategy pattern in
// sim/latency_model.go, where a package-level factory variable lets a
// sub-package register an alternate implementation; here the strategy
// is an explicit interface instead, since the turning-point log is a
// per-Context collaborator rather than a process-wide singleton.
type TPBackend interface {
	SetTuple(pos int64, t Tuple) error
	GetTuple(pos int64) (Tuple, error)
	IncDamage(pos int64, d float64) error
}

// TPLog is an ordered, 1-indexed, append-only turning-point log
// (§4.3). Writes are rejected while Locked (set during finalization),
// except damage increments, which are always permitted.
type TPLog struct {
	backend TPBackend
	entries []Tuple // entries[i] currently represents tp_pos firstPos+int64(i)
	firstPos int64  // tp_pos of entries[0]; 0 when entries is empty

	locked bool

	autoprune      bool
	pruneThreshold int
	pruneSize      int
	preservePos    bool
	preserveRes    bool
}

// NewTPLog creates an empty, unbacked turning-point log.
func NewTPLog() *TPLog {
	return &TPLog{firstPos: 1}
}

// SetBackend installs external storage; subsequent Append/Get/Set/
// IncDamage calls are delegated to it instead of the internal array.
func (l *TPLog) SetBackend(b TPBackend) { l.backend = b }

// ConfigureAutoprune enables automatic pruning once Len() exceeds
// threshold, keeping at most size entries (§4.3).
func (l *TPLog) ConfigureAutoprune(threshold, size int, preservePos, preserveRes bool) {
	l.autoprune = true
	l.pruneThreshold = threshold
	l.pruneSize = size
	l.preservePos = preservePos
	l.preserveRes = preserveRes
}

// Lock prevents further Append/Set calls (but not IncDamage); used
// during finalization so the residue policies can't accidentally
// mutate history.
func (l *TPLog) Lock() { l.locked = true }

// Unlock re-enables Append/Set.
func (l *TPLog) Unlock() { l.locked = false }

// Len returns the number of entries currently retained (after any
// pruning — not the highest tp_pos ever issued).
func (l *TPLog) Len() int64 {
	if l.backend != nil {
		return 0 // external backend tracks its own length; not modeled here
	}
	return int64(len(l.entries))
}

// NextPos returns the tp_pos that the next Append will assign.
func (l *TPLog) NextPos() int64 {
	if len(l.entries) == 0 {
		if l.firstPos == 0 {
			return 1
		}
		return l.firstPos
	}
	return l.entries[len(l.entries)-1].TPPos + 1
}

// Append assigns t a new tp_pos (t.TPPos is set on the returned copy)
// and stores it. Returns ErrTP if the log is locked.
func (l *TPLog) Append(t Tuple) (Tuple, error) {
	if l.locked {
		return Tuple{}, newErr("TPLog.Append", ErrTP, nil)
	}
	pos := l.nextLogicalPos()
	t.TPPos = pos
	if l.backend != nil {
		if err := l.backend.SetTuple(pos, t); err != nil {
			return Tuple{}, newErr("TPLog.Append", ErrTP, err)
		}
		return t, nil
	}
	if len(l.entries) == 0 {
		l.firstPos = pos
	}
	l.entries = append(l.entries, t)
	return t, nil
}

func (l *TPLog) nextLogicalPos() int64 {
	if len(l.entries) == 0 {
		if l.firstPos == 0 {
			return 1
		}
		return l.firstPos
	}
	return l.entries[len(l.entries)-1].TPPos + 1
}

// Get returns the tuple at tp_pos pos.
func (l *TPLog) Get(pos int64) (Tuple, error) {
	if pos <= 0 {
		return Tuple{}, newErr("TPLog.Get", ErrTP, nil)
	}
	if l.backend != nil {
		t, err := l.backend.GetTuple(pos)
		if err != nil {
			return Tuple{}, newErr("TPLog.Get", ErrTP, err)
		}
		return t, nil
	}
	idx := pos - l.firstPos
	if idx < 0 || int(idx) >= len(l.entries) {
		return Tuple{}, newErr("TPLog.Get", ErrTP, nil)
	}
	return l.entries[idx], nil
}

// Set overwrites the tuple at tp_pos pos. Rejected while locked.
func (l *TPLog) Set(pos int64, t Tuple) error {
	if l.locked {
		return newErr("TPLog.Set", ErrTP, nil)
	}
	if l.backend != nil {
		if err := l.backend.SetTuple(pos, t); err != nil {
			return newErr("TPLog.Set", ErrTP, err)
		}
		return nil
	}
	idx := pos - l.firstPos
	if idx < 0 || int(idx) >= len(l.entries) {
		return newErr("TPLog.Set", ErrTP, nil)
	}
	l.entries[idx] = t
	return nil
}

// RequantizeAll re-derives each stored tuple's Class from its raw
// Value under new class parameters, used after an autoresize widens
// the class range (§4.2). A no-op against an external backend, which
// tracks its own storage and is the host's responsibility to update.
func (l *TPLog) RequantizeAll(classOf func(float64) int) {
	if l.backend != nil {
		return
	}
	for i := range l.entries {
		l.entries[i].Class = classOf(l.entries[i].Value)
	}
}

// IncDamage adds d to the damage field of the tuple at tp_pos pos.
// Always permitted, even while locked (§4.3).
func (l *TPLog) IncDamage(pos int64, d float64) error {
	if l.backend != nil {
		if err := l.backend.IncDamage(pos, d); err != nil {
			return newErr("TPLog.IncDamage", ErrTP, err)
		}
		return nil
	}
	idx := pos - l.firstPos
	if idx < 0 || int(idx) >= len(l.entries) {
		return newErr("TPLog.IncDamage", ErrTP, nil)
	}
	l.entries[idx].Damage += d
	return nil
}

// Clear empties the log entirely.
func (l *TPLog) Clear() {
	l.entries = nil
	l.firstPos = 1
}

// MaybeAutoprune runs Prune if autopruning is enabled and the log has
// exceeded its configured threshold.
func (l *TPLog) MaybeAutoprune(residue *Residue) error {
	if !l.autoprune || l.backend != nil {
		return nil
	}
	if len(l.entries) <= l.pruneThreshold {
		return nil
	}
	return l.Prune(l.pruneSize, residue)
}

// Prune drops the oldest entries so that at most size remain,
// shifting residue back-references to match (§4.3). preserveRes keeps
// any entry still referenced by residue (TPPos or AdjPos) alive even
// if it would otherwise be dropped; preservePos keeps the surviving
// entries' TPPos at their original absolute values instead of
// renumbering them starting at 1. Pos (the input-stream position) is
// not changed in either mode.
func (l *TPLog) Prune(size int, residue *Residue) error {
	if l.backend != nil {
		return newErr("TPLog.Prune", ErrUnsupported, nil)
	}
	n := len(l.entries)
	if n <= size {
		return nil
	}
	drop := n - size

	if l.preserveRes && residue != nil {
		minRef := int64(-1)
		for _, t := range residue.Tuples() {
			for _, ref := range []int64{t.TPPos, t.AdjPos} {
				if ref > 0 && (minRef == -1 || ref < minRef) {
					minRef = ref
				}
			}
		}
		if minRef != -1 {
			maxDrop := int(minRef - l.firstPos)
			if maxDrop < drop {
				drop = maxDrop
			}
		}
	}
	if drop <= 0 {
		return nil
	}

	shift := l.entries[drop].TPPos - l.firstPos // absolute count discarded
	oldFirstPos := l.firstPos
	l.entries = append([]Tuple{}, l.entries[drop:]...)

	if l.preservePos {
		l.firstPos = oldFirstPos + shift
	} else {
		l.firstPos = oldFirstPos
		for i := range l.entries {
			l.entries[i].TPPos -= shift
			if l.entries[i].AdjPos > 0 {
				l.entries[i].AdjPos -= shift
			}
		}
		if residue != nil {
			tuples := residue.Tuples()
			for i := range tuples {
				if tuples[i].TPPos > 0 {
					tuples[i].TPPos -= shift
				}
				if tuples[i].AdjPos > 0 {
					tuples[i].AdjPos -= shift
				}
			}
			residue.Replace(tuples)
		}
	}
	return nil
}

// dinSortSlopes sorts indices of abs by descending magnitude,
// tie-broken by ascending original position — used by the
// RP_DIN45667 finalizer policy (§4.5, §9). Kept here alongside the
// rest of the turning-point bookkeeping because it operates purely on
// tuple positions.
func dinSortSlopes(idx []int, abs []float64, pos []int64) {
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := idx[i], idx[j]
		if abs[a] != abs[b] {
			return abs[a] > abs[b]
		}
		return pos[a] < pos[b]
	})
}
