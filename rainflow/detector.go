package rainflow

// DetectorKind selects which cycle detector is active on a context
// (§4.4). Exactly one is active at a time.
type DetectorKind int

const (
	DetectorNone DetectorKind = iota
	DetectorFourPoint
	DetectorHCM
	DetectorASTM
	DetectorDelegated
)

// DetectorFunc is the signature a DetectorDelegated host supplies: it
// is handed the live residue (which it may mutate, per §4.4) and
// returns any cycles that closed as a result of the latest push.
type DetectorFunc func(residue *Residue) []ClosedCycle

// increments bundles the full/half cycle-weight constants a detector
// needs to stamp onto the cycles it emits (§9: kept per-context rather
// than as C-style globals).
type increments struct {
	full, half int64
}

// runDetector dispatches to the configured detector and returns any
// newly closed cycles. The residue is mutated in place by whichever
// detector runs, matching §4.4's "mutates residue and emits closed
// cycles" data flow.
func runDetector(kind DetectorKind, residue *Residue, hcm *hcmState, classWidth float64, inc increments, delegate DetectorFunc) ([]ClosedCycle, error) {
	switch kind {
	case DetectorNone:
		return nil, nil
	case DetectorFourPoint:
		return detectFourPoint(residue, inc.full), nil
	case DetectorHCM:
		return hcm.feed(residue, classWidth, inc.full), nil
	case DetectorASTM:
		return detectASTM(residue, inc), nil
	case DetectorDelegated:
		if delegate == nil {
			return nil, newErr("runDetector", ErrInvArg, nil)
		}
		return delegate(residue), nil
	default:
		return nil, newErr("runDetector", ErrInvArg, nil)
	}
}
