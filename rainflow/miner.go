package rainflow

import "math"

// MinerConsequent tracks the shadow damage counter and impaired
// Wöhler parameters of the §4.8 COUNT_MK update. Unimpaired and
// impaired curves are kept side by side so damage_from_rp helpers
// that must operate on the unimpaired curve can swap it back in
// without losing the running impairment.
//
// Grounded on the teacher's shadow-struct swap pattern for
// cache-derived state (sim/kv_store.go computes a derived snapshot
// once and swaps it in atomically rather than mutating live state
// piecemeal); here the swap is explicit because impairment must be
// reversible per-call rather than permanent.
type MinerConsequent struct {
	unimpaired WoehlerParams
	impaired   WoehlerParams
	dCon       float64
}

// NewMinerConsequent seeds the shadow state from the context's
// current (unimpaired) Wöhler parameters.
func NewMinerConsequent(w WoehlerParams) *MinerConsequent {
	return &MinerConsequent{unimpaired: w, impaired: w}
}

// Current returns the parameters subsequent cycles should be damaged
// against: the impaired curve once any impairment has accrued.
func (m *MinerConsequent) Current() WoehlerParams { return m.impaired }

// Unimpaired returns the original curve, for callers that must
// bypass impairment (e.g. damage_from_rp on the unimpaired curve).
func (m *MinerConsequent) Unimpaired() WoehlerParams { return m.unimpaired }

// Reset clears accrued impairment, e.g. on clear_counts.
func (m *MinerConsequent) Reset() {
	m.impaired = m.unimpaired
	m.dCon = 0
}

// SetUnimpaired installs a new baseline curve (e.g. wl_param_set) and
// resets impairment against it.
func (m *MinerConsequent) SetUnimpaired(w WoehlerParams) {
	m.unimpaired = w
	m.Reset()
}

// Accumulate applies one counted cycle's amplitude to the shadow
// damage counter using the current impaired curve, bypassing any
// damage LUT (§4.8), and degrades the impaired curve once D_con < 1.
// Cycles below the unimpaired fatigue strength do not contribute.
func (m *MinerConsequent) Accumulate(sa float64) {
	if sa < m.unimpaired.SD {
		return
	}
	m.dCon += m.impaired.AmplitudeDamage(sa, false)
	if m.dCon >= 1 {
		return
	}

	factor := math.Pow(1-m.dCon, 1/m.unimpaired.Q)
	sxImp := m.unimpaired.SX * factor
	nxImp := m.unimpaired.CalcN(sxImp)

	next := m.impaired
	next.SX, next.NX = sxImp, nxImp

	if m.unimpaired.SD > 0 {
		factor2 := math.Pow(1-m.dCon, 1/m.unimpaired.Q2)
		sdImp := m.unimpaired.SD * factor2
		ndImp := m.unimpaired.CalcN(sdImp)
		next.SD, next.ND = sdImp, ndImp
	}
	m.impaired = next
}
