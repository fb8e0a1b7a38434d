package rainflow

import "math"

// WoehlerParams is a parametric S-N (Wöhler) fatigue curve with a
// knee (SX, NX), slopes K (above the knee) and K2 (below), a fatigue
// strength (SD, ND), an omission amplitude SO, and degradation
// exponents Q, Q2 used by the Miner-consequent update (§4.8).
//
// Slopes are stored as negative numbers internally, matching the
// source convention the spec preserves in §4.1; |K| and |K2| must be
// >= 1.
type WoehlerParams struct {
	SX, NX float64
	SD, ND float64
	K, K2  float64
	SO     float64
	Q, Q2  float64
}

// DefaultWoehlerParams returns the §4.1 defaults: SX=1e3, NX=1e7,
// K=-5, SD=0, ND=+Inf, Q=|K|-1, Q2=|K2|-1 (K2 defaults to K).
func DefaultWoehlerParams() WoehlerParams {
	k := -5.0
	return WoehlerParams{
		SX: 1e3, NX: 1e7,
		SD: 0, ND: math.Inf(1),
		K: k, K2: k,
		SO: 0,
		Q:  math.Abs(k) - 1,
		Q2: math.Abs(k) - 1,
	}
}

// NewElementaryWoehler builds a single-slope curve: the same slope k applies
// above and below the knee, with no fatigue-strength floor.
func NewElementaryWoehler(sx, nx, k float64) (WoehlerParams, error) {
	w := DefaultWoehlerParams()
	w.SX, w.NX = sx, nx
	w.K = negSlope(k)
	w.K2 = w.K
	w.SD, w.ND = 0, math.Inf(1)
	w.Q = math.Abs(w.K) - 1
	w.Q2 = w.Q
	return w, w.Validate()
}

// NewOriginalWoehler builds a curve whose knee coincides with the fatigue
// strength: sx=sd, nx=nd.
func NewOriginalWoehler(sd, nd, k float64) (WoehlerParams, error) {
	w := DefaultWoehlerParams()
	w.SX, w.NX = sd, nd
	w.SD, w.ND = sd, nd
	w.K = negSlope(k)
	w.K2 = w.K
	w.Q = math.Abs(w.K) - 1
	w.Q2 = w.Q
	return w, w.Validate()
}

// NewModifiedWoehler builds a bilinear curve with independent slopes above
// (k) and below (k2) the knee, and no fatigue-strength floor.
func NewModifiedWoehler(sx, nx, k, k2 float64) (WoehlerParams, error) {
	w := DefaultWoehlerParams()
	w.SX, w.NX = sx, nx
	w.K = negSlope(k)
	w.K2 = negSlope(k2)
	w.SD, w.ND = 0, math.Inf(1)
	w.Q = math.Abs(w.K) - 1
	w.Q2 = math.Abs(w.K2) - 1
	return w, w.Validate()
}

// NewAnyWoehler installs a fully specified set of parameters as-is (slopes
// are still normalized to their negative form).
func NewAnyWoehler(w WoehlerParams) (WoehlerParams, error) {
	w.K = negSlope(w.K)
	w.K2 = negSlope(w.K2)
	return w, w.Validate()
}

func negSlope(k float64) float64 {
	if k > 0 {
		return -k
	}
	return k
}

// Validate checks |K|, |K2| >= 1 and a coherent knee/fatigue-strength
// ordering.
func (w WoehlerParams) Validate() error {
	if math.Abs(w.K) < 1 || math.Abs(w.K2) < 1 {
		return newErr("WoehlerParams.Validate", ErrInvArg, nil)
	}
	if w.SX <= 0 || w.NX <= 0 {
		return newErr("WoehlerParams.Validate", ErrInvArg, nil)
	}
	if w.SD < 0 || w.SD > w.SX {
		return newErr("WoehlerParams.Validate", ErrInvArg, nil)
	}
	return nil
}

// CalcSX solves for SX given a point (s, n) on the upper branch and
// slope K: inverting CalcN's n = NX*(s/SX)^K gives
// SX = s * (n/NX)^(-1/K).
func (w WoehlerParams) CalcSX(s, n float64) float64 {
	return s * math.Pow(n/w.NX, -1/w.K)
}

// CalcSD returns the fatigue-strength amplitude implied by continuing
// the lower-branch slope K2 down to cycle count nd.
func (w WoehlerParams) CalcSD(nd float64) float64 {
	return w.SX * math.Pow(nd/w.NX, 1/w.K2)
}

// CalcK2 solves for the lower-branch slope that makes the curve pass
// through (sd, nd) given the knee (SX, NX).
func (w WoehlerParams) CalcK2(sd, nd float64) float64 {
	if sd <= 0 || w.SX <= 0 || nd <= 0 || w.NX <= 0 {
		return w.K
	}
	k2 := math.Log(nd/w.NX) / math.Log(sd/w.SX)
	return negSlope(k2)
}

// CalcSA returns the amplitude at cycles-to-failure n on whichever
// branch n falls in.
func (w WoehlerParams) CalcSA(n float64) float64 {
	if n <= w.NX {
		return w.SX * math.Pow(n/w.NX, 1/w.K)
	}
	return w.SX * math.Pow(n/w.NX, 1/w.K2)
}

// CalcN returns the cycles-to-failure at amplitude sa on whichever
// branch sa falls in; returns +Inf below the fatigue strength.
func (w WoehlerParams) CalcN(sa float64) float64 {
	if sa <= w.SO {
		return math.Inf(1)
	}
	if sa > w.SX {
		return w.NX * math.Pow(sa/w.SX, w.K)
	}
	if sa > w.SD {
		return w.NX * math.Pow(sa/w.SX, w.K2)
	}
	return math.Inf(1)
}

// AmplitudeDamage computes per-cycle damage from amplitude sa per
// §4.1. When minimal is true (RFC_MINIMAL semantics), only the
// single-slope form above the knee applies: no omission, no fatigue
// strength floor.
func (w WoehlerParams) AmplitudeDamage(sa float64, minimal bool) float64 {
	if minimal {
		if sa <= 0 {
			return 0
		}
		return math.Exp(math.Abs(w.K)*(math.Log(sa)-math.Log(w.SX)) - math.Log(w.NX))
	}
	if sa <= w.SO {
		return 0
	}
	if sa > w.SX {
		return math.Exp(math.Abs(w.K)*(math.Log(sa)-math.Log(w.SX)) - math.Log(w.NX))
	}
	if sa > w.SD {
		return math.Exp(math.Abs(w.K2)*(math.Log(sa)-math.Log(w.SX)) - math.Log(w.NX))
	}
	return 0
}
