package rainflow

import (
	"gonum.org/v1/gonum/floats"
)

// haighPoint is one knot of a Haigh (mean-stress) diagram, stored in
// absolute (Sa,Sm) coordinates alongside its own normalized mean
// Sm/Sa, which must be strictly increasing across the curve (§4.6).
type haighPoint struct {
	Sa, Sm, norm float64
}

// AmplitudeTransform implements the §4.6 Haigh mean-stress correction:
// either a caller-supplied reference curve, or one synthesized from a
// mean-stress sensitivity M via the closed-form R-ratio intersections.
type AmplitudeTransform struct {
	points    []haighPoint
	fromCurve bool
	m         float64
	smRig     float64
	rRig      float64
	rPinned   bool
}

// NewAmplitudeTransform validates and builds an AmplitudeTransform.
// sa/sm with length >= 2 are taken as an explicit reference curve;
// an empty pair synthesizes a 3-point (asymmetric) or 5-point
// (symmetric) curve from M.
func NewAmplitudeTransform(sa, sm []float64, m, smRig, rRig float64, rPinned, symmetric bool) (*AmplitudeTransform, error) {
	at := &AmplitudeTransform{m: m, smRig: smRig, rRig: rRig, rPinned: rPinned}

	if len(sa) >= 2 {
		if len(sa) != len(sm) {
			return nil, newErr("NewAmplitudeTransform", ErrInvArg, nil)
		}
		if floats.HasNaN(sa) || floats.HasNaN(sm) {
			return nil, newErr("NewAmplitudeTransform", ErrAT, nil)
		}
		pts := make([]haighPoint, len(sa))
		for i := range sa {
			if sa[i] <= 0 {
				return nil, newErr("NewAmplitudeTransform", ErrInvArg, nil)
			}
			pts[i] = haighPoint{Sa: sa[i], Sm: sm[i], norm: sm[i] / sa[i]}
		}
		for i := 0; i+1 < len(pts); i++ {
			if !(pts[i].Sm < pts[i+1].Sm) {
				return nil, newErr("NewAmplitudeTransform", ErrInvArg, nil)
			}
			if !(pts[i].norm < pts[i+1].norm) {
				return nil, newErr("NewAmplitudeTransform", ErrInvArg, nil)
			}
		}
		at.points = pts
		at.fromCurve = true
		return at, nil
	}

	if m < 0 {
		return nil, newErr("NewAmplitudeTransform", ErrInvArg, nil)
	}
	at.points = synthesizeHaigh(m, symmetric)
	at.fromCurve = false
	return at, nil
}

// synthesizeHaigh builds the curve from §4.6's closed-form points:
// Sa(R=inf) = 1/(1-M) at normalized mean -1 (static-compression
// limit), Sa(R=0) = 1/(1+M) at normalized mean +1 (pulsating), and
// Sa(R=1/2) = Sa(R=0)*(1+M/3)/(1+M) at normalized mean +3. The
// asymmetric variant uses 3 points: Sa=1 at mean 0, R=0 and R=1/2.
// The symmetric variant adds the R=inf point at -1 and mirrors the
// R=1/2 point to -3, for a 5-point curve.
func synthesizeHaigh(m float64, symmetric bool) []haighPoint {
	saR0 := 1 / (1 + m)
	saRInf := 1 / (1 - m)
	saR12 := saR0 * (1 + m/3) / (1 + m)

	norms := []float64{0, 1, 3}
	sas := []float64{1, saR0, saR12}
	if symmetric {
		norms = []float64{-3, -1, 0, 1, 3}
		sas = []float64{saR12, saRInf, 1, saR0, saR12}
	}
	pts := make([]haighPoint, len(norms))
	for i, n := range norms {
		pts[i] = haighPoint{Sa: sas[i], Sm: n * sas[i], norm: n}
	}
	return pts
}

// lookup returns the curve's Sa value at normalized mean smNorm by
// locating the bracketing segment and solving for where the ray of
// slope Sa/Sm = 1/smNorm intersects it (§4.6, last paragraph).
// Values beyond the curve's extent clamp to the nearest endpoint.
func (at *AmplitudeTransform) lookup(smNorm float64) float64 {
	pts := at.points
	if smNorm <= pts[0].norm {
		return pts[0].Sa
	}
	last := len(pts) - 1
	if smNorm >= pts[last].norm {
		return pts[last].Sa
	}
	for i := 0; i < last; i++ {
		if smNorm < pts[i].norm || smNorm > pts[i+1].norm {
			continue
		}
		dSa := pts[i+1].Sa - pts[i].Sa
		dSm := pts[i+1].Sm - pts[i].Sm
		denom := smNorm*dSa - dSm
		if denom == 0 {
			return pts[i].Sa
		}
		t := (pts[i].Sm - smNorm*pts[i].Sa) / denom
		return pts[i].Sa + t*dSa
	}
	return pts[last].Sa
}

// Transform maps (Sa,Sm) -> Sa' per §4.6.
func (at *AmplitudeTransform) Transform(sa, sm float64) float64 {
	if !at.fromCurve && at.m == 0 {
		return sa
	}
	if sa <= 0 {
		return sa
	}
	base := at.lookup(0)
	if base == 0 {
		return sa
	}
	var targetNorm float64
	if at.rPinned {
		targetNorm = (1 + at.rRig) / (1 - at.rRig)
	} else {
		targetNorm = at.smRig / sa
	}
	target := at.lookup(targetNorm)
	return sa * target / base
}
