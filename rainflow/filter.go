package rainflow

import "math"

// HysteresisMode selects how the turning-point filter measures a
// reversal: raw value delta, or class_width * |delta class| (§4.2).
type HysteresisMode int

const (
	// HysteresisByValue uses the raw value delta.
	HysteresisByValue HysteresisMode = iota
	// HysteresisByClass uses class_width * |delta class|.
	HysteresisByClass
)

type filterPhase int

const (
	phaseSeekExtrema filterPhase = iota
	phaseTracking
)

// Filter is the incremental hysteresis / peak-valley state machine of
// §4.2. It consumes one sample (as a Tuple) at a time and maintains
// the residue's interim tuple plus, once a reversal is confirmed,
// promotes the previous interim into a committed turning point in the
// turning-point log.
//
// Grounded on the teacher's explicit-state-field convention
// (sim/request.go's State string with named values), generalized here
// into a typed enum per Go idiom, and on sim/request.go's lifecycle
// shape (seek -> tracking mirrors queued -> running).
type Filter struct {
	mode       HysteresisMode
	classWidth float64

	phase filterPhase
	haveMin, haveMax bool
	runMin, runMax   Tuple
	slope            int // -1 falling, +1 rising; valid once phaseTracking

	enforceMargin bool
	marginStage   int // 0: nothing seen, 1: left margin pending, 2: left margin emitted
	firstTuple    *Tuple
	lastTuple     *Tuple
}

// NewFilter creates a hysteresis filter. classWidth is only consulted
// when mode is HysteresisByClass.
func NewFilter(mode HysteresisMode, classWidth float64, enforceMargin bool) *Filter {
	return &Filter{mode: mode, classWidth: classWidth, enforceMargin: enforceMargin}
}

func (f *Filter) measure(a, b Tuple) float64 {
	if f.mode == HysteresisByClass {
		return f.classWidth * math.Abs(float64(a.Class-b.Class))
	}
	return math.Abs(a.Value - b.Value)
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// FilterResult reports what a Feed call did: whether a new turning
// point was committed to the log (Promoted, with the tuple that was
// promoted) and the tuple now held as the residue's interim element.
type FilterResult struct {
	Promoted   bool
	Promotable Tuple // the tuple promoted to a real turning point, if Promoted
	Interim    Tuple // the new interim tuple (always set)
	HaveInterim bool
}

// Feed processes one incoming sample against the current filter
// state and the existing interim tuple (if any, passed in explicitly
// so Filter stays free of residue/tp-log storage concerns — Context
// owns those and performs the log append / residue mutation the
// result implies).
func (f *Filter) Feed(pt Tuple, hysteresis float64, interim *Tuple) FilterResult {
	if f.enforceMargin && f.firstTuple == nil {
		t := pt
		f.firstTuple = &t
	}
	if f.enforceMargin {
		t := pt
		f.lastTuple = &t
	}

	if f.phase == phaseSeekExtrema {
		return f.feedSeek(pt, hysteresis)
	}
	return f.feedTracking(pt, hysteresis, interim)
}

func (f *Filter) feedSeek(pt Tuple, hysteresis float64) FilterResult {
	if !f.haveMin || pt.Value < f.runMin.Value {
		f.runMin = pt
		f.haveMin = true
	}
	if !f.haveMax || pt.Value > f.runMax.Value {
		f.runMax = pt
		f.haveMax = true
	}
	if !f.haveMin || !f.haveMax {
		return FilterResult{Interim: pt, HaveInterim: true}
	}
	if f.measure(f.runMax, f.runMin) <= hysteresis {
		return FilterResult{Interim: pt, HaveInterim: true}
	}

	// Reversal magnitude exceeded: emit the two extrema in time order.
	falling := f.runMax.Pos < f.runMin.Pos
	f.phase = phaseTracking
	if falling {
		f.slope = -1
		return FilterResult{Promoted: true, Promotable: f.runMax, Interim: f.runMin, HaveInterim: true}
	}
	f.slope = 1
	return FilterResult{Promoted: true, Promotable: f.runMin, Interim: f.runMax, HaveInterim: true}
}

func (f *Filter) feedTracking(pt Tuple, hysteresis float64, interim *Tuple) FilterResult {
	delta := f.measure(pt, *interim)
	newSlope := sign(pt.Value - interim.Value)

	if newSlope == f.slope {
		// Extend the current excursion: overwrite the interim tuple.
		return FilterResult{Interim: pt, HaveInterim: true}
	}
	if newSlope == 0 {
		// An exact tie is neither an extension nor a confirmed
		// reversal: ignore it and keep the old interim (and its Pos).
		return FilterResult{Interim: *interim, HaveInterim: true}
	}
	if delta > hysteresis {
		// Reversal confirmed: promote the old interim, start a new one.
		f.slope = newSlope
		return FilterResult{Promoted: true, Promotable: *interim, Interim: pt, HaveInterim: true}
	}
	// Inside the hysteresis band: ignore.
	return FilterResult{Interim: *interim, HaveInterim: true}
}

// LeftMargin returns the very first sample seen, for ENFORCE_MARGIN.
func (f *Filter) LeftMargin() (Tuple, bool) {
	if f.firstTuple == nil {
		return Tuple{}, false
	}
	return *f.firstTuple, true
}

// RightMargin returns the most recent sample seen, for ENFORCE_MARGIN
// at finalization.
func (f *Filter) RightMargin() (Tuple, bool) {
	if f.lastTuple == nil {
		return Tuple{}, false
	}
	return *f.lastTuple, true
}

// Seeking reports whether the filter has not yet established a first
// turning point pair.
func (f *Filter) Seeking() bool { return f.phase == phaseSeekExtrema }

// RequantizeExtrema re-derives the filter's running extrema and
// margin tuples' Class fields from their raw Values, used after an
// autoresize widens the class range (§4.2).
func (f *Filter) RequantizeExtrema(classOf func(float64) int) {
	if f.haveMin {
		f.runMin.Class = classOf(f.runMin.Value)
	}
	if f.haveMax {
		f.runMax.Class = classOf(f.runMax.Value)
	}
	if f.firstTuple != nil {
		f.firstTuple.Class = classOf(f.firstTuple.Value)
	}
	if f.lastTuple != nil {
		f.lastTuple.Class = classOf(f.lastTuple.Value)
	}
}
