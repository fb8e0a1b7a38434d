package rainflow

import "math"

// State is a Context's lifecycle stage (§6).
type State int

const (
	StateInit0 State = iota
	StateInit
	StateBusy
	StateBusyInterim
	StateFinalize
	StateFinished
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit0:
		return "INIT0"
	case StateInit:
		return "INIT"
	case StateBusy:
		return "BUSY"
	case StateBusyInterim:
		return "BUSY_INTERIM"
	case StateFinalize:
		return "FINALIZE"
	case StateFinished:
		return "FINISHED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Flags is the operation-flag bitmask (§6).
type Flags uint32

const (
	CountRFM Flags = 1 << iota
	CountRP
	CountLCUp
	CountLCDn
	CountDamage
	CountDH
	CountMK
	EnforceMargin
	TPAutoprune
	TPPrunePreservePos
	TPPrunePreserveRes
	Autoresize
)

// CountLC is the combined up+down level-crossing flag.
const CountLC = CountLCUp | CountLCDn

// CountAll is the union of every counting flag (§6's default mask is
// CountRFM|CountDamage plus TPPrunePreserveRes).
const CountAll = CountRFM | CountRP | CountLC | CountDamage | CountDH | CountMK

// DefaultFlags matches §6: "rainflow matrix + damage, with
// turning-point preservation".
const DefaultFlags = CountRFM | CountDamage | TPPrunePreserveRes

// Context is the engine driving one stream through filtering,
// detection, counting, and damage accumulation (§3-§9). One struct
// owns every subsystem's state, mirroring the teacher's top-level
// driver-object shape (Simulator owning EventQueue/WaitQ/KVCache/
// Metrics) rather than splitting collaborators across free functions.
type Context struct {
	state State
	err   *Error

	class ClassParams
	miner *MinerConsequent
	at    *AmplitudeTransform

	flags Flags

	hysteresisMode HysteresisMode
	hysteresis     float64

	detectorKind     DetectorKind
	delegateDetector DetectorFunc

	filter  *Filter
	residue *Residue
	tpLog   *TPLog
	hcm     *hcmState
	matrix  *Matrix
	damage  *DamageCalc
	dh      *DamageHistory

	spreadMethod SpreadMethod

	streamPos int64
	interim   *Tuple

	sampleSource func(pos int64) float64

	damageTotal  float64
	damageBefore float64

	inc increments
}

// NewContext constructs an INIT0 context. Init must be called before
// any feeding happens.
func NewContext() *Context {
	return &Context{state: StateInit0}
}

// StateGet returns the current lifecycle state.
func (c *Context) StateGet() State { return c.state }

// ErrorGet returns the sticky error code, NoError if healthy.
func (c *Context) ErrorGet() ErrorCode {
	if c.err == nil {
		return NoError
	}
	return c.err.Code
}

func (c *Context) fail(op string, code ErrorCode, cause error) error {
	e := newErr(op, code, cause)
	c.err = e
	c.state = StateError
	return e
}

// checkAlive rejects every operation but Deinit once in StateError.
func (c *Context) checkAlive(op string) error {
	if c.state == StateError {
		return c.err
	}
	return nil
}

// Init configures class parameters, Wöhler curve, hysteresis mode and
// value, and detector, moving INIT0/INIT -> INIT. fullInc/halfInc are
// the integer matrix-increment weights for full and half cycles.
func (c *Context) Init(class ClassParams, w WoehlerParams, mode HysteresisMode, hysteresis float64, detector DetectorKind, fullInc, halfInc int64) error {
	if err := c.checkAlive("Context.Init"); err != nil {
		return err
	}
	if c.state != StateInit0 && c.state != StateInit {
		return c.fail("Context.Init", ErrInvArg, nil)
	}
	if err := class.Validate(); err != nil {
		return c.fail("Context.Init", ErrInvArg, err)
	}
	if err := w.Validate(); err != nil {
		return c.fail("Context.Init", ErrInvArg, err)
	}
	if fullInc <= 0 || halfInc <= 0 {
		return c.fail("Context.Init", ErrInvArg, nil)
	}

	c.class = class
	c.miner = NewMinerConsequent(w)
	c.hysteresisMode = mode
	c.hysteresis = hysteresis
	c.detectorKind = detector
	c.inc = increments{full: fullInc, half: halfInc}
	c.flags = DefaultFlags

	c.residue = NewResidue(residueCapacity(class.ClassCount))
	c.filter = NewFilter(mode, class.ClassWidth, false)
	c.tpLog = NewTPLog()
	c.hcm = &hcmState{}
	c.matrix = NewMatrix(class.ClassCount)
	c.damage = NewDamageCalc(class, w, nil, class.ClassCount == 0)
	c.streamPos = 0
	c.damageTotal = 0
	c.state = StateInit
	return nil
}

// Deinit releases a context back to INIT0. Always succeeds, even from
// StateError, matching §7's "all further operations other than deinit
// fail".
func (c *Context) Deinit() {
	*c = Context{state: StateInit0}
}

// ClearCounts wipes all histograms, residue, turning-point log, damage
// history, and damage accumulators while keeping configuration
// (class, Wöhler, AT, hysteresis, detector, flags) intact.
func (c *Context) ClearCounts() error {
	if err := c.checkAlive("Context.ClearCounts"); err != nil {
		return err
	}
	if c.state == StateInit0 {
		return c.fail("Context.ClearCounts", ErrInvArg, nil)
	}
	c.matrix = NewMatrix(c.class.ClassCount)
	c.residue.Clear()
	c.tpLog.Clear()
	c.hcm.reset()
	c.filter = NewFilter(c.hysteresisMode, c.class.ClassWidth, c.flags&EnforceMargin != 0)
	c.damage.Invalidate()
	c.damageTotal = 0
	c.streamPos = 0
	if c.miner != nil {
		c.miner.Reset()
	}
	if c.dh != nil {
		c.dh = NewDamageHistory(c.dh.Len())
	}
	c.state = StateInit
	return nil
}

// --- Parameters ---------------------------------------------------

// ClassParamSet installs new class parameters. Only permitted from
// INIT or FINISHED (not mid-stream), per §7's "setting class params
// when state disallows it".
func (c *Context) ClassParamSet(class ClassParams) error {
	if err := c.checkAlive("Context.ClassParamSet"); err != nil {
		return err
	}
	if c.state != StateInit && c.state != StateFinished {
		return c.fail("Context.ClassParamSet", ErrInvArg, nil)
	}
	if err := class.Validate(); err != nil {
		return c.fail("Context.ClassParamSet", ErrInvArg, err)
	}
	c.class = class
	c.matrix = NewMatrix(class.ClassCount)
	c.damage.SetClass(class)
	c.residue = NewResidue(residueCapacity(class.ClassCount))
	c.filter = NewFilter(c.hysteresisMode, class.ClassWidth, c.flags&EnforceMargin != 0)
	return nil
}

// residueCapacity is the residue bound for classCount classes:
// 2*classCount+1, or 0 (NewResidue's static allowance) when
// classCount is 0.
func residueCapacity(classCount int) int {
	if classCount == 0 {
		return 0
	}
	return 2*classCount + 1
}

// ClassParamGet returns the active class parameters.
func (c *Context) ClassParamGet() ClassParams { return c.class }

func (c *Context) ClassCount() int          { return c.class.ClassCount }
func (c *Context) ClassWidth() float64      { return c.class.ClassWidth }
func (c *Context) ClassOffset() float64     { return c.class.ClassOffset }
func (c *Context) ClassMean(i int) float64  { return c.class.Mean(i) }
func (c *Context) ClassUpper(i int) float64 { return c.class.Upper(i) }
func (c *Context) ClassNumber(v float64) int { return c.class.Number(v) }

// Hysteresis sets the filter's hysteresis threshold.
func (c *Context) Hysteresis(h float64) error {
	if err := c.checkAlive("Context.Hysteresis"); err != nil {
		return err
	}
	if h < 0 {
		return c.fail("Context.Hysteresis", ErrInvArg, nil)
	}
	c.hysteresis = h
	return nil
}

// FlagsSet ORs bits into the operation-flag stack.
func (c *Context) FlagsSet(f Flags) error {
	if err := c.checkAlive("Context.FlagsSet"); err != nil {
		return err
	}
	c.flags |= f
	return nil
}

// FlagsUnset clears bits from the operation-flag stack.
func (c *Context) FlagsUnset(f Flags) error {
	if err := c.checkAlive("Context.FlagsUnset"); err != nil {
		return err
	}
	c.flags &^= f
	return nil
}

// FlagsGet returns the full operation-flag stack.
func (c *Context) FlagsGet() Flags { return c.flags }

// FlagsCheck reports whether every bit in f is set.
func (c *Context) FlagsCheck(f Flags) bool { return c.flags&f == f }

// SpreadMethodSet selects which damage-spreading method credited
// cycles use once COUNT_DH is enabled (§4.7).
func (c *Context) SpreadMethodSet(m SpreadMethod) error {
	if err := c.checkAlive("Context.SpreadMethodSet"); err != nil {
		return err
	}
	c.spreadMethod = m
	return nil
}

// SetDelegateDetector installs the host-supplied detector function
// used when the context's detector kind is DetectorDelegated.
func (c *Context) SetDelegateDetector(f DetectorFunc) {
	c.delegateDetector = f
}

// --- Wöhler ---------------------------------------------------------

// WLInitElementary installs a single-slope curve (§4.1).
func (c *Context) WLInitElementary(sx, nx, k float64) error {
	w, err := NewElementaryWoehler(sx, nx, k)
	if err != nil {
		return c.fail("Context.WLInitElementary", ErrInvArg, err)
	}
	return c.installWoehler(w)
}

// WLInitOriginal installs a curve whose knee is the fatigue strength.
func (c *Context) WLInitOriginal(sd, nd, k float64) error {
	w, err := NewOriginalWoehler(sd, nd, k)
	if err != nil {
		return c.fail("Context.WLInitOriginal", ErrInvArg, err)
	}
	return c.installWoehler(w)
}

// WLInitModified installs a bilinear curve with no fatigue-strength
// floor.
func (c *Context) WLInitModified(sx, nx, k, k2 float64) error {
	w, err := NewModifiedWoehler(sx, nx, k, k2)
	if err != nil {
		return c.fail("Context.WLInitModified", ErrInvArg, err)
	}
	return c.installWoehler(w)
}

// WLInitAny installs a fully specified curve as-is.
func (c *Context) WLInitAny(w WoehlerParams) error {
	w, err := NewAnyWoehler(w)
	if err != nil {
		return c.fail("Context.WLInitAny", ErrInvArg, err)
	}
	return c.installWoehler(w)
}

func (c *Context) installWoehler(w WoehlerParams) error {
	if err := c.checkAlive("Context.installWoehler"); err != nil {
		return err
	}
	if c.miner == nil {
		c.miner = NewMinerConsequent(w)
	} else {
		c.miner.SetUnimpaired(w)
	}
	if c.damage != nil {
		c.damage.SetWoehler(w)
	}
	return nil
}

// WLParamSet overwrites the Wöhler parameters wholesale.
func (c *Context) WLParamSet(w WoehlerParams) error { return c.WLInitAny(w) }

// WLParamGet returns the currently active (impaired, if COUNT_MK is
// on and damage has accrued) Wöhler parameters.
func (c *Context) WLParamGet() WoehlerParams {
	if c.miner == nil {
		return WoehlerParams{}
	}
	if c.flags&CountMK != 0 {
		return c.miner.Current()
	}
	return c.miner.Unimpaired()
}

func (c *Context) WLCalcSX(s, n float64) float64  { return c.WLParamGet().CalcSX(s, n) }
func (c *Context) WLCalcSD(nd float64) float64     { return c.WLParamGet().CalcSD(nd) }
func (c *Context) WLCalcK2(sd, nd float64) float64 { return c.WLParamGet().CalcK2(sd, nd) }
func (c *Context) WLCalcSA(n float64) float64      { return c.WLParamGet().CalcSA(n) }
func (c *Context) WLCalcN(sa float64) float64      { return c.WLParamGet().CalcN(sa) }

// --- Amplitude transform --------------------------------------------

// ATInit configures the Haigh amplitude transform (§4.6).
func (c *Context) ATInit(sa, sm []float64, m, smRig, rRig float64, rPinned, symmetric bool) error {
	if err := c.checkAlive("Context.ATInit"); err != nil {
		return err
	}
	at, err := NewAmplitudeTransform(sa, sm, m, smRig, rRig, rPinned, symmetric)
	if err != nil {
		return c.fail("Context.ATInit", ErrAT, err)
	}
	c.at = at
	if c.damage != nil {
		c.damage.SetAmplitudeTransform(at)
	}
	return nil
}

// ATTransform applies the configured transform directly.
func (c *Context) ATTransform(sa, sm float64) float64 {
	if c.at == nil {
		return sa
	}
	return c.at.Transform(sa, sm)
}

// --- Turning points --------------------------------------------------

// TPInit installs an external backend for the turning-point log.
func (c *Context) TPInit(backend TPBackend) error {
	if err := c.checkAlive("Context.TPInit"); err != nil {
		return err
	}
	c.tpLog.SetBackend(backend)
	return nil
}

// TPInitAutoprune enables automatic pruning once Len() exceeds
// threshold.
func (c *Context) TPInitAutoprune(threshold, size int) error {
	if err := c.checkAlive("Context.TPInitAutoprune"); err != nil {
		return err
	}
	c.tpLog.ConfigureAutoprune(threshold, size,
		c.flags&TPPrunePreservePos != 0, c.flags&TPPrunePreserveRes != 0)
	return nil
}

// TPPrune manually prunes the log to size entries.
func (c *Context) TPPrune(size int) error {
	if err := c.checkAlive("Context.TPPrune"); err != nil {
		return err
	}
	if err := c.tpLog.Prune(size, c.residue); err != nil {
		return c.fail("Context.TPPrune", ErrTP, err)
	}
	return nil
}

// TPClear empties the turning-point log.
func (c *Context) TPClear() error {
	if err := c.checkAlive("Context.TPClear"); err != nil {
		return err
	}
	c.tpLog.Clear()
	return nil
}

// TPRefeed re-runs the detector over the existing turning-point log
// under new hysteresis/class parameters (§4.3). new_hysteresis must
// be >= the previous hysteresis, since relaxing it can only merge
// turning points the log already committed to, never invent new ones.
func (c *Context) TPRefeed(newHysteresis float64, newClass *ClassParams) error {
	if err := c.checkAlive("Context.TPRefeed"); err != nil {
		return err
	}
	if newHysteresis < c.hysteresis {
		return c.fail("Context.TPRefeed", ErrInvArg, nil)
	}
	entries := make([]Tuple, c.tpLog.Len())
	for i := range entries {
		t, err := c.tpLog.Get(c.tpLog.firstPosUnsafe() + int64(i))
		if err != nil {
			return c.fail("Context.TPRefeed", ErrTP, err)
		}
		t.TPPos, t.AdjPos, t.Damage = 0, 0, 0
		entries[i] = t
	}

	if newClass != nil {
		if err := c.ClassParamSet(*newClass); err != nil {
			return err
		}
	} else {
		c.matrix = NewMatrix(c.class.ClassCount)
		c.residue = NewResidue(residueCapacity(c.class.ClassCount))
	}
	c.tpLog.Clear()
	c.hcm.reset()
	c.hysteresis = newHysteresis
	c.state = StateBusy

	for _, t := range entries {
		if _, err := c.FeedTuple(t.Value); err != nil {
			return err
		}
	}
	return nil
}

// firstPosUnsafe exposes TPLog's lowest live tp_pos for iteration by
// TPRefeed; kept unexported since it is only meaningful to Context.
func (l *TPLog) firstPosUnsafe() int64 {
	if len(l.entries) == 0 {
		return l.firstPos
	}
	return l.entries[0].TPPos
}

// --- Damage history --------------------------------------------------

// DHInit allocates a damage-history array aligned with a stream of
// length n and binds it to stream for later mismatch detection.
func (c *Context) DHInit(stream []float64) error {
	if err := c.checkAlive("Context.DHInit"); err != nil {
		return err
	}
	c.dh = NewDamageHistory(len(stream))
	c.dh.Bind(stream)
	return nil
}

// DHGet returns dh[pos].
func (c *Context) DHGet(pos int64) (float64, error) {
	if err := c.checkAlive("Context.DHGet"); err != nil {
		return 0, err
	}
	if c.dh == nil {
		return 0, c.fail("Context.DHGet", ErrDH, nil)
	}
	return c.dh.Get(pos), nil
}

// --- Feeding -----------------------------------------------------------

// Feed pushes one raw sample through the filter, detector, and
// counters.
func (c *Context) Feed(value float64, stream []float64) error {
	if err := c.checkAlive("Context.Feed"); err != nil {
		return err
	}
	if c.state != StateInit && c.state != StateBusy && c.state != StateBusyInterim {
		return c.fail("Context.Feed", ErrInvArg, nil)
	}
	if c.dh != nil && !c.dh.Check(stream) {
		return c.fail("Context.Feed", ErrDHBadStream, nil)
	}
	if c.class.ClassCount > 0 && c.flags&Autoresize == 0 && !c.class.InRange(value) {
		return c.fail("Context.Feed", ErrDataOutOfRange, nil)
	}
	if c.class.ClassCount > 0 && c.flags&Autoresize != 0 && !c.class.InRange(value) {
		c.autoresize(value)
	}

	c.streamPos++
	t := Tuple{Value: value, Class: c.class.Class(value), Pos: c.streamPos}
	_, err := c.feedInternal(t)
	return err
}

// FeedScaled scales value by factor before feeding (§6:
// feed_scaled) — used by hosts that keep raw integer or fixed-point
// samples and want class quantization in physical units.
func (c *Context) FeedScaled(value, factor float64, stream []float64) error {
	return c.Feed(value*factor, stream)
}

// FeedTuple feeds a value directly as the next stream sample, without
// stream-identity or range-growth handling — for replay paths
// (TPRefeed, REPEATED finalization) that already hold a fully
// quantized tuple sequence.
func (c *Context) FeedTuple(value float64) (bool, error) {
	if err := c.checkAlive("Context.FeedTuple"); err != nil {
		return false, err
	}
	c.streamPos++
	t := Tuple{Value: value, Class: c.class.Class(value), Pos: c.streamPos}
	return c.feedInternal(t)
}

func (c *Context) autoresize(value float64) {
	lowShift := 0
	newCount := c.class.ClassCount
	width := c.class.ClassWidth
	offset := c.class.ClassOffset
	for value < offset {
		offset -= width
		newCount++
		lowShift++
	}
	for value >= offset+float64(newCount)*width {
		newCount++
	}
	if newCount == c.class.ClassCount {
		return
	}
	if newCount > MaxClassCount {
		newCount = MaxClassCount
	}
	c.matrix.Resize(newCount, lowShift)
	c.class.ClassCount = newCount
	c.class.ClassOffset = offset
	c.damage.SetClass(c.class)
	c.requantizeAll()
}

// requantizeAll re-derives every stored tuple's Class field from its
// raw Value under the context's current class parameters (§4.2,
// §9's "centralize as a single re-quantize-all routine"): the
// residue, the turning-point log, the filter's running extrema and
// margin tuples, the HCM stack, and any pending interim candidate.
// Called after autoresize shifts the offset or grows the count, so
// every already-classified tuple matches the new range.
func (c *Context) requantizeAll() {
	classOf := c.class.Class
	c.residue.RequantizeAll(classOf)
	c.tpLog.RequantizeAll(classOf)
	c.filter.RequantizeExtrema(classOf)
	c.hcm.requantizeAll(classOf)
	if c.interim != nil {
		c.interim.Class = classOf(c.interim.Value)
	}
}

// feedInternal runs one already-quantized tuple through the filter,
// detector, counters, and damage accumulation. Returns whether a
// turning point was promoted.
func (c *Context) feedInternal(t Tuple) (bool, error) {
	result := c.filter.Feed(t, c.hysteresis, c.currentInterim())
	promoted := result.Promoted

	if promoted {
		committed, err := c.tpLog.Append(result.Promotable)
		if err != nil {
			return false, c.fail("Context.feedInternal", ErrTP, err)
		}
		if err := c.residue.Push(committed); err != nil {
			return false, c.fail("Context.feedInternal", ErrMemory, err)
		}
		cycles, err := runDetector(c.detectorKind, c.residue, c.hcm, c.class.ClassWidth, c.inc, c.delegateDetector)
		if err != nil {
			return false, c.fail("Context.feedInternal", ErrInvArg, err)
		}
		if c.detectorKind == DetectorHCM {
			c.residue.Replace(c.hcm.residueView())
		}
		for _, cyc := range cycles {
			c.creditCycle(cyc)
		}
		if err := c.tpLog.MaybeAutoprune(c.residue); err != nil {
			return false, c.fail("Context.feedInternal", ErrTP, err)
		}
	}

	c.setInterim(result.Interim, result.HaveInterim)
	if c.state == StateInit {
		c.state = StateBusy
	}
	if result.HaveInterim {
		c.state = StateBusyInterim
	} else {
		c.state = StateBusy
	}
	return promoted, nil
}

// currentInterim exposes the filter's current un-promoted tuple,
// tracked here (not in Filter) so Filter stays free of residue
// concerns.
func (c *Context) currentInterim() *Tuple {
	if c.interim == nil {
		return nil
	}
	return c.interim
}

func (c *Context) setInterim(t Tuple, have bool) {
	if !have {
		c.interim = nil
		return
	}
	v := t
	c.interim = &v
}

// creditCycle applies one closed cycle to the matrix, damage total,
// Miner-consequent tracker, and damage spreading.
func (c *Context) creditCycle(cyc ClosedCycle) {
	var sa, sm float64
	if c.class.ClassCount > 0 {
		sa = 0.5 * c.class.ClassWidth * float64(absInt(cyc.From.Class-cyc.To.Class))
		sm = float64(cyc.From.Class+cyc.To.Class)*0.5*c.class.ClassWidth + c.class.ClassOffset
	} else {
		// Minimal (unquantized) path: class is always 0, so amplitude
		// and mean come straight from the raw tuple values instead.
		sa = 0.5 * math.Abs(cyc.From.Value-cyc.To.Value)
		sm = 0.5 * (cyc.From.Value + cyc.To.Value)
	}

	c.matrix.AddCycle(cyc.From.Class, cyc.To.Class, cyc.CurrInc,
		c.flags&CountRP != 0, c.flags&CountLCUp != 0, c.flags&CountLCDn != 0)

	c.backreferenceClosure(cyc)

	var d float64
	if c.flags&CountDamage != 0 || c.flags&CountMK != 0 {
		if c.class.ClassCount > 0 {
			d = c.damage.ClassPairDamage(cyc.From.Class, cyc.To.Class)
		} else {
			d = c.damage.AmplitudeDamage(sa, sm)
		}
		weight := float64(cyc.CurrInc) / float64(c.inc.full)
		c.damageTotal += d * weight
	}
	if c.flags&CountMK != 0 {
		saTransformed := sa
		if c.at != nil {
			saTransformed = c.at.Transform(sa, sm)
		}
		c.miner.Accumulate(saTransformed)
		c.damage.SetWoehler(c.miner.Current())
	}
	if c.flags&CountDH != 0 && c.dh != nil {
		k := c.WLParamGet().K
		SpreadCycle(cyc, d, c.spreadMethod, c.inc.full, k, c.tpLog, c.dh,
			func(a, b int) float64 { return c.damage.ClassPairDamage(a, b) },
			func(pos int64) int { return c.class.Class(c.sampleAt(pos)) })
	}
}

// backreferenceClosure stamps each tuple of a closed cycle with the
// other's tp_pos (adj_pos) and their shared cycle mean (average), per
// §3's "populated on closure" invariant. Rejected while the log is
// locked (finalize's residue policies run after locking); the cycle
// is still fully counted and damaged either way, so the error is not
// actionable here.
func (c *Context) backreferenceClosure(cyc ClosedCycle) {
	if cyc.From.TPPos <= 0 || cyc.To.TPPos <= 0 {
		return
	}
	avg := 0.5 * (cyc.From.Value + cyc.To.Value)
	from, to := cyc.From, cyc.To
	from.AdjPos, from.Average = to.TPPos, avg
	to.AdjPos, to.Average = from.TPPos, avg
	_ = c.tpLog.Set(from.TPPos, from) //nolint:errcheck // locked during finalize's residue policies
	_ = c.tpLog.Set(to.TPPos, to)     //nolint:errcheck // locked during finalize's residue policies
}

// sampleAt is a placeholder hook for TRANSIENT_* spreading's raw
// stream walk; hosts that need it wire a real stream accessor via
// SetSampleSource.
func (c *Context) sampleAt(pos int64) float64 {
	if c.sampleSource == nil {
		return 0
	}
	return c.sampleSource(pos)
}

// SetSampleSource installs the callback TRANSIENT_* spreading uses to
// re-read the original stream by 1-based position.
func (c *Context) SetSampleSource(f func(pos int64) float64) { c.sampleSource = f }

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// --- Finalization ------------------------------------------------------

// Finalize resolves the residue per policy, promoting any interim
// tuple and then locking the turning-point log (§4.5). A stream that
// never left the seek phase has no interim, so nothing is promoted.
func (c *Context) Finalize(policy FinalizePolicy) error {
	if err := c.checkAlive("Context.Finalize"); err != nil {
		return err
	}
	if c.state != StateBusy && c.state != StateBusyInterim {
		return c.fail("Context.Finalize", ErrInvArg, nil)
	}
	c.state = StateFinalize
	c.damageBefore = c.damageTotal

	if c.interim != nil && !c.filter.Seeking() {
		committed, err := c.tpLog.Append(*c.interim)
		if err != nil {
			return c.fail("Context.Finalize", ErrTP, err)
		}
		if err := c.residue.Push(committed); err != nil {
			return c.fail("Context.Finalize", ErrMemory, err)
		}
		cycles, err := runDetector(c.detectorKind, c.residue, c.hcm, c.class.ClassWidth, c.inc, c.delegateDetector)
		if err != nil {
			return c.fail("Context.Finalize", ErrInvArg, err)
		}
		if c.detectorKind == DetectorHCM {
			c.residue.Replace(c.hcm.residueView())
		}
		for _, cyc := range cycles {
			c.creditCycle(cyc)
		}
	}
	c.interim = nil
	c.tpLog.Lock()

	if policy == FinalizeNoFinalize {
		c.tpLog.Unlock()
		c.state = StateBusy
		return nil
	}

	cycles := FinalizeResidue(c.residue, policy, c.inc, func(tuples []Tuple) []ClosedCycle {
		return c.refeedTuples(tuples)
	})
	for _, cyc := range cycles {
		c.creditCycle(cyc)
	}
	c.state = StateFinished
	return nil
}

// refeedTuples replays tuples through the live filter+detector
// pipeline, used by the REPEATED finalizer policy.
func (c *Context) refeedTuples(tuples []Tuple) []ClosedCycle {
	var all []ClosedCycle
	if c.interim == nil && !c.filter.Seeking() && len(tuples) > 0 {
		// Finalize already promoted the interim; resume tracking from
		// the last residue tuple so the filter has a reference point.
		last := tuples[len(tuples)-1]
		c.interim = &last
	}
	for _, t := range tuples {
		result := c.filter.Feed(t, c.hysteresis, c.currentInterim())
		if result.Promoted {
			committed, err := c.tpLog.Append(result.Promotable)
			if err == nil {
				if err := c.residue.Push(committed); err == nil {
					cycles, derr := runDetector(c.detectorKind, c.residue, c.hcm, c.class.ClassWidth, c.inc, c.delegateDetector)
					if derr == nil {
						if c.detectorKind == DetectorHCM {
							c.residue.Replace(c.hcm.residueView())
						}
						all = append(all, cycles...)
					}
				}
			}
		}
		c.setInterim(result.Interim, result.HaveInterim)
	}
	return all
}

// --- Queries -------------------------------------------------------------

// ResGet returns the current residue tuples.
func (c *Context) ResGet() []Tuple {
	if c.residue == nil {
		return nil
	}
	return c.residue.Tuples()
}

// Damage returns the running total damage, including any residue
// contribution already credited.
func (c *Context) Damage() float64 { return c.damageTotal }

// DamageResidue returns damage_after - damage_before around the last
// Finalize call (§4.5).
func (c *Context) DamageResidue() float64 { return c.damageTotal - c.damageBefore }

func (c *Context) RFMGet(from, to int) int64 { return c.matrix.Get(from, to) }
func (c *Context) RFMSet(from, to int, v int64) error {
	if err := c.checkAlive("Context.RFMSet"); err != nil {
		return err
	}
	if err := c.matrix.Set(from, to, v); err != nil {
		return c.fail("Context.RFMSet", ErrInvArg, err)
	}
	return nil
}
func (c *Context) RFMPeek(from, to int) (int64, error) {
	v, err := c.matrix.Peek(from, to)
	if err != nil {
		return 0, c.fail("Context.RFMPeek", ErrInvArg, err)
	}
	return v, nil
}
func (c *Context) RFMPoke(from, to int, delta int64) error {
	if err := c.matrix.Poke(from, to, delta); err != nil {
		return c.fail("Context.RFMPoke", ErrInvArg, err)
	}
	return nil
}
func (c *Context) RFMSum() int64     { return c.matrix.Sum() }
func (c *Context) RFMNonZeros() int  { return c.matrix.NonZeros() }
func (c *Context) RFMCheck() error {
	if err := c.matrix.Check(); err != nil {
		return c.fail("Context.RFMCheck", ErrDataInconsistent, err)
	}
	return nil
}
func (c *Context) RFMMakeSymmetric() { c.matrix.MakeSymmetric() }

// RFMDamage returns the total damage implied by the rainflow matrix
// alone (every cell's count times its class-pair damage).
func (c *Context) RFMDamage() float64 {
	n := c.class.ClassCount
	var total float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cnt := c.matrix.Get(i, j)
			if cnt == 0 {
				continue
			}
			total += float64(cnt) * c.damage.ClassPairDamage(i, j)
		}
	}
	return total
}

// RFMRefeed rebuilds the range-pair and level-crossing histograms
// from the current rfm contents (§8 round-trip property).
func (c *Context) RFMRefeed() {
	rp := c.matrix.RPFromRFM()
	copy(c.matrix.rp, rp)
	lcUp := c.matrix.LCFromRFM(true, false)
	lcDn := c.matrix.LCFromRFM(false, true)
	copy(c.matrix.lcUp, lcUp)
	copy(c.matrix.lcDn, lcDn)
}

func (c *Context) RPGet() []int64          { return c.matrix.RP() }
func (c *Context) RPFromRFM() []int64      { return c.matrix.RPFromRFM() }
func (c *Context) LCGet() []int64          { return c.matrix.LC() }
func (c *Context) LCFromRFM() []int64      { return c.matrix.LCFromRFM(true, true) }
func (c *Context) LCFromResidue() []int64 {
	return LCFromResidueTuples(c.residue.Tuples(), c.class.ClassCount, true, true)
}
func (c *Context) LCFromResidueTuples(t []Tuple) []int64 {
	return LCFromResidueTuples(t, c.class.ClassCount, true, true)
}

// DamageFromRPMethod selects the curve damage_from_rp evaluates the
// range-pair histogram against (§6, §9).
type DamageFromRPMethod int

const (
	DamageFromRPDefault DamageFromRPMethod = iota
	DamageFromRPElementary
	DamageFromRPModified
	DamageFromRPConsequent
)

// DamageFromRP computes total damage by applying a Wöhler-curve
// variant directly to the range-pair histogram, independent of the
// live rfm-based damage total (§9's resolution: elementary = single
// slope everywhere, modified = two slopes with no floor, consequent =
// Miner-consequent via §4.8).
func (c *Context) DamageFromRP(method DamageFromRPMethod) (float64, error) {
	if err := c.checkAlive("Context.DamageFromRP"); err != nil {
		return 0, err
	}
	base := c.miner.Unimpaired()
	var w WoehlerParams
	switch method {
	case DamageFromRPDefault:
		w = c.WLParamGet()
	case DamageFromRPElementary:
		w, _ = NewElementaryWoehler(base.SX, base.NX, base.K)
	case DamageFromRPModified:
		w, _ = NewModifiedWoehler(base.SX, base.NX, base.K, base.K2)
	case DamageFromRPConsequent:
		w = c.miner.Current()
	default:
		return 0, c.fail("Context.DamageFromRP", ErrInvArg, nil)
	}

	rp := c.matrix.RP()
	var total float64
	for d, cnt := range rp {
		if cnt == 0 {
			continue
		}
		sa := 0.5 * c.class.ClassWidth * float64(d)
		total += float64(cnt) * w.AmplitudeDamage(sa, c.class.ClassCount == 0)
	}
	return total, nil
}

// DamageFromRFM computes total damage directly from the rfm, the same
// value RFMDamage reports, exposed under the spec's query name.
func (c *Context) DamageFromRFM() float64 { return c.RFMDamage() }

// CycleProcessCounts returns the total number of full and half cycles
// credited so far, derived from the rfm's total count weighted by
// curr_inc (§9 supplemental query).
func (c *Context) CycleProcessCounts() (full, half int64) {
	sum := c.matrix.Sum()
	return sum / c.inc.full, sum % c.inc.full / (c.inc.half)
}
