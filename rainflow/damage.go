package rainflow

// DamageCalc turns (from,to) class pairs into per-cycle damage,
// caching the result in a lazily-filled lookup table keyed by the
// flattened class-pair index. The table is invalidated wholesale
// whenever the class or Wöhler parameters change, matching the
// teacher's cache-derive-once-then-invalidate idiom (sim/kv_store.go's
// generation-stamped cache).
type DamageCalc struct {
	class   ClassParams
	woehler WoehlerParams
	at      *AmplitudeTransform
	minimal bool

	lut   []float64
	valid []bool
}

// NewDamageCalc builds a calculator over the given class and Wöhler
// parameters. at may be nil to disable mean-stress correction.
func NewDamageCalc(class ClassParams, w WoehlerParams, at *AmplitudeTransform, minimal bool) *DamageCalc {
	d := &DamageCalc{class: class, woehler: w, at: at, minimal: minimal}
	d.Invalidate()
	return d
}

// Invalidate drops the cached lookup table; the next ClassPairDamage
// call rebuilds affected entries on demand.
func (d *DamageCalc) Invalidate() {
	n := d.class.ClassCount
	d.lut = make([]float64, n*n)
	d.valid = make([]bool, n*n)
}

// SetWoehler installs new fatigue parameters and invalidates the LUT.
func (d *DamageCalc) SetWoehler(w WoehlerParams) {
	d.woehler = w
	d.Invalidate()
}

// SetAmplitudeTransform installs (or clears, if nil) the mean-stress
// correction and invalidates the LUT.
func (d *DamageCalc) SetAmplitudeTransform(at *AmplitudeTransform) {
	d.at = at
	d.Invalidate()
}

// SetClass installs new class parameters and invalidates the LUT,
// since class pair indices and the amplitudes they represent both
// change.
func (d *DamageCalc) SetClass(c ClassParams) {
	d.class = c
	d.Invalidate()
}

// AmplitudeDamage computes damage directly from amplitude and mean
// stress, bypassing the LUT; used by ClassPairDamage, by the
// class_count == 0 path of the context, and by any caller working in
// raw values rather than class indices.
func (d *DamageCalc) AmplitudeDamage(sa, sm float64) float64 {
	if d.at != nil {
		sa = d.at.Transform(sa, sm)
	}
	return d.woehler.AmplitudeDamage(sa, d.minimal)
}

// ClassPairDamage returns the per-cycle damage for a closed cycle
// between class indices from and to, from the LUT if already
// computed, else deriving and caching it.
func (d *DamageCalc) ClassPairDamage(from, to int) float64 {
	n := d.class.ClassCount
	if from < 0 || to < 0 || from >= n || to >= n {
		return 0
	}
	idx := from*n + to
	if d.valid[idx] {
		return d.lut[idx]
	}
	sa := 0.5 * d.class.ClassWidth * float64(abs(from-to))
	sm := float64(from+to)*0.5*d.class.ClassWidth + d.class.ClassOffset
	dmg := d.AmplitudeDamage(sa, sm)
	d.lut[idx] = dmg
	d.valid[idx] = true
	return dmg
}
