package rainflow

// DamageHistory is the dense dh[] array aligned 1:1 with the input
// stream (§3): dh[i] accumulates the damage attributed to sample i.
//
// Bind records the identity of the host's backing slice so a later
// feed against a different, unrelated slice can be rejected with
// DH_BAD_STREAM instead of silently misattributing damage (§7) — the
// Go reframing of the raw-pointer stream check the source used.
type DamageHistory struct {
	dh     []float64
	stream *float64
}

// NewDamageHistory allocates a dh array of length n.
func NewDamageHistory(n int) *DamageHistory {
	return &DamageHistory{dh: make([]float64, n)}
}

// Len returns the dh array length.
func (d *DamageHistory) Len() int { return len(d.dh) }

// Bind records stream's identity as the one feeds must continue
// against.
func (d *DamageHistory) Bind(stream []float64) {
	if len(stream) == 0 {
		d.stream = nil
		return
	}
	d.stream = &stream[0]
}

// Check reports whether stream is still the array DamageHistory was
// last bound to (or nothing has been bound yet).
func (d *DamageHistory) Check(stream []float64) bool {
	if d.stream == nil {
		return true
	}
	if len(stream) == 0 {
		return false
	}
	return &stream[0] == d.stream
}

// Add accumulates delta onto dh[pos] (1-based input-stream position).
func (d *DamageHistory) Add(pos int64, delta float64) {
	i := int(pos) - 1
	if i < 0 || i >= len(d.dh) {
		return
	}
	d.dh[i] += delta
}

// Get returns dh[pos] (1-based).
func (d *DamageHistory) Get(pos int64) float64 {
	i := int(pos) - 1
	if i < 0 || i >= len(d.dh) {
		return 0
	}
	return d.dh[i]
}

// Values returns a copy of the full dh array.
func (d *DamageHistory) Values() []float64 { return append([]float64(nil), d.dh...) }
