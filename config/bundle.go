// Package config loads the YAML bundle that configures a rainflow
// counting run: class parameters, the Wöhler curve, the optional
// amplitude transform, and the method selections the teacher's
// sim/bundle.go would call a policy bundle.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/a-ma72/rainflow-sub002/rainflow"
)

// RainflowBundle is the on-disk configuration for one counting run,
// modeled on sim/bundle.go's PolicyBundle: strict YAML fields plus a
// Validate step that turns bad names into actionable errors before
// any rainflow.Context is built.
type RainflowBundle struct {
	ClassCount  int     `yaml:"class_count"`
	ClassWidth  float64 `yaml:"class_width"`
	ClassOffset float64 `yaml:"class_offset"`

	WoehlerMethod string  `yaml:"wl_method"`
	WLSX          float64 `yaml:"wl_sx"`
	WLNX          float64 `yaml:"wl_nx"`
	WLSD          float64 `yaml:"wl_sd"`
	WLND          float64 `yaml:"wl_nd"`
	WLK           float64 `yaml:"wl_k"`
	WLK2          float64 `yaml:"wl_k2"`
	WLSO          float64 `yaml:"wl_so"`
	WLQ           float64 `yaml:"wl_q"`
	WLQ2          float64 `yaml:"wl_q2"`

	ATEnabled   bool      `yaml:"at_enabled"`
	ATSa        []float64 `yaml:"at_sa"`
	ATSm        []float64 `yaml:"at_sm"`
	ATM         float64   `yaml:"at_m"`
	ATSmRig     float64   `yaml:"at_sm_rig"`
	ATRRig      float64   `yaml:"at_r_rig"`
	ATRPinned   bool      `yaml:"at_r_pinned"`
	ATSymmetric bool      `yaml:"at_symmetric"`

	HysteresisMode  string  `yaml:"hysteresis_mode"`
	Hysteresis      float64 `yaml:"hysteresis"`
	Detector        string  `yaml:"detector"`
	FinalizePolicy  string  `yaml:"finalize_policy"`
	SpreadMethod    string  `yaml:"spread_method"`
	FullIncrement   int64   `yaml:"full_increment"`
	HalfIncrement   int64   `yaml:"half_increment"`
	EnforceMargin   bool    `yaml:"enforce_margin"`
	CountDH         bool    `yaml:"count_dh"`
	CountMK         bool    `yaml:"count_mk"`
	TPAutoprune     bool    `yaml:"tp_autoprune"`
	AutoresizeClass bool    `yaml:"autoresize_class"`
}

var validWoehlerMethods = map[string]bool{
	"":          true,
	"elementary": true,
	"original":   true,
	"modified":   true,
	"any":        true,
}

var validHysteresisModes = map[string]bool{
	"": true, "value": true, "class": true,
}

var validDetectors = map[string]bool{
	"": true, "four_point": true, "hcm": true, "astm": true,
}

var validFinalizePolicies = map[string]bool{
	"": true, "none": true, "ignore": true, "no_finalize": true,
	"discard": true, "half_cycles": true, "full_cycles": true,
	"clormann_seeger": true, "rp_din45667": true, "repeated": true,
}

var validSpreadMethods = map[string]bool{
	"": true, "none": true, "half_23": true, "full_p2": true, "full_p3": true,
	"ramp_amplitude_23": true, "ramp_damage_23": true,
	"ramp_amplitude_24": true, "ramp_damage_24": true,
	"transient_23": true, "transient_23c": true,
}

// LoadRainflowBundle reads and strictly parses path, rejecting any
// YAML key that RainflowBundle does not declare, then validates it.
func LoadRainflowBundle(path string) (*RainflowBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var b RainflowBundle
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&b); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate %s: %w", path, err)
	}
	return &b, nil
}

// Validate checks enum-name validity and numeric ranges before the
// bundle is handed to rainflow.NewContext.
func (b *RainflowBundle) Validate() error {
	if b.ClassCount < 0 || b.ClassCount > rainflow.MaxClassCount {
		return fmt.Errorf("class_count %d out of [0, %d]", b.ClassCount, rainflow.MaxClassCount)
	}
	if b.ClassCount > 0 && b.ClassWidth <= 0 {
		return fmt.Errorf("class_width must be positive when class_count > 0")
	}
	if !validWoehlerMethods[b.WoehlerMethod] {
		return fmt.Errorf("unknown wl_method %q", b.WoehlerMethod)
	}
	if !validHysteresisModes[b.HysteresisMode] {
		return fmt.Errorf("unknown hysteresis_mode %q", b.HysteresisMode)
	}
	if !validDetectors[b.Detector] {
		return fmt.Errorf("unknown detector %q", b.Detector)
	}
	if !validFinalizePolicies[b.FinalizePolicy] {
		return fmt.Errorf("unknown finalize_policy %q", b.FinalizePolicy)
	}
	if !validSpreadMethods[b.SpreadMethod] {
		return fmt.Errorf("unknown spread_method %q", b.SpreadMethod)
	}
	if b.Hysteresis < 0 {
		return fmt.Errorf("hysteresis must be non-negative")
	}
	if err := validateFloat("at_m", b.ATM, -1, 10); b.ATEnabled && err != nil {
		return err
	}
	if b.ATEnabled && len(b.ATSa) != len(b.ATSm) {
		return fmt.Errorf("at_sa and at_sm must have equal length")
	}
	if b.FullIncrement < 0 || b.HalfIncrement < 0 {
		return fmt.Errorf("full_increment and half_increment must be non-negative")
	}
	return nil
}

func validateFloat(name string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s %v out of [%v, %v]", name, v, lo, hi)
	}
	return nil
}

// ClassParams builds the rainflow.ClassParams this bundle describes.
func (b *RainflowBundle) ClassParams() rainflow.ClassParams {
	return rainflow.ClassParams{
		ClassCount:  b.ClassCount,
		ClassWidth:  b.ClassWidth,
		ClassOffset: b.ClassOffset,
	}
}

// WoehlerParams builds the curve this bundle describes, dispatching to
// the constructor matching wl_method (defaulting to "any", the
// fully-specified form, when unset).
func (b *RainflowBundle) WoehlerParams() (rainflow.WoehlerParams, error) {
	switch b.WoehlerMethod {
	case "elementary":
		return rainflow.NewElementaryWoehler(b.WLSX, b.WLNX, b.WLK)
	case "original":
		return rainflow.NewOriginalWoehler(b.WLSD, b.WLND, b.WLK)
	case "modified":
		return rainflow.NewModifiedWoehler(b.WLSX, b.WLNX, b.WLK, b.WLK2)
	default:
		return rainflow.NewAnyWoehler(rainflow.WoehlerParams{
			SX: b.WLSX, NX: b.WLNX,
			SD: b.WLSD, ND: b.WLND,
			K: b.WLK, K2: b.WLK2,
			SO: b.WLSO, Q: b.WLQ, Q2: b.WLQ2,
		})
	}
}

// HysteresisModeValue maps the bundle's string field to the rainflow enum.
func (b *RainflowBundle) HysteresisModeValue() rainflow.HysteresisMode {
	if b.HysteresisMode == "class" {
		return rainflow.HysteresisByClass
	}
	return rainflow.HysteresisByValue
}

// DetectorKind maps the bundle's string field to the rainflow enum.
func (b *RainflowBundle) DetectorKind() rainflow.DetectorKind {
	switch b.Detector {
	case "hcm":
		return rainflow.DetectorHCM
	case "astm":
		return rainflow.DetectorASTM
	default:
		return rainflow.DetectorFourPoint
	}
}

// FinalizePolicyValue maps the bundle's string field to the rainflow enum.
func (b *RainflowBundle) FinalizePolicyValue() rainflow.FinalizePolicy {
	switch b.FinalizePolicy {
	case "ignore":
		return rainflow.FinalizeIgnore
	case "no_finalize":
		return rainflow.FinalizeNoFinalize
	case "discard":
		return rainflow.FinalizeDiscard
	case "half_cycles":
		return rainflow.FinalizeHalfCycles
	case "full_cycles":
		return rainflow.FinalizeFullCycles
	case "clormann_seeger":
		return rainflow.FinalizeClormannSeeger
	case "rp_din45667":
		return rainflow.FinalizeRPDIN45667
	case "repeated":
		return rainflow.FinalizeRepeated
	default:
		return rainflow.FinalizeNone
	}
}

// SpreadMethodValue maps the bundle's string field to the rainflow enum.
func (b *RainflowBundle) SpreadMethodValue() rainflow.SpreadMethod {
	switch b.SpreadMethod {
	case "half_23":
		return rainflow.SpreadHalf23
	case "full_p2":
		return rainflow.SpreadFullP2
	case "full_p3":
		return rainflow.SpreadFullP3
	case "ramp_amplitude_23":
		return rainflow.SpreadRampAmplitude23
	case "ramp_damage_23":
		return rainflow.SpreadRampDamage23
	case "ramp_amplitude_24":
		return rainflow.SpreadRampAmplitude24
	case "ramp_damage_24":
		return rainflow.SpreadRampDamage24
	case "transient_23":
		return rainflow.SpreadTransient23
	case "transient_23c":
		return rainflow.SpreadTransient23c
	default:
		return rainflow.SpreadNone
	}
}

// increments returns the full/half cycle weights, defaulting to the
// conventional 2/1 scale when unset.
func (b *RainflowBundle) increments() (full, half int64) {
	full, half = b.FullIncrement, b.HalfIncrement
	if full == 0 {
		full = 2
	}
	if half == 0 {
		half = 1
	}
	return full, half
}

// BuildContext constructs and fully configures a rainflow.Context from
// this bundle: class parameters, Wöhler curve, hysteresis, detector,
// optional amplitude transform, spread method, and flags.
func (b *RainflowBundle) BuildContext() (*rainflow.Context, error) {
	w, err := b.WoehlerParams()
	if err != nil {
		return nil, fmt.Errorf("config: build woehler params: %w", err)
	}

	full, half := b.increments()
	ctx := rainflow.NewContext()
	if err := ctx.Init(b.ClassParams(), w, b.HysteresisModeValue(), b.Hysteresis, b.DetectorKind(), full, half); err != nil {
		return nil, fmt.Errorf("config: init context: %w", err)
	}

	if b.ATEnabled {
		if err := ctx.ATInit(b.ATSa, b.ATSm, b.ATM, b.ATSmRig, b.ATRRig, b.ATRPinned, b.ATSymmetric); err != nil {
			return nil, fmt.Errorf("config: init amplitude transform: %w", err)
		}
	}

	if err := ctx.SpreadMethodSet(b.SpreadMethodValue()); err != nil {
		return nil, fmt.Errorf("config: set spread method: %w", err)
	}

	flags := ctx.FlagsGet()
	if b.EnforceMargin {
		flags |= rainflow.EnforceMargin
	}
	if b.CountDH {
		flags |= rainflow.CountDH
	}
	if b.CountMK {
		flags |= rainflow.CountMK
	}
	if b.TPAutoprune {
		flags |= rainflow.TPAutoprune
	}
	if b.AutoresizeClass {
		flags |= rainflow.Autoresize
	}
	if err := ctx.FlagsSet(flags); err != nil {
		return nil, fmt.Errorf("config: set flags: %w", err)
	}

	return ctx, nil
}
