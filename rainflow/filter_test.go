package rainflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_SeekExtrema_NoReversalUntilHysteresisExceeded(t *testing.T) {
	f := NewFilter(HysteresisByValue, 1, false)
	r := f.Feed(Tuple{Value: 1, Pos: 1}, 0.99, nil)
	assert.False(t, r.Promoted)
	assert.True(t, f.Seeking())

	r = f.Feed(Tuple{Value: 1.5, Pos: 2}, 0.99, nil)
	assert.False(t, r.Promoted)
}

func TestFilter_SeekExtrema_EmitsExtremaInTimeOrderOnReversal(t *testing.T) {
	f := NewFilter(HysteresisByValue, 1, false)
	f.Feed(Tuple{Value: 1, Pos: 1}, 0.5, nil)
	r := f.Feed(Tuple{Value: 3, Pos: 2}, 0.5, nil)
	assert.True(t, r.Promoted)
	assert.Equal(t, 1.0, r.Promotable.Value)
	assert.Equal(t, 3.0, r.Interim.Value)
	assert.False(t, f.Seeking())
}

func TestFilter_Tracking_ExtendsExcursionInsideHysteresis(t *testing.T) {
	f := NewFilter(HysteresisByValue, 1, false)
	f.Feed(Tuple{Value: 1, Pos: 1}, 0.5, nil)
	promoted := f.Feed(Tuple{Value: 3.2, Pos: 2}, 0.5, nil)
	require.True(t, promoted.Promoted)
	interim := promoted.Interim

	r := f.Feed(Tuple{Value: 3.5, Pos: 3}, 0.5, &interim)
	assert.False(t, r.Promoted)
	assert.Equal(t, 3.5, r.Interim.Value)
}

func TestFilter_Tracking_PromotesOnConfirmedReversal(t *testing.T) {
	f := NewFilter(HysteresisByValue, 1, false)
	f.Feed(Tuple{Value: 1, Pos: 1}, 0.5, nil)
	promoted := f.Feed(Tuple{Value: 3.2, Pos: 2}, 0.5, nil)
	require.True(t, promoted.Promoted)
	interim := promoted.Interim

	r := f.Feed(Tuple{Value: 1.9, Pos: 3}, 0.5, &interim)
	assert.True(t, r.Promoted)
	assert.Equal(t, 3.2, r.Promotable.Value)
}

func TestFilter_Tracking_ExactTieIgnoresRatherThanExtends(t *testing.T) {
	f := NewFilter(HysteresisByValue, 1, false)
	f.Feed(Tuple{Value: 1, Pos: 1}, 0.5, nil)
	promoted := f.Feed(Tuple{Value: 3, Pos: 2}, 0.5, nil)
	require.True(t, promoted.Promoted)
	interim := promoted.Interim

	r := f.Feed(Tuple{Value: 3, Pos: 3}, 0.5, &interim)
	assert.False(t, r.Promoted)
	assert.Equal(t, interim, r.Interim)
}

func TestFilter_HysteresisByClass_UsesClassDelta(t *testing.T) {
	f := NewFilter(HysteresisByClass, 2, false)
	a := Tuple{Value: 1, Class: 0}
	b := Tuple{Value: 5, Class: 2}
	assert.Equal(t, 4.0, f.measure(a, b))
}

func TestFilter_EnforceMargin_TracksFirstAndLast(t *testing.T) {
	f := NewFilter(HysteresisByValue, 1, true)
	f.Feed(Tuple{Value: 1, Pos: 1}, 0.5, nil)
	f.Feed(Tuple{Value: 3, Pos: 2}, 0.5, nil)
	first, ok := f.LeftMargin()
	assert.True(t, ok)
	assert.Equal(t, 1.0, first.Value)
	last, ok := f.RightMargin()
	assert.True(t, ok)
	assert.Equal(t, 3.0, last.Value)
}
