package rainflow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinerConsequent_AccumulateDegradesImpairedCurve(t *testing.T) {
	w, err := NewElementaryWoehler(1000, 1e7, 5)
	require.NoError(t, err)
	m := NewMinerConsequent(w)

	m.Accumulate(2000)

	assert.InEpsilon(t, 3.1999999999999994e-06, m.dCon, 1e-9)
	assert.Less(t, m.impaired.SX, w.SX)
	assert.Greater(t, m.impaired.NX, w.NX)
	assert.Equal(t, w.SX, m.Unimpaired().SX)
	// elementary curve has no fatigue-strength floor; impairment must
	// not fabricate one.
	assert.Equal(t, 0.0, m.impaired.SD)
	assert.True(t, math.IsInf(m.impaired.ND, 1))
}

func TestMinerConsequent_BelowUnimpairedFatigueStrengthDoesNotAccumulate(t *testing.T) {
	w, err := NewOriginalWoehler(100, 1e6, 5)
	require.NoError(t, err)
	m := NewMinerConsequent(w)

	m.Accumulate(50) // below SD=100

	assert.Equal(t, 0.0, m.dCon)
	assert.Equal(t, w, m.impaired)
}

func TestMinerConsequent_ResetClearsImpairmentAgainstCurrentUnimpaired(t *testing.T) {
	w, err := NewElementaryWoehler(1000, 1e7, 5)
	require.NoError(t, err)
	m := NewMinerConsequent(w)
	m.Accumulate(2000)
	require.NotEqual(t, w.SX, m.Current().SX)

	m.Reset()

	assert.Equal(t, 0.0, m.dCon)
	assert.Equal(t, w.SX, m.Current().SX)
}

func TestMinerConsequent_SetUnimpairedRebasesAndResets(t *testing.T) {
	w, err := NewElementaryWoehler(1000, 1e7, 5)
	require.NoError(t, err)
	m := NewMinerConsequent(w)
	m.Accumulate(2000)

	w2, err := NewElementaryWoehler(2000, 1e7, 5)
	require.NoError(t, err)
	m.SetUnimpaired(w2)

	assert.Equal(t, 0.0, m.dCon)
	assert.Equal(t, w2.SX, m.Current().SX)
	assert.Equal(t, w2.SX, m.Unimpaired().SX)
}
