package rainflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendN(t *testing.T, l *TPLog, n int) []Tuple {
	t.Helper()
	out := make([]Tuple, 0, n)
	for i := 0; i < n; i++ {
		tp, err := l.Append(Tuple{Value: float64(i), Pos: int64(i + 1)})
		require.NoError(t, err)
		out = append(out, tp)
	}
	return out
}

func TestSpreadCycle_Half23SplitsDamageEvenlyBetweenEndpoints(t *testing.T) {
	l := NewTPLog()
	tps := appendN(t, l, 2)
	cycle := ClosedCycle{From: tps[0], To: tps[1], CurrInc: 2}
	SpreadCycle(cycle, 10, SpreadHalf23, 2, 5, l, nil, nil, nil)
	from, err := l.Get(tps[0].TPPos)
	require.NoError(t, err)
	to, err := l.Get(tps[1].TPPos)
	require.NoError(t, err)
	assert.Equal(t, 5.0, from.Damage)
	assert.Equal(t, 5.0, to.Damage)
}

func TestSpreadCycle_HalfIncWeightsDamageByCurrIncOverFullInc(t *testing.T) {
	l := NewTPLog()
	tps := appendN(t, l, 2)
	cycle := ClosedCycle{From: tps[0], To: tps[1], CurrInc: 1} // half_inc
	SpreadCycle(cycle, 10, SpreadFullP2, 2, 5, l, nil, nil, nil)
	from, err := l.Get(tps[0].TPPos)
	require.NoError(t, err)
	assert.Equal(t, 5.0, from.Damage) // 10 * (1/2)
}

func TestSpreadCycle_FullP2CreditsFromOnly(t *testing.T) {
	l := NewTPLog()
	tps := appendN(t, l, 2)
	cycle := ClosedCycle{From: tps[0], To: tps[1], CurrInc: 2}
	SpreadCycle(cycle, 10, SpreadFullP2, 2, 5, l, nil, nil, nil)
	from, _ := l.Get(tps[0].TPPos)
	to, _ := l.Get(tps[1].TPPos)
	assert.Equal(t, 10.0, from.Damage)
	assert.Equal(t, 0.0, to.Damage)
}

func TestSpreadCycle_FullP3CreditsToOnly(t *testing.T) {
	l := NewTPLog()
	tps := appendN(t, l, 2)
	cycle := ClosedCycle{From: tps[0], To: tps[1], CurrInc: 2}
	SpreadCycle(cycle, 10, SpreadFullP3, 2, 5, l, nil, nil, nil)
	from, _ := l.Get(tps[0].TPPos)
	to, _ := l.Get(tps[1].TPPos)
	assert.Equal(t, 0.0, from.Damage)
	assert.Equal(t, 10.0, to.Damage)
}

func TestSpreadCycle_RampAmplitude23DistributesByPowCurveAndSumsToTotal(t *testing.T) {
	l := NewTPLog()
	tps := appendN(t, l, 4)
	cycle := ClosedCycle{From: tps[0], To: tps[3], CurrInc: 2}
	SpreadCycle(cycle, 8, SpreadRampAmplitude23, 2, 2, l, nil, nil, nil)
	got := make([]float64, 4)
	for i, tp := range tps {
		g, err := l.Get(tp.TPPos)
		require.NoError(t, err)
		got[i] = g.Damage
	}
	assert.InDelta(t, 0, got[0], 1e-9)
	assert.InDelta(t, 8.0/9, got[1], 1e-9)
	assert.InDelta(t, 8.0*3/9, got[2], 1e-9)
	assert.InDelta(t, 8.0*5/9, got[3], 1e-9)
	sum := got[0] + got[1] + got[2] + got[3]
	assert.InDelta(t, 8.0, sum, 1e-9)
}

func TestSpreadCycle_RampAmplitude24SkipsWithoutNext(t *testing.T) {
	l := NewTPLog()
	tps := appendN(t, l, 2)
	cycle := ClosedCycle{From: tps[0], To: tps[1], CurrInc: 2, Next: nil}
	SpreadCycle(cycle, 10, SpreadRampAmplitude24, 2, 2, l, nil, nil, nil)
	from, _ := l.Get(tps[0].TPPos)
	to, _ := l.Get(tps[1].TPPos)
	assert.Equal(t, 0.0, from.Damage)
	assert.Equal(t, 0.0, to.Damage)
}

func TestSpreadCycle_Transient23WalksStreamByFurthestClassReached(t *testing.T) {
	dh := NewDamageHistory(6)
	classes := []int{0, 2, 1, 3, 3, 0}
	classAt := func(pos int64) int { return classes[pos-1] }
	damageBetween := func(a, b int) float64 { return float64(abs(a - b)) }
	from := Tuple{Class: 0, Pos: 1}
	to := Tuple{Class: 3, Pos: 4}
	cycle := ClosedCycle{From: from, To: to, CurrInc: 2}
	SpreadCycle(cycle, 0, SpreadTransient23, 2, 1, nil, dh, damageBetween, classAt)
	// pos1 cls0 best=0 dmg0; pos2 cls2 best=2 dmg2 (+2); pos3 cls1<best stays 2;
	// pos4 cls3>best best=3 dmg3 (+1).
	assert.Equal(t, 0.0, dh.Get(1))
	assert.Equal(t, 2.0, dh.Get(2))
	assert.Equal(t, 0.0, dh.Get(3))
	assert.Equal(t, 1.0, dh.Get(4))
}
