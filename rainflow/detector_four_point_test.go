package rainflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func push(r *Residue, classes ...int) {
	for i, c := range classes {
		r.Push(Tuple{Class: c, Pos: int64(i + 1)})
	}
}

func TestDetectFourPoint_ClosesNestedCycle(t *testing.T) {
	r := NewResidue(8)
	push(r, 0, 2, 1, 3) // A=0,B=2,C=1,D=3: B-C nested in A-D
	cycles := detectFourPoint(r, 2)
	if assert.Len(t, cycles, 1) {
		assert.Equal(t, 2, cycles[0].From.Class)
		assert.Equal(t, 1, cycles[0].To.Class)
		assert.Equal(t, int64(2), cycles[0].CurrInc)
	}
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 0, r.At(0).Class)
	assert.Equal(t, 3, r.At(1).Class)
}

func TestDetectFourPoint_NoClosureWhenNotNested(t *testing.T) {
	r := NewResidue(8)
	push(r, 0, 3, 1, 2) // B-C range (1..3) exceeds A-D range (0..2): not nested
	cycles := detectFourPoint(r, 2)
	assert.Empty(t, cycles)
	assert.Equal(t, 4, r.Len())
}

func TestDetectFourPoint_RepeatsUntilExhausted(t *testing.T) {
	r := NewResidue(8)
	// scenario 2 from the worked examples: [4,2,3,1] quantized to classes [3,1,2,0]
	push(r, 3, 1, 2, 0)
	cycles := detectFourPoint(r, 2)
	if assert.Len(t, cycles, 1) {
		assert.Equal(t, 1, cycles[0].From.Class)
		assert.Equal(t, 2, cycles[0].To.Class)
	}
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 3, r.At(0).Class)
	assert.Equal(t, 0, r.At(1).Class)
}
