package language

import (
	"testing"
)

func TestFractionalOrderOf(t *testing.T) {
	// T(0,2)=1.5, T(1,2)=1.0, T(2,2)=0.5: variable 1 is integral and the
	// others share fractional part 0.5.
	f := FractionalOrderOf([]float64{1.5, 1.0, 0.5})
	if got := f.SuccessorVariables(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("SuccessorVariables = %v, want [1]", got)
	}
	f.SuccessorAssign()
	// Variable 1 left the integer class; 0 and 2 elapse next.
	if got := f.SuccessorVariables(); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("after successor: SuccessorVariables = %v, want [0 2]", got)
	}
}

func TestFractionalOrderCycle(t *testing.T) {
	f := NewFractionalOrder()
	// [0] integral -> [0] fractional -> [0] integral again.
	first := f.Successor()
	if got := first.SuccessorVariables(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("SuccessorVariables = %v, want [0]", got)
	}
	second := first.Successor()
	if !second.Equal(f) {
		t.Errorf("two region steps of a single variable should return to the start")
	}
}

func TestFractionalOrderExtendN(t *testing.T) {
	f := FractionalOrderOf([]float64{0.5}).ExtendN()
	if f.Size() != 2 {
		t.Fatalf("Size = %d, want 2", f.Size())
	}
	// The fresh variable is integral, so it elapses first.
	if got := f.SuccessorVariables(); len(got) != 1 || got[0] != 1 {
		t.Errorf("SuccessorVariables = %v, want [1]", got)
	}
}
