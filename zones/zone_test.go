package zones

import (
	"math"
	"testing"
)

func TestBoundOrder(t *testing.T) {
	strict := Bound{Value: 1, NonStrict: false}
	nonStrict := Bound{Value: 1, NonStrict: true}
	if !strict.Less(nonStrict) {
		t.Errorf("strict bound should be tighter than non-strict at equal value")
	}
	if nonStrict.Less(strict) {
		t.Errorf("non-strict bound should not be tighter than strict at equal value")
	}
	if !nonStrict.Less(Inf()) {
		t.Errorf("finite bound should be tighter than inf")
	}
	sum := strict.Add(nonStrict)
	if sum.Value != 2 || sum.NonStrict {
		t.Errorf("Add = %v, want (2, <)", sum)
	}
}

func TestTopSatisfiable(t *testing.T) {
	for vars := 0; vars <= 3; vars++ {
		z := Top(vars)
		if !z.Satisfiable() {
			t.Errorf("Top(%d) should be satisfiable", vars)
		}
	}
}

func TestTightenAndSatisfiability(t *testing.T) {
	z := Top(1)
	z.Tighten(0, -1, Bound{Value: 1, NonStrict: false}) // x0 < 1
	z.Tighten(-1, 0, Bound{Value: 0, NonStrict: false}) // x0 > 0
	if !z.Satisfiable() {
		t.Fatalf("0 < x0 < 1 should be satisfiable")
	}
	// Tightening to x0 > 1 closes the interval to nothing.
	z.Tighten(-1, 0, Bound{Value: -1, NonStrict: false})
	if z.Satisfiable() {
		t.Errorf("x0 > 1 && x0 < 1 should be unsatisfiable")
	}
}

func TestCanonizePropagatesDifferences(t *testing.T) {
	z := Top(2)
	z.Tighten(0, -1, Bound{Value: 2, NonStrict: true}) // x0 <= 2
	z.Tighten(1, 0, Bound{Value: 1, NonStrict: true})  // x1 - x0 <= 1
	// Canonical form must derive x1 <= 3.
	got := z.At(2, 0)
	want := Bound{Value: 3, NonStrict: true}
	if got != want {
		t.Errorf("derived bound on x1 = %v, want %v", got, want)
	}
}

func TestIncludes(t *testing.T) {
	outer := Top(1)
	outer.Tighten(0, -1, Bound{Value: 5, NonStrict: true})
	inner := outer.Clone()
	inner.Tighten(0, -1, Bound{Value: 2, NonStrict: true})
	if !outer.Includes(&inner) {
		t.Errorf("x0 <= 5 should include x0 <= 2")
	}
	if inner.Includes(&outer) {
		t.Errorf("x0 <= 2 should not include x0 <= 5")
	}
}

func TestResetAndCopy(t *testing.T) {
	z := FromValuation([]float64{1.5, 0.5})
	z.Reset(0)
	v := z.Sample()
	if v[0] != 0 || v[1] != 0.5 {
		t.Errorf("after Reset(0): sample = %v, want [0 0.5]", v)
	}
	z.CopyClock(0, 1)
	v = z.Sample()
	if v[0] != 0.5 || v[1] != 0.5 {
		t.Errorf("after CopyClock(0, 1): sample = %v, want [0.5 0.5]", v)
	}
}

func TestElapseKeepsDifferences(t *testing.T) {
	z := FromValuation([]float64{1, 0})
	z.Elapse()
	z.Canonize()
	if got := z.At(1, 2); got != (Bound{Value: 1, NonStrict: true}) {
		t.Errorf("x0 - x1 after elapse = %v, want (1, <=)", got)
	}
	if !z.At(1, 0).IsInf() {
		t.Errorf("upper bound of x0 after elapse = %v, want inf", z.At(1, 0))
	}
	if !z.Contains([]float64{3, 2}) {
		t.Errorf("elapsed zone should contain [3 2]")
	}
	if z.Contains([]float64{3, 1}) {
		t.Errorf("elapsed zone should not contain [3 1]")
	}
}

func TestAbstractize(t *testing.T) {
	z := FromValuation([]float64{7})
	z.M = Bound{Value: 3, NonStrict: true}
	z.Abstractize()
	if !z.At(1, 0).IsInf() {
		t.Errorf("bound above M should become inf, got %v", z.At(1, 0))
	}
	want := Bound{Value: -3, NonStrict: false}
	if got := z.At(0, 1); got != want {
		t.Errorf("bound below -M should clamp to %v, got %v", want, got)
	}
}

func TestSamplePrefersPoints(t *testing.T) {
	z := FromValuation([]float64{2})
	if v := z.Sample(); v[0] != 2 {
		t.Errorf("sample of point zone = %v, want [2]", v)
	}
	open := Top(1)
	open.Tighten(0, -1, Bound{Value: 1, NonStrict: false})
	open.Tighten(-1, 0, Bound{Value: 0, NonStrict: false})
	if v := open.Sample(); v[0] != 0.5 {
		t.Errorf("sample of (0,1) = %v, want [0.5]", v)
	}
	unbounded := Top(1)
	unbounded.Tighten(-1, 0, Bound{Value: 0, NonStrict: true})
	if v := unbounded.Sample(); math.IsInf(v[0], 1) {
		t.Errorf("sample of unbounded zone must be finite, got %v", v)
	}
}
