package language

import (
	"testing"
)

func TestElementarySample(t *testing.T) {
	f := RegionalFromTimedWord(NewTimedWord("a", []float64{0.5, 0}))
	w := f.Sample()
	if w.Word() != "a" {
		t.Fatalf("sampled word = %q, want %q", w.Word(), "a")
	}
	d := w.Durations()
	if d[0] <= 0 || d[0] >= 1 {
		t.Errorf("sampled tau0 = %g, want a value in (0,1)", d[0])
	}
	if d[1] != 0 {
		t.Errorf("sampled tau1 = %g, want 0", d[1])
	}
}

func TestRegionalFromTimedWordIsSimple(t *testing.T) {
	for _, w := range []TimedWord{
		EmptyTimedWord(),
		NewTimedWord("a", []float64{0.5, 0}),
		NewTimedWord("ab", []float64{1, 0.25, 0.25}),
	} {
		f := RegionalFromTimedWord(w)
		if !f.IsSimple() {
			t.Errorf("region of %v is not simple: %v", w, f.Condition())
		}
		if f.Order().Size() != w.WordSize()+1 {
			t.Errorf("order size = %d, want %d", f.Order().Size(), w.WordSize()+1)
		}
	}
}

func TestSuccessorActionExtends(t *testing.T) {
	f := InitialRegional().SuccessorAction('a')
	if f.Word() != "a" {
		t.Fatalf("Word = %q, want %q", f.Word(), "a")
	}
	if f.Condition().Size() != 2 {
		t.Errorf("condition size = %d, want 2", f.Condition().Size())
	}
	if !f.Condition().IsPoint(1) {
		t.Errorf("the fresh duration should start at the point 0")
	}
}

func TestContinuousSuccessorKeepsWord(t *testing.T) {
	f := RegionalFromTimedWord(NewTimedWord("a", []float64{1, 0}))
	g := f.Successor()
	if g.Word() != f.Word() {
		t.Errorf("continuous successor changed the word: %q -> %q", f.Word(), g.Word())
	}
	if f.Equal(g) {
		t.Errorf("continuous successor should move to the next region")
	}
	if !g.IsSimple() {
		t.Errorf("successor region is not simple: %v", g.Condition())
	}
}

func TestSortRegionalByHash(t *testing.T) {
	a := RegionalFromTimedWord(NewTimedWord("a", []float64{1, 0}))
	b := a.Successor()
	got := SortRegionalByHash([]ForwardRegionalElementaryLanguage{a, b, a.Clone()})
	if len(got) != 2 {
		t.Errorf("deduplication kept %d languages, want 2", len(got))
	}
}
