package language

import (
	"fmt"
	"sort"

	"github.com/clockwork-systems/timelearn/zones"
)

// ElementaryLanguage is an untimed word together with a timed condition on
// its durations. It denotes the timed words with that untimed projection
// whose durations satisfy the condition.
type ElementaryLanguage struct {
	word      string
	condition TimedCondition
}

// NewElementaryLanguage pairs a word with a condition. The condition must
// constrain len(word)+1 durations.
func NewElementaryLanguage(word string, condition TimedCondition) ElementaryLanguage {
	if condition.Size() != len(word)+1 {
		panic(fmt.Sprintf("condition of size %d does not fit word of length %d",
			condition.Size(), len(word)))
	}
	return ElementaryLanguage{word: word, condition: condition}
}

// EmptyElementary is the elementary language of the empty word at time 0.
func EmptyElementary() ElementaryLanguage {
	return ElementaryLanguage{word: "", condition: EmptyCondition()}
}

// Word returns the untimed projection.
func (e ElementaryLanguage) Word() string {
	return e.word
}

// Condition returns the timed condition.
func (e ElementaryLanguage) Condition() TimedCondition {
	return e.condition
}

// IsSimple reports whether the condition denotes a single region.
func (e ElementaryLanguage) IsSimple() bool {
	return e.condition.IsSimple()
}

// Concat composes the two languages sequentially.
func (e ElementaryLanguage) Concat(other ElementaryLanguage) ElementaryLanguage {
	return ElementaryLanguage{
		word:      e.word + other.word,
		condition: e.condition.Concat(other.condition),
	}
}

// Enumerate splits the language into its simple sub-languages.
func (e ElementaryLanguage) Enumerate() []ElementaryLanguage {
	cells := e.condition.Enumerate()
	out := make([]ElementaryLanguage, len(cells))
	for i, c := range cells {
		out[i] = ElementaryLanguage{word: e.word, condition: c}
	}
	return out
}

// Sample returns a timed word in the language, progressively pinning each
// duration to a point of its remaining interval.
func (e ElementaryLanguage) Sample() TimedWord {
	cond := e.condition.Clone()
	n := cond.Size()
	durations := make([]float64, n)
	for i := 0; i < n; i++ {
		ub := cond.UpperBound(i, i)
		lb := cond.LowerBound(i, i)
		lo := -lb.Value
		var v float64
		switch {
		case zones.IsPoint(ub, lb):
			v = ub.Value
		case ub.IsInf():
			v = lo + 0.5
		case lb.NonStrict:
			v = lo
		default:
			v = (lo + ub.Value) / 2
		}
		durations[i] = v
		cond.RestrictUpperBound(i, i, zones.Bound{Value: v, NonStrict: true}, false)
		cond.RestrictLowerBound(i, i, zones.Bound{Value: -v, NonStrict: true}, true)
	}
	return NewTimedWord(e.word, durations)
}

// Equal compares word and condition.
func (e ElementaryLanguage) Equal(other ElementaryLanguage) bool {
	return e.word == other.word && e.condition.Equal(other.condition)
}

// Hash combines the word and condition hashes.
func (e ElementaryLanguage) Hash() uint64 {
	return e.condition.Hash()*1099511628211 ^ hashString(e.word)
}

func hashString(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h = (h ^ uint64(s[i])) * 1099511628211
	}
	return h
}

func (e ElementaryLanguage) String() string {
	return fmt.Sprintf("(%q, %v)", e.word, e.condition)
}

// ForwardRegionalElementaryLanguage is a simple elementary language paired
// with the fractional order of its accumulated durations, which determines
// its unique continuous successor.
type ForwardRegionalElementaryLanguage struct {
	ElementaryLanguage
	order FractionalOrder
}

// InitialRegional is the regional language of the empty word at time 0.
func InitialRegional() ForwardRegionalElementaryLanguage {
	return ForwardRegionalElementaryLanguage{
		ElementaryLanguage: EmptyElementary(),
		order:              NewFractionalOrder(),
	}
}

// RegionalFromTimedWord builds the regional elementary language whose
// region contains the given timed word.
func RegionalFromTimedWord(w TimedWord) ForwardRegionalElementaryLanguage {
	acc := w.AccumulatedDurations()
	region := TimedCondition{zone: zones.RegionOf(acc)}
	return ForwardRegionalElementaryLanguage{
		ElementaryLanguage: NewElementaryLanguage(w.Word(), region),
		order:              FractionalOrderOf(acc),
	}
}

// Order returns the fractional order.
func (f ForwardRegionalElementaryLanguage) Order() FractionalOrder {
	return f.order
}

// SuccessorAction extends the language by a discrete action with a fresh
// zero duration.
func (f ForwardRegionalElementaryLanguage) SuccessorAction(action byte) ForwardRegionalElementaryLanguage {
	return ForwardRegionalElementaryLanguage{
		ElementaryLanguage: ElementaryLanguage{
			word:      f.word + string(action),
			condition: f.condition.ExtendN(),
		},
		order: f.order.ExtendN(),
	}
}

// Successor advances to the immediate continuous successor region.
func (f ForwardRegionalElementaryLanguage) Successor() ForwardRegionalElementaryLanguage {
	out := f.Clone()
	out.SuccessorAssign()
	return out
}

// SuccessorAssign advances to the continuous successor in place.
func (f *ForwardRegionalElementaryLanguage) SuccessorAssign() {
	f.condition = f.condition.Successor(f.order.SuccessorVariables())
	f.order.SuccessorAssign()
}

// Clone returns a deep copy.
func (f ForwardRegionalElementaryLanguage) Clone() ForwardRegionalElementaryLanguage {
	return ForwardRegionalElementaryLanguage{
		ElementaryLanguage: ElementaryLanguage{word: f.word, condition: f.condition.Clone()},
		order:              f.order.clone(),
	}
}

// Equal compares word, condition, and order.
func (f ForwardRegionalElementaryLanguage) Equal(other ForwardRegionalElementaryLanguage) bool {
	return f.ElementaryLanguage.Equal(other.ElementaryLanguage) && f.order.Equal(other.order)
}

// Hash combines the component hashes.
func (f ForwardRegionalElementaryLanguage) Hash() uint64 {
	return f.ElementaryLanguage.Hash()*0x100000001b3 ^ f.order.Hash()
}

// SortRegionalByHash orders languages by hash and removes duplicates, for
// deterministic set-like slices.
func SortRegionalByHash(list []ForwardRegionalElementaryLanguage) []ForwardRegionalElementaryLanguage {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Hash() < list[j].Hash()
	})
	out := list[:0]
	for i, f := range list {
		if i > 0 && f.Equal(list[i-1]) {
			continue
		}
		out = append(out, f)
	}
	return out
}
