// Package language implements the symbolic word representations used by the
// learner: timed words, timed conditions over accumulated durations, and the
// regional elementary languages built from them.
package language

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// Unobservable is the silent action. It never appears in a timed word; the
// constructor absorbs it into the surrounding durations.
const Unobservable byte = 0

// TimedWord is an alternating sequence of durations and actions
// d0 a0 d1 a1 ... d{n-1} a{n-1} dn, so len(durations) = len(word)+1.
type TimedWord struct {
	word      string
	durations []float64
}

// NewTimedWord builds a timed word, dropping unobservable actions and
// merging their neighboring durations.
func NewTimedWord(word string, durations []float64) TimedWord {
	if len(durations) != len(word)+1 {
		panic(fmt.Sprintf("timed word needs %d durations, got %d", len(word)+1, len(durations)))
	}
	var w strings.Builder
	d := make([]float64, 1, len(durations))
	d[0] = durations[0]
	for i := 0; i < len(word); i++ {
		if word[i] == Unobservable {
			d[len(d)-1] += durations[i+1]
			continue
		}
		w.WriteByte(word[i])
		d = append(d, durations[i+1])
	}
	return TimedWord{word: w.String(), durations: d}
}

// EmptyTimedWord is the timed word with no actions and no elapsed time.
func EmptyTimedWord() TimedWord {
	return TimedWord{durations: []float64{0}}
}

// Word returns the untimed projection.
func (t TimedWord) Word() string {
	return t.word
}

// Durations returns the duration sequence, of length WordSize()+1.
func (t TimedWord) Durations() []float64 {
	return append([]float64(nil), t.durations...)
}

// WordSize is the number of actions.
func (t TimedWord) WordSize() int {
	return len(t.word)
}

// AccumulatedDurations returns, for each i, the total time elapsed from
// just before the i-th action to the end of the word.
func (t TimedWord) AccumulatedDurations() []float64 {
	acc := make([]float64, len(t.durations))
	sum := 0.0
	for i := len(t.durations) - 1; i >= 0; i-- {
		sum += t.durations[i]
		acc[i] = sum
	}
	return acc
}

// Concat appends other, merging the boundary durations.
func (t TimedWord) Concat(other TimedWord) TimedWord {
	word := t.word + other.word
	durations := make([]float64, 0, len(t.durations)+len(other.durations)-1)
	durations = append(durations, t.durations[:len(t.durations)-1]...)
	durations = append(durations, t.durations[len(t.durations)-1]+other.durations[0])
	durations = append(durations, other.durations[1:]...)
	return TimedWord{word: word, durations: durations}
}

// AppendAction extends the word by an action with zero trailing delay.
func (t TimedWord) AppendAction(action byte) TimedWord {
	if action == Unobservable {
		return t
	}
	return TimedWord{
		word:      t.word + string(action),
		durations: append(t.Durations(), 0),
	}
}

// Elapse adds the duration to the trailing delay.
func (t TimedWord) Elapse(duration float64) TimedWord {
	d := t.Durations()
	d[len(d)-1] += duration
	return TimedWord{word: t.word, durations: d}
}

// Suffix returns the remainder of t after removing the given prefix. The
// receiver must start with prefix, up to the prefix's trailing delay.
func (t TimedWord) Suffix(prefix TimedWord) TimedWord {
	n := prefix.WordSize()
	if !strings.HasPrefix(t.word, prefix.word) {
		panic(fmt.Sprintf("%v is not a prefix of %v", prefix, t))
	}
	durations := make([]float64, 0, len(t.durations)-n)
	durations = append(durations, t.durations[n]-prefix.durations[n])
	durations = append(durations, t.durations[n+1:]...)
	return TimedWord{word: t.word[n:], durations: durations}
}

// Equal compares the word and all durations exactly.
func (t TimedWord) Equal(other TimedWord) bool {
	if t.word != other.word || len(t.durations) != len(other.durations) {
		return false
	}
	for i, d := range t.durations {
		if d != other.durations[i] {
			return false
		}
	}
	return true
}

// Hash is a structural hash, usable for visited-set deduplication.
func (t TimedWord) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(t.word))
	var buf [8]byte
	for _, d := range t.durations {
		bits := math.Float64bits(d)
		for i := 0; i < 8; i++ {
			buf[i] = byte(bits >> (8 * i))
		}
		h.Write(buf[:])
	}
	return h.Sum64()
}

func (t TimedWord) String() string {
	var b strings.Builder
	for i := 0; i < len(t.word); i++ {
		fmt.Fprintf(&b, "%g %c ", t.durations[i], t.word[i])
	}
	fmt.Fprintf(&b, "%g", t.durations[len(t.durations)-1])
	return b.String()
}
