// Package automata implements deterministic timed automata, the graph
// passes that normalize them, and their zone-automaton unrolling.
package automata

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/clockwork-systems/timelearn/language"
	"github.com/clockwork-systems/timelearn/zones"
)

// Unobservable is the silent action, re-exported for transition maps.
const Unobservable = language.Unobservable

// ResetKind discriminates the two reset variants.
type ResetKind int

const (
	// ResetToConstant assigns a fixed value to the clock.
	ResetToConstant ResetKind = iota
	// ResetToClock copies the value of another clock.
	ResetToClock
)

// ResetValue is the assigned value of a clock reset: either a constant or
// the current value of another clock.
type ResetValue struct {
	Kind     ResetKind
	Constant float64
	Clock    int
}

// ConstantReset assigns v to the clock.
func ConstantReset(v float64) ResetValue {
	return ResetValue{Kind: ResetToConstant, Constant: v}
}

// CopyReset copies the value of clock src.
func CopyReset(src int) ResetValue {
	return ResetValue{Kind: ResetToClock, Clock: src}
}

// IsPrecise reports whether the reset pins the clock to a region boundary:
// copies and integral constants are precise, fractional constants are not.
func (r ResetValue) IsPrecise() bool {
	if r.Kind == ResetToClock {
		return true
	}
	return r.Constant == math.Trunc(r.Constant)
}

func (r ResetValue) String() string {
	if r.Kind == ResetToClock {
		return fmt.Sprintf("x%d", r.Clock)
	}
	return fmt.Sprintf("%g", r.Constant)
}

// ClockReset assigns a value to one clock when a transition fires.
type ClockReset struct {
	Clock int
	Value ResetValue
}

func (c ClockReset) String() string {
	return fmt.Sprintf("x%d := %v", c.Clock, c.Value)
}

// ImpreciseConstantAssignCount counts the resets assigning a non-integral
// constant, the measure used to break merge ties.
func ImpreciseConstantAssignCount(resets []ClockReset) int {
	n := 0
	for _, r := range resets {
		if r.Value.Kind == ResetToConstant && !r.Value.IsPrecise() {
			n++
		}
	}
	return n
}

// TATransition is a guarded edge of a timed automaton.
type TATransition struct {
	Guard  []zones.Constraint
	Resets []ClockReset
	Target *TAState
}

// Equal compares target identity, guards, and resets structurally.
func (t TATransition) Equal(other TATransition) bool {
	if t.Target != other.Target || len(t.Guard) != len(other.Guard) || len(t.Resets) != len(other.Resets) {
		return false
	}
	for i, g := range t.Guard {
		if g != other.Guard[i] {
			return false
		}
	}
	for i, r := range t.Resets {
		if r != other.Resets[i] {
			return false
		}
	}
	return true
}

func (t TATransition) String() string {
	parts := make([]string, len(t.Resets))
	for i, r := range t.Resets {
		parts[i] = r.String()
	}
	return fmt.Sprintf("[%s] {%s}", zones.GuardString(t.Guard), strings.Join(parts, ", "))
}

// TAState is a location of a timed automaton. Transitions are grouped by
// action; the order within one action is significant for determinism
// checks, which give precedence to earlier transitions.
type TAState struct {
	Match bool
	Next  map[byte][]TATransition
}

// NewTAState creates a state with no outgoing transitions.
func NewTAState(match bool) *TAState {
	return &TAState{Match: match, Next: make(map[byte][]TATransition)}
}

// AddTransition appends a transition for the given action.
func (s *TAState) AddTransition(action byte, t TATransition) {
	s.Next[action] = append(s.Next[action], t)
}

// Actions returns the actions with outgoing transitions, sorted.
func (s *TAState) Actions() []byte {
	out := make([]byte, 0, len(s.Next))
	for a := range s.Next {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Deterministic reports whether no two transitions with the same action
// have overlapping guards.
func (s *TAState) Deterministic() bool {
	for _, transitions := range s.Next {
		for i := 1; i < len(transitions); i++ {
			for j := 0; j < i; j++ {
				if zones.GuardsOverlap(transitions[i].Guard, transitions[j].Guard) {
					return false
				}
			}
		}
	}
	return true
}

// MergeNondeterministicBranching repeatedly merges same-action transition
// pairs with overlapping guards into one transition guarded by the union
// hull. On a merge the reset/target pair with more imprecise constant
// assignments wins, leaving the repair to the later guard relaxation.
func (s *TAState) MergeNondeterministicBranching() {
	for action, transitions := range s.Next {
		// First drop transitions covered by a distinct one with the same
		// target and a weaker guard.
		for i := 0; i < len(transitions); {
			t := transitions[i]
			covered := false
			for j, u := range transitions {
				if j == i || t.Equal(u) || t.Target != u.Target {
					continue
				}
				if zones.GuardWeaker(u.Guard, t.Guard) {
					covered = true
					break
				}
			}
			if covered {
				transitions = append(transitions[:i], transitions[i+1:]...)
			} else {
				i++
			}
		}

		for changed := true; changed; {
			changed = false
		scan:
			for i := 0; i < len(transitions); i++ {
				for j := i + 1; j < len(transitions); j++ {
					if !zones.GuardsOverlap(transitions[i].Guard, transitions[j].Guard) {
						continue
					}
					if transitions[i].Target.Match != transitions[j].Target.Match {
						panic("cannot merge transitions with conflicting acceptance")
					}
					if ImpreciseConstantAssignCount(transitions[i].Resets) <
						ImpreciseConstantAssignCount(transitions[j].Resets) {
						transitions[i].Resets = transitions[j].Resets
						transitions[i].Target = transitions[j].Target
					}
					transitions[i].Guard = zones.UnionHull([][]zones.Constraint{
						transitions[i].Guard, transitions[j].Guard,
					})
					transitions = append(transitions[:j], transitions[j+1:]...)
					changed = true
					break scan
				}
			}
		}
		s.Next[action] = transitions
	}
}
