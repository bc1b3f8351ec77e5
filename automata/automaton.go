package automata

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/clockwork-systems/timelearn/internal/logging"
	"github.com/clockwork-systems/timelearn/zones"
)

// TimedAutomaton is a timed automaton over clock variables 0..ClockSize-1.
// MaxConstraints holds, per clock, the largest constant it is compared
// against; it drives the zone-graph normalization.
//
// The graph passes mutate the automaton in place. Callers own the value
// they pass; none of the passes are safe for concurrent use.
type TimedAutomaton struct {
	States         []*TAState
	Initial        []*TAState
	MaxConstraints []int

	// Log receives diagnostics from the graph passes. Nil means silent.
	Log logging.Logger
}

func (ta *TimedAutomaton) logger() logging.Logger {
	if ta.Log != nil {
		return ta.Log
	}
	return logging.Noop()
}

// ClockSize is the number of clock variables.
func (ta *TimedAutomaton) ClockSize() int {
	return len(ta.MaxConstraints)
}

// Validate checks the construction-time contract: transition targets and
// initial states belong to the state set, and guards and resets stay within
// the declared clock range.
func (ta *TimedAutomaton) Validate() error {
	known := make(map[*TAState]bool, len(ta.States))
	for _, s := range ta.States {
		known[s] = true
	}
	for _, s := range ta.Initial {
		if !known[s] {
			return fmt.Errorf("initial state %p is not in the state set", s)
		}
	}
	for i, s := range ta.States {
		for action, transitions := range s.Next {
			for _, t := range transitions {
				if !known[t.Target] {
					return fmt.Errorf("state %d action %q: transition target not in the state set", i, action)
				}
				for _, g := range t.Guard {
					if g.Clock < 0 || g.Clock >= ta.ClockSize() {
						return fmt.Errorf("state %d action %q: guard clock x%d out of range", i, action, g.Clock)
					}
				}
				for _, r := range t.Resets {
					if r.Clock < 0 || r.Clock >= ta.ClockSize() {
						return fmt.Errorf("state %d action %q: reset clock x%d out of range", i, action, r.Clock)
					}
					if r.Value.Kind == ResetToClock && (r.Value.Clock < 0 || r.Value.Clock >= ta.ClockSize()) {
						return fmt.Errorf("state %d action %q: reset source x%d out of range", i, action, r.Value.Clock)
					}
				}
			}
		}
	}
	return nil
}

// MakeMaxConstants recomputes the per-clock maximum constants of a state set.
func MakeMaxConstants(states []*TAState) []int {
	var max []int
	grow := func(clock int) {
		for len(max) <= clock {
			max = append(max, 0)
		}
	}
	for _, s := range states {
		for _, transitions := range s.Next {
			for _, t := range transitions {
				for _, g := range t.Guard {
					grow(g.Clock)
					if g.Constant > max[g.Clock] {
						max[g.Clock] = g.Constant
					}
				}
				for _, r := range t.Resets {
					grow(r.Clock)
					if r.Value.Kind == ResetToClock {
						grow(r.Value.Clock)
					}
				}
			}
		}
	}
	return max
}

// DeepCopy clones the automaton, remapping all transition targets.
func (ta *TimedAutomaton) DeepCopy() *TimedAutomaton {
	old2new := make(map[*TAState]*TAState, len(ta.States))
	out := &TimedAutomaton{
		States:         make([]*TAState, 0, len(ta.States)),
		Initial:        make([]*TAState, 0, len(ta.Initial)),
		MaxConstraints: append([]int(nil), ta.MaxConstraints...),
		Log:            ta.Log,
	}
	for _, s := range ta.States {
		ns := NewTAState(s.Match)
		for action, transitions := range s.Next {
			copied := make([]TATransition, len(transitions))
			for i, t := range transitions {
				copied[i] = TATransition{
					Guard:  append([]zones.Constraint(nil), t.Guard...),
					Resets: append([]ClockReset(nil), t.Resets...),
					Target: t.Target, // remapped below
				}
			}
			ns.Next[action] = copied
		}
		old2new[s] = ns
		out.States = append(out.States, ns)
	}
	for _, s := range ta.Initial {
		out.Initial = append(out.Initial, old2new[s])
	}
	for _, s := range out.States {
		for action, transitions := range s.Next {
			for i := range transitions {
				transitions[i].Target = old2new[transitions[i].Target]
			}
			s.Next[action] = transitions
		}
	}
	return out
}

// Deterministic reports whether every state is deterministic.
func (ta *TimedAutomaton) Deterministic() bool {
	for _, s := range ta.States {
		if !s.Deterministic() {
			return false
		}
	}
	return true
}

// MakeComplete adds a sink state and routes every uncovered action and
// guard region to it, so that every timed word has a run.
func (ta *TimedAutomaton) MakeComplete(alphabet []byte) {
	sink := NewTAState(false)
	ta.States = append(ta.States, sink)
	if len(ta.Initial) == 0 {
		ta.Initial = append(ta.Initial, sink)
	}
	for _, s := range ta.States {
		for _, action := range alphabet {
			transitions := s.Next[action]
			if len(transitions) == 0 {
				s.AddTransition(action, TATransition{Target: sink})
				continue
			}
			dnf := make([][]zones.Constraint, 0, len(transitions))
			for _, t := range transitions {
				if len(t.Guard) == 0 {
					dnf = nil
					break
				}
				dnf = append(dnf, t.Guard)
			}
			if len(dnf) == 0 {
				continue
			}
			for _, guard := range zones.NegateDNF(dnf) {
				s.AddTransition(action, TATransition{Guard: guard, Target: sink})
			}
		}
	}
}

// Complement returns a deep copy completed over the alphabet with every
// acceptance flag flipped. The automaton must be deterministic.
func (ta *TimedAutomaton) Complement(alphabet []byte) *TimedAutomaton {
	out := ta.DeepCopy()
	out.MakeComplete(alphabet)
	for _, s := range out.States {
		s.Match = !s.Match
	}
	return out
}

// SimplifyTransitions drops transitions covered by an earlier one with the
// same target, the same resets, and a weaker guard.
func (ta *TimedAutomaton) SimplifyTransitions() {
	for _, s := range ta.States {
		for action, transitions := range s.Next {
			var reduced []TATransition
			for _, t := range transitions {
				covered := false
				for _, kept := range reduced {
					if t.Target == kept.Target && resetsEqual(t.Resets, kept.Resets) &&
						zones.GuardWeaker(kept.Guard, t.Guard) {
						covered = true
						break
					}
				}
				if !covered {
					reduced = append(reduced, t)
				}
			}
			s.Next[action] = reduced
		}
	}
}

func resetsEqual(a, b []ClockReset) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RemoveTriviallyUnreachableStates drops states no action path reaches from
// the initial states, ignoring timing.
func (ta *TimedAutomaton) RemoveTriviallyUnreachableStates() {
	reachable := make(map[*TAState]bool, len(ta.States))
	queue := make([]*TAState, 0, len(ta.Initial))
	for _, s := range ta.Initial {
		reachable[s] = true
		queue = append(queue, s)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, transitions := range cur.Next {
			for _, t := range transitions {
				if !reachable[t.Target] {
					reachable[t.Target] = true
					queue = append(queue, t.Target)
				}
			}
		}
	}
	if len(reachable) == len(ta.States) {
		return
	}
	ta.logger().Info(context.Background(), "removing unreachable states",
		logging.Int("count", len(ta.States)-len(reachable)))
	kept := ta.States[:0]
	for _, s := range ta.States {
		if reachable[s] {
			kept = append(kept, s)
		}
	}
	ta.States = kept
	ta.MaxConstraints = MakeMaxConstants(ta.States)
}

// RemoveTriviallyDeadStates drops states from which no accepting state is
// reachable as a graph, along with the transitions into them.
func (ta *TimedAutomaton) RemoveTriviallyDeadStates() {
	backward := make(map[*TAState]map[*TAState]bool)
	for _, s := range ta.States {
		for _, transitions := range s.Next {
			for _, t := range transitions {
				if backward[t.Target] == nil {
					backward[t.Target] = make(map[*TAState]bool)
				}
				backward[t.Target][s] = true
			}
		}
	}
	live := make(map[*TAState]bool, len(ta.States))
	var queue []*TAState
	for _, s := range ta.States {
		if s.Match {
			live[s] = true
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for pred := range backward[cur] {
			if !live[pred] {
				live[pred] = true
				queue = append(queue, pred)
			}
		}
	}
	if len(live) == len(ta.States) {
		return
	}
	ta.logger().Info(context.Background(), "removing dead states",
		logging.Int("count", len(ta.States)-len(live)))
	keptStates := ta.States[:0]
	for _, s := range ta.States {
		if live[s] {
			keptStates = append(keptStates, s)
		}
	}
	ta.States = keptStates
	keptInitial := ta.Initial[:0]
	for _, s := range ta.Initial {
		if live[s] {
			keptInitial = append(keptInitial, s)
		}
	}
	ta.Initial = keptInitial
	for _, s := range ta.States {
		pruneTransitions(s, func(t TATransition) bool { return !live[t.Target] })
	}
}

func pruneTransitions(s *TAState, drop func(TATransition) bool) {
	for action, transitions := range s.Next {
		kept := transitions[:0]
		for _, t := range transitions {
			if !drop(t) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(s.Next, action)
		} else {
			s.Next[action] = kept
		}
	}
}

// RemoveDeadLoop clears the transitions of non-accepting, non-initial
// states whose every transition is a self loop. The states stay, keeping a
// complete automaton complete.
func (ta *TimedAutomaton) RemoveDeadLoop() {
	for _, s := range ta.States {
		if s.Match || ta.isInitial(s) {
			continue
		}
		selfOnly := true
		for _, transitions := range s.Next {
			for _, t := range transitions {
				if t.Target != s {
					selfOnly = false
				}
			}
		}
		if selfOnly {
			s.Next = make(map[byte][]TATransition)
		}
	}
}

// RemoveUselessTransitions deletes non-accepting, non-initial states with
// no outgoing transitions or only self loops, together with the
// transitions into them. This may make the automaton incomplete.
func (ta *TimedAutomaton) RemoveUselessTransitions() {
	var pending []*TAState
	for _, s := range ta.States {
		if !s.Match {
			pending = append(pending, s)
		}
	}
	for len(pending) > 0 {
		cur := pending[0]
		pending = pending[1:]
		if ta.isInitial(cur) {
			continue
		}
		selfOnly := true
		for _, transitions := range cur.Next {
			for _, t := range transitions {
				if t.Target != cur {
					selfOnly = false
				}
			}
		}
		if !selfOnly {
			continue
		}
		kept := ta.States[:0]
		for _, s := range ta.States {
			if s != cur {
				kept = append(kept, s)
			}
		}
		ta.States = kept
		for _, s := range ta.States {
			pruneTransitions(s, func(t TATransition) bool { return t.Target == cur })
		}
	}
}

func (ta *TimedAutomaton) isInitial(s *TAState) bool {
	for _, i := range ta.Initial {
		if i == s {
			return true
		}
	}
	return false
}

// RemoveUnusedClockVariables renames the clocks appearing in guards or as
// copy sources down to a contiguous range and drops resets of unused
// clocks.
func (ta *TimedAutomaton) RemoveUnusedClockVariables() {
	used := make(map[int]bool)
	for _, s := range ta.States {
		for _, transitions := range s.Next {
			for _, t := range transitions {
				for _, g := range t.Guard {
					used[g.Clock] = true
				}
				for _, r := range t.Resets {
					if r.Value.Kind == ResetToClock {
						used[r.Value.Clock] = true
					}
				}
			}
		}
	}
	usedList := make([]int, 0, len(used))
	for c := range used {
		usedList = append(usedList, c)
	}
	sort.Ints(usedList)
	rename := make(map[int]int, len(usedList))
	for i, c := range usedList {
		rename[c] = i
	}
	for _, s := range ta.States {
		for action, transitions := range s.Next {
			for ti := range transitions {
				t := &transitions[ti]
				for gi := range t.Guard {
					t.Guard[gi].Clock = rename[t.Guard[gi].Clock]
				}
				kept := t.Resets[:0]
				for _, r := range t.Resets {
					if !used[r.Clock] {
						continue
					}
					r.Clock = rename[r.Clock]
					if r.Value.Kind == ResetToClock {
						r.Value.Clock = rename[r.Value.Clock]
					}
					kept = append(kept, r)
				}
				t.Resets = kept
			}
			s.Next[action] = transitions
		}
	}
	oldMax := ta.MaxConstraints
	ta.MaxConstraints = make([]int, len(usedList))
	for i, c := range usedList {
		if c < len(oldMax) {
			ta.MaxConstraints[i] = oldMax[c]
		}
	}
}

// Simplify removes duplicate transitions and unreachable states, then
// compacts the clock variables. Completeness is preserved.
func (ta *TimedAutomaton) Simplify() {
	ta.SimplifyTransitions()
	ta.RemoveTriviallyUnreachableStates()
	ta.RemoveUnusedClockVariables()
}

// SimplifyStrong additionally prunes dead states and loops. The result may
// be incomplete.
func (ta *TimedAutomaton) SimplifyStrong() {
	ta.SimplifyTransitions()
	ta.RemoveTriviallyUnreachableStates()
	ta.RemoveTriviallyDeadStates()
	ta.RemoveDeadLoop()
	ta.RemoveUselessTransitions()
	ta.RemoveUnusedClockVariables()
}

// AddUpperBoundForUnobservableTransitions closes the guards of
// unobservable transitions upward, bounding the silent time the zone
// exploration has to consider.
func (ta *TimedAutomaton) AddUpperBoundForUnobservableTransitions() {
	for _, s := range ta.States {
		transitions := s.Next[Unobservable]
		for i := range transitions {
			transitions[i].Guard = zones.AddUpperBound(transitions[i].Guard)
		}
	}
	ta.MaxConstraints = MakeMaxConstants(ta.States)
}

// Dot renders the automaton in Graphviz format, with state indices as
// names, double circles for accepting states, and guarded, labeled edges.
func (ta *TimedAutomaton) Dot() string {
	index := make(map[*TAState]int, len(ta.States))
	for i, s := range ta.States {
		index[s] = i
	}
	var b strings.Builder
	b.WriteString("digraph G {\n")
	for i, s := range ta.States {
		shape := "circle"
		if s.Match {
			shape = "doublecircle"
		}
		init := ""
		if ta.isInitial(s) {
			init = ", style=filled"
		}
		fmt.Fprintf(&b, "  loc%d [shape=%s%s]\n", i, shape, init)
	}
	for i, s := range ta.States {
		for _, action := range s.Actions() {
			for _, t := range s.Next[action] {
				label := string(action)
				if action == Unobservable {
					label = "ε"
				}
				fmt.Fprintf(&b, "  loc%d -> loc%d [label=%q]\n",
					i, index[t.Target], fmt.Sprintf("%s %v", label, t))
			}
		}
	}
	b.WriteString("}\n")
	return b.String()
}
