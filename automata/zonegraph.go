package automata

import (
	"sort"

	"github.com/clockwork-systems/timelearn/language"
	"github.com/clockwork-systems/timelearn/zones"
)

// ZAEdge is a zone-automaton edge, remembering the timed-automaton
// transition it came from.
type ZAEdge struct {
	Transition TATransition
	Target     *ZAState
}

// ZAState pairs a timed-automaton state with a reachable zone.
type ZAState struct {
	Match   bool
	TAState *TAState
	Zone    zones.Zone
	Next    map[byte][]ZAEdge
}

func newZAState(taState *TAState, zone zones.Zone) *ZAState {
	return &ZAState{
		Match:   taState.Match,
		TAState: taState,
		Zone:    zone,
		Next:    make(map[byte][]ZAEdge),
	}
}

func (s *ZAState) actions() []byte {
	out := make([]byte, 0, len(s.Next))
	for a := range s.Next {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ZoneAutomaton is the finite unrolling of a timed automaton under
// maximum-constant abstraction.
type ZoneAutomaton struct {
	States  []*ZAState
	Initial []*ZAState
}

// BuildZoneAutomaton explores the zone graph of ta by BFS from the zero
// valuation. The abstraction threshold is the largest constant of ta, so
// the exploration is finite.
func BuildZoneAutomaton(ta *TimedAutomaton) *ZoneAutomaton {
	initialZone := zones.ZeroPoint(ta.ClockSize())
	m := 0
	for _, c := range ta.MaxConstraints {
		if c > m {
			m = c
		}
	}
	initialZone.M = zones.Bound{Value: float64(m), NonStrict: true}

	za := &ZoneAutomaton{}
	queue := make([]*ZAState, 0, len(ta.Initial))
	for _, s := range ta.Initial {
		z := newZAState(s, initialZone.Clone())
		za.States = append(za.States, z)
		za.Initial = append(za.Initial, z)
		queue = append(queue, z)
	}

	for len(queue) > 0 {
		conf := queue[0]
		queue = queue[1:]
		nowZone := conf.Zone.Clone()
		nowZone.Elapse()
		for _, action := range conf.TAState.Actions() {
			for _, edge := range conf.TAState.Next[action] {
				nextZone := nowZone.Clone()
				for _, g := range edge.Guard {
					nextZone.TightenGuard(g)
				}
				if !nextZone.Satisfiable() {
					continue
				}
				// Copy resets read the pre-reset values, so they apply
				// before any clock is overwritten by a constant.
				beforeReset := nextZone.Clone()
				for _, r := range edge.Resets {
					if r.Value.Kind == ResetToClock && r.Clock != r.Value.Clock {
						copyRowCol(&nextZone, &beforeReset, r.Clock, r.Value.Clock)
					}
				}
				for _, r := range edge.Resets {
					if r.Value.Kind != ResetToConstant {
						continue
					}
					if r.Value.Constant == 0 {
						nextZone.Reset(r.Clock)
					} else {
						nextZone.PinConstant(r.Clock, r.Value.Constant)
					}
				}
				nextZone.Canonize()
				nextZone.Abstractize()
				if !nextZone.Satisfiable() {
					continue
				}
				target := za.find(edge.Target, &nextZone)
				if target == nil {
					target = newZAState(edge.Target, nextZone)
					za.States = append(za.States, target)
					queue = append(queue, target)
				}
				conf.Next[action] = append(conf.Next[action], ZAEdge{Transition: edge, Target: target})
			}
		}
	}
	return za
}

func copyRowCol(dst, src *zones.Zone, to, from int) {
	i, j := to+1, from+1
	for k := 0; k < dst.Dim(); k++ {
		dst.Set(i, k, src.At(j, k))
		dst.Set(k, i, src.At(k, j))
	}
	dst.Set(i, i, src.At(j, j))
}

func (za *ZoneAutomaton) find(taState *TAState, zone *zones.Zone) *ZAState {
	for _, s := range za.States {
		if s.TAState == taState && s.Zone.Equal(zone) {
			return s
		}
	}
	return nil
}

// RemoveDeadStates keeps only the states lying on some path from an
// initial state to an accepting state.
func (za *ZoneAutomaton) RemoveDeadStates() {
	forward := make(map[*ZAState]bool, len(za.States))
	queue := append([]*ZAState(nil), za.Initial...)
	for _, s := range za.Initial {
		forward[s] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, edges := range cur.Next {
			for _, e := range edges {
				if !forward[e.Target] {
					forward[e.Target] = true
					queue = append(queue, e.Target)
				}
			}
		}
	}

	backward := make(map[*ZAState]map[*ZAState]bool)
	for _, s := range za.States {
		for _, edges := range s.Next {
			for _, e := range edges {
				if backward[e.Target] == nil {
					backward[e.Target] = make(map[*ZAState]bool)
				}
				backward[e.Target][s] = true
			}
		}
	}
	live := make(map[*ZAState]bool, len(za.States))
	queue = queue[:0]
	for _, s := range za.States {
		if s.Match && forward[s] {
			live[s] = true
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for pred := range backward[cur] {
			if forward[pred] && !live[pred] {
				live[pred] = true
				queue = append(queue, pred)
			}
		}
	}

	kept := za.States[:0]
	for _, s := range za.States {
		if live[s] {
			kept = append(kept, s)
		}
	}
	za.States = kept
	keptInitial := za.Initial[:0]
	for _, s := range za.Initial {
		if live[s] {
			keptInitial = append(keptInitial, s)
		}
	}
	za.Initial = keptInitial
	for _, s := range za.States {
		for action, edges := range s.Next {
			keptEdges := edges[:0]
			for _, e := range edges {
				if live[e.Target] {
					keptEdges = append(keptEdges, e)
				}
			}
			if len(keptEdges) == 0 {
				delete(s.Next, action)
			} else {
				s.Next[action] = keptEdges
			}
		}
	}
}

// Empty reports whether no accepting state is reachable.
func (za *ZoneAutomaton) Empty() bool {
	visited := make(map[*ZAState]bool, len(za.States))
	queue := append([]*ZAState(nil), za.Initial...)
	for _, s := range za.Initial {
		visited[s] = true
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.Match {
			return false
		}
		for _, edges := range cur.Next {
			for _, e := range edges {
				if !visited[e.Target] {
					visited[e.Target] = true
					queue = append(queue, e.Target)
				}
			}
		}
	}
	return true
}

// SymbolicRun is a path through the zone automaton, remembering the
// underlying transitions so a concrete witness can be rebuilt.
type SymbolicRun struct {
	states []*ZAState
	edges  []TATransition
	word   []byte
}

// NewSymbolicRun starts a run at an initial state.
func NewSymbolicRun(initial *ZAState) *SymbolicRun {
	return &SymbolicRun{states: []*ZAState{initial}}
}

// Push extends the run by one edge.
func (r *SymbolicRun) Push(transition TATransition, action byte, target *ZAState) {
	r.states = append(r.states, target)
	r.edges = append(r.edges, transition)
	r.word = append(r.word, action)
}

// Clone copies the run.
func (r *SymbolicRun) Clone() *SymbolicRun {
	return &SymbolicRun{
		states: append([]*ZAState(nil), r.states...),
		edges:  append([]TATransition(nil), r.edges...),
		word:   append([]byte(nil), r.word...),
	}
}

// Back is the last state of the run.
func (r *SymbolicRun) Back() *ZAState {
	return r.states[len(r.states)-1]
}

// ReconstructWord rebuilds a concrete timed word following the run, by
// sampling backwards from the final zone through each discrete jump.
func (r *SymbolicRun) ReconstructWord() language.TimedWord {
	postZone := r.Back().Zone.Clone()
	postValuation := postZone.Sample()
	n := len(r.edges)
	durations := make([]float64, n+1)

	for i := n - 1; i >= 0; i-- {
		preZone := r.states[i].Zone.Clone()
		transition := r.edges[i]

		zoneBeforeJump := zones.FromValuation(postValuation)
		for _, reset := range transition.Resets {
			zoneBeforeJump.Unconstrain(reset.Clock)
		}
		for _, g := range transition.Guard {
			zoneBeforeJump.TightenGuard(g)
		}
		elapsedPre := preZone.Clone()
		elapsedPre.Elapse()
		elapsedPre.Canonize()
		zoneBeforeJump.Intersect(&elapsedPre)

		valuationBeforeJump := zoneBeforeJump.Sample()
		backwardPre := zones.FromValuation(valuationBeforeJump)
		backwardPre.ReverseElapse()
		backwardPre.Canonize()
		backwardPre.Intersect(&preZone)
		preValuation := backwardPre.Sample()
		if len(valuationBeforeJump) > 0 {
			durations[i] = valuationBeforeJump[0] - preValuation[0]
		}

		postValuation = preValuation
	}
	return language.NewTimedWord(string(r.word), durations)
}

// Sample returns a timed word reaching an accepting state, if any.
func (za *ZoneAutomaton) Sample() (language.TimedWord, bool) {
	visited := make(map[*ZAState]bool, len(za.States))
	var current []*SymbolicRun
	for _, s := range za.Initial {
		visited[s] = true
		current = append(current, NewSymbolicRun(s))
	}
	for len(current) > 0 {
		var next []*SymbolicRun
		for _, run := range current {
			if run.Back().Match {
				return run.ReconstructWord(), true
			}
			back := run.Back()
			for _, action := range back.actions() {
				for _, e := range back.Next[action] {
					if visited[e.Target] {
						continue
					}
					visited[e.Target] = true
					extended := run.Clone()
					extended.Push(e.Transition, action, e.Target)
					next = append(next, extended)
				}
			}
		}
		current = next
	}
	return language.TimedWord{}, false
}

// SimplifyWithZones prunes ta down to the states and transitions actually
// exercised on some accepting path of its zone automaton. The accepted
// language is unchanged.
func (ta *TimedAutomaton) SimplifyWithZones() {
	za := BuildZoneAutomaton(ta)
	za.RemoveDeadStates()

	liveStates := make(map[*TAState]bool, len(za.States))
	type actionTransition struct {
		action     byte
		transition TATransition
	}
	liveTransitions := make(map[*TAState][]actionTransition)
	for _, s := range za.States {
		liveStates[s.TAState] = true
		if _, ok := liveTransitions[s.TAState]; !ok {
			liveTransitions[s.TAState] = nil
		}
		for action, edges := range s.Next {
			for _, e := range edges {
				liveTransitions[s.TAState] = append(liveTransitions[s.TAState],
					actionTransition{action: action, transition: e.Transition})
			}
		}
	}

	if len(liveStates) != len(ta.States) {
		kept := ta.States[:0]
		for _, s := range ta.States {
			if liveStates[s] {
				kept = append(kept, s)
			}
		}
		ta.States = kept
		keptInitial := ta.Initial[:0]
		for _, s := range ta.Initial {
			if liveStates[s] {
				keptInitial = append(keptInitial, s)
			}
		}
		ta.Initial = keptInitial
		for _, s := range ta.States {
			pruneTransitions(s, func(t TATransition) bool { return !liveStates[t.Target] })
		}
	}

	for _, s := range ta.States {
		lives, ok := liveTransitions[s]
		if !ok {
			s.Next = make(map[byte][]TATransition)
			continue
		}
		for action, transitions := range s.Next {
			kept := transitions[:0]
			for _, t := range transitions {
				for _, live := range lives {
					if live.action == action && live.transition.Equal(t) {
						kept = append(kept, t)
						break
					}
				}
			}
			if len(kept) == 0 {
				delete(s.Next, action)
			} else {
				s.Next[action] = kept
			}
		}
	}
}
