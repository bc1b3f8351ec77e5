package learning

import (
	"github.com/clockwork-systems/timelearn/automata"
)

// TimedAutomatonRunner executes a deterministic timed automaton as a system
// under learning. Missing outgoing transitions lead to an implicit rejecting
// sink, represented by a nil state.
type TimedAutomatonRunner struct {
	automaton  *automata.TimedAutomaton
	state      *automata.TAState
	valuation  []float64
	numQueries int
	isEmpty    bool
}

// NewTimedAutomatonRunner wraps the given automaton. The automaton must be
// deterministic and have exactly one initial state unless it is empty.
func NewTimedAutomatonRunner(automaton *automata.TimedAutomaton) *TimedAutomatonRunner {
	r := &TimedAutomatonRunner{
		automaton: automaton,
		isEmpty:   len(automaton.States) == 0,
	}
	if !r.isEmpty {
		if len(automaton.Initial) != 1 {
			panic("runner requires exactly one initial state")
		}
		r.state = automaton.Initial[0]
		r.valuation = make([]float64, automaton.ClockSize())
	}
	return r
}

// Pre resets the runner to the initial configuration.
func (r *TimedAutomatonRunner) Pre() {
	if !r.isEmpty {
		r.state = r.automaton.Initial[0]
		for i := range r.valuation {
			r.valuation[i] = 0
		}
	}
	r.numQueries++
}

// Post finishes the current timed word.
func (r *TimedAutomatonRunner) Post() {}

// StepAction takes the unique enabled transition for the action, applying
// its resets, and reports whether the new state accepts.
func (r *TimedAutomatonRunner) StepAction(action byte) bool {
	if r.isEmpty || r.state == nil {
		return false
	}
	for _, t := range r.state.Next[action] {
		enabled := true
		for _, g := range t.Guard {
			if !g.Satisfied(r.valuation[g.Clock]) {
				enabled = false
				break
			}
		}
		if !enabled {
			continue
		}
		old := make([]float64, len(r.valuation))
		copy(old, r.valuation)
		for _, reset := range t.Resets {
			switch reset.Value.Kind {
			case automata.ResetToClock:
				r.valuation[reset.Clock] = old[reset.Value.Clock]
			default:
				r.valuation[reset.Clock] = reset.Value.Constant
			}
		}
		r.state = t.Target
		return r.state.Match
	}
	r.state = nil
	return false
}

// StepDuration elapses time on every clock and reports whether the current
// state accepts.
func (r *TimedAutomatonRunner) StepDuration(duration float64) bool {
	if r.isEmpty || r.state == nil {
		return false
	}
	for i := range r.valuation {
		r.valuation[i] += duration
	}
	return r.state.Match
}

// Count is the number of timed words fed so far.
func (r *TimedAutomatonRunner) Count() int {
	return r.numQueries
}
