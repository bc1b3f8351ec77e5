package learning

import (
	"testing"

	"github.com/clockwork-systems/timelearn/automata"
	"github.com/clockwork-systems/timelearn/zones"
)

// resetAutomaton accepts words where 'a' resets the clock and 'b' follows
// within one time unit.
func resetAutomaton() *automata.TimedAutomaton {
	s0 := automata.NewTAState(false)
	s1 := automata.NewTAState(false)
	s2 := automata.NewTAState(true)
	s0.AddTransition('a', automata.TATransition{
		Resets: []automata.ClockReset{{Clock: 0, Value: automata.ConstantReset(0)}},
		Target: s1,
	})
	s1.AddTransition('b', automata.TATransition{
		Guard:  []zones.Constraint{{Clock: 0, Rel: zones.Le, Constant: 1}},
		Target: s2,
	})
	states := []*automata.TAState{s0, s1, s2}
	return &automata.TimedAutomaton{
		States:         states,
		Initial:        []*automata.TAState{s0},
		MaxConstraints: automata.MakeMaxConstants(states),
	}
}

func TestRunnerResetsClocks(t *testing.T) {
	runner := NewTimedAutomatonRunner(resetAutomaton())

	runner.Pre()
	runner.StepDuration(5)
	runner.StepAction('a')
	runner.StepDuration(0.5)
	if got := runner.StepAction('b'); !got {
		t.Errorf("StepAction('b') after reset = false, want true")
	}
	runner.Post()

	runner.Pre()
	runner.StepDuration(5)
	runner.StepAction('a')
	runner.StepDuration(1.5)
	if got := runner.StepAction('b'); got {
		t.Errorf("StepAction('b') past the guard = true, want false")
	}
	runner.Post()

	if runner.Count() != 2 {
		t.Errorf("Count() = %d, want 2", runner.Count())
	}
}

func TestRunnerSinksOnMissingTransition(t *testing.T) {
	runner := NewTimedAutomatonRunner(resetAutomaton())
	runner.Pre()
	if got := runner.StepAction('b'); got {
		t.Errorf("StepAction on missing transition = true, want false")
	}
	// Once in the sink, everything is rejected.
	if got := runner.StepAction('a'); got {
		t.Errorf("StepAction in sink = true, want false")
	}
	if got := runner.StepDuration(1); got {
		t.Errorf("StepDuration in sink = true, want false")
	}
	runner.Post()
}

func TestRunnerEmptyAutomaton(t *testing.T) {
	runner := NewTimedAutomatonRunner(&automata.TimedAutomaton{})
	runner.Pre()
	if runner.StepDuration(1) || runner.StepAction('a') {
		t.Errorf("empty automaton accepted a step")
	}
	runner.Post()
	if runner.Count() != 1 {
		t.Errorf("Count() = %d, want 1", runner.Count())
	}
}
