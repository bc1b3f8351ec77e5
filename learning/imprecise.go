package learning

import (
	"context"
	"time"

	"github.com/clockwork-systems/timelearn/automata"
	"github.com/clockwork-systems/timelearn/internal/logging"
	"github.com/clockwork-systems/timelearn/internal/observability"
	"github.com/clockwork-systems/timelearn/language"
	"github.com/clockwork-systems/timelearn/zones"
)

// Iteration caps to keep the fixpoint bounded on adversarial inputs.
const (
	maxPendingPops         = 10000
	maxSuccessorIterations = 1000
)

type impreciseNeighbor struct {
	state    *automata.TAState
	neighbor NeighborConditions
}

// ImpreciseClockHandler widens transition guards so that runs whose clock
// values are only imprecisely known still take the intended transitions. It
// accumulates states jumped into with imprecise clocks and relaxes their
// outgoing guards to the union hull of the neighbor regions.
type ImpreciseClockHandler struct {
	log     logging.Logger
	metrics *observability.LearnerCollector
	relax   *observability.RelaxationCollector
	pending []impreciseNeighbor
}

// NewImpreciseClockHandler returns a handler. The logger and collectors may
// be nil.
func NewImpreciseClockHandler(log logging.Logger, metrics *observability.LearnerCollector, relax *observability.RelaxationCollector) *ImpreciseClockHandler {
	if log == nil {
		log = logging.Noop()
	}
	return &ImpreciseClockHandler{log: log, metrics: metrics, relax: relax}
}

// Push queues the jumped-into state for relaxation when the renaming leaves
// some clock of the target condition imprecise.
func (h *ImpreciseClockHandler) Push(jumped *automata.TAState, renaming language.RenamingRelation,
	source, target language.ForwardRegionalElementaryLanguage) {
	if !renaming.ImpreciseClocks(source.Condition(), target.Condition()) {
		return
	}
	h.log.Debug(context.Background(), "queueing state with imprecise clocks",
		logging.String("target", target.String()),
		logging.String("renaming", renaming.String()),
	)
	h.pending = append(h.pending, impreciseNeighbor{
		state:    jumped,
		neighbor: NewNeighborConditions(target, renaming.RightVariables()),
	})
	h.relax.SetPendingNeighbors(len(h.pending))
}

// Run relaxes guards until no queued neighbor set produces a new relaxation.
func (h *ImpreciseClockHandler) Run() {
	ctx := context.Background()
	start := time.Now()
	defer func() {
		h.relax.ObservePass(time.Since(start))
		h.relax.SetPendingNeighbors(0)
	}()

	visited := make(map[*automata.TAState]map[uint64]bool)
	pops := 0
	for len(h.pending) > 0 {
		if pops >= maxPendingPops {
			h.log.Warn(ctx, "relaxation aborted: pending queue cap reached",
				logging.Int("pending", len(h.pending)))
			h.pending = nil
			return
		}
		pops++
		item := h.pending[len(h.pending)-1]
		h.pending = h.pending[:len(h.pending)-1]
		h.relax.SetPendingNeighbors(len(h.pending))

		hash := item.neighbor.Hash()
		if visited[item.state] == nil {
			visited[item.state] = make(map[uint64]bool)
		}
		if visited[item.state][hash] {
			continue
		}
		visited[item.state][hash] = true
		if len(item.state.Next) == 0 {
			continue
		}

		neighbor := item.neighbor
		noMatch := true
		for iterations := 0; ; iterations++ {
			h.relax.IncIterations()
			matchBounded := false
			for _, action := range item.state.Actions() {
				neighborSuccessor := neighbor.Successor(action)
				var added []automata.TATransition
				for _, t := range item.state.Next[action] {
					next := h.handleOne(neighbor, t, neighborSuccessor, &added, &matchBounded, &noMatch)
					if next != nil {
						h.pending = append(h.pending, *next)
					}
				}
				item.state.Next[action] = append(item.state.Next[action], added...)
			}
			neighbor.SuccessorAssign()
			if !matchBounded && !noMatch {
				break
			}
			if iterations >= maxSuccessorIterations {
				h.log.Warn(ctx, "relaxation iteration cap reached for state")
				break
			}
		}
	}
}

// handleOne relaxes one transition against the current neighbor set and
// returns the follow-up neighbor set to queue, if any.
func (h *ImpreciseClockHandler) handleOne(neighbor NeighborConditions, t automata.TATransition,
	neighborSuccessor NeighborConditions, added *[]automata.TATransition,
	matchBounded, noMatch *bool) *impreciseNeighbor {
	if !neighbor.Match(t.Guard) {
		return nil
	}
	*noMatch = false

	upperBounded := false
	for _, atom := range t.Guard {
		if atom.IsUpperBound() {
			upperBounded = true
			break
		}
	}
	*matchBounded = *matchBounded || upperBounded

	relaxedGuard := neighbor.RelaxedGuard()
	if !upperBounded {
		// The matched guard has no upper bound, so the relaxation keeps none.
		relaxedGuard = zones.DropUpperBounds(relaxedGuard)
	}
	if !zones.GuardWeaker(relaxedGuard, t.Guard) || zones.GuardWeaker(t.Guard, relaxedGuard) {
		return nil
	}

	h.log.Debug(context.Background(), "relaxing guard",
		logging.String("guard", zones.GuardString(t.Guard)),
		logging.String("relaxed", zones.GuardString(relaxedGuard)),
	)
	*added = append(*added, automata.TATransition{
		Guard:  relaxedGuard,
		Resets: t.Resets,
		Target: t.Target,
	})
	h.metrics.ObserveRelaxedGuard()

	// An internal transition only introduces the fresh clock; follow it with
	// the already-computed successor neighbors.
	if len(t.Resets) == 1 && t.Resets[0].Clock == neighbor.ClockSize() &&
		t.Resets[0].Value.Kind == automata.ResetToConstant && t.Resets[0].Value.Constant == 0 {
		return &impreciseNeighbor{state: t.Target, neighbor: neighborSuccessor}
	}

	targetClockSize := 0
	for _, transitions := range t.Target.Next {
		for _, ct := range transitions {
			for _, atom := range ct.Guard {
				if atom.Clock+1 > targetClockSize {
					targetClockSize = atom.Clock + 1
				}
			}
		}
	}

	// All clocks of the target overwritten with constants: nothing imprecise
	// survives the jump.
	if len(t.Resets) >= targetClockSize && allConstantResets(t.Resets) {
		return nil
	}
	if allImpreciseOverwritten(neighbor.ImpreciseClocks(), t.Resets) {
		return nil
	}
	return &impreciseNeighbor{
		state:    t.Target,
		neighbor: neighbor.AfterExternalTransition(t.Resets, targetClockSize),
	}
}

func allConstantResets(resets []automata.ClockReset) bool {
	for _, reset := range resets {
		if reset.Value.Kind != automata.ResetToConstant {
			return false
		}
	}
	return true
}

// allImpreciseOverwritten reports whether every imprecise clock is reset to
// a precise value and never used as a copy source.
func allImpreciseOverwritten(imprecise []int, resets []automata.ClockReset) bool {
	for _, clock := range imprecise {
		overwritten := false
		used := false
		for _, reset := range resets {
			if reset.Clock == clock && reset.Value.IsPrecise() {
				overwritten = true
			}
			if reset.Value.Kind == automata.ResetToClock && reset.Value.Clock == clock {
				used = true
			}
		}
		if !overwritten || used {
			return false
		}
	}
	return true
}
