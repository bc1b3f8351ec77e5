package learning

import (
	"math"
	"sort"
	"strings"

	"github.com/clockwork-systems/timelearn/automata"
	"github.com/clockwork-systems/timelearn/language"
	"github.com/clockwork-systems/timelearn/zones"
)

// NeighborConditions pairs a regional elementary language with the set of
// regions that are indistinguishable from it when only the precise clocks
// are observed. The union of the neighbors yields the relaxed guard that
// accounts for imprecise clock values.
//
// All neighbors share the original's word and condition size, and agree with
// the original on the bounds of every precise clock.
type NeighborConditions struct {
	original      language.ForwardRegionalElementaryLanguage
	preciseClocks map[int]bool
	neighbors     []language.ForwardRegionalElementaryLanguage
	clockSize     int
}

// NewNeighborConditions builds the neighbor set of the given language, with
// the listed clocks known to be precise.
func NewNeighborConditions(original language.ForwardRegionalElementaryLanguage, preciseClocks []int) NeighborConditions {
	precise := make(map[int]bool, len(preciseClocks))
	for _, c := range preciseClocks {
		precise[c] = true
	}
	nc := NeighborConditions{
		original:      original,
		preciseClocks: precise,
		clockSize:     original.Condition().Size(),
	}
	neighbors := makeNeighbors(original, precise)
	nc.addImplicitPreciseClocks()
	nc.neighbors = nc.updateNeighborsWithContinuousSuccessors(neighbors, original)
	return nc
}

// addImplicitPreciseClocks marks clocks pinned to a point in the original
// condition as precise.
func (nc *NeighborConditions) addImplicitPreciseClocks() {
	cond := nc.original.Condition()
	for i := 0; i < nc.clockSize; i++ {
		if nc.preciseClocks[i] {
			continue
		}
		ub := cond.UpperBound(i, nc.clockSize-1)
		lb := cond.LowerBound(i, nc.clockSize-1)
		if zones.IsPoint(ub, lb) {
			nc.preciseClocks[i] = true
		}
	}
}

// makeNeighbors enumerates the regions that agree with the original on every
// precise clock. Constraints between a precise and an imprecise clock are
// dropped; everything else is kept.
func makeNeighbors(original language.ForwardRegionalElementaryLanguage, precise map[int]bool) []language.ForwardRegionalElementaryLanguage {
	orig := original.Condition()
	clockSize := orig.Size()
	cond := language.TopCondition(clockSize)
	for i := 0; i < clockSize; i++ {
		cond.RestrictLowerBound(i, clockSize-1, orig.LowerBound(i, clockSize-1), false)
		cond.RestrictUpperBound(i, clockSize-1, orig.UpperBound(i, clockSize-1), false)
		for j := i + 1; j < clockSize; j++ {
			if precise[i] == precise[j] {
				cond.RestrictLowerBound(i, j-1, orig.LowerBound(i, j-1), false)
				cond.RestrictUpperBound(i, j-1, orig.UpperBound(i, j-1), false)
			}
		}
	}
	cond.Canonize()

	cells := cond.Enumerate()
	neighbors := make([]language.ForwardRegionalElementaryLanguage, 0, len(cells))
	for _, cell := range cells {
		sample := language.NewElementaryLanguage(original.Word(), cell).Sample()
		neighbors = append(neighbors, language.RegionalFromTimedWord(sample))
	}
	return neighbors
}

// updateNeighborsWithContinuousSuccessors advances each neighbor through its
// continuous successors, keeping exactly the regions whose precise clocks
// agree with the original successor.
func (nc *NeighborConditions) updateNeighborsWithContinuousSuccessors(
	neighbors []language.ForwardRegionalElementaryLanguage,
	originalSuccessor language.ForwardRegionalElementaryLanguage,
) []language.ForwardRegionalElementaryLanguage {
	// With no precise clocks every region matches and there is nothing to
	// synchronize on.
	if len(nc.preciseClocks) == 0 {
		return language.SortRegionalByHash(neighbors)
	}

	origCond := originalSuccessor.Condition()
	origLast := origCond.Size() - 1
	updated := make([]language.ForwardRegionalElementaryLanguage, 0, len(neighbors))
	for _, neighbor := range neighbors {
		for {
			cond := neighbor.Condition()
			last := cond.Size() - 1
			within := true
			equal := true
			for c := range nc.preciseClocks {
				if !cond.UpperBound(c, last).LessEq(origCond.UpperBound(c, origLast)) {
					within = false
					break
				}
				if cond.LowerBound(c, last) != origCond.LowerBound(c, origLast) ||
					cond.UpperBound(c, last) != origCond.UpperBound(c, origLast) {
					equal = false
				}
			}
			if !within {
				break
			}
			if equal {
				updated = append(updated, neighbor)
			}
			neighbor = neighbor.Successor()
		}
	}
	return language.SortRegionalByHash(updated)
}

// ClockSize is the number of clocks tracked by the condition.
func (nc NeighborConditions) ClockSize() int {
	return nc.clockSize
}

// OriginalGuard is the guard of the original elementary language, used to
// match against transitions.
func (nc NeighborConditions) OriginalGuard() []zones.Constraint {
	return nc.original.Condition().ToGuard()
}

// Match reports whether the guard admits the original region.
func (nc NeighborConditions) Match(guard []zones.Constraint) bool {
	return zones.GuardWeaker(guard, nc.OriginalGuard())
}

// Precise reports whether the relaxed guard collapses to a single region.
func (nc NeighborConditions) Precise() bool {
	return len(nc.neighbors) == 1
}

// RelaxedGuard is the union hull of the guards of all neighbor regions.
func (nc NeighborConditions) RelaxedGuard() []zones.Constraint {
	guards := make([][]zones.Constraint, 0, len(nc.neighbors))
	for _, neighbor := range nc.neighbors {
		guards = append(guards, neighbor.Condition().ToGuard())
	}
	return zones.UnionHull(guards)
}

// Successor extends the original and every neighbor by the action, with the
// fresh clock known precise.
func (nc NeighborConditions) Successor(action byte) NeighborConditions {
	neighbors := make([]language.ForwardRegionalElementaryLanguage, 0, len(nc.neighbors))
	for _, neighbor := range nc.neighbors {
		neighbors = append(neighbors, neighbor.SuccessorAction(action))
	}
	precise := make(map[int]bool, len(nc.preciseClocks)+1)
	for c := range nc.preciseClocks {
		precise[c] = true
	}
	precise[nc.clockSize] = true
	return NeighborConditions{
		original:      nc.original.SuccessorAction(action),
		preciseClocks: precise,
		neighbors:     neighbors,
		clockSize:     nc.clockSize + 1,
	}
}

// SuccessorAssign advances the original to its continuous successor and
// re-synchronizes the neighbors.
func (nc *NeighborConditions) SuccessorAssign() {
	nc.original.SuccessorAssign()
	nc.neighbors = nc.updateNeighborsWithContinuousSuccessors(nc.neighbors, nc.original)
}

// ImpreciseClocks lists the clocks not known precise, sorted.
func (nc NeighborConditions) ImpreciseClocks() []int {
	imprecise := make([]int, 0, nc.clockSize)
	for c := 0; c < nc.clockSize; c++ {
		if !nc.preciseClocks[c] {
			imprecise = append(imprecise, c)
		}
	}
	return imprecise
}

// AfterExternalTransition applies the resets of an external transition to
// the original region, projects it to the clocks of the target state, and
// rebuilds the neighbors from the surviving precision information.
func (nc NeighborConditions) AfterExternalTransition(resets []automata.ClockReset, targetClockSize int) NeighborConditions {
	if targetClockSize < 1 {
		targetClockSize = 1
	}

	precise := make(map[int]bool, len(nc.preciseClocks))
	for c := range nc.preciseClocks {
		if c < targetClockSize {
			precise[c] = true
		}
	}
	for _, reset := range resets {
		if reset.Clock >= targetClockSize {
			continue
		}
		switch reset.Value.Kind {
		case automata.ResetToClock:
			if nc.preciseClocks[reset.Value.Clock] {
				precise[reset.Clock] = true
			} else {
				delete(precise, reset.Clock)
			}
		default:
			if reset.Value.Constant == math.Floor(reset.Value.Constant) {
				precise[reset.Clock] = true
			} else {
				delete(precise, reset.Clock)
			}
		}
	}

	cond := nc.original.Condition().Clone()
	// Copies read the condition as updated so far, constants come last.
	for _, reset := range resets {
		if reset.Clock >= cond.Size() {
			continue
		}
		if reset.Value.Kind == automata.ResetToClock && reset.Value.Clock < cond.Size() {
			cond.ApplyResetCopy(reset.Clock, reset.Value.Clock)
		}
	}
	for _, reset := range resets {
		if reset.Clock >= cond.Size() {
			continue
		}
		if reset.Value.Kind == automata.ResetToConstant {
			cond.ApplyResetConstant(reset.Clock, reset.Value.Constant)
		}
	}
	cond = cond.ResizeClocks(targetClockSize)

	word := strings.Repeat("a", targetClockSize-1)
	sample := language.NewElementaryLanguage(word, cond).Sample()
	original := language.RegionalFromTimedWord(sample)

	preciseList := make([]int, 0, len(precise))
	for c := range precise {
		preciseList = append(preciseList, c)
	}
	sort.Ints(preciseList)
	return NewNeighborConditions(original, preciseList)
}

// Hash identifies the neighbor set up to its components.
func (nc NeighborConditions) Hash() uint64 {
	const prime = 0x100000001b3
	h := nc.original.Hash()
	for c := 0; c < nc.clockSize; c++ {
		h *= prime
		if nc.preciseClocks[c] {
			h ^= uint64(c) + 1
		}
	}
	for _, neighbor := range nc.neighbors {
		h = h*prime ^ neighbor.Hash()
	}
	return h*prime ^ uint64(nc.clockSize)
}
