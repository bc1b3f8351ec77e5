package language

import (
	"fmt"
	"sort"
	"strings"
)

// RenamingPair equates a duration variable of a source condition with one
// of a target condition.
type RenamingPair struct {
	Source int
	Target int
}

// RenamingRelation is a conjunction of variable equations between two
// timed conditions, ordered by construction.
type RenamingRelation []RenamingPair

// RightVariables returns the distinct target variables, sorted.
func (r RenamingRelation) RightVariables() []int {
	seen := make(map[int]bool, len(r))
	var out []int
	for _, p := range r {
		if !seen[p.Target] {
			seen[p.Target] = true
			out = append(out, p.Target)
		}
	}
	sort.Ints(out)
	return out
}

// OnlyTrivial reports whether every equation only restates that two point
// variables have the same integer value, which renders the relation
// redundant with the conditions themselves.
func (r RenamingRelation) OnlyTrivial(source, target TimedCondition) bool {
	for _, p := range r {
		if !source.IsPoint(p.Source) || !target.IsPoint(p.Target) {
			return false
		}
		su := source.UpperBound(p.Source, source.Size()-1)
		tu := target.UpperBound(p.Target, target.Size()-1)
		if su != tu {
			return false
		}
	}
	return true
}

// Full reports whether the renamed variables together with the point
// variables of target determine every variable of target.
func (r RenamingRelation) Full(target TimedCondition) bool {
	fixed := make(map[int]bool, target.Size())
	for _, v := range r.RightVariables() {
		fixed[v] = true
	}
	for i := 0; i < target.Size(); i++ {
		if target.IsPoint(i) {
			fixed[i] = true
		}
	}
	return len(fixed) == target.Size()
}

// ImpreciseClocks reports whether jumping along this relation leaves some
// target variable undetermined, which is the situation the guard
// relaxation pass has to repair.
func (r RenamingRelation) ImpreciseClocks(source, target TimedCondition) bool {
	return len(r) > 0 && !r.Full(target) && !r.OnlyTrivial(source, target)
}

func (r RenamingRelation) String() string {
	parts := make([]string, len(r))
	for i, p := range r {
		parts[i] = fmt.Sprintf("t%d == t'%d", p.Source, p.Target)
	}
	return "{" + strings.Join(parts, " && ") + "}"
}
