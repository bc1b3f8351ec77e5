package zones

import (
	"fmt"
	"sort"
	"strings"
)

// Relation is the comparison operator of a single clock constraint.
type Relation int

const (
	Lt Relation = iota
	Le
	Ge
	Gt
)

func (r Relation) String() string {
	switch r {
	case Lt:
		return "<"
	case Le:
		return "<="
	case Ge:
		return ">="
	case Gt:
		return ">"
	}
	return "?"
}

// Constraint is an atomic guard of the form x_Clock Rel Constant, with an
// integer constant as in the usual timed-automaton definition.
type Constraint struct {
	Clock    int
	Rel      Relation
	Constant int
}

func (c Constraint) String() string {
	return fmt.Sprintf("x%d %s %d", c.Clock, c.Rel, c.Constant)
}

// IsUpperBound reports whether the constraint bounds the clock from above.
func (c Constraint) IsUpperBound() bool {
	return c.Rel == Lt || c.Rel == Le
}

// Satisfied evaluates the constraint on a clock value.
func (c Constraint) Satisfied(v float64) bool {
	k := float64(c.Constant)
	switch c.Rel {
	case Lt:
		return v < k
	case Le:
		return v <= k
	case Ge:
		return v >= k
	default:
		return v > k
	}
}

// Negate flips the constraint to its complement over the same clock.
func (c Constraint) Negate() Constraint {
	switch c.Rel {
	case Lt:
		return Constraint{Clock: c.Clock, Rel: Ge, Constant: c.Constant}
	case Le:
		return Constraint{Clock: c.Clock, Rel: Gt, Constant: c.Constant}
	case Ge:
		return Constraint{Clock: c.Clock, Rel: Lt, Constant: c.Constant}
	default:
		return Constraint{Clock: c.Clock, Rel: Le, Constant: c.Constant}
	}
}

// Bound encodes the constraint as a difference bound. Upper bounds become a
// bound on x - 0 and lower bounds a bound on 0 - x, so that the tightness
// order of Bound decides implication between same-direction atoms.
func (c Constraint) Bound() Bound {
	switch c.Rel {
	case Le:
		return Bound{Value: float64(c.Constant), NonStrict: true}
	case Lt:
		return Bound{Value: float64(c.Constant), NonStrict: false}
	case Ge:
		return Bound{Value: -float64(c.Constant), NonStrict: true}
	default:
		return Bound{Value: -float64(c.Constant), NonStrict: false}
	}
}

// Weaker reports whether c is implied by other. Both atoms must constrain
// the same clock in the same direction.
func (c Constraint) Weaker(other Constraint) bool {
	if c.Clock != other.Clock || c.IsUpperBound() != other.IsUpperBound() {
		return false
	}
	return other.Bound().LessEq(c.Bound())
}

// GuardWeaker reports whether every atom of left is implied by some atom of
// right, i.e. the zone of right is included in the zone of left.
func GuardWeaker(left, right []Constraint) bool {
	for _, l := range left {
		implied := false
		for _, r := range right {
			if l.Weaker(r) {
				implied = true
				break
			}
		}
		if !implied {
			return false
		}
	}
	return true
}

// GuardEqual reports mutual implication of the two guards.
func GuardEqual(left, right []Constraint) bool {
	return GuardWeaker(left, right) && GuardWeaker(right, left)
}

func guardClockCount(guards ...[]Constraint) int {
	n := 0
	for _, g := range guards {
		for _, c := range g {
			if c.Clock+1 > n {
				n = c.Clock + 1
			}
		}
	}
	return n
}

// GuardsOverlap reports whether the two guards admit a common clock
// valuation. The check tightens a scratch zone by both conjunctions.
func GuardsOverlap(a, b []Constraint) bool {
	z := Top(guardClockCount(a, b))
	for i := 0; i < z.NumVars(); i++ {
		z.Tighten(-1, i, NonNegative())
	}
	for _, c := range a {
		z.TightenGuard(c)
	}
	for _, c := range b {
		z.TightenGuard(c)
	}
	return z.Satisfiable()
}

// SortGuard orders atoms by clock, direction, and constant for stable output.
func SortGuard(guard []Constraint) {
	sort.Slice(guard, func(i, j int) bool {
		if guard[i].Clock != guard[j].Clock {
			return guard[i].Clock < guard[j].Clock
		}
		if guard[i].IsUpperBound() != guard[j].IsUpperBound() {
			return guard[j].IsUpperBound()
		}
		return guard[i].Constant < guard[j].Constant
	})
}

// GuardString renders a conjunction of atoms.
func GuardString(guard []Constraint) string {
	if len(guard) == 0 {
		return "true"
	}
	parts := make([]string, len(guard))
	for i, c := range guard {
		parts[i] = c.String()
	}
	return strings.Join(parts, " && ")
}
