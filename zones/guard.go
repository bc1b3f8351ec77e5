package zones

import "math"

// boundToUpper converts an encoded difference bound on x - 0 back into an
// upper-bound atom on clock x.
func boundToUpper(clock int, b Bound) Constraint {
	rel := Lt
	if b.NonStrict {
		rel = Le
	}
	return Constraint{Clock: clock, Rel: rel, Constant: int(b.Value)}
}

// boundToLower converts an encoded difference bound on 0 - x back into a
// lower-bound atom on clock x.
func boundToLower(clock int, b Bound) Constraint {
	rel := Gt
	if b.NonStrict {
		rel = Ge
	}
	return Constraint{Clock: clock, Rel: rel, Constant: int(-b.Value)}
}

// UnionHull over-approximates a disjunction of guards by one conjunction.
// A clock keeps a bound in the hull only if every disjunct bounds it in the
// same direction, and the loosest such bound wins.
func UnionHull(guards [][]Constraint) []Constraint {
	if len(guards) == 0 {
		return nil
	}
	n := guardClockCount(guards...)
	hull := make([]Constraint, 0, 2*n)
	for clock := 0; clock < n; clock++ {
		upper := Bound{Value: math.Inf(-1)}
		lower := Bound{Value: math.Inf(-1)}
		haveUpper := true
		for _, g := range guards {
			gu := Inf()
			gl := NonNegative()
			for _, c := range g {
				if c.Clock != clock {
					continue
				}
				if c.IsUpperBound() {
					gu = MinBound(gu, c.Bound())
				} else {
					gl = MinBound(gl, c.Bound())
				}
			}
			if gu.IsInf() {
				haveUpper = false
			}
			upper = MaxBound(upper, gu)
			lower = MaxBound(lower, gl)
		}
		if haveUpper {
			hull = append(hull, boundToUpper(clock, upper))
		}
		if lower.Less(NonNegative()) {
			hull = append(hull, boundToLower(clock, lower))
		}
	}
	return hull
}

// Widen drops the lower-bound atoms of a guard, keeping only upper bounds.
func Widen(guard []Constraint) []Constraint {
	kept := make([]Constraint, 0, len(guard))
	for _, c := range guard {
		if c.IsUpperBound() {
			kept = append(kept, c)
		}
	}
	return kept
}

// DropUpperBounds keeps only the lower-bound atoms of a guard.
func DropUpperBounds(guard []Constraint) []Constraint {
	kept := make([]Constraint, 0, len(guard))
	for _, c := range guard {
		if !c.IsUpperBound() {
			kept = append(kept, c)
		}
	}
	return kept
}

// AddUpperBound closes a guard upward: every clock with a lower bound but
// no upper bound gets the upper bound c+1, where c is its tightest lower
// bound constant. This bounds the region a guard-relaxation step explores.
func AddUpperBound(guard []Constraint) []Constraint {
	n := guardClockCount(guard)
	out := append([]Constraint(nil), guard...)
	for clock := 0; clock < n; clock++ {
		hasUpper := false
		lowest := -1
		for _, c := range guard {
			if c.Clock != clock {
				continue
			}
			if c.IsUpperBound() {
				hasUpper = true
			} else if c.Constant > lowest {
				lowest = c.Constant
			}
		}
		if !hasUpper && lowest >= 0 {
			out = append(out, Constraint{Clock: clock, Rel: Le, Constant: lowest + 1})
		}
	}
	return out
}

// conjunction is a guard in interval form: one upper and one lower bound
// per clock, encoded as difference bounds. It drives the DNF negation.
type conjunction struct {
	upper []Bound // bound on x - 0
	lower []Bound // bound on 0 - x
}

func newConjunction(n int) conjunction {
	c := conjunction{upper: make([]Bound, n), lower: make([]Bound, n)}
	for i := 0; i < n; i++ {
		c.upper[i] = Inf()
		c.lower[i] = NonNegative()
	}
	return c
}

func (c conjunction) clone() conjunction {
	out := conjunction{
		upper: append([]Bound(nil), c.upper...),
		lower: append([]Bound(nil), c.lower...),
	}
	return out
}

func (c *conjunction) tighten(atom Constraint) {
	if atom.IsUpperBound() {
		c.upper[atom.Clock] = MinBound(c.upper[atom.Clock], atom.Bound())
	} else {
		c.lower[atom.Clock] = MinBound(c.lower[atom.Clock], atom.Bound())
	}
}

func (c conjunction) satisfiable() bool {
	zero := Bound{Value: 0, NonStrict: true}
	for i := range c.upper {
		if c.upper[i].Add(c.lower[i]).Less(zero) {
			return false
		}
	}
	return true
}

// subsumes reports whether c contains every valuation of other.
func (c conjunction) subsumes(other conjunction) bool {
	for i := range c.upper {
		if c.upper[i].Less(other.upper[i]) || c.lower[i].Less(other.lower[i]) {
			return false
		}
	}
	return true
}

func (c conjunction) guard() []Constraint {
	var out []Constraint
	for i := range c.upper {
		if !c.upper[i].IsInf() {
			out = append(out, boundToUpper(i, c.upper[i]))
		}
		if c.lower[i].Less(NonNegative()) {
			out = append(out, boundToLower(i, c.lower[i]))
		}
	}
	return out
}

// NegateDNF complements a guard in disjunctive normal form. The result is
// again a disjunction of conjunctions, with unsatisfiable and subsumed
// disjuncts pruned.
func NegateDNF(dnf [][]Constraint) [][]Constraint {
	n := 0
	for _, g := range dnf {
		if k := guardClockCount(g); k > n {
			n = k
		}
	}
	if n == 0 {
		n = 1
	}
	// The CNF of the complement: one clause per original disjunct, one
	// literal per negated atom. Distribute clauses into conjunctions.
	acc := []conjunction{newConjunction(n)}
	for _, g := range dnf {
		var next []conjunction
		for _, base := range acc {
			for _, atom := range g {
				cand := base.clone()
				cand.tighten(atom.Negate())
				if !cand.satisfiable() {
					continue
				}
				subsumed := false
				for _, kept := range next {
					if kept.subsumes(cand) {
						subsumed = true
						break
					}
				}
				if !subsumed {
					next = append(next, cand)
				}
			}
		}
		acc = next
		if len(acc) == 0 {
			return nil
		}
	}
	out := make([][]Constraint, 0, len(acc))
	for _, c := range acc {
		out = append(out, c.guard())
	}
	return out
}
