package language

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/clockwork-systems/timelearn/zones"
)

// TimedCondition constrains the durations tau_0 ... tau_{N-1} of a timed
// word with N-1 actions. The underlying zone variable k (1 <= k <= N)
// stands for the accumulated duration T(k-1, N-1) = tau_{k-1} + ... +
// tau_{N-1}, which keeps the condition closed under time elapse.
type TimedCondition struct {
	zone zones.Zone
}

// EmptyCondition constrains the empty word: the single duration tau_0 is 0.
func EmptyCondition() TimedCondition {
	z := zones.Top(1)
	z.Tighten(0, -1, zones.Bound{Value: 0, NonStrict: true})
	z.Tighten(-1, 0, zones.Bound{Value: 0, NonStrict: true})
	return TimedCondition{zone: z}
}

// ConditionFromAccumulated builds the point condition pinning each
// accumulated duration T(i, N-1) to the given value.
func ConditionFromAccumulated(acc []float64) TimedCondition {
	return TimedCondition{zone: zones.FromValuation(acc)}
}

// TopCondition places no constraint on the given number of durations.
func TopCondition(size int) TimedCondition {
	return TimedCondition{zone: zones.Top(size)}
}

// Size is the number of constrained durations N.
func (c TimedCondition) Size() int {
	return c.zone.NumVars()
}

// toCol maps the duration pair (i, j) to the zone column encoding
// T(i, j) = T(i, N-1) - T(j+1, N-1).
func (c TimedCondition) toCol(j int) int {
	if j == c.Size()-1 {
		return 0
	}
	return j + 2
}

// UpperBound returns the upper bound of T(i, j) for i <= j.
func (c TimedCondition) UpperBound(i, j int) zones.Bound {
	return c.zone.At(i+1, c.toCol(j))
}

// LowerBound returns the negated lower bound of T(i, j) for i <= j.
func (c TimedCondition) LowerBound(i, j int) zones.Bound {
	return c.zone.At(c.toCol(j), i+1)
}

// RestrictUpperBound tightens the upper bound of T(i, j).
func (c *TimedCondition) RestrictUpperBound(i, j int, b zones.Bound, canonize bool) {
	cur := c.zone.At(i+1, c.toCol(j))
	c.zone.Set(i+1, c.toCol(j), zones.MinBound(cur, b))
	if canonize {
		c.zone.Canonize()
	}
}

// RestrictLowerBound tightens the lower bound of T(i, j), given negated.
func (c *TimedCondition) RestrictLowerBound(i, j int, b zones.Bound, canonize bool) {
	cur := c.zone.At(c.toCol(j), i+1)
	c.zone.Set(c.toCol(j), i+1, zones.MinBound(cur, b))
	if canonize {
		c.zone.Canonize()
	}
}

// Canonize restores the canonical form after a batch of bound writes.
func (c *TimedCondition) Canonize() {
	c.zone.Canonize()
}

// Satisfiable reports whether some duration sequence meets the condition.
func (c TimedCondition) Satisfiable() bool {
	z := c.zone.Clone()
	return z.Satisfiable()
}

// IsSimple reports whether every pair bound is a point or a unit-open
// interval, i.e. the condition denotes a single clock region.
func (c TimedCondition) IsSimple() bool {
	for i := 0; i < c.zone.Dim(); i++ {
		for j := i + 1; j < c.zone.Dim(); j++ {
			if !zones.IsSimpleInterval(c.zone.At(i, j), c.zone.At(j, i)) {
				return false
			}
		}
	}
	return true
}

// IsPoint reports whether T(i, N-1) is pinned to one value.
func (c TimedCondition) IsPoint(i int) bool {
	return zones.IsPoint(c.UpperBound(i, c.Size()-1), c.LowerBound(i, c.Size()-1))
}

// Includes reports whether other denotes a subset of c. Sizes must agree.
func (c TimedCondition) Includes(other TimedCondition) bool {
	return c.zone.Includes(&other.zone)
}

// Equal compares the canonical zones.
func (c TimedCondition) Equal(other TimedCondition) bool {
	return c.zone.Equal(&other.zone)
}

// Clone returns a deep copy.
func (c TimedCondition) Clone() TimedCondition {
	return TimedCondition{zone: c.zone.Clone()}
}

// Concat composes two conditions sequentially. The last duration of c and
// the first duration of other belong to the same delay, so the result has
// c.Size() + other.Size() - 1 durations.
func (c TimedCondition) Concat(other TimedCondition) TimedCondition {
	n, m := c.Size(), other.Size()
	z := zones.Top(n + m - 1)
	// Variables 1..n keep the left accumulated durations, now extended by
	// the whole right word; variables n+1..n+m-1 are the right tail.
	for a := 1; a <= n; a++ {
		for b := 1; b <= n; b++ {
			if a != b {
				z.Set(a, b, c.zone.At(a, b))
			}
		}
	}
	for a := 0; a < m; a++ {
		for b := 0; b < m; b++ {
			if a == b || a == 1 || b == 1 {
				continue
			}
			ra, rb := a, b
			if ra > 1 {
				ra = n + a - 1
			}
			if rb > 1 {
				rb = n + b - 1
			}
			z.Set(ra, rb, other.zone.At(a, b))
		}
	}
	for a := 1; a <= n; a++ {
		// T(a-1, n+m-2) = left T(a-1, n-1) + right T(0, m-1).
		z.Set(a, 0, c.zone.At(a, 0).Add(other.zone.At(1, 0)))
		z.Set(0, a, c.zone.At(0, a).Add(other.zone.At(0, 1)))
		for b := 1; b < m; b++ {
			z.Set(a, n+b, c.zone.At(a, 0).Add(other.zone.At(1, b+1)))
			z.Set(n+b, a, other.zone.At(b+1, 1).Add(c.zone.At(0, a)))
		}
	}
	z.Canonize()
	return TimedCondition{zone: z}
}

// ExtendN appends a fresh duration pinned to 0, growing the size by one.
func (c TimedCondition) ExtendN() TimedCondition {
	n := c.Size()
	z := zones.Top(n + 1)
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			if i != j {
				z.Set(i, j, c.zone.At(i, j))
			}
		}
	}
	zero := zones.Bound{Value: 0, NonStrict: true}
	z.Set(n+1, 0, zero)
	z.Set(0, n+1, zero)
	z.Canonize()
	return TimedCondition{zone: z}
}

// Successor advances the condition to the next clock region by elapsing the
// durations whose variables are given. Points open into unit intervals and
// unit intervals close onto their upper endpoint.
func (c TimedCondition) Successor(vars []int) TimedCondition {
	out := c.Clone()
	last := c.Size() - 1
	for _, i := range vars {
		ub := c.UpperBound(i, last)
		lb := c.LowerBound(i, last)
		switch {
		case zones.IsPoint(ub, lb):
			out.zone.Set(i+1, 0, zones.Bound{Value: ub.Value + 1, NonStrict: false})
			out.zone.Set(0, i+1, zones.Bound{Value: lb.Value, NonStrict: false})
		case zones.IsUnitOpen(ub, lb):
			out.zone.Set(i+1, 0, zones.Bound{Value: ub.Value, NonStrict: true})
			out.zone.Set(0, i+1, zones.Bound{Value: lb.Value - 1, NonStrict: true})
		default:
			panic(fmt.Sprintf("successor of a non-simple bound on T(%d, %d)", i, last))
		}
	}
	out.zone.Canonize()
	return out
}

// ApplyResetConstant pins the accumulated duration of clock x to a value:
// integral values become points and fractional values the enclosing
// unit-open interval.
func (c *TimedCondition) ApplyResetConstant(x int, v float64) {
	c.zone.Unconstrain(x)
	if v == math.Trunc(v) {
		c.zone.Tighten(x, -1, zones.Bound{Value: v, NonStrict: true})
		c.zone.Tighten(-1, x, zones.Bound{Value: -v, NonStrict: true})
	} else {
		lo := math.Floor(v)
		c.zone.Tighten(x, -1, zones.Bound{Value: lo + 1, NonStrict: false})
		c.zone.Tighten(-1, x, zones.Bound{Value: -lo, NonStrict: false})
	}
}

// ApplyResetCopy makes clock x an exact copy of clock src.
func (c *TimedCondition) ApplyResetCopy(x, src int) {
	c.zone.CopyClock(x, src)
	c.zone.Canonize()
}

// ResizeClocks projects or extends the condition to exactly n clocks.
// Dropped clocks are projected away; new clocks start as points at 0.
func (c TimedCondition) ResizeClocks(n int) TimedCondition {
	cur := c.Size()
	if n == cur {
		return c.Clone()
	}
	z := zones.Top(n)
	limit := cur
	if n < limit {
		limit = n
	}
	for i := 0; i <= limit; i++ {
		for j := 0; j <= limit; j++ {
			if i != j {
				z.Set(i, j, c.zone.At(i, j))
			}
		}
	}
	zero := zones.Bound{Value: 0, NonStrict: true}
	for k := cur + 1; k <= n; k++ {
		z.Set(k, 0, zero)
		z.Set(0, k, zero)
	}
	z.Canonize()
	return TimedCondition{zone: z}
}

// ToGuard renders the bounds of each T(i, N-1) as clock constraints, which
// is exact when clock i was last reset just before duration i.
func (c TimedCondition) ToGuard() []zones.Constraint {
	var guard []zones.Constraint
	last := c.Size() - 1
	for i := 0; i <= last; i++ {
		if ub := c.UpperBound(i, last); !ub.IsInf() {
			rel := zones.Lt
			if ub.NonStrict {
				rel = zones.Le
			}
			guard = append(guard, zones.Constraint{Clock: i, Rel: rel, Constant: int(ub.Value)})
		}
		lb := c.LowerBound(i, last)
		low := -lb.Value
		if low > 0 || (low == 0 && !lb.NonStrict) {
			rel := zones.Gt
			if lb.NonStrict {
				rel = zones.Ge
			}
			guard = append(guard, zones.Constraint{Clock: i, Rel: rel, Constant: int(low)})
		}
	}
	return guard
}

// Enumerate splits the condition into the simple conditions it contains by
// slicing every non-simple pair bound into integer points and unit-open
// intervals. The condition must be bounded.
func (c TimedCondition) Enumerate() []TimedCondition {
	for i := 0; i < c.zone.Dim(); i++ {
		for j := i + 1; j < c.zone.Dim(); j++ {
			ub := c.zone.At(i, j)
			lb := c.zone.At(j, i)
			if zones.IsSimpleInterval(ub, lb) {
				continue
			}
			if ub.IsInf() {
				panic(fmt.Sprintf("cannot enumerate an unbounded timed condition: %v", c))
			}
			var out []TimedCondition
			low := -lb.Value
			for k := int(math.Floor(low)); float64(k) <= ub.Value; k++ {
				point := c.Clone()
				point.zone.Tighten(i-1, j-1, zones.Bound{Value: float64(k), NonStrict: true})
				point.zone.Tighten(j-1, i-1, zones.Bound{Value: float64(-k), NonStrict: true})
				if point.zone.Satisfiable() {
					out = append(out, point.Enumerate()...)
				}
				open := c.Clone()
				open.zone.Tighten(i-1, j-1, zones.Bound{Value: float64(k + 1), NonStrict: false})
				open.zone.Tighten(j-1, i-1, zones.Bound{Value: float64(-k), NonStrict: false})
				if open.zone.Satisfiable() {
					out = append(out, open.Enumerate()...)
				}
			}
			return out
		}
	}
	return []TimedCondition{c.Clone()}
}

// ConvexHull widens c to the tightest condition containing both operands.
func (c TimedCondition) ConvexHull(other TimedCondition) TimedCondition {
	out := c.Clone()
	out.zone.ConvexHullAssign(&other.zone)
	return out
}

// Hash is a structural hash over the canonical zone cells.
func (c TimedCondition) Hash() uint64 {
	h := fnv.New64a()
	var buf [9]byte
	for i := 0; i < c.zone.Dim(); i++ {
		for j := 0; j < c.zone.Dim(); j++ {
			if i == j {
				continue
			}
			b := c.zone.At(i, j)
			bits := math.Float64bits(b.Value)
			for k := 0; k < 8; k++ {
				buf[k] = byte(bits >> (8 * k))
			}
			buf[8] = 0
			if b.NonStrict {
				buf[8] = 1
			}
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}

func (c TimedCondition) String() string {
	var b strings.Builder
	last := c.Size() - 1
	for i := 0; i <= last; i++ {
		for j := i; j <= last; j++ {
			ub := c.UpperBound(i, j)
			lb := c.LowerBound(i, j)
			fmt.Fprintf(&b, "%g %s T(%d,%d) %s %v ", -lb.Value, rel(lb), i, j, rel(ub), renderUpper(ub))
		}
	}
	return strings.TrimSpace(b.String())
}

func rel(b zones.Bound) string {
	if b.NonStrict {
		return "<="
	}
	return "<"
}

func renderUpper(b zones.Bound) string {
	if b.IsInf() {
		return "inf"
	}
	return fmt.Sprintf("%g", b.Value)
}
