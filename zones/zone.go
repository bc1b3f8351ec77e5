package zones

import (
	"math"
)

// Zone is a difference bound matrix over NumVars clock variables plus the
// reference variable at matrix index 0. The cell (i, j) bounds x_i - x_j
// from above, with the convention x_0 = 0.
//
// Most mutating operations keep the matrix canonical; Canonize restores the
// property after direct cell writes.
type Zone struct {
	dim int
	mat []Bound

	// M is the normalization threshold used by Abstractize. It is only
	// meaningful on zones built for zone-graph exploration.
	M Bound
}

// Top is the unconstrained zone over the given number of clock variables.
func Top(vars int) Zone {
	dim := vars + 1
	z := Zone{dim: dim, mat: make([]Bound, dim*dim), M: Inf()}
	for i := range z.mat {
		z.mat[i] = Inf()
	}
	return z
}

// ZeroPoint is the zone containing exactly the valuation with all clocks 0.
func ZeroPoint(vars int) Zone {
	dim := vars + 1
	z := Zone{dim: dim, mat: make([]Bound, dim*dim), M: Inf()}
	for i := range z.mat {
		z.mat[i] = Bound{Value: 0, NonStrict: true}
	}
	return z
}

// RegionOf is the clock region containing the given valuation: integral
// differences become points and fractional ones unit-open intervals.
func RegionOf(valuation []float64) Zone {
	z := Top(len(valuation))
	ext := append([]float64{0}, valuation...)
	for i := 0; i < z.dim; i++ {
		for j := 0; j < z.dim; j++ {
			if i == j {
				z.Set(i, j, Bound{Value: 0, NonStrict: true})
				continue
			}
			d := ext[i] - ext[j]
			if d == math.Trunc(d) {
				z.Set(i, j, Bound{Value: d, NonStrict: true})
			} else {
				z.Set(i, j, Bound{Value: math.Floor(d) + 1, NonStrict: false})
			}
		}
	}
	return z
}

// FromValuation is the singleton zone of the given clock valuation.
func FromValuation(valuation []float64) Zone {
	z := Top(len(valuation))
	for i, v := range valuation {
		z.Tighten(i, -1, Bound{Value: v, NonStrict: true})
		z.Tighten(-1, i, Bound{Value: -v, NonStrict: true})
	}
	return z
}

// NumVars is the number of clock variables, excluding the reference.
func (z *Zone) NumVars() int {
	return z.dim - 1
}

// Dim is the full matrix dimension, including the reference variable.
func (z *Zone) Dim() int {
	return z.dim
}

// At reads the matrix cell (i, j) by matrix index, where index 0 is the
// reference variable.
func (z *Zone) At(i, j int) Bound {
	return z.mat[i*z.dim+j]
}

// Set writes the matrix cell (i, j) without re-canonizing.
func (z *Zone) Set(i, j int, b Bound) {
	z.mat[i*z.dim+j] = b
}

// Clone returns a deep copy.
func (z *Zone) Clone() Zone {
	mat := make([]Bound, len(z.mat))
	copy(mat, z.mat)
	return Zone{dim: z.dim, mat: mat, M: z.M}
}

// Equal compares the constraint cells of the two zones, ignoring the
// diagonal and the normalization threshold.
func (z *Zone) Equal(other *Zone) bool {
	if z.dim != other.dim {
		return false
	}
	for i := 0; i < z.dim; i++ {
		for j := 0; j < z.dim; j++ {
			if i == j {
				continue
			}
			if z.At(i, j) != other.At(i, j) {
				return false
			}
		}
	}
	return true
}

// close1 restores canonicity after the constraints on variable x changed,
// by relaxing every cell through paths that pass x.
func (z *Zone) close1(x int) {
	for i := 0; i < z.dim; i++ {
		ix := z.At(i, x)
		for j := 0; j < z.dim; j++ {
			z.Set(i, j, MinBound(z.At(i, j), ix.Add(z.At(x, j))))
		}
	}
}

// Canonize closes the matrix under all shortest paths.
func (z *Zone) Canonize() {
	for k := 0; k < z.dim; k++ {
		z.close1(k)
	}
}

// Tighten strengthens the bound on x - y, with -1 denoting the reference
// variable. The zone stays canonical if it was canonical before.
func (z *Zone) Tighten(x, y int, b Bound) {
	i, j := x+1, y+1
	z.Set(i, j, MinBound(z.At(i, j), b))
	z.close1(i)
	z.close1(j)
}

// TightenGuard strengthens the zone by a single guard atom.
func (z *Zone) TightenGuard(c Constraint) {
	k := float64(c.Constant)
	switch c.Rel {
	case Ge:
		z.Tighten(-1, c.Clock, Bound{Value: -k, NonStrict: true})
	case Gt:
		z.Tighten(-1, c.Clock, Bound{Value: -k, NonStrict: false})
	case Le:
		z.Tighten(c.Clock, -1, Bound{Value: k, NonStrict: true})
	case Lt:
		z.Tighten(c.Clock, -1, Bound{Value: k, NonStrict: false})
	}
}

// Satisfiable reports whether the zone contains a valuation, i.e. the
// canonical matrix has no negative cycle.
func (z *Zone) Satisfiable() bool {
	z.Canonize()
	return z.satisfiableCanonical()
}

func (z *Zone) satisfiableCanonical() bool {
	zero := Bound{Value: 0, NonStrict: true}
	for i := 0; i < z.dim; i++ {
		for j := i + 1; j < z.dim; j++ {
			if z.At(i, j).Add(z.At(j, i)).Less(zero) {
				return false
			}
		}
	}
	return true
}

// Includes reports whether every valuation of other is in z. Both zones
// must be canonical and of the same dimension.
func (z *Zone) Includes(other *Zone) bool {
	if z.dim != other.dim {
		return false
	}
	for i := 0; i < z.dim; i++ {
		for j := 0; j < z.dim; j++ {
			if z.At(i, j).Less(other.At(i, j)) {
				return false
			}
		}
	}
	return true
}

// Intersect tightens z to the cell-wise minimum with other.
func (z *Zone) Intersect(other *Zone) {
	for i := range z.mat {
		z.mat[i] = MinBound(z.mat[i], other.mat[i])
	}
	z.Canonize()
}

// ConvexHullAssign loosens z to the cell-wise maximum with other, the
// tightest zone containing both.
func (z *Zone) ConvexHullAssign(other *Zone) {
	for i := range z.mat {
		z.mat[i] = MaxBound(z.mat[i], other.mat[i])
	}
}

// Reset pins clock variable x to 0, forgetting its previous value but
// keeping its relation to the reference exact.
func (z *Zone) Reset(x int) {
	i := x + 1
	zero := Bound{Value: 0, NonStrict: true}
	z.Set(0, i, zero)
	z.Set(i, 0, zero)
	for j := 1; j < z.dim; j++ {
		if j == i {
			continue
		}
		z.Set(i, j, z.At(0, j))
		z.Set(j, i, z.At(j, 0))
	}
}

// PinConstant pins clock variable x to the exact value v.
func (z *Zone) PinConstant(x int, v float64) {
	z.Unconstrain(x)
	z.Tighten(x, -1, Bound{Value: v, NonStrict: true})
	z.Tighten(-1, x, Bound{Value: -v, NonStrict: true})
}

// CopyClock makes clock variable dst an exact copy of src, carrying over
// all difference bounds of src.
func (z *Zone) CopyClock(dst, src int) {
	if dst == src {
		return
	}
	i, s := dst+1, src+1
	for j := 0; j < z.dim; j++ {
		if j == i {
			continue
		}
		z.Set(i, j, z.At(s, j))
		z.Set(j, i, z.At(j, s))
	}
	zero := Bound{Value: 0, NonStrict: true}
	z.Set(i, s, zero)
	z.Set(s, i, zero)
}

// Unconstrain removes all constraints on clock variable x.
func (z *Zone) Unconstrain(x int) {
	i := x + 1
	for j := 0; j < z.dim; j++ {
		z.Set(i, j, Inf())
		z.Set(j, i, Inf())
	}
}

// Elapse lets time pass: all upper bounds against the reference open up
// while differences between clocks are preserved.
func (z *Zone) Elapse() {
	for i := 1; i < z.dim; i++ {
		z.Set(i, 0, Inf())
	}
}

// ReverseElapse rewinds time down to the reference: all lower bounds
// against the reference collapse to 0.
func (z *Zone) ReverseElapse() {
	zero := Bound{Value: 0, NonStrict: true}
	for i := 1; i < z.dim; i++ {
		z.Set(0, i, zero)
	}
}

// Abstractize applies maximum-constant normalization with threshold M,
// which makes the set of reachable zones finite.
func (z *Zone) Abstractize() {
	if z.M.IsInf() {
		return
	}
	upper := Bound{Value: z.M.Value, NonStrict: true}
	lower := Bound{Value: -z.M.Value, NonStrict: false}
	for i := range z.mat {
		if upper.Less(z.mat[i]) {
			z.mat[i] = Inf()
		} else if z.mat[i].Less(lower) {
			z.mat[i] = lower
		}
	}
}

// Sample returns a valuation inside the zone, preferring exact points and
// midpoints of open intervals. The zone must be canonical and satisfiable.
func (z *Zone) Sample() []float64 {
	v := make([]float64, z.NumVars())
	fixed := z.Clone()
	for i := 1; i < fixed.dim; i++ {
		upper := fixed.At(i, 0)
		lower := fixed.At(0, i)
		lo := -lower.Value
		var val float64
		switch {
		case IsPoint(upper, lower):
			val = upper.Value
		case upper.IsInf():
			if lower.NonStrict {
				val = lo
			} else {
				val = lo + 0.5
			}
		case lower.NonStrict && !upper.Less(Bound{Value: lo, NonStrict: true}):
			val = lo
		default:
			val = (lo + upper.Value) / 2
		}
		v[i-1] = val
		fixed.Tighten(i-1, -1, Bound{Value: val, NonStrict: true})
		fixed.Tighten(-1, i-1, Bound{Value: -val, NonStrict: true})
	}
	return v
}

// Contains evaluates membership of a valuation.
func (z *Zone) Contains(valuation []float64) bool {
	if len(valuation) != z.NumVars() {
		return false
	}
	ext := append([]float64{0}, valuation...)
	for i := 0; i < z.dim; i++ {
		for j := 0; j < z.dim; j++ {
			b := z.At(i, j)
			d := ext[i] - ext[j]
			if b.NonStrict {
				if d > b.Value {
					return false
				}
			} else if d >= b.Value {
				return false
			}
		}
	}
	return true
}

// MaxConstant returns the largest finite absolute bound value in the zone.
func (z *Zone) MaxConstant() float64 {
	m := 0.0
	for _, b := range z.mat {
		if !b.IsInf() {
			m = math.Max(m, math.Abs(b.Value))
		}
	}
	return m
}
