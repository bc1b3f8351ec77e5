package zones

import (
	"fmt"
	"math"
)

// Bound is a difference bound of the form x - y < v or x - y <= v.
// NonStrict is true for <= and false for <.
type Bound struct {
	Value     float64
	NonStrict bool
}

// Inf is the absent bound: x - y < +inf.
func Inf() Bound {
	return Bound{Value: math.Inf(1), NonStrict: false}
}

// NonNegative is the trivial lower bound -x <= 0, i.e. x >= 0.
func NonNegative() Bound {
	return Bound{Value: 0, NonStrict: true}
}

// Less reports whether b is tighter than other. At equal values a strict
// bound is tighter than a non-strict one.
func (b Bound) Less(other Bound) bool {
	if b.Value != other.Value {
		return b.Value < other.Value
	}
	return !b.NonStrict && other.NonStrict
}

// LessEq reports b <= other in the tightness order.
func (b Bound) LessEq(other Bound) bool {
	return !other.Less(b)
}

// MinBound returns the tighter of the two bounds.
func MinBound(a, b Bound) Bound {
	if b.Less(a) {
		return b
	}
	return a
}

// MaxBound returns the looser of the two bounds.
func MaxBound(a, b Bound) Bound {
	if a.Less(b) {
		return b
	}
	return a
}

// Add composes two bounds along a path: values add and the result is
// non-strict only if both contributing bounds are.
func (b Bound) Add(other Bound) Bound {
	return Bound{Value: b.Value + other.Value, NonStrict: b.NonStrict && other.NonStrict}
}

// Neg negates the value, keeping strictness.
func (b Bound) Neg() Bound {
	return Bound{Value: -b.Value, NonStrict: b.NonStrict}
}

// IsInf reports whether the bound is absent.
func (b Bound) IsInf() bool {
	return math.IsInf(b.Value, 1)
}

func (b Bound) String() string {
	if b.IsInf() {
		return "inf"
	}
	if b.NonStrict {
		return fmt.Sprintf("(%g, <=)", b.Value)
	}
	return fmt.Sprintf("(%g, <)", b.Value)
}

// IsPoint reports whether an upper bound on x - y and an upper bound on
// y - x together pin the difference to a single value.
func IsPoint(upper, lower Bound) bool {
	return -lower.Value == upper.Value && upper.NonStrict && lower.NonStrict
}

// IsUnitOpen reports whether the two bounds describe an open interval of
// unit length between adjacent integers.
func IsUnitOpen(upper, lower Bound) bool {
	return -lower.Value+1 == upper.Value && !upper.NonStrict && !lower.NonStrict
}

// IsSimpleInterval reports whether the two bounds need no further regional
// splitting, i.e. they form a point or a unit-open interval.
func IsSimpleInterval(upper, lower Bound) bool {
	return IsPoint(upper, lower) || IsUnitOpen(upper, lower)
}
