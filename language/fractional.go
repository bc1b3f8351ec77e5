package language

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
)

// FractionalOrder tracks the linear order of the fractional parts of the
// accumulated durations T(i, N-1). Variables with equal fractional parts
// share a class; the first class holds exactly the variables with
// fractional part 0, and may be empty.
type FractionalOrder struct {
	classes [][]int
	size    int
}

// NewFractionalOrder is the order of the empty word: T(0, 0) = 0.
func NewFractionalOrder() FractionalOrder {
	return FractionalOrder{classes: [][]int{{0}}, size: 1}
}

// FractionalOrderOf builds the order of concrete accumulated durations.
func FractionalOrderOf(acc []float64) FractionalOrder {
	idx := make([]int, len(acc))
	for i := range idx {
		idx[i] = i
	}
	frac := func(i int) float64 {
		f := acc[i] - math.Floor(acc[i])
		return f
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return frac(idx[a]) < frac(idx[b])
	})
	classes := [][]int{{}}
	prev := math.Inf(-1)
	for _, i := range idx {
		f := frac(i)
		if f == prev {
			classes[len(classes)-1] = append(classes[len(classes)-1], i)
			continue
		}
		if f == 0 {
			classes[0] = append(classes[0], i)
		} else {
			classes = append(classes, []int{i})
		}
		prev = f
	}
	for _, cls := range classes {
		sort.Ints(cls)
	}
	return FractionalOrder{classes: classes, size: len(acc)}
}

// Size is the number of ordered variables.
func (f FractionalOrder) Size() int {
	return f.size
}

// SuccessorVariables returns the variables that elapse into the next
// region: the integer-valued class if nonempty, otherwise the class with
// the largest fractional part.
func (f FractionalOrder) SuccessorVariables() []int {
	if len(f.classes[0]) > 0 {
		return append([]int(nil), f.classes[0]...)
	}
	return append([]int(nil), f.classes[len(f.classes)-1]...)
}

// Successor advances the order by one region step.
func (f FractionalOrder) Successor() FractionalOrder {
	out := f.clone()
	out.SuccessorAssign()
	return out
}

// SuccessorAssign advances in place. If no variable is integer-valued, the
// largest class wraps around to fractional part 0; otherwise the integer
// class leaves 0 and the front becomes empty.
func (f *FractionalOrder) SuccessorAssign() {
	if len(f.classes[0]) == 0 {
		last := f.classes[len(f.classes)-1]
		f.classes = append([][]int{last}, f.classes[1:len(f.classes)-1]...)
	} else {
		f.classes = append([][]int{{}}, f.classes...)
	}
}

// ExtendN appends a fresh variable with value 0 to the integer class.
func (f FractionalOrder) ExtendN() FractionalOrder {
	out := f.clone()
	out.classes[0] = append(out.classes[0], out.size)
	out.size++
	return out
}

func (f FractionalOrder) clone() FractionalOrder {
	classes := make([][]int, len(f.classes))
	for i, cls := range f.classes {
		classes[i] = append([]int(nil), cls...)
	}
	return FractionalOrder{classes: classes, size: f.size}
}

// Equal compares class contents and order.
func (f FractionalOrder) Equal(other FractionalOrder) bool {
	if f.size != other.size || len(f.classes) != len(other.classes) {
		return false
	}
	for i, cls := range f.classes {
		if len(cls) != len(other.classes[i]) {
			return false
		}
		for j, v := range cls {
			if v != other.classes[i][j] {
				return false
			}
		}
	}
	return true
}

// Hash is a structural hash of the class sequence.
func (f FractionalOrder) Hash() uint64 {
	h := fnv.New64a()
	for _, cls := range f.classes {
		for _, v := range cls {
			h.Write([]byte{byte(v)})
		}
		h.Write([]byte{0xff})
	}
	return h.Sum64()
}

func (f FractionalOrder) String() string {
	parts := make([]string, len(f.classes))
	for i, cls := range f.classes {
		parts[i] = fmt.Sprint(cls)
	}
	return strings.Join(parts, " < ")
}
