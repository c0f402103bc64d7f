package params

import (
	"fmt"
	"math"
	"strconv"

	"diffractcore/pkg/domain"
)

// Bounds is an optional closed interval. A nil side is unbounded.
// Bounds values are immutable once constructed.
type Bounds struct {
	Min *float64
	Max *float64
}

// Unbounded returns bounds without limits.
func Unbounded() Bounds { return Bounds{} }

// Between returns the closed interval [lo, hi].
func Between(lo, hi float64) Bounds { return Bounds{Min: ptr(lo), Max: ptr(hi)} }

// AtLeast returns [lo, +inf).
func AtLeast(lo float64) Bounds { return Bounds{Min: ptr(lo)} }

// AtMost returns (-inf, hi].
func AtMost(hi float64) Bounds { return Bounds{Max: ptr(hi)} }

func ptr(v float64) *float64 { return &v }

// Contains reports whether v lies inside the bounds.
func (b Bounds) Contains(v float64) bool {
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v > *b.Max {
		return false
	}
	return true
}

// Clip returns v moved onto the nearest bound when outside.
func (b Bounds) Clip(v float64) float64 {
	if b.Min != nil && v < *b.Min {
		return *b.Min
	}
	if b.Max != nil && v > *b.Max {
		return *b.Max
	}
	return v
}

// Validate rejects NaN limits and inverted intervals.
func (b Bounds) Validate() error {
	if b.Min != nil && (math.IsNaN(*b.Min) || math.IsInf(*b.Min, 1)) {
		return domain.Newf(domain.CodeInvalidBounds, "", "lower bound %v", *b.Min)
	}
	if b.Max != nil && (math.IsNaN(*b.Max) || math.IsInf(*b.Max, -1)) {
		return domain.Newf(domain.CodeInvalidBounds, "", "upper bound %v", *b.Max)
	}
	if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
		return domain.Newf(domain.CodeInvalidBounds, "", "lower bound %v above upper bound %v", *b.Min, *b.Max)
	}
	return nil
}

// IsBounded reports whether either side is limited.
func (b Bounds) IsBounded() bool { return b.Min != nil || b.Max != nil }

func (b Bounds) clone() Bounds {
	var out Bounds
	if b.Min != nil {
		out.Min = ptr(*b.Min)
	}
	if b.Max != nil {
		out.Max = ptr(*b.Max)
	}
	return out
}

func (b Bounds) equal(o Bounds) bool {
	eq := func(x, y *float64) bool {
		if x == nil || y == nil {
			return x == nil && y == nil
		}
		return *x == *y
	}
	return eq(b.Min, o.Min) && eq(b.Max, o.Max)
}

func (b Bounds) String() string {
	lo, hi := "-inf", "+inf"
	if b.Min != nil {
		lo = strconv.FormatFloat(*b.Min, 'g', -1, 64)
	}
	if b.Max != nil {
		hi = strconv.FormatFloat(*b.Max, 'g', -1, 64)
	}
	return fmt.Sprintf("[%s, %s]", lo, hi)
}
