// Package interval implements sorted, merged sets of half-open time
// intervals used to track coverage windows.
package interval

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"
	"strings"
)

// ErrMalformedInterval is returned when an interval is not start < end.
var ErrMalformedInterval = errors.New("malformed interval")

// Interval is the half-open span [Start, End) in ephemeris seconds.
type Interval struct {
	Start float64
	End   float64
}

// Validate checks that the interval is finite and non-empty.
func (iv Interval) Validate() error {
	if math.IsNaN(iv.Start) || math.IsNaN(iv.End) || math.IsInf(iv.Start, 0) || math.IsInf(iv.End, 0) {
		return fmt.Errorf("%w: (%v, %v) is not finite", ErrMalformedInterval, iv.Start, iv.End)
	}
	if iv.Start >= iv.End {
		return fmt.Errorf("%w: start %v is not before end %v", ErrMalformedInterval, iv.Start, iv.End)
	}
	return nil
}

// Contains reports whether t lies in [Start, End). NaN is never contained.
func (iv Interval) Contains(t float64) bool {
	return !math.IsNaN(t) && iv.Start <= t && t < iv.End
}

// Duration is End - Start.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%g, %g)", iv.Start, iv.End)
}

// Set is an immutable collection of intervals. It remembers the raw
// intervals it was built from so Difference can reverse a Union exactly,
// and exposes the merged view everywhere else: sorted by start, with no
// two intervals overlapping or touching.
//
// The zero Set is empty and ready to use.
type Set struct {
	raw    []Interval
	merged []Interval
}

// New validates and merges the given intervals.
func New(intervals ...Interval) (Set, error) {
	for i, iv := range intervals {
		if err := iv.Validate(); err != nil {
			return Set{}, fmt.Errorf("interval %d: %w", i, err)
		}
	}
	return build(slices.Clone(intervals)), nil
}

// MustNew is New for literals known to be valid. It panics otherwise.
func MustNew(intervals ...Interval) Set {
	s, err := New(intervals...)
	if err != nil {
		panic(err)
	}
	return s
}

// build takes ownership of raw, which must already be validated.
func build(raw []Interval) Set {
	if len(raw) == 0 {
		return Set{}
	}
	return Set{raw: raw, merged: merge(raw)}
}

func merge(raw []Interval) []Interval {
	sorted := slices.Clone(raw)
	slices.SortFunc(sorted, func(a, b Interval) int {
		if c := cmpFloat(a.Start, b.Start); c != 0 {
			return c
		}
		return cmpFloat(a.End, b.End)
	})

	out := make([]Interval, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start > cur.End {
			out = append(out, cur)
			cur = next
			continue
		}
		cur.End = math.Max(cur.End, next.End)
	}
	return append(out, cur)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Union returns the merge of both sets' raw intervals. The result depends
// only on the represented time, not on the order of earlier unions.
func (s Set) Union(other Set) Set {
	if len(other.raw) == 0 {
		return s
	}
	if len(s.raw) == 0 {
		return other
	}
	raw := make([]Interval, 0, len(s.raw)+len(other.raw))
	raw = append(raw, s.raw...)
	raw = append(raw, other.raw...)
	return build(raw)
}

// Difference removes other's raw intervals from s's raw intervals by exact
// value, one occurrence per match, and re-merges what is left.
//
// This is not geometric subtraction: it reverses a Union performed with the
// same intervals, which is what coverage bookkeeping needs when one of
// several overlapping kernels is unloaded. Use Subtract to cut time out of
// a set.
func (s Set) Difference(other Set) Set {
	if len(s.raw) == 0 || len(other.raw) == 0 {
		return s
	}
	raw := slices.Clone(s.raw)
	for _, iv := range other.raw {
		if i := slices.Index(raw, iv); i >= 0 {
			raw = slices.Delete(raw, i, i+1)
		}
	}
	return build(raw)
}

// Subtract returns the time covered by s but not by other.
func (s Set) Subtract(other Set) Set {
	if len(s.merged) == 0 || len(other.merged) == 0 {
		return s
	}
	var out []Interval
	cuts := other.merged
	for _, iv := range s.merged {
		start := iv.Start
		for _, c := range cuts {
			if c.End <= start {
				continue
			}
			if c.Start >= iv.End {
				break
			}
			if c.Start > start {
				out = append(out, Interval{Start: start, End: c.Start})
			}
			start = math.Max(start, c.End)
			if start >= iv.End {
				break
			}
		}
		if start < iv.End {
			out = append(out, Interval{Start: start, End: iv.End})
		}
	}
	return build(out)
}

// Intersect returns the time covered by both sets.
func (s Set) Intersect(other Set) Set {
	var out []Interval
	i, j := 0, 0
	for i < len(s.merged) && j < len(other.merged) {
		a, b := s.merged[i], other.merged[j]
		start, end := math.Max(a.Start, b.Start), math.Min(a.End, b.End)
		if start < end {
			out = append(out, Interval{Start: start, End: end})
		}
		if a.End < b.End {
			i++
		} else {
			j++
		}
	}
	return build(out)
}

// Len is the number of merged intervals.
func (s Set) Len() int { return len(s.merged) }

// IsEmpty reports whether the set covers no time at all.
func (s Set) IsEmpty() bool { return len(s.merged) == 0 }

// Intervals returns a copy of the merged intervals in order.
func (s Set) Intervals() []Interval { return slices.Clone(s.merged) }

// Raw returns a copy of the intervals the set was built from.
func (s Set) Raw() []Interval { return slices.Clone(s.raw) }

// All iterates the merged intervals in order.
func (s Set) All() iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		for _, iv := range s.merged {
			if !yield(iv) {
				return
			}
		}
	}
}

// Contains reports whether t falls inside one of the intervals. NaN is
// never contained.
func (s Set) Contains(t float64) bool {
	if math.IsNaN(t) {
		return false
	}
	i, found := slices.BinarySearchFunc(s.merged, t, func(iv Interval, t float64) int {
		return cmpFloat(iv.Start, t)
	})
	if found {
		return true
	}
	return i > 0 && s.merged[i-1].Contains(t)
}

// Covers reports whether iv lies entirely within a single interval of s.
func (s Set) Covers(iv Interval) bool {
	for _, m := range s.merged {
		if m.Start <= iv.Start && iv.End <= m.End {
			return true
		}
		if m.Start > iv.Start {
			return false
		}
	}
	return false
}

// Bounds returns the earliest start and latest end. ok is false for an
// empty set.
func (s Set) Bounds() (start, end float64, ok bool) {
	if len(s.merged) == 0 {
		return 0, 0, false
	}
	return s.merged[0].Start, s.merged[len(s.merged)-1].End, true
}

// Equal compares the merged views.
func (s Set) Equal(other Set) bool {
	return slices.Equal(s.merged, other.merged)
}

func (s Set) String() string {
	parts := make([]string, len(s.merged))
	for i, iv := range s.merged {
		parts[i] = iv.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
