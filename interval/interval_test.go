package interval

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func iv(start, end float64) Interval { return Interval{Start: start, End: end} }

func TestNewMergesOverlappingAndTouching(t *testing.T) {
	tests := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{name: "empty", in: nil, want: nil},
		{name: "single", in: []Interval{iv(1, 2)}, want: []Interval{iv(1, 2)}},
		{name: "unsorted disjoint", in: []Interval{iv(10, 15), iv(0, 5)}, want: []Interval{iv(0, 5), iv(10, 15)}},
		{name: "overlap", in: []Interval{iv(0, 5), iv(4, 8)}, want: []Interval{iv(0, 8)}},
		{name: "touching", in: []Interval{iv(0, 5), iv(5, 8)}, want: []Interval{iv(0, 8)}},
		{name: "contained", in: []Interval{iv(0, 10), iv(2, 3)}, want: []Interval{iv(0, 10)}},
		{name: "duplicates", in: []Interval{iv(1, 2), iv(1, 2)}, want: []Interval{iv(1, 2)}},
		{name: "chain", in: []Interval{iv(6, 9), iv(0, 3), iv(2, 7)}, want: []Interval{iv(0, 9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.in...)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := s.Intervals(); !slices.Equal(got, tt.want) {
				t.Fatalf("Intervals() = %v, want %v", got, tt.want)
			}
			assertNoOverlap(t, s)
		})
	}
}

func TestNewRejectsMalformedIntervals(t *testing.T) {
	bad := []Interval{
		iv(5, 5),
		iv(5, 1),
		iv(math.NaN(), 1),
		iv(0, math.Inf(1)),
	}
	for _, b := range bad {
		if _, err := New(iv(0, 1), b); !errors.Is(err, ErrMalformedInterval) {
			t.Fatalf("New(%v) error = %v, want ErrMalformedInterval", b, err)
		}
	}
}

func TestUnionMergesAcrossSets(t *testing.T) {
	a := MustNew(iv(0, 5), iv(10, 15))
	b := MustNew(iv(4, 11))

	got := a.Union(b)
	want := MustNew(iv(0, 15))
	if !got.Equal(want) {
		t.Fatalf("Union = %v, want %v", got, want)
	}
	if !b.Union(a).Equal(want) {
		t.Fatalf("Union is not commutative: %v", b.Union(a))
	}
}

func TestUnionIsIndependentOfHistory(t *testing.T) {
	parts := []Set{MustNew(iv(0, 1)), MustNew(iv(3, 4)), MustNew(iv(1, 3)), MustNew(iv(8, 9))}

	var forward, backward Set
	for _, p := range parts {
		forward = forward.Union(p)
	}
	for i := len(parts) - 1; i >= 0; i-- {
		backward = backward.Union(parts[i])
	}
	if !forward.Equal(backward) {
		t.Fatalf("forward %v != backward %v", forward, backward)
	}
	if want := MustNew(iv(0, 4), iv(8, 9)); !forward.Equal(want) {
		t.Fatalf("union = %v, want %v", forward, want)
	}
}

func TestDifferenceReversesUnion(t *testing.T) {
	a := MustNew(iv(0, 5), iv(10, 15))
	b := MustNew(iv(4, 11))

	got := a.Union(b).Difference(b)
	if !got.Equal(a) {
		t.Fatalf("(a ∪ b) \\ b = %v, want %v", got, a)
	}
	if !a.Union(b).Difference(a).Equal(b) {
		t.Fatalf("(a ∪ b) \\ a = %v, want %v", a.Union(b).Difference(a), b)
	}
}

func TestDifferenceKeepsSharedContribution(t *testing.T) {
	// Two contributors supplied the same window; removing one keeps it.
	a := MustNew(iv(0, 10))
	b := MustNew(iv(0, 10))
	got := a.Union(b).Difference(a)
	if !got.Equal(MustNew(iv(0, 10))) {
		t.Fatalf("Difference removed a shared window: %v", got)
	}
	if !got.Difference(b).IsEmpty() {
		t.Fatalf("expected empty set after removing both contributions")
	}
}

func TestDifferenceIgnoresUnknownIntervals(t *testing.T) {
	a := MustNew(iv(0, 10))
	got := a.Difference(MustNew(iv(2, 3)))
	if !got.Equal(a) {
		t.Fatalf("Difference with non-member = %v, want %v", got, a)
	}
}

func TestSubtractIsGeometric(t *testing.T) {
	tests := []struct {
		name string
		a, b Set
		want []Interval
	}{
		{name: "middle", a: MustNew(iv(0, 10)), b: MustNew(iv(2, 3)), want: []Interval{iv(0, 2), iv(3, 10)}},
		{name: "prefix", a: MustNew(iv(0, 10)), b: MustNew(iv(-5, 4)), want: []Interval{iv(4, 10)}},
		{name: "all", a: MustNew(iv(0, 10)), b: MustNew(iv(-1, 11)), want: nil},
		{name: "disjoint", a: MustNew(iv(0, 1)), b: MustNew(iv(5, 6)), want: []Interval{iv(0, 1)}},
		{name: "multiple cuts", a: MustNew(iv(0, 10), iv(20, 30)), b: MustNew(iv(5, 25)), want: []Interval{iv(0, 5), iv(25, 30)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Subtract(tt.b)
			if !slices.Equal(got.Intervals(), tt.want) {
				t.Fatalf("Subtract = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntersect(t *testing.T) {
	a := MustNew(iv(0, 10), iv(20, 30))
	b := MustNew(iv(5, 25))
	want := []Interval{iv(5, 10), iv(20, 25)}
	if got := a.Intersect(b).Intervals(); !slices.Equal(got, want) {
		t.Fatalf("Intersect = %v, want %v", got, want)
	}
}

func TestContainsIsHalfOpen(t *testing.T) {
	s := MustNew(iv(0, 5), iv(10, 15))
	cases := map[float64]bool{
		-1: false, 0: true, 4.9: true, 5: false, 7: false, 10: true, 14: true, 15: false,
	}
	for at, want := range cases {
		if got := s.Contains(at); got != want {
			t.Fatalf("Contains(%v) = %v, want %v", at, got, want)
		}
	}
	if (Set{}).Contains(0) {
		t.Fatalf("empty set must not contain anything")
	}
	if s.Contains(math.NaN()) || iv(0, 5).Contains(math.NaN()) {
		t.Fatalf("NaN must not be contained")
	}
}

func TestCoversAndBounds(t *testing.T) {
	s := MustNew(iv(0, 5), iv(10, 15))
	if !s.Covers(iv(1, 4)) || !s.Covers(iv(10, 15)) {
		t.Fatalf("expected inner spans to be covered")
	}
	if s.Covers(iv(4, 11)) {
		t.Fatalf("span bridging a gap must not be covered")
	}
	start, end, ok := s.Bounds()
	if !ok || start != 0 || end != 15 {
		t.Fatalf("Bounds = (%v, %v, %v), want (0, 15, true)", start, end, ok)
	}
	if _, _, ok := (Set{}).Bounds(); ok {
		t.Fatalf("empty set must not report bounds")
	}
}

func TestAllStopsEarly(t *testing.T) {
	s := MustNew(iv(0, 1), iv(2, 3), iv(4, 5))
	var seen []Interval
	for x := range s.All() {
		seen = append(seen, x)
		if len(seen) == 2 {
			break
		}
	}
	if !slices.Equal(seen, []Interval{iv(0, 1), iv(2, 3)}) {
		t.Fatalf("All yielded %v", seen)
	}
}

func TestSetsAreImmutable(t *testing.T) {
	in := []Interval{iv(0, 1), iv(2, 3)}
	s := MustNew(in...)
	in[0] = iv(100, 200)
	out := s.Intervals()
	out[1] = iv(-5, -4)
	if !slices.Equal(s.Intervals(), []Interval{iv(0, 1), iv(2, 3)}) {
		t.Fatalf("set was mutated through a shared slice: %v", s)
	}
}

func assertNoOverlap(t *testing.T, s Set) {
	t.Helper()
	ivs := s.Intervals()
	for i := 1; i < len(ivs); i++ {
		if ivs[i].Start <= ivs[i-1].End {
			t.Fatalf("intervals %v and %v overlap or touch", ivs[i-1], ivs[i])
		}
	}
}
