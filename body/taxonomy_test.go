package body

import (
	"slices"
	"testing"
)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		id   int
		want Category
	}{
		{2_000_001, CategoryAsteroid},
		{2_000_000, CategoryComet},
		{1_000_001, CategoryComet},
		{1_000_000, CategoryBody},
		{1_001, CategoryBody},
		{1_000, CategorySatellite},
		{999, CategoryPlanet},
		{499, CategoryPlanet},
		{401, CategorySatellite},
		{301, CategorySatellite},
		{11, CategorySatellite},
		{10, CategoryStar},
		{9, CategoryBarycenter},
		{3, CategoryBarycenter},
		{0, CategoryBarycenter},
		{-1, CategorySpacecraft},
		{-999, CategorySpacecraft},
		{-1_000, CategoryInstrument},
		{-82_001, CategoryInstrument},
		{-100_000, CategoryInstrument},
		{-100_001, CategorySpacecraft},
	}
	for _, tt := range tests {
		if got := Classify(tt.id); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.id, got, tt.want)
		}
	}
}

func TestParentID(t *testing.T) {
	tests := []struct {
		id     int
		want   int
		wantOK bool
	}{
		{499, SunID, true},
		{401, 499, true},
		{301, 399, true},
		{10, 0, true},
		{-82_000, -82, true},
		{-82_001, -84, true},
		{-1_000, -1, true},
		{3, 0, false},
		{-82, 0, false},
		{2_000_001, 0, false},
		{1_000_001, 0, false},
		{5_000, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParentID(tt.id)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParentID(%d) = (%d, %v), want (%d, %v)", tt.id, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestChildIDs(t *testing.T) {
	sun := ChildIDs(SunID)
	want := []int{199, 299, 399, 499, 599, 699, 799, 899, 999}
	if !slices.Equal(sun, want) {
		t.Fatalf("ChildIDs(10) = %v, want %v", sun, want)
	}

	mars := ChildIDs(499)
	if len(mars) != 98 || mars[0] != 401 || mars[len(mars)-1] != 498 {
		t.Fatalf("ChildIDs(499) = %d ids from %d to %d, want 98 from 401 to 498", len(mars), mars[0], mars[len(mars)-1])
	}
	for _, id := range mars {
		if Classify(id) != CategorySatellite {
			t.Fatalf("child %d of Mars classifies as %s", id, Classify(id))
		}
	}

	craft := ChildIDs(-82)
	if len(craft) != 1000 || craft[0] != -82_000 || craft[999] != -82_999 {
		t.Fatalf("ChildIDs(-82) spans %d..%d (%d ids), want -82000..-82999", craft[0], craft[len(craft)-1], len(craft))
	}

	if got := ChildIDs(401); got != nil {
		t.Fatalf("satellites have no children, got %v", got)
	}
}

func TestTaxonomyIsDeterministic(t *testing.T) {
	for range 3 {
		if Classify(499) != CategoryPlanet || Classify(401) != CategorySatellite || Classify(10) != CategoryStar {
			t.Fatalf("classification changed between calls")
		}
		if p, _ := ParentID(401); p != 499 {
			t.Fatalf("ParentID(401) = %d", p)
		}
	}
}

func TestCategoryString(t *testing.T) {
	if CategoryPlanet.String() != "Planet" || Category(99).String() != "Unknown" {
		t.Fatalf("unexpected category names: %s, %s", CategoryPlanet, Category(99))
	}
}
