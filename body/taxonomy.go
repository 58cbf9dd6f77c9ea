// Package body classifies integer entity ids into the body hierarchy and
// keeps reference-counted entities alive while loaded kernels cover them.
package body

// Category is the semantic kind of an entity, derived from its id alone.
type Category int

const (
	// CategoryBody is the generic category. Every entity is listed under it,
	// and ids without a more specific range classify as plain bodies.
	CategoryBody Category = iota
	CategoryStar
	CategoryPlanet
	CategorySatellite
	CategoryBarycenter
	CategorySpacecraft
	CategoryInstrument
	CategoryAsteroid
	CategoryComet
)

var categoryNames = [...]string{
	CategoryBody:       "Body",
	CategoryStar:       "Star",
	CategoryPlanet:     "Planet",
	CategorySatellite:  "Satellite",
	CategoryBarycenter: "Barycenter",
	CategorySpacecraft: "Spacecraft",
	CategoryInstrument: "Instrument",
	CategoryAsteroid:   "Asteroid",
	CategoryComet:      "Comet",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Unknown"
	}
	return categoryNames[c]
}

// SunID is the id of the only star in the taxonomy.
const SunID = 10

// classifier is one row of the id range table; rows are checked in order.
type classifier struct {
	match    func(id int) bool
	category func(id int) Category
}

func fixed(c Category) func(int) Category { return func(int) Category { return c } }

var classifiers = []classifier{
	{func(id int) bool { return id > 2_000_000 }, fixed(CategoryAsteroid)},
	{func(id int) bool { return id > 1_000_000 }, fixed(CategoryComet)},
	{func(id int) bool { return id > 1_000 }, fixed(CategoryBody)},
	{func(id int) bool { return id > SunID }, func(id int) Category {
		if id%100 == 99 {
			return CategoryPlanet
		}
		return CategorySatellite
	}},
	{func(id int) bool { return id == SunID }, fixed(CategoryStar)},
	{func(id int) bool { return id >= 0 }, fixed(CategoryBarycenter)},
	{func(id int) bool { return id > -1_000 }, fixed(CategorySpacecraft)},
	{func(id int) bool { return id >= -100_000 }, fixed(CategoryInstrument)},
}

// Classify returns the category of id. It is a pure function.
func Classify(id int) Category {
	for _, c := range classifiers {
		if c.match(id) {
			return c.category(id)
		}
	}
	return CategorySpacecraft
}

// ParentID returns the id an entity is bound to, by orbit or by physical
// attachment. ok is false for categories without a parent.
func ParentID(id int) (parent int, ok bool) {
	switch Classify(id) {
	case CategoryStar:
		return 0, true
	case CategoryPlanet:
		return SunID, true
	case CategorySatellite:
		return id - id%100 + 99, true
	case CategoryInstrument:
		parent = floorDiv(id, 1000)
		if id%1000 != 0 {
			parent--
		}
		return parent, true
	default:
		return 0, false
	}
}

// ChildIDs returns every id that may be bound to id, whether or not it
// exists in any kernel.
func ChildIDs(id int) []int {
	switch Classify(id) {
	case CategoryStar:
		out := make([]int, 0, 9)
		for planet := 199; planet <= 999; planet += 100 {
			out = append(out, planet)
		}
		return out
	case CategoryPlanet:
		out := make([]int, 0, 98)
		for sat := id - 98; sat < id; sat++ {
			out = append(out, sat)
		}
		return out
	case CategorySpacecraft:
		base := id * 1000
		out := make([]int, 0, 1000)
		for inst := base; inst > base-1000; inst-- {
			out = append(out, inst)
		}
		return out
	default:
		return nil
	}
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
