package engine

import "strings"

// builtinNames is the subset of the NAIF built-in body code table that every
// engine knows without any kernel loaded.
var builtinNames = map[int]string{
	0:       "SOLAR SYSTEM BARYCENTER",
	1:       "MERCURY BARYCENTER",
	2:       "VENUS BARYCENTER",
	3:       "EARTH BARYCENTER",
	4:       "MARS BARYCENTER",
	5:       "JUPITER BARYCENTER",
	6:       "SATURN BARYCENTER",
	7:       "URANUS BARYCENTER",
	8:       "NEPTUNE BARYCENTER",
	9:       "PLUTO BARYCENTER",
	10:      "SUN",
	199:     "MERCURY",
	299:     "VENUS",
	301:     "MOON",
	399:     "EARTH",
	401:     "PHOBOS",
	402:     "DEIMOS",
	499:     "MARS",
	501:     "IO",
	502:     "EUROPA",
	503:     "GANYMEDE",
	504:     "CALLISTO",
	599:     "JUPITER",
	601:     "MIMAS",
	602:     "ENCELADUS",
	606:     "TITAN",
	699:     "SATURN",
	799:     "URANUS",
	899:     "NEPTUNE",
	901:     "CHARON",
	999:     "PLUTO",
	-82:     "CASSINI",
	-98:     "NEW HORIZONS",
	-74:     "MRO",
	-76:     "MSL",
	-236:    "MESSENGER",
	1000012: "67P/CHURYUMOV-GERASIMENKO (1969 R1)",
	2000001: "CERES",
	2000004: "VESTA",
}

// NameTable is a bidirectional, case-insensitive id/name table seeded with
// the built-in bodies.
type NameTable struct {
	byID   map[int]string
	byName map[string]int
}

// NewNameTable returns a table holding the built-in bodies.
func NewNameTable() *NameTable {
	t := &NameTable{
		byID:   make(map[int]string, len(builtinNames)),
		byName: make(map[string]int, len(builtinNames)),
	}
	for id, name := range builtinNames {
		t.Set(id, name)
	}
	return t
}

func normalizeName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// Set adds or overrides a mapping. The latest assignment of a name wins.
func (t *NameTable) Set(id int, name string) {
	name = normalizeName(name)
	t.byID[id] = name
	t.byName[name] = id
}

// Name returns the name of id.
func (t *NameTable) Name(id int) (string, bool) {
	name, ok := t.byID[id]
	return name, ok
}

// ID returns the id of name.
func (t *NameTable) ID(name string) (int, bool) {
	id, ok := t.byName[normalizeName(name)]
	return id, ok
}
