package kpl

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

const (
	j2000JD       = 2451545.0
	secondsPerDay = 86400.0
)

// leapStep says TAI-UTC is Delta seconds from Since onwards.
type leapStep struct {
	Since time.Time
	Delta float64
}

// leapTable holds the DELTET variables of a leap-second kernel.
type leapTable struct {
	steps  []leapStep
	deltaA float64    // TDT - TAI
	k      float64    // amplitude of the periodic TDB-TDT term
	eb     float64    // eccentricity of the heliocentric orbit of the EMB
	m      [2]float64 // mean anomaly at J2000 and its rate
}

var deltaATLayouts = []string{"2006-Jan-2", "2006-Jan-2/15:04:05", "2006-01-02", "2006-01-02T15:04:05"}

func parseKernelDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range deltaATLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// newLeapTable reads the DELTET variables from pool.
func newLeapTable(p *Pool) (*leapTable, error) {
	raw, ok := p.Get("DELTET/DELTA_AT")
	if !ok || len(raw)%2 != 0 || len(raw) == 0 {
		return nil, fmt.Errorf("DELTET/DELTA_AT missing or not (count, date) pairs")
	}
	lt := &leapTable{deltaA: 32.184}
	for i := 0; i < len(raw); i += 2 {
		count, date := raw[i], raw[i+1]
		if count.Kind != KindNumber || date.Kind != KindDate {
			return nil, fmt.Errorf("DELTET/DELTA_AT entry %d is not (count, @date)", i/2)
		}
		since, err := parseKernelDate(date.Text)
		if err != nil {
			return nil, fmt.Errorf("DELTET/DELTA_AT entry %d: %w", i/2, err)
		}
		lt.steps = append(lt.steps, leapStep{Since: since, Delta: count.Num})
	}
	sort.Slice(lt.steps, func(i, j int) bool { return lt.steps[i].Since.Before(lt.steps[j].Since) })

	if v := p.Numbers("DELTET/DELTA_T_A"); len(v) == 1 {
		lt.deltaA = v[0]
	}
	if v := p.Numbers("DELTET/K"); len(v) == 1 {
		lt.k = v[0]
	}
	if v := p.Numbers("DELTET/EB"); len(v) == 1 {
		lt.eb = v[0]
	}
	if v := p.Numbers("DELTET/M"); len(v) == 2 {
		lt.m = [2]float64{v[0], v[1]}
	}
	return lt, nil
}

// deltaAT returns TAI-UTC at t. Instants before the first step use the
// first value.
func (lt *leapTable) deltaAT(t time.Time) float64 {
	i := sort.Search(len(lt.steps), func(i int) bool { return lt.steps[i].Since.After(t) })
	if i == 0 {
		return lt.steps[0].Delta
	}
	return lt.steps[i-1].Delta
}

// ephemerisSeconds converts a UTC instant to TDB seconds past J2000.
func (lt *leapTable) ephemerisSeconds(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	jd := satellite.JDay(year, int(month), day, hour, minute, sec)
	utc := (jd-j2000JD)*secondsPerDay + float64(t.Nanosecond())/1e9

	tdt := utc + lt.deltaAT(t) + lt.deltaA
	m := lt.m[0] + lt.m[1]*tdt
	e := m + lt.eb*math.Sin(m)
	return tdt + lt.k*math.Sin(e)
}
