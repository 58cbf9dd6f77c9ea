// Package coverage tracks, per data channel, which time windows are known
// for which entity.
package coverage

import (
	"errors"
	"fmt"
	"slices"

	"github.com/signalsfoundry/ephemeris-registry/interval"
	"github.com/signalsfoundry/ephemeris-registry/model"
)

// ErrInvalidChannel is returned for channels that carry no coverage.
var ErrInvalidChannel = errors.New("channel carries no coverage")

// Index maps entity ids to their merged coverage, one map per channel.
// An id that is absent has empty coverage.
//
// Index is not safe for concurrent use; the kernel registry serialises
// access to it together with the entity registry.
type Index struct {
	windows map[model.Channel]map[int]interval.Set
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		windows: map[model.Channel]map[int]interval.Set{
			model.ChannelPosition: make(map[int]interval.Set),
			model.ChannelRotation: make(map[int]interval.Set),
		},
	}
}

func (x *Index) channel(ch model.Channel) (map[int]interval.Set, error) {
	m, ok := x.windows[ch]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidChannel, ch)
	}
	return m, nil
}

// Add merges set into the coverage of id on ch.
func (x *Index) Add(ch model.Channel, id int, set interval.Set) error {
	m, err := x.channel(ch)
	if err != nil {
		return err
	}
	merged := m[id].Union(set)
	if merged.IsEmpty() {
		return nil
	}
	m[id] = merged
	return nil
}

// Remove takes back the raw intervals previously added with set. The key is
// dropped once nothing is left.
func (x *Index) Remove(ch model.Channel, id int, set interval.Set) error {
	m, err := x.channel(ch)
	if err != nil {
		return err
	}
	cur, ok := m[id]
	if !ok {
		return nil
	}
	rest := cur.Difference(set)
	if rest.IsEmpty() {
		delete(m, id)
		return nil
	}
	m[id] = rest
	return nil
}

// Coverage returns the merged coverage of id on ch. Sets are immutable, so
// the caller cannot modify the index through the result.
func (x *Index) Coverage(ch model.Channel, id int) interval.Set {
	return x.windows[ch][id]
}

// IDs returns the ids with non-empty coverage on ch in ascending order.
func (x *Index) IDs(ch model.Channel) []int {
	m := x.windows[ch]
	out := make([]int, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Len is the number of ids with coverage on ch.
func (x *Index) Len(ch model.Channel) int {
	return len(x.windows[ch])
}
