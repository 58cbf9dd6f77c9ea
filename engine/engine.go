// Package engine defines the boundary to the native ephemeris engine: the
// component that parses kernel byte formats, answers coverage queries and
// converts time systems. The registry drives it in blocking call/return
// style and never from more than one goroutine at a time.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/ephemeris-registry/interval"
	"github.com/signalsfoundry/ephemeris-registry/model"
)

var (
	// ErrNative wraps opaque failures reported by the engine.
	ErrNative = errors.New("native engine error")
	// ErrMissingLeapSeconds indicates a time conversion was needed before a
	// leap-second kernel was resident.
	ErrMissingLeapSeconds = errors.New("no leap-second kernel loaded")
)

// Engine is the narrow call/return surface of the native engine.
type Engine interface {
	// ResolveNameToID maps a body name to its id.
	ResolveNameToID(name string) (int, bool)
	// ResolveIDToName maps a body id to its name.
	ResolveIDToName(id int) (string, bool)
	// ClassifyFile reads the identifying header of path and returns the raw
	// architecture and kernel type tags.
	ClassifyFile(path string) (arch, kernelType string, err error)
	// CoveredIDs lists the ids a body-bearing kernel has data for.
	CoveredIDs(path string, kind model.KernelType) ([]int, error)
	// CoverageIntervals returns the raw time windows of id in the kernel.
	CoverageIntervals(path string, kind model.KernelType, id int) ([]interval.Interval, error)
	// MakeResident loads the kernel into the engine's pool.
	MakeResident(path string) error
	// Release removes the kernel from the engine's pool.
	Release(path string) error
	// ConvertTime maps a UTC instant to ephemeris seconds.
	ConvertTime(t time.Time) (float64, error)
}

// Wrap marks err as a native engine failure for op on path. Errors that
// already carry one of this package's sentinels are returned unchanged.
func Wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNative) || errors.Is(err, ErrMissingLeapSeconds) {
		return err
	}
	return fmt.Errorf("%w: %s %q: %w", ErrNative, op, path, err)
}
