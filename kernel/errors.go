package kernel

import (
	"errors"

	"github.com/signalsfoundry/ephemeris-registry/body"
	"github.com/signalsfoundry/ephemeris-registry/coverage"
	"github.com/signalsfoundry/ephemeris-registry/engine"
	"github.com/signalsfoundry/ephemeris-registry/interval"
)

var (
	// ErrNotFound indicates a load or unload path that does not exist.
	ErrNotFound = errors.New("path not found")
	// ErrNoFilesFound indicates a load path holding no loadable kernel.
	ErrNoFilesFound = errors.New("no loadable kernel files found")
	// ErrInvalidFormat indicates an unknown kernel architecture.
	ErrInvalidFormat = errors.New("invalid kernel format")
	// ErrUnsupportedKernelType indicates an unknown kernel type tag.
	ErrUnsupportedKernelType = errors.New("unsupported kernel type")
	// ErrAlreadyLoaded indicates a non-forced load of a registered path.
	ErrAlreadyLoaded = errors.New("kernel already loaded")
)

// Re-export the sentinels of the lower layers so callers can depend on
// kernel.* alone.
var (
	// ErrMissingLeapSeconds indicates a load that needs a resident
	// leap-second kernel.
	ErrMissingLeapSeconds = engine.ErrMissingLeapSeconds
	// ErrNative wraps opaque engine failures.
	ErrNative = engine.ErrNative
	// ErrUnknownEntity indicates an id or name no loaded kernel contributes.
	ErrUnknownEntity = body.ErrUnknownEntity
	// ErrNotLoaded indicates an entity reference count underflow.
	ErrNotLoaded = body.ErrNotLoaded
	// ErrMalformedInterval indicates an engine-supplied window with
	// start >= end.
	ErrMalformedInterval = interval.ErrMalformedInterval
	// ErrInvalidChannel indicates a coverage query on channel none.
	ErrInvalidChannel = coverage.ErrInvalidChannel
)
