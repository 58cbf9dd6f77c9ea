// Package enginetest provides an in-memory engine for tests of code that
// drives the native engine.
package enginetest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/ephemeris-registry/engine"
	"github.com/signalsfoundry/ephemeris-registry/interval"
	"github.com/signalsfoundry/ephemeris-registry/model"
)

// J2000 is the epoch the fake measures ephemeris seconds from.
var J2000 = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// Kernel describes what the fake reports for one kernel file.
type Kernel struct {
	// Coverage maps covered ids to their raw windows.
	Coverage map[int][]interval.Interval
	// ResidentErr, when set, is returned by MakeResident.
	ResidentErr error
}

// Fake is a programmable Engine. Classification reads the real file header,
// so tests write small files whose first bytes are a kernel identifier and
// describe their contents with SetKernel.
type Fake struct {
	mu       sync.Mutex
	names    *engine.NameTable
	kernels  map[string]Kernel
	resident map[string]string // path -> kernel type tag

	// Calls records engine calls in order, e.g. "resident /tmp/a.bsp".
	Calls []string
}

// NewFake returns a fake that knows the built-in body names.
func NewFake() *Fake {
	return &Fake{
		names:    engine.NewNameTable(),
		kernels:  make(map[string]Kernel),
		resident: make(map[string]string),
	}
}

func canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real
	}
	return filepath.Clean(path)
}

// SetKernel describes the kernel at path.
func (f *Fake) SetKernel(path string, k Kernel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kernels[canonical(path)] = k
}

// SetName adds a body name.
func (f *Fake) SetName(id int, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names.Set(id, name)
}

// Resident returns the paths currently resident, sorted.
func (f *Fake) Resident() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.resident))
	for p := range f.resident {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// ResolveNameToID implements engine.Engine.
func (f *Fake) ResolveNameToID(name string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.names.ID(name)
}

// ResolveIDToName implements engine.Engine.
func (f *Fake) ResolveIDToName(id int) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.names.Name(id)
}

// ClassifyFile implements engine.Engine.
func (f *Fake) ClassifyFile(path string) (string, string, error) {
	return engine.ClassifyHeader(path)
}

// CoveredIDs implements engine.Engine.
func (f *Fake) CoveredIDs(path string, kind model.KernelType) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ids %s", path)
	k := f.kernels[path]
	ids := make([]int, 0, len(k.Coverage))
	for id := range k.Coverage {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// CoverageIntervals implements engine.Engine.
func (f *Fake) CoverageIntervals(path string, kind model.KernelType, id int) ([]interval.Interval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.kernels[path]
	if !ok {
		return nil, nil
	}
	return slices.Clone(k.Coverage[id]), nil
}

// MakeResident implements engine.Engine.
func (f *Fake) MakeResident(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("resident %s", path)
	if k := f.kernels[path]; k.ResidentErr != nil {
		return k.ResidentErr
	}
	if _, ok := f.resident[path]; ok {
		return fmt.Errorf("%w: %q already resident", engine.ErrNative, path)
	}
	_, kind, err := engine.ClassifyHeader(path)
	if err != nil {
		return err
	}
	f.resident[path] = kind
	return nil
}

// Release implements engine.Engine.
func (f *Fake) Release(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("release %s", path)
	if _, ok := f.resident[path]; !ok {
		return fmt.Errorf("%w: %q is not resident", engine.ErrNative, path)
	}
	delete(f.resident, path)
	return nil
}

// ConvertTime implements engine.Engine. It needs a resident leap-second
// kernel, like the real engine.
func (f *Fake) ConvertTime(t time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, kind := range f.resident {
		if kind == string(model.KernelLSK) {
			return t.Sub(J2000).Seconds(), nil
		}
	}
	return 0, engine.ErrMissingLeapSeconds
}

// ErrBoom is a canned engine failure for tests.
var ErrBoom = errors.New("SPICE(BADFILE)")

// WriteKernel creates dir/name starting with the identifier word, e.g.
// "DAF/SPK", and returns its path.
func WriteKernel(tb testing.TB, dir, name, identifier string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir for %s: %v", name, err)
	}
	header := fmt.Sprintf("%-8s\n", identifier)
	if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
		tb.Fatalf("write %s: %v", name, err)
	}
	return path
}
