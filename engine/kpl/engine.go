package kpl

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/signalsfoundry/ephemeris-registry/engine"
	"github.com/signalsfoundry/ephemeris-registry/interval"
	"github.com/signalsfoundry/ephemeris-registry/model"
)

var (
	frameNameVar = regexp.MustCompile(`^FRAME_?(-?[0-9]+)_NAME$`)
	bodyPMVar    = regexp.MustCompile(`^BODY_?(-?[0-9]+)_PM$`)
)

// Engine implements engine.Engine for text kernels.
type Engine struct {
	mu       sync.Mutex
	names    *engine.NameTable
	resident map[string]*residentKernel
	order    []string // resident paths in load order
	leap     *leapTable
}

type residentKernel struct {
	kind model.KernelType
	pool *Pool
}

var _ engine.Engine = (*Engine)(nil)

// New returns an engine with no kernels resident.
func New() *Engine {
	return &Engine{
		names:    engine.NewNameTable(),
		resident: make(map[string]*residentKernel),
	}
}

// ResolveNameToID implements engine.Engine.
func (e *Engine) ResolveNameToID(name string) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.names.ID(name)
}

// ResolveIDToName implements engine.Engine.
func (e *Engine) ResolveIDToName(id int) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.names.Name(id)
}

// ClassifyFile implements engine.Engine.
func (e *Engine) ClassifyFile(path string) (string, string, error) {
	return engine.ClassifyHeader(path)
}

func readText(path string) (model.KernelType, *Pool, error) {
	arch, kind, err := engine.ClassifyHeader(path)
	if err != nil {
		return "", nil, engine.Wrap("classify", path, err)
	}
	if model.Architecture(arch) != model.ArchKPL {
		return "", nil, fmt.Errorf("%w: %s kernel %q needs the native toolkit", engine.ErrNative, arch, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", nil, engine.Wrap("open", path, err)
	}
	defer f.Close()
	pool, err := Parse(f)
	if err != nil {
		return "", nil, engine.Wrap("parse", path, err)
	}
	return model.KernelType(kind), pool, nil
}

// CoveredIDs implements engine.Engine. Frame kernels report the ids of
// their FRAME_<id>_NAME variables and text PCKs the ids of BODY<id>_PM.
func (e *Engine) CoveredIDs(path string, kind model.KernelType) ([]int, error) {
	_, pool, err := readText(path)
	if err != nil {
		return nil, err
	}
	var pattern *regexp.Regexp
	switch kind {
	case model.KernelFK:
		pattern = frameNameVar
	case model.KernelPCK:
		pattern = bodyPMVar
	default:
		return nil, nil
	}

	var ids []int
	for _, name := range pool.Names() {
		m := pattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if kind == model.KernelFK && len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty frame kernel %q", engine.ErrNative, path)
	}
	slices.Sort(ids)
	return ids, nil
}

// CoverageIntervals implements engine.Engine. Text kernels carry no time
// windows.
func (e *Engine) CoverageIntervals(path string, kind model.KernelType, id int) ([]interval.Interval, error) {
	return nil, nil
}

// MakeResident implements engine.Engine.
func (e *Engine) MakeResident(path string) error {
	kind, pool, err := readText(path)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.resident[path]; ok {
		return fmt.Errorf("%w: %q already resident", engine.ErrNative, path)
	}
	if kind == model.KernelLSK {
		if _, err := newLeapTable(pool); err != nil {
			return engine.Wrap("furnsh", path, err)
		}
	}
	e.resident[path] = &residentKernel{kind: kind, pool: pool}
	e.order = append(e.order, path)
	e.rebuildLocked()
	return nil
}

// Release implements engine.Engine.
func (e *Engine) Release(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.resident[path]; !ok {
		return fmt.Errorf("%w: %q is not resident", engine.ErrNative, path)
	}
	delete(e.resident, path)
	e.order = slices.DeleteFunc(e.order, func(p string) bool { return p == path })
	e.rebuildLocked()
	return nil
}

// rebuildLocked recomputes the name table and leap seconds from the
// resident kernels; later kernels override earlier ones.
func (e *Engine) rebuildLocked() {
	e.names = engine.NewNameTable()
	e.leap = nil
	for _, path := range e.order {
		k := e.resident[path]
		names := k.pool.Strings("NAIF_BODY_NAME")
		codes := k.pool.Numbers("NAIF_BODY_CODE")
		for i := range min(len(names), len(codes)) {
			e.names.Set(int(codes[i]), names[i])
		}
		if k.kind == model.KernelLSK {
			if lt, err := newLeapTable(k.pool); err == nil {
				e.leap = lt
			}
		}
	}
}

// ConvertTime implements engine.Engine.
func (e *Engine) ConvertTime(t time.Time) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.leap == nil {
		return 0, engine.ErrMissingLeapSeconds
	}
	return e.leap.ephemerisSeconds(t), nil
}
