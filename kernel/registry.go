// Package kernel keeps track of which kernel files are loaded and what they
// contribute: the live entities and their coverage windows per channel.
package kernel

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/ephemeris-registry/body"
	"github.com/signalsfoundry/ephemeris-registry/coverage"
	"github.com/signalsfoundry/ephemeris-registry/engine"
	"github.com/signalsfoundry/ephemeris-registry/internal/logging"
	"github.com/signalsfoundry/ephemeris-registry/interval"
	"github.com/signalsfoundry/ephemeris-registry/model"
)

const tracerName = "github.com/signalsfoundry/ephemeris-registry/kernel"

// Record describes one loaded kernel: the file, the ids it contributed and
// the raw windows it added per id, kept so unloading removes exactly what
// loading added.
//
// Records are immutable once created; callers MUST treat them as read-only.
type Record struct {
	File     model.KernelFile
	IDs      []int
	Windows  map[int]interval.Set
	LoadedAt time.Time

	seq uint64
}

// Path is the canonical path of the kernel.
func (r *Record) Path() string { return r.File.Path }

// MetricsRecorder receives registry counts and per-call outcomes.
type MetricsRecorder interface {
	SetRegistryCounts(kernels, entities, positionIDs, rotationIDs int)
	ObserveKernelOp(op, outcome string, d time.Duration)
}

// RegistryOption customises Registry construction.
type RegistryOption func(*Registry)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithClock overrides the clock used to stamp records and time calls.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry is the kernel lifecycle state machine. It owns the entity
// registry and coverage index and drives the engine.
//
// mu guards records, entities, coverage and the engine as one unit: no
// caller ever observes an entity whose coverage is not merged yet. Every
// path that reaches the engine takes the write lock.
type Registry struct {
	mu sync.RWMutex

	eng        engine.Engine
	classifier *Classifier
	entities   *body.Registry
	coverage   *coverage.Index
	records    map[string]*Record
	seq        uint64

	log     logging.Logger
	metrics MetricsRecorder
	now     func() time.Time
}

// NewRegistry builds an empty registry driving eng.
func NewRegistry(eng engine.Engine, opts ...RegistryOption) *Registry {
	r := &Registry{
		eng:        eng,
		classifier: NewClassifier(eng),
		entities:   body.NewRegistry(eng),
		coverage:   coverage.NewIndex(),
		records:    make(map[string]*Record),
		log:        logging.Noop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.updateMetricsLocked()
	return r
}

// Load loads every kernel under path and returns the sorted ids contributed
// by the kernels loaded in this call.
//
// Files that fail classification are skipped. Kernels without body
// coverage are loaded before body-bearing ones. A failure aborts the rest
// of the call but keeps what was already loaded; the returned ids cover
// those kernels.
func (r *Registry) Load(ctx context.Context, path string, opts ...Option) (ids []int, err error) {
	ctx, log := logging.WithOperationLogger(ctx, r.log)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "kernel.Load",
		trace.WithAttributes(attribute.String("kernel.path", path)))
	defer span.End()
	start := r.now()
	defer func() { r.finish(span, "load", start, err) }()

	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	root, err := canonicalize(path)
	if err != nil {
		return nil, err
	}
	paths, err := o.candidates(ctx, log, root)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.updateMetricsLocked()

	files := r.classifyLocked(ctx, log, paths)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoFilesFound, path)
	}

	contributed := make(map[int]struct{})
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return sortedKeys(contributed), err
		}
		rec, err := r.loadFileLocked(ctx, log, f, o.force)
		if err != nil {
			return sortedKeys(contributed), err
		}
		for _, id := range rec.IDs {
			contributed[id] = struct{}{}
		}
	}
	ids = sortedKeys(contributed)
	span.SetAttributes(attribute.Int("kernel.files", len(files)), attribute.Int("kernel.ids", len(ids)))
	return ids, nil
}

// LoadFile loads a single file as kind, bypassing the type tag of its
// header. The architecture is still read from the header when it can be.
// Only WithForce applies.
func (r *Registry) LoadFile(ctx context.Context, path string, kind model.KernelType, opts ...Option) (ids []int, err error) {
	ctx, log := logging.WithOperationLogger(ctx, r.log)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "kernel.LoadFile",
		trace.WithAttributes(attribute.String("kernel.path", path), attribute.String("kernel.type", string(kind))))
	defer span.End()
	start := r.now()
	defer func() { r.finish(span, "load", start, err) }()

	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	canon, err := canonicalize(path)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(canon); err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %q is not a regular file", ErrNoFilesFound, path)
	}
	t, err := ParseKernelType(string(kind))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.updateMetricsLocked()

	arch := model.ArchKPL
	if a, _, err := r.eng.ClassifyFile(canon); err == nil {
		if f, err := NewKernelFile(canon, a, string(t)); err == nil {
			arch = f.Architecture
		}
	}
	f := model.KernelFile{Path: canon, Architecture: arch, Type: t, Channel: t.Channel()}
	rec, err := r.loadFileLocked(ctx, log, f, o.force)
	if err != nil {
		return nil, err
	}
	return slices.Clone(rec.IDs), nil
}

// classifyLocked classifies paths, dropping the ones that fail, and orders
// the result: kernels without body coverage first, then body-bearing ones,
// each group in path order.
func (r *Registry) classifyLocked(ctx context.Context, log logging.Logger, paths []string) []model.KernelFile {
	var misc, bodies []model.KernelFile
	for _, p := range paths {
		f, err := r.classifier.Classify(p)
		if err != nil {
			log.Debug(ctx, "skipping unclassifiable file", logging.Path(p), logging.Err(err))
			continue
		}
		if f.BodyBearing() {
			bodies = append(bodies, f)
		} else {
			misc = append(misc, f)
		}
	}
	return append(misc, bodies...)
}

func (r *Registry) hasLeapSecondsLocked() bool {
	for _, rec := range r.records {
		if rec.File.Type == model.KernelLSK {
			return true
		}
	}
	return false
}

// loadFileLocked registers one kernel. Its registration is all or nothing:
// when an id cannot be registered the ids made so far are dropped and the
// kernel is released again.
func (r *Registry) loadFileLocked(ctx context.Context, log logging.Logger, f model.KernelFile, force bool) (rec *Record, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "kernel.loadFile",
		trace.WithAttributes(
			attribute.String("kernel.path", f.Path),
			attribute.String("kernel.type", string(f.Type)),
			attribute.String("kernel.channel", f.Channel.String()),
		))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	log = log.With(logging.Path(f.Path), logging.String("kernel_type", string(f.Type)))

	existing, loaded := r.records[f.Path]
	if loaded && !force {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyLoaded, f.Path)
	}
	if f.Type.NeedsLeapSeconds() && !r.hasLeapSecondsLocked() {
		return nil, fmt.Errorf("%w: %s kernel %q", ErrMissingLeapSeconds, f.Type, f.Path)
	}
	if loaded {
		log.Info(ctx, "reloading kernel")
		if err := r.unloadRecordLocked(ctx, log, existing); err != nil {
			return nil, err
		}
	}

	windows := make(map[int]interval.Set)
	var ids []int
	if f.BodyBearing() {
		covered, err := r.eng.CoveredIDs(f.Path, f.Type)
		if err != nil {
			return nil, engine.Wrap("list covered ids", f.Path, err)
		}
		for _, id := range covered {
			if _, dup := windows[id]; dup {
				continue
			}
			raw, err := r.eng.CoverageIntervals(f.Path, f.Type, id)
			if err != nil {
				return nil, engine.Wrap("coverage intervals", f.Path, err)
			}
			set, err := interval.New(raw...)
			if err != nil {
				return nil, fmt.Errorf("coverage of %d in %q: %w", id, f.Path, err)
			}
			windows[id] = set
			ids = append(ids, id)
		}
		slices.Sort(ids)
	}

	if err := r.eng.MakeResident(f.Path); err != nil {
		return nil, engine.Wrap("make resident", f.Path, err)
	}

	for i, id := range ids {
		if _, err := r.entities.Make(id); err != nil {
			log.Warn(ctx, "rolling back kernel registration", logging.EntityID(id), logging.Err(err))
			for _, done := range ids[:i] {
				_ = r.entities.Delete(done)
			}
			if rerr := r.eng.Release(f.Path); rerr != nil {
				log.Warn(ctx, "release after failed registration", logging.Err(rerr))
			}
			return nil, fmt.Errorf("register %q: %w", f.Path, err)
		}
	}
	for _, id := range ids {
		if err := r.coverage.Add(f.Channel, id, windows[id]); err != nil {
			return nil, err
		}
	}

	r.seq++
	rec = &Record{
		File:     f,
		IDs:      ids,
		Windows:  windows,
		LoadedAt: r.now(),
		seq:      r.seq,
	}
	r.records[f.Path] = rec
	log.Info(ctx, "kernel loaded", logging.Int("ids", len(ids)))
	return rec, nil
}

// Unload unloads every loaded kernel under path, most recently loaded
// first, and returns their records. Matching nothing is not an error.
//
// When path no longer exists, records at path or beneath it are matched.
func (r *Registry) Unload(ctx context.Context, path string, opts ...Option) (out []*Record, err error) {
	ctx, log := logging.WithOperationLogger(ctx, r.log)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "kernel.Unload",
		trace.WithAttributes(attribute.String("kernel.path", path)))
	defer span.End()
	start := r.now()
	defer func() { r.finish(span, "unload", start, err) }()

	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.updateMetricsLocked()

	targets, err := r.matchLocked(ctx, log, path, o)
	if err != nil {
		return nil, err
	}
	for _, rec := range targets {
		if err := r.unloadRecordLocked(ctx, log.With(logging.Path(rec.Path())), rec); err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	span.SetAttributes(attribute.Int("kernel.files", len(out)))
	return out, nil
}

// matchLocked finds the records an unload of path addresses, newest first.
func (r *Registry) matchLocked(ctx context.Context, log logging.Logger, path string, o options) ([]*Record, error) {
	var matched []*Record
	root, err := canonicalize(path)
	switch {
	case errors.Is(err, ErrNotFound):
		abs, aerr := absolute(path)
		if aerr != nil {
			return nil, aerr
		}
		for p, rec := range r.records {
			if within(p, abs, o.recursive) && o.matches(o.relPath(abs, p)) {
				matched = append(matched, rec)
			}
		}
	case err != nil:
		return nil, err
	default:
		paths, err := o.candidates(ctx, log, root)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			if rec, ok := r.records[p]; ok {
				matched = append(matched, rec)
			}
		}
		// Files deleted from a directory that still exists.
		for p, rec := range r.records {
			if p == root || !within(p, root, o.recursive) || !o.matches(o.relPath(root, p)) {
				continue
			}
			if _, err := os.Lstat(p); errors.Is(err, os.ErrNotExist) {
				matched = append(matched, rec)
			}
		}
	}
	slices.SortFunc(matched, newestFirst)
	return slices.CompactFunc(matched, func(a, b *Record) bool { return a == b }), nil
}

func relTo(root, p string) string {
	if p == root {
		return filepath.Base(p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.Base(p)
	}
	return rel
}

// unloadRecordLocked reverses loadFileLocked for rec.
func (r *Registry) unloadRecordLocked(ctx context.Context, log logging.Logger, rec *Record) error {
	for id, set := range rec.Windows {
		if err := r.coverage.Remove(rec.File.Channel, id, set); err != nil {
			return err
		}
	}
	var errs []error
	for _, id := range rec.IDs {
		if err := r.entities.Delete(id); err != nil {
			errs = append(errs, err)
		}
	}
	delete(r.records, rec.Path())
	if err := r.eng.Release(rec.Path()); err != nil {
		errs = append(errs, engine.Wrap("release", rec.Path(), err))
	}
	if err := errors.Join(errs...); err != nil {
		log.Error(ctx, "kernel unload incomplete", logging.Err(err))
		return err
	}
	log.Info(ctx, "kernel unloaded", logging.Int("ids", len(rec.IDs)))
	return nil
}

// Close unloads every kernel, most recently loaded first.
func (r *Registry) Close() error {
	ctx, log := logging.WithOperationLogger(context.Background(), r.log)
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.updateMetricsLocked()

	recs := slices.SortedFunc(maps.Values(r.records), newestFirst)
	var errs []error
	for _, rec := range recs {
		if err := r.unloadRecordLocked(ctx, log.With(logging.Path(rec.Path())), rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns the live entity with the given id.
func (r *Registry) Get(id int) (body.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entities.Get(id)
}

// GetByName resolves name, or a decimal id, to a live entity.
func (r *Registry) GetByName(name string) (body.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entities.GetByName(name)
}

// Parent returns the parent of the live entity id. ok is false when its
// category has no parent. The parent itself need not be loaded.
func (r *Registry) Parent(id int) (parent body.Entity, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.entities.Get(id); err != nil {
		return body.Entity{}, false, err
	}
	parent, ok = r.entities.Parent(id)
	return parent, ok, nil
}

// Children returns the live children of the live entity id.
func (r *Registry) Children(id int) ([]body.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, err := r.entities.Get(id); err != nil {
		return nil, err
	}
	return r.entities.Children(id), nil
}

// Entities lists the live entities of category c sorted by id.
func (r *Registry) Entities(c body.Category) []body.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entities.List(c)
}

// Coverage returns the merged windows of id on ch. Ids without coverage
// yield an empty set.
func (r *Registry) Coverage(ch model.Channel, id int) (interval.Set, error) {
	if ch == model.ChannelNone {
		return interval.Set{}, fmt.Errorf("%w: %s", ErrInvalidChannel, ch)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.coverage.Coverage(ch, id), nil
}

// CoveredIDs lists the ids with coverage on ch.
func (r *Registry) CoveredIDs(ch model.Channel) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.coverage.IDs(ch)
}

// Covers reports whether data for id on ch is available at t. The instant
// is converted by the engine, which needs a resident leap-second kernel.
func (r *Registry) Covers(ch model.Channel, id int, t time.Time) (bool, error) {
	if ch == model.ChannelNone {
		return false, fmt.Errorf("%w: %s", ErrInvalidChannel, ch)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	et, err := r.eng.ConvertTime(t)
	if err != nil {
		return false, engine.Wrap("convert time", t.Format(time.RFC3339), err)
	}
	return r.coverage.Coverage(ch, id).Contains(et), nil
}

// Loaded returns the loaded kernels in load order.
func (r *Registry) Loaded() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.SortedFunc(maps.Values(r.records), func(a, b *Record) int { return cmp.Compare(a.seq, b.seq) })
}

// IsLoaded reports whether the kernel at path is registered.
func (r *Registry) IsLoaded(path string) bool {
	canon, err := canonicalize(path)
	if err != nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[canon]
	return ok
}

func (r *Registry) finish(span trace.Span, op string, start time.Time, err error) {
	outcome := outcomeOf(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if r.metrics != nil {
		r.metrics.ObserveKernelOp(op, outcome, r.now().Sub(start))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoFilesFound):
		return "no_files"
	case errors.Is(err, ErrAlreadyLoaded):
		return "already_loaded"
	case errors.Is(err, ErrMissingLeapSeconds):
		return "missing_leap_seconds"
	case errors.Is(err, ErrNative):
		return "native_error"
	default:
		return "error"
	}
}

func (r *Registry) updateMetricsLocked() {
	if r.metrics == nil {
		return
	}
	r.metrics.SetRegistryCounts(
		len(r.records),
		r.entities.Len(),
		r.coverage.Len(model.ChannelPosition),
		r.coverage.Len(model.ChannelRotation),
	)
}

func newestFirst(a, b *Record) int { return cmp.Compare(b.seq, a.seq) }

func sortedKeys(m map[int]struct{}) []int {
	return slices.Sorted(maps.Keys(m))
}
