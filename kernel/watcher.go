package kernel

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/signalsfoundry/ephemeris-registry/internal/logging"
)

// DefaultDebounce is how long a file must stay quiet before the watcher
// acts on it.
const DefaultDebounce = 100 * time.Millisecond

// WatchOp says what the watcher did with a changed path.
type WatchOp int

const (
	WatchLoaded   WatchOp = iota // path was (re)loaded
	WatchUnloaded                // path was unloaded
)

func (op WatchOp) String() string {
	if op == WatchUnloaded {
		return "unload"
	}
	return "load"
}

// WatchEvent reports one action taken by a Watcher.
type WatchEvent struct {
	Op   WatchOp
	Path string
	IDs  []int // ids loaded, or ids of the unloaded records
	Err  error
}

// Watcher keeps a Registry in step with a directory: files that are written
// or created are force-loaded, files that are removed or renamed away are
// unloaded. Files that are not kernels are ignored.
type Watcher struct {
	Dir    string
	Events <-chan WatchEvent

	// Debounce overrides DefaultDebounce; set it before Start.
	Debounce time.Duration

	reg     *Registry
	opts    options
	optFns  []Option
	log     logging.Logger
	events  chan WatchEvent
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	watcher *fsnotify.Watcher
}

// NewWatcher builds a watcher for dir. WithRecursive, WithFollowLinks and
// WithPattern apply as they do for Load; loads are always forced.
func NewWatcher(reg *Registry, dir string, opts ...Option) (*Watcher, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	root, err := canonicalize(dir)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan WatchEvent, 16)
	return &Watcher{
		Dir:      root,
		Events:   ch,
		Debounce: DefaultDebounce,
		reg:      reg,
		opts:     o,
		optFns:   slices.Clone(opts),
		log:      reg.log.With(logging.String("component", "watcher"), logging.Path(root)),
		events:   ch,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		watcher:  fw,
	}, nil
}

// Start registers the directory tree with fsnotify and begins watching.
// Actions run under ctx until Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.Dir); err != nil {
		w.watcher.Close()
		close(w.done)
		return err
	}
	go w.loop(ctx)
	return nil
}

// Stop ends watching, waits for the loop to exit and closes Events. It must
// only be called after Start.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stop)
		w.watcher.Close()
		<-w.done
		close(w.events)
	})
}

func (w *Watcher) addTree(root string) error {
	if !w.opts.recursive {
		return w.watcher.Add(root)
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(p)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && w.opts.recursive {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.log.Warn(ctx, "watch new directory", logging.Path(event.Name), logging.Err(err))
					}
				}
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case now := <-ticker.C:
			for p, t := range pending {
				if now.Sub(t) >= debounce {
					delete(pending, p)
					w.apply(ctx, p)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn(ctx, "watch error", logging.Err(err))
		}
	}
}

// apply loads or unloads p depending on whether it still exists. A new
// directory is loaded file by file so the pattern stays relative to Dir;
// unloads match the pattern against Dir too.
func (w *Watcher) apply(ctx context.Context, p string) {
	info, err := os.Stat(p)
	if err != nil {
		opts := append(slices.Clone(w.optFns), withPatternRoot(w.Dir))
		recs, err := w.reg.Unload(ctx, p, opts...)
		if err == nil && len(recs) == 0 {
			return
		}
		var ids []int
		for _, rec := range recs {
			ids = append(ids, rec.IDs...)
		}
		w.emit(WatchEvent{Op: WatchUnloaded, Path: p, IDs: ids, Err: err})
		return
	}

	if !info.IsDir() {
		w.load(ctx, p)
		return
	}
	o := w.opts
	o.pattern = ""
	files, err := o.candidates(ctx, w.log, p)
	if err != nil {
		w.log.Warn(ctx, "enumerate new directory", logging.Path(p), logging.Err(err))
		return
	}
	for _, f := range files {
		w.load(ctx, f)
	}
}

func (w *Watcher) load(ctx context.Context, p string) {
	rel, err := filepath.Rel(w.Dir, p)
	if err != nil || !w.opts.matches(rel) {
		return
	}
	ids, err := w.reg.Load(ctx, p, WithForce(true))
	if errors.Is(err, ErrNoFilesFound) {
		return
	}
	w.emit(WatchEvent{Op: WatchLoaded, Path: p, IDs: ids, Err: err})
}

func (w *Watcher) emit(ev WatchEvent) {
	if ev.Err != nil {
		w.log.Warn(context.Background(), "watch action failed",
			logging.Path(ev.Path), logging.String("op", ev.Op.String()), logging.Err(ev.Err))
	}
	select {
	case w.events <- ev:
	case <-w.stop:
	}
}
