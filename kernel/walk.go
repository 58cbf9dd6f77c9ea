package kernel

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/signalsfoundry/ephemeris-registry/internal/logging"
)

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return filepath.Join(home, path[1:]), nil
}

// absolute expands "~" and makes path absolute and clean without touching
// the filesystem.
func absolute(path string) (string, error) {
	p, err := expandHome(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(p)
}

// canonicalize returns the absolute, symlink-free form of path. Missing
// paths fail with ErrNotFound.
func canonicalize(path string) (string, error) {
	abs, err := absolute(path)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %q", ErrNotFound, path)
		}
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	return real, nil
}

// candidates enumerates the canonical paths of the regular files under
// root. root must be canonical. The result is sorted and free of
// duplicates; symlinked directories are visited at most once. Linked files
// are always included under their target path. Subdirectories that cannot
// be read are skipped.
func (o options) candidates(ctx context.Context, log logging.Logger, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, root)
		}
		return nil, err
	}
	if !info.IsDir() {
		if !info.Mode().IsRegular() || !o.matches(o.relPath(root, root)) {
			return nil, nil
		}
		return []string{root}, nil
	}

	var base string
	if o.patternRoot != "" {
		if rel, err := filepath.Rel(o.patternRoot, root); err == nil && rel != "." {
			base = rel
		}
	}
	w := walker{
		ctx:     ctx,
		log:     log,
		opts:    o,
		seen:    make(map[string]struct{}),
		visited: map[string]struct{}{root: {}},
	}
	if err := w.dir(root, base, true); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(w.seen))
	for p := range w.seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

type walker struct {
	ctx     context.Context
	log     logging.Logger
	opts    options
	seen    map[string]struct{} // canonical file paths
	visited map[string]struct{} // canonical directories already walked
}

// dir walks the directory whose canonical path is real; rel is its path
// relative to the pattern root as the caller named it. Only a failure to
// read the top directory is an error.
func (w *walker) dir(real, rel string, top bool) error {
	entries, err := os.ReadDir(real)
	if err != nil {
		if top {
			return fmt.Errorf("read dir %q: %w", real, err)
		}
		w.log.Debug(w.ctx, "skipping unreadable directory", logging.Path(real), logging.Err(err))
		return nil
	}
	for _, ent := range entries {
		path := filepath.Join(real, ent.Name())
		entRel := filepath.Join(rel, ent.Name())

		if ent.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(path)
			if err != nil {
				// dangling link
				continue
			}
			if !w.opts.followLinks {
				if info, err := os.Stat(target); err != nil || info.IsDir() {
					continue
				}
			}
			path = target
		}

		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		switch {
		case info.IsDir():
			if !w.opts.recursive {
				continue
			}
			if _, ok := w.visited[path]; ok {
				continue
			}
			w.visited[path] = struct{}{}
			if err := w.dir(path, entRel, false); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if w.opts.matches(entRel) {
				w.seen[path] = struct{}{}
			}
		}
	}
	return nil
}

// within reports whether path lies in dir, directly when recursive is
// false.
func within(path, dir string, recursive bool) bool {
	if path == dir {
		return true
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return recursive || !strings.ContainsRune(rel, filepath.Separator)
}
