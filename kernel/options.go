package kernel

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

type options struct {
	recursive   bool
	followLinks bool
	force       bool
	pattern     string

	// patternRoot, when set, is the directory patterns are matched
	// against instead of the root of the call.
	patternRoot string
}

func defaultOptions() options {
	return options{recursive: true}
}

// Option tunes a Load or Unload call.
type Option func(*options)

// WithRecursive controls whether directories are descended into. Defaults
// to true.
func WithRecursive(v bool) Option {
	return func(o *options) { o.recursive = v }
}

// WithFollowLinks controls whether symbolic links are followed while
// walking. Defaults to false.
func WithFollowLinks(v bool) Option {
	return func(o *options) { o.followLinks = v }
}

// WithForce makes Load replace an already registered kernel instead of
// failing with ErrAlreadyLoaded. Unload ignores it.
func WithForce(v bool) Option {
	return func(o *options) { o.force = v }
}

// WithPattern restricts the walk to files whose slash-separated path
// relative to the load root matches the doublestar glob, e.g. "**/*.bsp".
// A single-file root is matched by its base name.
func WithPattern(glob string) Option {
	return func(o *options) { o.pattern = glob }
}

// withPatternRoot matches patterns relative to dir rather than the path
// passed to Load or Unload.
func withPatternRoot(dir string) Option {
	return func(o *options) { o.patternRoot = dir }
}

func buildOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.pattern != "" && !doublestar.ValidatePattern(o.pattern) {
		return o, fmt.Errorf("%w: %q", doublestar.ErrBadPattern, o.pattern)
	}
	return o, nil
}

// matches reports whether rel, relative to the walk root, passes the
// pattern filter.
func (o options) matches(rel string) bool {
	if o.pattern == "" {
		return true
	}
	ok, err := doublestar.Match(o.pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

// relPath is p relative to the directory patterns are matched against.
// root is the path of the call; a file root yields its base name.
func (o options) relPath(root, p string) string {
	if o.patternRoot != "" {
		root = o.patternRoot
	}
	return relTo(root, p)
}
