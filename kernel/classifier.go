package kernel

import (
	"fmt"
	"strings"

	"github.com/signalsfoundry/ephemeris-registry/model"
)

// HeaderReader is the part of the engine that reads kernel headers.
type HeaderReader interface {
	ClassifyFile(path string) (arch, kernelType string, err error)
}

var knownArchitectures = map[model.Architecture]struct{}{
	model.ArchDAF: {},
	model.ArchDAS: {},
	model.ArchKPL: {},
}

var knownKernelTypes = map[model.KernelType]struct{}{
	model.KernelSPK:  {},
	model.KernelCK:   {},
	model.KernelPCK:  {},
	model.KernelFK:   {},
	model.KernelLSK:  {},
	model.KernelSCLK: {},
	model.KernelIK:   {},
}

// Classifier turns file headers into validated KernelFiles. It holds no
// state of its own.
type Classifier struct {
	headers HeaderReader
}

// NewClassifier builds a classifier reading headers through h.
func NewClassifier(h HeaderReader) *Classifier {
	return &Classifier{headers: h}
}

// Classify reads the header of path and validates its tags. path is
// expected to be canonical already.
func (c *Classifier) Classify(path string) (model.KernelFile, error) {
	arch, kind, err := c.headers.ClassifyFile(path)
	if err != nil {
		return model.KernelFile{}, fmt.Errorf("%w: %q: %w", ErrInvalidFormat, path, err)
	}
	return NewKernelFile(path, arch, kind)
}

// NewKernelFile validates raw architecture and type tags and derives the
// channel.
func NewKernelFile(path, arch, kind string) (model.KernelFile, error) {
	a := model.Architecture(strings.ToUpper(strings.TrimSpace(arch)))
	if _, ok := knownArchitectures[a]; !ok {
		return model.KernelFile{}, fmt.Errorf("%w: architecture %q in %q", ErrInvalidFormat, arch, path)
	}
	t, err := ParseKernelType(kind)
	if err != nil {
		return model.KernelFile{}, fmt.Errorf("%w in %q", err, path)
	}
	return model.KernelFile{
		Path:         path,
		Architecture: a,
		Type:         t,
		Channel:      t.Channel(),
	}, nil
}

// ParseKernelType validates a kernel type tag such as "spk" or "LSK".
func ParseKernelType(kind string) (model.KernelType, error) {
	t := model.KernelType(strings.ToUpper(strings.TrimSpace(kind)))
	if _, ok := knownKernelTypes[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKernelType, kind)
	}
	return t, nil
}
