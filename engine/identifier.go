package engine

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// IdentifierLen is the size of the identifying header every kernel starts
// with, e.g. "DAF/SPK " or "KPL/LSK ".
const IdentifierLen = 8

// ReadIdentifier reads the identifier word at the start of path.
func ReadIdentifier(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, IdentifierLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("read identifier of %q: %w", path, err)
	}
	if i := bytes.IndexAny(buf[:n], "\r\n"); i >= 0 {
		n = i
	}
	if !utf8.Valid(buf[:n]) {
		return "", fmt.Errorf("identifier of %q is not text", path)
	}
	return strings.TrimSpace(string(buf[:n])), nil
}

// ParseIdentifier splits an identifier word into architecture and kernel
// type tags. "DAF/SPK" splits at the slash; legacy words without one use
// the first three characters as architecture and the next three as type.
func ParseIdentifier(id string) (arch, kernelType string) {
	id = strings.TrimSpace(id)
	if i := strings.IndexByte(id, '/'); i >= 0 {
		return strings.ToUpper(id[:i]), strings.ToUpper(strings.TrimSpace(id[i+1:]))
	}
	if len(id) <= 3 {
		return strings.ToUpper(id), ""
	}
	end := min(len(id), 6)
	return strings.ToUpper(id[:3]), strings.ToUpper(id[3:end])
}

// ClassifyHeader reads and parses the identifier of path. Engines without a
// native classifier can use it directly.
func ClassifyHeader(path string) (arch, kernelType string, err error) {
	id, err := ReadIdentifier(path)
	if err != nil {
		return "", "", err
	}
	arch, kernelType = ParseIdentifier(id)
	return arch, kernelType, nil
}
