package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		in       string
		arch     string
		kernType string
	}{
		{"DAF/SPK ", "DAF", "SPK"},
		{"DAF/CK  ", "DAF", "CK"},
		{"KPL/LSK", "KPL", "LSK"},
		{"KPL/SCLK", "KPL", "SCLK"},
		{"kpl/fk", "KPL", "FK"},
		{"NAIF/DAF", "NAIF", "DAF"},
		{"DAFSPK", "DAF", "SPK"},
		{"ab", "AB", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		arch, kt := ParseIdentifier(tt.in)
		if arch != tt.arch || kt != tt.kernType {
			t.Errorf("ParseIdentifier(%q) = (%q, %q), want (%q, %q)", tt.in, arch, kt, tt.arch, tt.kernType)
		}
	}
}

func TestClassifyHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "naif0012.tls")
	if err := os.WriteFile(path, []byte("KPL/LSK\n\\begindata\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	arch, kt, err := ClassifyHeader(path)
	if err != nil {
		t.Fatalf("ClassifyHeader: %v", err)
	}
	if arch != "KPL" || kt != "LSK" {
		t.Fatalf("ClassifyHeader = (%q, %q), want (KPL, LSK)", arch, kt)
	}

	short := filepath.Join(dir, "short")
	_ = os.WriteFile(short, []byte("DAF"), 0o644)
	if arch, _, err := ClassifyHeader(short); err != nil || arch != "DAF" {
		t.Fatalf("short file: arch=%q err=%v", arch, err)
	}

	bin := filepath.Join(dir, "blob")
	_ = os.WriteFile(bin, []byte{0xff, 0xfe, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05}, 0o644)
	if _, _, err := ClassifyHeader(bin); err == nil {
		t.Fatalf("expected error for non-text identifier")
	}
}

func TestWrap(t *testing.T) {
	if Wrap("furnsh", "x", nil) != nil {
		t.Fatalf("Wrap(nil) should be nil")
	}
	base := errors.New("SPICE(NOSUCHFILE)")
	err := Wrap("furnsh", "/k/a.bsp", base)
	if !errors.Is(err, ErrNative) || !errors.Is(err, base) {
		t.Fatalf("Wrap lost a sentinel: %v", err)
	}
	if Wrap("furnsh", "x", err) != err {
		t.Fatalf("Wrap should not double wrap")
	}
	if Wrap("convert", "", ErrMissingLeapSeconds) != ErrMissingLeapSeconds {
		t.Fatalf("Wrap should pass ErrMissingLeapSeconds through")
	}
}
