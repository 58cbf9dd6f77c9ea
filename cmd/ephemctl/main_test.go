package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

const testLSK = `KPL/LSK

\begindata

DELTET/DELTA_T_A       =   32.184
DELTET/K               =    1.657D-3
DELTET/EB              =    1.671D-2
DELTET/M               = (  6.239996D0   1.99096871D-7 )
DELTET/DELTA_AT        = ( 10,   @1972-JAN-1
                           37,   @2017-JAN-1 )

\begintext
`

const testPCK = `KPL/PCK

\begindata

   BODY399_PM             = (  190.147  360.9856235     0. )
   BODY499_PM             = (  176.630    350.89198226  0. )

\begintext
`

func writeKernels(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"naif.tls":       testLSK,
		"pck/bodies.tpc": testPCK,
		"README.md":      "# not a kernel\n",
	} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadPrintsSummary(t *testing.T) {
	dir := writeKernels(t)
	out, err := runCLI(t, "load", dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, want := range []string{"LSK", "PCK", "EARTH", "MARS", "Planet"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLoadHonoursPattern(t *testing.T) {
	dir := writeKernels(t)
	out, err := runCLI(t, "load", "--pattern", "*.tls", dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.Contains(out, "EARTH") {
		t.Fatalf("pattern should have excluded the PCK:\n%s", out)
	}
}

func TestLoadReportsErrors(t *testing.T) {
	if _, err := runCLI(t, "load", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for a missing path")
	}
	if _, err := runCLI(t, "load", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "."); err == nil {
		t.Fatalf("expected error for a missing explicit config file")
	}
}

func TestWatchStopsWithContext(t *testing.T) {
	dir := writeKernels(t)
	t.Setenv("EPHEM_METRICS_ADDR", "127.0.0.1:0")

	a := &app{v: viper.New()}
	if err := a.init(newWatchCmd(a)); err != nil {
		t.Fatalf("init: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := a.watch(ctx, dir, prometheus.NewRegistry()); err != nil {
		t.Fatalf("watch: %v", err)
	}
}
