package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(Path("/k/de440.bsp")).Info(context.Background(), "kernel loaded", EntityID(399), Err(errors.New("boom")))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec["msg"] != "kernel loaded" || rec["path"] != "/k/de440.bsp" || rec["entity_id"] != float64(399) || rec["error"] != "boom" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})
	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("level filtering failed: %q", buf.String())
	}
}

func TestOperationIDIsStable(t *testing.T) {
	ctx, id := EnsureOperationID(context.Background())
	if id == "" {
		t.Fatalf("expected an operation id")
	}
	ctx2, id2 := EnsureOperationID(ctx)
	if id2 != id || OperationIDFromContext(ctx2) != id {
		t.Fatalf("operation id changed: %q -> %q", id, id2)
	}
	if OperationIDFromContext(context.Background()) != "" {
		t.Fatalf("background context should carry no id")
	}
}

func TestWithOperationLoggerTagsLines(t *testing.T) {
	var buf bytes.Buffer
	ctx, log := WithOperationLogger(context.Background(), New(Config{Format: "json", Output: &buf}))
	log.Info(ctx, "load")
	if !strings.Contains(buf.String(), OperationIDFromContext(ctx)) {
		t.Fatalf("log line lacks operation id: %q", buf.String())
	}

	_, noop := WithOperationLogger(context.Background(), nil)
	noop.Error(context.Background(), "dropped")
}
