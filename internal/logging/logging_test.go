package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestDefaultLoggerBeforeInit(t *testing.T) {
	if Logger == nil {
		t.Fatal("expected a usable logger before Init")
	}
	if Component("registry") == nil {
		t.Error("expected component logger")
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, slog.LevelInfo, false)

	Component("registry").Info("series created", "levels", 3)

	out := buf.String()
	for _, want := range []string{"component=registry", "msg=\"series created\"", "levels=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, slog.LevelWarn, false)

	Debug("hidden")
	Error("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("error message missing: %q", out)
	}
}

func TestWithContext_JSON(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, slog.LevelInfo, true)

	ctx := ContextWithSeries(context.Background(), "router-01:cpu")
	ctx = ContextWithBatchID(ctx, 7)
	WithContext(ctx, Component("registry")).Info("pushed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if entry["series"] != "router-01:cpu" {
		t.Errorf("expected series=router-01:cpu, got %v", entry["series"])
	}
	if entry["batch_id"] != float64(7) {
		t.Errorf("expected batch_id=7, got %v", entry["batch_id"])
	}
	if entry["component"] != "registry" {
		t.Errorf("expected component=registry, got %v", entry["component"])
	}
}

func TestWithContext_Empty(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, slog.LevelInfo, false)

	WithContext(context.Background(), Logger).Info("plain")

	if out := buf.String(); strings.Contains(out, "series=") || strings.Contains(out, "batch_id=") {
		t.Errorf("expected no context attributes, got %q", out)
	}
}
