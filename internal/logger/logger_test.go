package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestJSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "json")

	log.Info("dropped")
	log.Warn("kept", "component", "sampler")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line at warn level, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected json output: %v", err)
	}
	if rec["msg"] != "kept" || rec["component"] != "sampler" || rec["level"] != "warn" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "text").Debug("window emitted", "samples", 50)

	out := buf.String()
	if !strings.Contains(out, "DEBUG") || !strings.Contains(out, "window emitted") || !strings.Contains(out, "50") {
		t.Fatalf("unexpected console line %q", out)
	}
}

func TestWithAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With("component", "aggregator")
	log.Debug("window emitted", "samples", 50)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["component"] != "aggregator" || fields["samples"] != int64(50) {
		t.Fatalf("missing fields in %v", fields)
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	if got := parseLevel("chatty"); got != zapcore.InfoLevel {
		t.Fatalf("expected info, got %s", got)
	}
	if got := parseLevel("WARNING"); got != zapcore.WarnLevel {
		t.Fatalf("expected warn, got %s", got)
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop().With("k", "v")
	log.Error("ignored", "error", "boom")
}
