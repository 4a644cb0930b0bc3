package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/Strob0t/commitcast/internal/config"
)

func TestNew(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc"}
	l, closer := New(cfg)
	defer closer.Close()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewAsync(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc", Async: true}
	l, closer := New(cfg)
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	closer.Close()
}

func TestNewWithWriterAddsService(t *testing.T) {
	var buf bytes.Buffer
	l, closer := NewWithWriter(config.Logging{Level: "info", Service: "commitcast", Async: true}, &buf)
	l.Info("socket bound", "channel", "objects")
	l.Debug("suppressed")
	closer.Close()

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["service"] != "commitcast" {
		t.Errorf("expected service attr, got %v", rec["service"])
	}
	if rec["channel"] != "objects" {
		t.Errorf("expected channel attr, got %v", rec["channel"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input).String()
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggerContext(t *testing.T) {
	ctx := context.Background()

	if got := FromContext(ctx); got != slog.Default() {
		t.Error("expected default logger for empty context")
	}

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)).With("subject", "commitcast.tx")
	ctx = WithLogger(ctx, l)
	if got := FromContext(ctx); got != l {
		t.Error("expected stored logger")
	}
}
