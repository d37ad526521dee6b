package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func newBufLogger() (*SlogLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil))), &buf
}

func TestSlogLogger_InfoWritesJSON(t *testing.T) {
	t.Parallel()

	log, buf := newBufLogger()
	log.Info(context.Background(), "hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["msg"] != "hello" || rec["k"] != "v" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestSlogLogger_WithAddsAttrs(t *testing.T) {
	t.Parallel()

	log, buf := newBufLogger()
	child := log.With("conn_id", "c1")
	child.Warn(context.Background(), "slow peer")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["conn_id"] != "c1" {
		t.Fatalf("expected conn_id attr, got %v", rec)
	}
	if rec["level"] != "WARN" {
		t.Fatalf("expected WARN level, got %v", rec["level"])
	}
}
