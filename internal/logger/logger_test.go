package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestTextOutputContainsFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG", "text", false)

	Info("chunk stored", KeyFileID, "f1", KeySequence, 3)

	out := buf.String()
	if !strings.Contains(out, "chunk stored") {
		t.Fatalf("message missing from output: %q", out)
	}
	if !strings.Contains(out, "file_id=f1") || !strings.Contains(out, "sequence=3") {
		t.Errorf("fields missing from output: %q", out)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json", false)

	Info("upload complete", KeyFileID, "f2")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "upload complete" {
		t.Errorf("msg = %v, want %q", record["msg"], "upload complete")
	}
	if record["file_id"] != "f2" {
		t.Errorf("file_id = %v, want f2", record["file_id"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text", false)

	Debug("not visible")
	Info("not visible either")
	Warn("visible")

	out := buf.String()
	if strings.Contains(out, "not visible") {
		t.Errorf("filtered levels leaked into output: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestCorrelationContext(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG", "text", false)

	ctx := WithCorrelation(context.Background(), "cid-123")
	if got := CorrelationID(ctx); got != "cid-123" {
		t.Fatalf("CorrelationID = %q, want cid-123", got)
	}

	InfoCtx(ctx, "traced operation")
	if !strings.Contains(buf.String(), "correlation_id=cid-123") {
		t.Errorf("correlation id missing from output: %q", buf.String())
	}

	// Context without a correlation ID adds nothing.
	buf.Reset()
	InfoCtx(context.Background(), "untraced")
	if strings.Contains(buf.String(), "correlation_id") {
		t.Errorf("unexpected correlation field: %q", buf.String())
	}
}
