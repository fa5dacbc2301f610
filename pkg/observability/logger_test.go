package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/copperdesk/copperdesk/pkg/contextkeys"
)

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("user_id", "user-1").Warn("scope resolution failed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got %q: %v", buf.String(), err)
	}

	if entry["msg"] != "scope resolution failed" {
		t.Errorf("unexpected message: %v", entry["msg"])
	}
	if entry["user_id"] != "user-1" {
		t.Errorf("expected user_id field, got %v", entry["user_id"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("info message logged at warn level: %q", buf.String())
	}

	logger.Warn("should be logged")
	if buf.Len() == 0 {
		t.Error("warn message dropped at warn level")
	}
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := contextkeys.WithRequestID(context.Background(), "req-123")
	ctx = contextkeys.WithUserID(ctx, "user-9")

	logger.WithContext(ctx).Info("handled")

	out := buf.String()
	for _, want := range []string{"req-123", "user-9"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("expected %q in log output %q", want, out)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DebugLevel,
		"info":    InfoLevel,
		"warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
