package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newBufferedLogger(t *testing.T, format string) (*Logger, *bytes.Buffer) {
	t.Helper()
	l, err := NewLogger(&Config{Level: DebugLevel, Format: format, AppName: "ridepair"})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	var buf bytes.Buffer
	l.SetOutput(&buf)
	return l, &buf
}

func TestLogger_JSONIncludesContextFields(t *testing.T) {
	l, buf := newBufferedLogger(t, "json")

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUserID(ctx, "user-7")
	l.WithContext(ctx).WithField("status", "confirmed").Info("ride accepted")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q", buf.String())
	}
	for key, want := range map[string]string{
		"request_id": "req-1",
		"user_id":    "user-7",
		"status":     "confirmed",
		"message":    "ride accepted",
		"app":        "ridepair",
	} {
		if entry[key] != want {
			t.Errorf("Expected %s=%q, got %v", key, want, entry[key])
		}
	}
}

func TestLogger_WithFieldDoesNotMutateParent(t *testing.T) {
	l, buf := newBufferedLogger(t, "text")

	child := l.WithField("ride", "r1")
	l.Info("parent")
	if strings.Contains(buf.String(), "ride=r1") {
		t.Error("Parent logger picked up child field")
	}

	buf.Reset()
	child.LogRideEvent(primitive.NewObjectID(), "ride_started", map[string]interface{}{"actor": "d1"})
	out := buf.String()
	if !strings.Contains(out, "event=ride_started") || !strings.Contains(out, "ride=r1") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestLogger_SetLevel(t *testing.T) {
	l, buf := newBufferedLogger(t, "text")

	l.SetLevel(InfoLevel)
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected debug to be filtered at info, got %q", buf.String())
	}

	l.SetLevel(DebugLevel)
	l.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("Expected debug output after SetLevel, got %q", buf.String())
	}

	buf.Reset()
	l.SetLevel(LogLevel("verbose"))
	l.Debug("hidden again")
	if buf.Len() != 0 {
		t.Errorf("Expected unknown level to fall back to info, got %q", buf.String())
	}
}
