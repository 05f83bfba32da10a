package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(buf, nil))}
}

func TestWithContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	log.WithContext(ctx).Info("hello")

	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Fatalf("expected request_id in output, got %s", buf.String())
	}
}

func TestNotificationFailed(t *testing.T) {
	var buf bytes.Buffer
	log := newBufferLogger(&buf)

	log.NotificationFailed("leads.assigned", "abc", errors.New("db down"))

	out := buf.String()
	for _, want := range []string{`"msg":"notification_failed"`, `"event":"leads.assigned"`, `"error":"db down"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}
