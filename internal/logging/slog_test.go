package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels_WriteExpectedOutput(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()

	tests := []struct {
		level string
		msg   string
		key   string
		val   string
	}{
		{"DEBUG", "dbg", "a", "1"},
		{"INFO", "inf", "b", "2"},
		{"WARN", "wrn", "c", "3"},
		{"ERROR", "err", "d", "4"},
	}

	for _, tc := range tests {
		if !strings.Contains(out, "level="+tc.level) {
			t.Fatalf("expected line with level=%s in output:\n%s", tc.level, out)
		}
		if !strings.Contains(out, "msg="+tc.msg) {
			t.Fatalf("expected line with msg=%q in output:\n%s", tc.msg, out)
		}
		if !strings.Contains(out, tc.key+"="+tc.val) {
			t.Fatalf("expected attribute %s=%s in output:\n%s", tc.key, tc.val, out)
		}
	}
}

func TestSlogLogger_With_AddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t)

	log.With("path", "accounts.accts").Info(context.Background(), "opened", "accounts", 3)

	out := buf.String()
	for _, want := range []string{"path=accounts.accts", "accounts=3", "msg=opened"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestNew_VerboseControlsLevel(t *testing.T) {
	ctx := context.Background()

	var quiet bytes.Buffer
	New(&quiet, false).Info(ctx, "hidden")
	New(&quiet, false).Warn(ctx, "shown")
	if strings.Contains(quiet.String(), "hidden") {
		t.Errorf("info written without verbose:\n%s", quiet.String())
	}
	if !strings.Contains(quiet.String(), "shown") {
		t.Errorf("warning missing without verbose:\n%s", quiet.String())
	}

	var verbose bytes.Buffer
	New(&verbose, true).Debug(ctx, "details")
	if !strings.Contains(verbose.String(), "level=DEBUG") {
		t.Errorf("debug missing with verbose:\n%s", verbose.String())
	}
}

func TestDiscard(t *testing.T) {
	var l Logger = Discard()
	l.Error(context.Background(), "ignored")
}
