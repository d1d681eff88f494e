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

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "account_id", "a1")
	log.Info(ctx, "inf", "ref", "0a1b2c3d")
	log.Warn(ctx, "wrn", "kind", "Teapot")
	log.Error(ctx, "err", "op", "forward")

	out := buf.String()

	tests := []struct {
		level string
		msg   string
		attr  string
	}{
		{"DEBUG", "dbg", "account_id=a1"},
		{"INFO", "inf", "ref=0a1b2c3d"},
		{"WARN", "wrn", "kind=Teapot"},
		{"ERROR", "err", "op=forward"},
	}

	for _, tc := range tests {
		if !strings.Contains(out, "level="+tc.level) {
			t.Fatalf("expected level=%s in output:\n%s", tc.level, out)
		}
		if !strings.Contains(out, "msg="+tc.msg) {
			t.Fatalf("expected msg=%q in output:\n%s", tc.msg, out)
		}
		if !strings.Contains(out, tc.attr) {
			t.Fatalf("expected attribute %s in output:\n%s", tc.attr, out)
		}
	}
}

func TestSlogLogger_With(t *testing.T) {
	log, buf := newTestLogger(t)

	log.With("module", "accounts").Info(context.Background(), "hello", "k", "v")

	out := buf.String()
	for _, s := range []string{"level=INFO", "msg=hello", "module=accounts", "k=v"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestNew_Backends(t *testing.T) {
	for _, backend := range []string{"", BackendSlog, BackendZap} {
		t.Run("backend="+backend, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(backend, "warn", &buf)
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			l.Info(context.Background(), "hidden")
			l.With("module", "test").Warn(context.Background(), "shown", "n", 1)

			out := buf.String()
			if strings.Contains(out, "hidden") {
				t.Fatalf("info line should be filtered at warn level:\n%s", out)
			}
			if !strings.Contains(out, `"shown"`) || !strings.Contains(out, `"module":"test"`) {
				t.Fatalf("expected JSON warn line with module attr, got:\n%s", out)
			}
		})
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New("logrus", "info", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := New(BackendSlog, "loud", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
