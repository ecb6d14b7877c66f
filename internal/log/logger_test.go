package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerTagsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Handler: slog.NewTextHandler(&buf, nil), Component: ComponentStorage})
	l.WithComponent(ComponentScheduler).Info("purged", FieldCount, 3)

	out := buf.String()
	if strings.Count(out, "component=") != 1 {
		t.Fatalf("expected exactly one component attr, got %q", out)
	}
	if !strings.Contains(out, "component=scheduler") || !strings.Contains(out, "count=3") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Handler: slog.NewTextHandler(&buf, nil)}))
	req := httptest.NewRequest("GET", "/api/state", nil)

	sl.LogHTTPEnd(context.Background(), req, "req_1", 503, 12, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("5xx must log at error: %q", buf.String())
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("disk full"), OpLoad, nil)
	if !strings.Contains(buf.String(), "error=\"disk full\"") {
		t.Fatalf("missing error field: %q", buf.String())
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected fallback logger")
	}
	l := Discard()
	if FromContext(WithContext(context.Background(), l)) != l {
		t.Fatal("expected stored logger")
	}
}
