package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if h := newFanoutHandler(nil, nil); h != slog.DiscardHandler {
		t.Fatalf("expected discard handler, got %T", h)
	}
	inner := slog.NewTextHandler(&bytes.Buffer{}, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatalf("expected the single handler back, got %T", h)
	}
}

func TestFanoutHandlerRoutesByLevel(t *testing.T) {
	var console, file bytes.Buffer
	h := newFanoutHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("fanout should be enabled when any handler is")
	}

	logger := slog.New(h).With(String(FieldComponent, "capture")).WithGroup("grid")
	logger.Debug("reaching", String("control", "gain"))
	logger.Info("captured", String("key", "60,10"))

	if strings.Contains(console.String(), "reaching") {
		t.Fatalf("debug record reached the info handler: %q", console.String())
	}
	if !strings.Contains(console.String(), "grid.key=60,10") || !strings.Contains(console.String(), "component=capture") {
		t.Fatalf("console output missing attrs: %q", console.String())
	}
	if got := strings.Count(file.String(), "\n"); got != 2 {
		t.Fatalf("file handler got %d records, want 2: %q", got, file.String())
	}
	if !strings.Contains(file.String(), `"grid":{"control":"gain"}`) {
		t.Fatalf("group not applied in file handler: %q", file.String())
	}
}
