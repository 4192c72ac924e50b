package logging

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"netplayer/internal/core"
)

func TestNew_WritesAtLevel(t *testing.T) {
	w := &core.MockWriter{}
	l, err := New("info", w)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	l.Debug("hidden")
	l.Info("packet dropped", zap.Int("source", 1), zap.Int("dest", 2))
	_ = l.Sync()

	out := w.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry should be filtered at info level: %q", out)
	}
	if !strings.Contains(out, "packet dropped") || !strings.Contains(out, `"source": 1`) {
		t.Errorf("expected info entry with fields, got %q", out)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("loud", &core.MockWriter{}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFromContext(t *testing.T) {
	l := zap.NewNop()
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("expected stored logger")
	}
	if FromContext(context.Background()) == nil {
		t.Error("expected fallback logger")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Error("expected no-op logger for nil")
	}
	l := zap.NewNop()
	if OrNop(l) != l {
		t.Error("expected logger to be returned unchanged")
	}
}
