package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
)

func TestSlogServiceLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogServiceLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.Info("relay started", LogFields{"interval": "10ms"})
	out := buf.String()
	if !strings.Contains(out, "relay started") || !strings.Contains(out, "interval=10ms") {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogServiceLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	scoped := logger.With(LogFields{"component": "relay"})
	scoped.Info("cycle", nil)
	if !strings.Contains(buf.String(), "component=relay") {
		t.Fatalf("expected the scoped field in output, got %q", buf.String())
	}
}

func TestWatermillAdapterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogServiceLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	adapter := NewWatermillAdapter(logger)
	adapter.With(watermill.LogFields{"topic": "sensor_accel"}).Info("subscribed", nil)
	out := buf.String()
	if !strings.Contains(out, "subscribed") || !strings.Contains(out, "topic=sensor_accel") {
		t.Fatalf("unexpected adapter output %q", out)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := Nop()
	logger.Debug("quiet", nil)
	logger.Info("quiet", LogFields{"k": "v"})
	logger.Error("quiet", nil, nil)
	logger.Trace("quiet", nil)
	logger.With(LogFields{"k": "v"}).Info("still quiet", nil)
}

func TestNilLoggerPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a nil slog logger")
		}
	}()
	NewSlogServiceLogger(nil)
}
