package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
}

func waitUpdated(t *testing.T, w *Watcher) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if w.Updated() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for the watcher to flag the change")
}

func TestWatcherFlagsAndAppliesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.json")
	writeConfigFile(t, path, `{"cycle_interval_ms":10}`)

	var applied *Config
	w, err := NewWatcher(path, func(c *Config) error {
		applied = c
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected watcher error: %v", err)
	}
	defer w.Close()

	if w.Updated() {
		t.Fatal("expected no pending change right after start")
	}

	writeConfigFile(t, path, `{"cycle_interval_ms":25}`)
	waitUpdated(t, w)

	if err := w.Apply(); err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
	if w.Updated() {
		t.Fatal("expected apply to clear the pending flag")
	}
	if applied == nil || applied.CycleIntervalMS != 25 {
		t.Fatalf("expected the fresh config in the callback, got %+v", applied)
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.json")
	writeConfigFile(t, path, `{}`)

	w, err := NewWatcher(path, func(*Config) error { return nil }, nil)
	if err != nil {
		t.Fatalf("unexpected watcher error: %v", err)
	}
	defer w.Close()

	writeConfigFile(t, filepath.Join(dir, "other.json"), `{}`)
	time.Sleep(100 * time.Millisecond)
	if w.Updated() {
		t.Fatal("expected sibling file changes to be ignored")
	}
}

func TestWatcherApplyFailureKeepsOldConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.json")
	writeConfigFile(t, path, `{"pubsub_system":"nats"}`)

	w, err := NewWatcher(path, func(*Config) error {
		t.Fatal("callback must not run for an invalid file")
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected watcher error: %v", err)
	}
	defer w.Close()

	if err := w.Apply(); err == nil {
		t.Fatal("expected apply to surface the validation error")
	}
	if w.Updated() {
		t.Fatal("expected apply to clear the pending flag even on failure")
	}
}

func TestWatcherRequiresCallback(t *testing.T) {
	if _, err := NewWatcher("relay.json", nil, nil); err == nil {
		t.Fatal("expected a nil callback to be rejected")
	}
}
