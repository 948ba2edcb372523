package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"halo-watcher/internal/api"
	"halo-watcher/internal/config"

	"github.com/rs/zerolog"
)

func newTestWatcher(t *testing.T, client *fakeAPI) (*Watcher, *testEnv) {
	t.Helper()

	env := newTestEnv(t, client)
	cfg := &config.Config{PlotDir: t.TempDir()}
	report := NewReportService(env.matches, env.notifier, cfg, zerolog.Nop())
	w := NewWatcher(env.sync, report, env.matches, env.notifier, zerolog.Nop())
	t.Cleanup(w.Shutdown)
	return w, env
}

func TestWatcherStartStop(t *testing.T) {
	client := &fakeAPI{}
	w, env := newTestWatcher(t, client)

	w.HandleStart()
	if !w.Watching() {
		t.Fatalf("expected watching after start edge")
	}
	// Re-delivery of the start edge is a no-op.
	w.HandleStart()

	// Give the catch-up pass a moment to run.
	time.Sleep(50 * time.Millisecond)

	w.HandleStop()
	if w.Watching() {
		t.Fatalf("expected idle after stop edge")
	}
	// Stop on an idle watcher is a no-op.
	w.HandleStop()

	// The stop edge triggered a session report; with nothing recorded
	// that is an informational message, not a failure.
	found := false
	env.notifier.mu.Lock()
	for _, text := range env.notifier.texts {
		if strings.Contains(text, "No match data") {
			found = true
		}
	}
	env.notifier.mu.Unlock()
	if !found {
		t.Fatalf("expected a no-data report message, got %v", env.notifier.texts)
	}
}

func TestWatcherRefreshAuthFailureHalts(t *testing.T) {
	client := &fakeAPI{listErr: api.ErrUnauthorized}
	w, env := newTestWatcher(t, client)

	err := w.Refresh(context.Background())
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if !w.Halted() {
		t.Fatalf("expected watcher halted after auth failure")
	}

	// Future start edges must not resume polling until restart.
	w.HandleStart()
	if w.Watching() {
		t.Fatalf("halted watcher must not start a new loop")
	}

	found := false
	env.notifier.mu.Lock()
	for _, text := range env.notifier.texts {
		if strings.Contains(text, "Spartan token") {
			found = true
		}
	}
	env.notifier.mu.Unlock()
	if !found {
		t.Fatalf("expected the token remediation notice to be sent")
	}
}

func TestWatcherLoopHaltsOnAuthFailure(t *testing.T) {
	client := &fakeAPI{listErr: api.ErrUnauthorized}
	w, _ := newTestWatcher(t, client)

	w.HandleStart()
	// The immediate catch-up sync hits the auth failure and the loop
	// must wind itself down.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.Halted() && !w.Watching() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("watch loop did not halt on auth failure")
}

func TestWatcherTransientFailureKeepsWatching(t *testing.T) {
	client := &fakeAPI{listErr: &api.StatusError{StatusCode: 502, URL: "test"}}
	w, _ := newTestWatcher(t, client)

	w.HandleStart()
	time.Sleep(50 * time.Millisecond)

	if !w.Watching() {
		t.Fatalf("transient failure must not stop the loop")
	}
	if w.Halted() {
		t.Fatalf("transient failure must not halt the watcher")
	}
}
