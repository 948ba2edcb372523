package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"halo-watcher/internal/config"
	"halo-watcher/internal/domain"

	"github.com/rs/zerolog"
)

func seedMatches(t *testing.T, env *testEnv, n int) {
	t.Helper()
	base := time.Date(2025, 8, 26, 20, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		match := &domain.Match{
			MatchID:   "match-" + id,
			StartTime: base.Add(time.Duration(i) * 20 * time.Minute),
			EndTime:   base.Add(time.Duration(i)*20*time.Minute + 10*time.Minute),
			Outcome:   domain.OutcomeWin,
		}
		stats := &domain.MatchStats{
			MatchID:        match.MatchID,
			PreMatchCSR:    1500 + float64(i),
			PostMatchCSR:   1505 + float64(i),
			Kills:          10 + i,
			Deaths:         8,
			KillsExpected:  11.5,
			DeathsExpected: 9.5,
		}
		if err := env.matches.Save(context.Background(), match, stats, nil); err != nil {
			t.Fatalf("seed Save: %v", err)
		}
	}
}

func TestReportSendsChartsAndCleansUp(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{})
	seedMatches(t, env, 5)

	plotDir := t.TempDir()
	report := NewReportService(env.matches, env.notifier, &config.Config{PlotDir: plotDir}, zerolog.Nop())

	if err := report.Send(context.Background(), true); err != nil {
		t.Fatalf("Send: %v", err)
	}

	env.notifier.mu.Lock()
	sent := append([]string(nil), env.notifier.files...)
	env.notifier.mu.Unlock()
	if len(sent) != 3 {
		t.Fatalf("expected 3 chart attachments, got %d", len(sent))
	}

	// Artifacts are transmitted then deleted unconditionally.
	for _, path := range sent {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("chart artifact %s was not cleaned up", path)
		}
	}
	entries, err := os.ReadDir(plotDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("plot dir should be empty after report, found %d entries", len(entries))
	}
}

func TestReportNoDataIsInformational(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{})
	report := NewReportService(env.matches, env.notifier, &config.Config{PlotDir: t.TempDir()}, zerolog.Nop())

	if err := report.Send(context.Background(), false); err != nil {
		t.Fatalf("Send on empty store: %v", err)
	}

	env.notifier.mu.Lock()
	defer env.notifier.mu.Unlock()
	if len(env.notifier.files) != 0 {
		t.Fatalf("no artifacts expected for empty data")
	}
	found := false
	for _, text := range env.notifier.texts {
		if strings.Contains(text, "No match data") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a no-data message, got %v", env.notifier.texts)
	}
}

func TestReportShortSessionFallsBack(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{})

	// Two separated sessions: an older block of four and a lone recent
	// match. The current session (1 match) is below the minimum.
	base := time.Date(2025, 8, 26, 10, 0, 0, 0, time.UTC)
	starts := []time.Time{
		base,
		base.Add(30 * time.Minute),
		base.Add(60 * time.Minute),
		base.Add(90 * time.Minute),
		base.Add(5 * time.Hour),
	}
	for i, start := range starts {
		id := string(rune('a' + i))
		match := &domain.Match{MatchID: "fb-" + id, StartTime: start, EndTime: start.Add(10 * time.Minute)}
		if err := env.matches.Save(context.Background(), match, &domain.MatchStats{MatchID: match.MatchID, Kills: 10, Deaths: 5}, nil); err != nil {
			t.Fatalf("seed Save: %v", err)
		}
	}

	report := NewReportService(env.matches, env.notifier, &config.Config{PlotDir: t.TempDir()}, zerolog.Nop())
	if err := report.Send(context.Background(), true); err != nil {
		t.Fatalf("Send: %v", err)
	}

	env.notifier.mu.Lock()
	defer env.notifier.mu.Unlock()
	fallback := false
	for _, text := range env.notifier.texts {
		if strings.Contains(text, "fewer than") {
			fallback = true
		}
	}
	if !fallback {
		t.Fatalf("expected fallback explanation, got %v", env.notifier.texts)
	}
	if len(env.notifier.files) != 3 {
		t.Fatalf("fallback report should still ship 3 charts, got %d", len(env.notifier.files))
	}
}

type failingFileNotifier struct {
	fakeNotifier
}

func (f *failingFileNotifier) SendFile(ctx context.Context, path string) error {
	return errors.New("delivery refused")
}

func TestReportCleansUpWhenDeliveryFails(t *testing.T) {
	env := newTestEnv(t, &fakeAPI{})
	seedMatches(t, env, 4)

	plotDir := t.TempDir()
	notifier := &failingFileNotifier{}
	report := NewReportService(env.matches, notifier, &config.Config{PlotDir: plotDir}, zerolog.Nop())

	// Delivery failures are logged per chart, not returned.
	if err := report.Send(context.Background(), false); err != nil {
		t.Fatalf("Send: %v", err)
	}

	entries, err := os.ReadDir(plotDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("artifacts must be removed even when delivery fails, found %d", len(entries))
	}
}
