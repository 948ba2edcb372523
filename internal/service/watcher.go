package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"halo-watcher/internal/api"
	"halo-watcher/internal/constants"
	"halo-watcher/internal/notify"
	"halo-watcher/internal/repository"

	"github.com/rs/zerolog"
)

const tokenExpiredMessage = "Your Spartan token has expired or is invalid. " +
	"Please set the SPARTAN_TOKEN environment variable with a new token and restart the service. " +
	"You can get a new token by going to https://www.halowaypoint.com/en-us/profile/settings, " +
	"logging in, opening your browser's developer tools (F12), going to the Network tab, " +
	"refreshing the page, finding a request to `https://halostats.svc.halowaypoint.com/hi/players/xuid(...)`, " +
	"and copying the `x-343-authorization-spartan` header value."

// Watcher owns the presence-driven polling lifecycle. It is a two-state
// machine: idle, or watching with a background loop that synchronizes
// immediately and then every poll interval. Runs never overlap; the loop
// body calls Synchronize synchronously and the next tick waits for the
// timer.
type Watcher struct {
	sync     *SyncService
	report   *ReportService
	matches  *repository.MatchRepository
	notifier notify.Notifier
	logger   zerolog.Logger

	mu       sync.Mutex
	watching bool
	halted   bool
	cancel   context.CancelFunc
}

func NewWatcher(syncSvc *SyncService, report *ReportService, matches *repository.MatchRepository, notifier notify.Notifier, logger zerolog.Logger) *Watcher {
	return &Watcher{
		sync:     syncSvc,
		report:   report,
		matches:  matches,
		notifier: notifier,
		logger:   logger,
	}
}

// HandleStart transitions idle → watching. A no-op when already
// watching or halted on an expired token.
func (w *Watcher) HandleStart() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watching {
		return
	}
	if w.halted {
		w.logger.Warn().Msg("not starting watch loop: token marked invalid, restart required")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.watching = true
	go w.loop(ctx)
	w.logger.Info().Msg("started background watch loop")
}

// HandleStop transitions watching → idle and kicks off the session
// report. The in-flight run, if any, finishes on its own; per-match
// writes are atomic so stopping mid-run cannot corrupt the store.
func (w *Watcher) HandleStop() {
	w.mu.Lock()
	if !w.watching {
		w.mu.Unlock()
		return
	}
	w.watching = false
	w.cancel()
	w.cancel = nil
	w.mu.Unlock()

	w.logger.Info().Msg("stopped background watch loop")

	ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
	defer cancel()
	if err := w.report.Send(ctx, true); err != nil {
		w.logger.Error().Err(err).Msg("failed to send session report")
	}
}

func (w *Watcher) loop(ctx context.Context) {
	if !w.runOnce(ctx) {
		return
	}

	ticker := time.NewTicker(constants.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.runOnce(ctx) {
				return
			}
		}
	}
}

// runOnce performs one synchronize pass and reports whether the loop
// should keep going.
func (w *Watcher) runOnce(ctx context.Context) bool {
	err := w.sync.Synchronize(ctx)
	switch {
	case err == nil:
		return true
	case errors.Is(err, api.ErrUnauthorized):
		w.haltOnAuthFailure()
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		// Transient: this run is over, the next tick retries from a
		// freshly re-derived cursor.
		w.logger.Error().Err(err).Msg("synchronize failed")
		return true
	}
}

// haltOnAuthFailure stops polling entirely and tells the operator how to
// recover. Only a restart with a fresh token resumes watching.
func (w *Watcher) haltOnAuthFailure() {
	w.mu.Lock()
	w.halted = true
	w.watching = false
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.mu.Unlock()

	w.logger.Error().Msg("invalid spartan token detected, watch loop halted")

	ctx, cancel := context.WithTimeout(context.Background(), constants.NotifyTimeout)
	defer cancel()
	if err := w.notifier.SendText(ctx, tokenExpiredMessage); err != nil {
		w.logger.Error().Err(err).Msg("failed to send token-expired notice")
	}
}

// Shutdown cancels the watch loop without the session report; used on
// process exit where the session has not actually ended.
func (w *Watcher) Shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.watching = false
}

// Refresh runs one manual synchronize pass. It shares the engine's
// mutual-exclusion region with the scheduled loop, so a concurrent tick
// simply serializes behind it.
func (w *Watcher) Refresh(ctx context.Context) error {
	err := w.sync.Synchronize(ctx)
	if errors.Is(err, api.ErrUnauthorized) {
		w.haltOnAuthFailure()
	}
	return err
}

func (w *Watcher) Watching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watching
}

func (w *Watcher) Halted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.halted
}

// AnnounceStartup greets the operator and reports how the local store
// compares to the newest match the server knows about.
func (w *Watcher) AnnounceStartup(ctx context.Context) {
	w.sendText(ctx, "Hi! The watcher is online and following your Halo activity 👋")

	local, err := w.matches.Latest(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("startup check: failed to read local latest match")
		return
	}

	listCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	page, err := w.sync.client.ListMatches(listCtx, 3)
	cancel()
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			w.haltOnAuthFailure()
			return
		}
		w.logger.Warn().Err(err).Msg("startup check: failed to list remote matches")
		return
	}

	var remote *api.MatchResult
	if len(page.Results) > 0 {
		remote = &page.Results[0]
	}

	switch {
	case local == nil && remote == nil:
		w.sendText(ctx, "ℹ️ No matches found in your local database or on the Halo Waypoint server yet.")
	case local == nil:
		w.sendText(ctx, "⚠️ Your local match database is empty, but recent matches were found on the server. New matches will be picked up once play is detected.")
	case remote == nil:
		w.sendText(ctx, "ℹ️ No recent matches found on the Halo Waypoint server, but your local database contains data.")
	case local.MatchID == remote.MatchID:
		w.sendText(ctx, "✅ Your local match database is up-to-date with the latest match on the server.")
	case remote.MatchInfo.StartTime.After(local.StartTime):
		w.sendText(ctx, "🔄 Your local match database is behind the latest match on the server. The watcher will catch up.")
	default:
		w.sendText(ctx, "✅ Your local match database appears to be up-to-date or even ahead of what the server currently reports.")
	}
}

func (w *Watcher) sendText(ctx context.Context, text string) {
	notifyCtx, cancel := context.WithTimeout(ctx, constants.NotifyTimeout)
	defer cancel()
	if err := w.notifier.SendText(notifyCtx, text); err != nil {
		w.logger.Warn().Err(err).Msg("failed to send notification")
	}
}
