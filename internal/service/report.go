package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"halo-watcher/internal/charts"
	"halo-watcher/internal/config"
	"halo-watcher/internal/constants"
	"halo-watcher/internal/notify"
	"halo-watcher/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// ReportService renders after-action charts for a range of matches and
// delivers them through the notification sink.
type ReportService struct {
	matches  *repository.MatchRepository
	notifier notify.Notifier
	logger   zerolog.Logger
	plotDir  string
}

func NewReportService(matches *repository.MatchRepository, notifier notify.Notifier, cfg *config.Config, logger zerolog.Logger) *ReportService {
	return &ReportService{
		matches:  matches,
		notifier: notifier,
		logger:   logger,
		plotDir:  cfg.PlotDir,
	}
}

type chartRenderer struct {
	name   string
	render func([]repository.MatchRecord, io.Writer) error
}

var reportCharts = []chartRenderer{
	{"csr_trend", charts.CSRTrend},
	{"kd_plot", charts.KillsDeaths},
	{"kd_ratio", charts.KDRatio},
}

// Send renders and delivers the report. With sessionOnly, a session
// shorter than the minimum falls back to the recent-match window, with
// an explanatory note to the user. Empty data is an informational
// message, not a failure.
func (s *ReportService) Send(ctx context.Context, sessionOnly bool) error {
	records, err := s.matches.Recent(ctx, constants.ReportFallbackCount, sessionOnly)
	if err != nil {
		return fmt.Errorf("failed to load matches for report: %w", err)
	}

	if sessionOnly && len(records) < constants.ReportMinSessionSize {
		s.logger.Info().Int("session_size", len(records)).Msg("session too short, falling back to recent matches")
		s.sendText(ctx, fmt.Sprintf(
			"⚠️ Your current session has fewer than %d matches. Generating report for the last %d matches instead.",
			constants.ReportMinSessionSize, constants.ReportFallbackCount))

		records, err = s.matches.Recent(ctx, constants.ReportFallbackCount, false)
		if err != nil {
			return fmt.Errorf("failed to load matches for report: %w", err)
		}
	}

	if len(records) == 0 {
		s.logger.Warn().Msg("no match data for report")
		s.sendText(ctx, "Could not generate report: No match data found.")
		return nil
	}

	for _, c := range reportCharts {
		if err := s.sendChart(ctx, c, records); err != nil {
			s.logger.Error().Err(err).Str("chart", c.name).Msg("failed to deliver chart")
		}
	}

	s.logger.Info().Int("matches", len(records)).Msg("report sent")
	return nil
}

// sendChart writes one chart to a temp file, ships it, and removes the
// file no matter how delivery went.
func (s *ReportService) sendChart(ctx context.Context, c chartRenderer, records []repository.MatchRecord) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate artifact name: %w", err)
	}
	path := filepath.Join(s.plotDir, fmt.Sprintf("%s_%s.png", c.name, id))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer os.Remove(path)

	renderErr := c.render(records, f)
	closeErr := f.Close()
	if renderErr != nil {
		if renderErr == charts.ErrNoData {
			s.logger.Warn().Str("chart", c.name).Msg("no data for chart")
			return nil
		}
		return fmt.Errorf("failed to render chart: %w", renderErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to flush chart file: %w", closeErr)
	}

	notifyCtx, cancel := context.WithTimeout(ctx, constants.NotifyTimeout)
	defer cancel()
	if err := s.notifier.SendFile(notifyCtx, path); err != nil {
		return fmt.Errorf("failed to send chart: %w", err)
	}
	return nil
}

func (s *ReportService) sendText(ctx context.Context, text string) {
	notifyCtx, cancel := context.WithTimeout(ctx, constants.NotifyTimeout)
	defer cancel()
	if err := s.notifier.SendText(notifyCtx, text); err != nil {
		s.logger.Warn().Err(err).Msg("failed to send report message")
	}
}
