package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"halo-watcher/internal/api"
	"halo-watcher/internal/constants"
	"halo-watcher/internal/domain"
	"halo-watcher/internal/notify"
	"halo-watcher/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// HaloAPI is the remote-client capability the engine needs. It is an
// interface so the engine can be exercised against stand-ins.
type HaloAPI interface {
	ListMatches(ctx context.Context, count int) (*api.MatchListResponse, error)
	FetchSkill(ctx context.Context, matchID string) (*api.SkillResult, error)
	FetchAsset(ctx context.Context, kind domain.AssetKind, assetID, versionID string) (*api.AssetResponse, error)
}

// SyncService reconciles the local match store against the Waypoint
// match history. One instance watches one identity; the mutex serializes
// scheduled polls against manual refreshes.
type SyncService struct {
	client   HaloAPI
	matches  *repository.MatchRepository
	assets   *repository.AssetRepository
	notifier notify.Notifier
	logger   zerolog.Logger

	mu sync.Mutex
}

func NewSyncService(client HaloAPI, matches *repository.MatchRepository, assets *repository.AssetRepository, notifier notify.Notifier, logger zerolog.Logger) *SyncService {
	return &SyncService{
		client:   client,
		matches:  matches,
		assets:   assets,
		notifier: notifier,
		logger:   logger,
	}
}

// Synchronize runs one full reconciliation pass: re-derive the latest
// known match, list the most recent remote page, compute the delta, and
// process it in remote order. An auth failure aborts the remaining delta
// and propagates api.ErrUnauthorized; transient failures end the run and
// leave everything already committed in place.
func (s *SyncService) Synchronize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest, err := s.matches.Latest(ctx)
	if err != nil {
		return fmt.Errorf("failed to read latest known match: %w", err)
	}
	if latest != nil {
		s.logger.Info().
			Str("match_id", latest.MatchID).
			Time("start_time", latest.StartTime).
			Msg("latest match in store")
	} else {
		s.logger.Info().Msg("no matches in store yet")
	}

	listCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	page, err := s.client.ListMatches(listCtx, constants.MatchPageSize)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to list remote matches: %w", err)
	}

	delta := computeDelta(page.Results, latest)
	if len(delta) == 0 {
		s.logger.Info().Msg("no new matches found")
		return nil
	}
	s.logger.Info().Int("count", len(delta)).Msg("processing new matches")

	for i := range delta {
		if err := s.processMatch(ctx, &delta[i]); err != nil {
			return err
		}
	}
	return nil
}

// computeDelta picks the remote matches newer than the latest known one.
// When the known match still appears in the page, newer means a strictly
// later start time; when it does not (gap larger than the page, or an
// empty store) the whole page counts as new and the idempotent upsert
// absorbs any matches that were already recorded. Remote order is kept.
func computeDelta(results []api.MatchResult, latest *domain.Match) []api.MatchResult {
	if latest == nil {
		return results
	}

	var known *api.MatchResult
	for i := range results {
		if results[i].MatchID == latest.MatchID {
			known = &results[i]
			break
		}
	}
	if known == nil {
		return results
	}

	var delta []api.MatchResult
	for _, m := range results {
		if m.MatchInfo.StartTime.After(known.MatchInfo.StartTime) {
			delta = append(delta, m)
		}
	}
	return delta
}

func (s *SyncService) processMatch(ctx context.Context, remote *api.MatchResult) error {
	log := s.logger.With().Str("match_id", remote.MatchID).Logger()

	skillCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	skill, err := s.client.FetchSkill(skillCtx, remote.MatchID)
	cancel()
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return err
	case errors.Is(err, api.ErrStatsNotReady):
		// The skill service lags the match history. Record the match
		// so the cursor advances; the stats row simply never appears.
		log.Info().Msg("stats not computed yet, saving match without stats")
		skill = nil
	case err != nil:
		return fmt.Errorf("failed to fetch stats for %s: %w", remote.MatchID, err)
	}

	match := toDomainMatch(remote, s.logger)
	var stats *domain.MatchStats
	var ratings []domain.TeamRating
	if skill != nil {
		stats, ratings = toDomainStats(remote.MatchID, skill)
	}

	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	err = s.matches.Save(dbCtx, match, stats, ratings)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to save match %s: %w", remote.MatchID, err)
	}
	log.Info().Bool("has_stats", stats != nil).Msg("match saved")

	mapAsset, modeAsset := s.resolveAssets(ctx, match)

	summary := FormatMatchSummary(match, stats, ratings, mapAsset, modeAsset)
	notifyCtx, cancel := context.WithTimeout(ctx, constants.NotifyTimeout)
	defer cancel()
	if err := s.notifier.SendText(notifyCtx, summary); err != nil {
		log.Warn().Err(err).Msg("failed to send match summary")
	}
	return nil
}

// resolveAssets looks the map and mode reference data up in the local
// cache, fetching and caching on miss. The two lookups run in parallel.
// Assets are auxiliary: any failure degrades to a nil asset and the
// summary falls back to raw identifiers.
func (s *SyncService) resolveAssets(ctx context.Context, match *domain.Match) (*domain.Asset, *domain.Asset) {
	var mapAsset, modeAsset *domain.Asset

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mapAsset = s.cacheOrFetchAsset(gCtx, domain.AssetKindMap, match.Map)
		return nil
	})
	g.Go(func() error {
		modeAsset = s.cacheOrFetchAsset(gCtx, domain.AssetKindMode, match.Mode)
		return nil
	})
	g.Wait()

	return mapAsset, modeAsset
}

func (s *SyncService) cacheOrFetchAsset(ctx context.Context, kind domain.AssetKind, ref domain.AssetRef) *domain.Asset {
	log := s.logger.With().
		Str("kind", string(kind)).
		Str("asset_id", ref.AssetID).
		Str("version_id", ref.VersionID).
		Logger()

	cached, err := s.assets.Get(ctx, kind, ref.AssetID, ref.VersionID)
	if err != nil {
		log.Warn().Err(err).Msg("asset cache lookup failed")
		return nil
	}
	if cached != nil {
		return cached
	}

	fetchCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	resp, err := s.client.FetchAsset(fetchCtx, kind, ref.AssetID, ref.VersionID)
	cancel()
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			log.Info().Msg("asset not known to discovery service")
		} else {
			log.Warn().Err(err).Msg("asset fetch failed")
		}
		return nil
	}

	asset := &domain.Asset{
		Kind:        kind,
		AssetID:     ref.AssetID,
		VersionID:   ref.VersionID,
		PublicName:  resp.PublicName,
		Description: resp.Description,
	}
	if err := s.assets.Upsert(ctx, asset); err != nil {
		log.Warn().Err(err).Msg("failed to cache asset")
	}
	return asset
}

func toDomainMatch(remote *api.MatchResult, logger zerolog.Logger) *domain.Match {
	info := remote.MatchInfo

	dur, err := domain.ParseISODuration(info.Duration)
	if err != nil {
		logger.Warn().Err(err).
			Str("match_id", remote.MatchID).
			Str("duration", info.Duration).
			Msg("failed to parse match duration")
	}

	return &domain.Match{
		MatchID:    remote.MatchID,
		StartTime:  info.StartTime,
		EndTime:    info.EndTime,
		Duration:   dur,
		Outcome:    domain.Outcome(remote.Outcome),
		Rank:       remote.Rank,
		PlaylistID: info.Playlist.AssetID,
		Map: domain.AssetRef{
			AssetID:   info.MapVariant.AssetID,
			VersionID: info.MapVariant.VersionID,
		},
		Mode: domain.AssetRef{
			AssetID:   info.UgcGameVariant.AssetID,
			VersionID: info.UgcGameVariant.VersionID,
		},
		TeamsEnabled: info.TeamsEnabled,
		TeamScoring:  info.TeamScoringEnabled,
	}
}

func toDomainStats(matchID string, skill *api.SkillResult) (*domain.MatchStats, []domain.TeamRating) {
	stats := &domain.MatchStats{
		MatchID: matchID,
		TeamMMR: skill.TeamMmr,
	}
	if skill.RankRecap != nil {
		stats.PreMatchCSR = skill.RankRecap.PreMatchCsr.Value
		stats.PostMatchCSR = skill.RankRecap.PostMatchCsr.Value
	}
	if perf, ok := skill.StatPerformances["Kills"]; ok {
		stats.Kills = perf.Count
		stats.KillsExpected = perf.Expected
	}
	if perf, ok := skill.StatPerformances["Deaths"]; ok {
		stats.Deaths = perf.Count
		stats.DeathsExpected = perf.Expected
	}

	ratings := make([]domain.TeamRating, 0, len(skill.TeamMmrs))
	for teamID, mmr := range skill.TeamMmrs {
		ratings = append(ratings, domain.TeamRating{
			MatchID: matchID,
			TeamID:  teamID,
			MMR:     mmr,
		})
	}
	return stats, ratings
}
