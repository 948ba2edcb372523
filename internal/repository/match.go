package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"halo-watcher/internal/constants"
	"halo-watcher/internal/domain"

	"github.com/rs/zerolog"
)

type MatchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: sqlDB, logger: logger}
}

// MatchRecord is the joined match+stats row the reporting side consumes.
type MatchRecord struct {
	MatchID        string
	StartTime      time.Time
	EndTime        time.Time
	DurationSecs   int64
	Outcome        domain.Outcome
	PreCSR         float64
	PostCSR        float64
	Kills          int
	Deaths         int
	KillsExpected  float64
	DeathsExpected float64
	TeamMMR        float64
}

// Latest returns the most recent match by start time, or nil when the
// store is empty. The tie-break on equal start times is whatever row
// SQLite yields first; the timestamps come from one remote clock, so
// exact collisions do not occur in practice.
func (r *MatchRepository) Latest(ctx context.Context) (*domain.Match, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT match_id, start_time, end_time, duration_secs, outcome, rank,
		       playlist_id, map_asset_id, map_version_id, mode_asset_id, mode_version_id,
		       teams_enabled, team_scoring, created_at, updated_at
		FROM matches
		ORDER BY start_time DESC
		LIMIT 1`)

	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest match: %w", err)
	}
	return m, nil
}

// Save writes everything known about one match as a single transaction:
// the match row, and, when stats are present, the stats row plus a full
// replacement of the team MMR rows. A failure anywhere rolls the whole
// match back.
func (r *MatchRepository) Save(ctx context.Context, match *domain.Match, stats *domain.MatchStats, teamRatings []domain.TeamRating) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	var durationSecs int64
	if match.Duration > 0 {
		durationSecs = int64(match.Duration / time.Second)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO matches (
			match_id, start_time, end_time, duration_secs, outcome, rank,
			playlist_id, map_asset_id, map_version_id, mode_asset_id, mode_version_id,
			teams_enabled, team_scoring, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(match_id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			duration_secs = excluded.duration_secs,
			outcome = excluded.outcome,
			rank = excluded.rank,
			playlist_id = excluded.playlist_id,
			map_asset_id = excluded.map_asset_id,
			map_version_id = excluded.map_version_id,
			mode_asset_id = excluded.mode_asset_id,
			mode_version_id = excluded.mode_version_id,
			teams_enabled = excluded.teams_enabled,
			team_scoring = excluded.team_scoring,
			updated_at = excluded.updated_at`,
		match.MatchID, match.StartTime, match.EndTime, durationSecs, int(match.Outcome), match.Rank,
		match.PlaylistID, match.Map.AssetID, match.Map.VersionID, match.Mode.AssetID, match.Mode.VersionID,
		match.TeamsEnabled, match.TeamScoring, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert match %s: %w", match.MatchID, err)
	}

	if stats != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stats (
				match_id, pre_csr, post_csr, kills, deaths,
				kills_expected, deaths_expected, team_mmr
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(match_id) DO UPDATE SET
				pre_csr = excluded.pre_csr,
				post_csr = excluded.post_csr,
				kills = excluded.kills,
				deaths = excluded.deaths,
				kills_expected = excluded.kills_expected,
				deaths_expected = excluded.deaths_expected,
				team_mmr = excluded.team_mmr`,
			match.MatchID, stats.PreMatchCSR, stats.PostMatchCSR, stats.Kills, stats.Deaths,
			stats.KillsExpected, stats.DeathsExpected, stats.TeamMMR)
		if err != nil {
			return fmt.Errorf("failed to upsert stats for %s: %w", match.MatchID, err)
		}

		// Team composition is not versioned independently, so the rows
		// are replaced wholesale with whatever the last save reported.
		if _, err := tx.ExecContext(ctx, `DELETE FROM team_mmrs WHERE match_id = ?`, match.MatchID); err != nil {
			return fmt.Errorf("failed to clear team mmrs for %s: %w", match.MatchID, err)
		}
		for _, tr := range teamRatings {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO team_mmrs (match_id, team_id, mmr) VALUES (?, ?, ?)`,
				match.MatchID, tr.TeamID, tr.MMR)
			if err != nil {
				return fmt.Errorf("failed to insert team mmr for %s: %w", match.MatchID, err)
			}
		}
	}

	return tx.Commit()
}

// Recent returns joined match+stats rows in chronological ascending order.
// With sessionOnly it walks back from the newest match and stops at the
// first gap between consecutive start times larger than the session
// threshold; otherwise it returns the newest count rows. Matches whose
// stats never arrived are excluded by the join.
func (r *MatchRepository) Recent(ctx context.Context, count int, sessionOnly bool) ([]MatchRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	query := `
		SELECT m.match_id, m.start_time, m.end_time, m.duration_secs, m.outcome,
		       s.pre_csr, s.post_csr, s.kills, s.deaths,
		       s.kills_expected, s.deaths_expected, s.team_mmr
		FROM matches m
		JOIN stats s ON m.match_id = s.match_id
		ORDER BY m.start_time DESC`

	var rows *sql.Rows
	var err error
	if sessionOnly {
		rows, err = r.db.QueryContext(ctx, query)
	} else {
		rows, err = r.db.QueryContext(ctx, query+` LIMIT ?`, count)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recent matches: %w", err)
	}
	defer rows.Close()

	var records []MatchRecord
	for rows.Next() {
		var rec MatchRecord
		var outcome int
		err := rows.Scan(&rec.MatchID, &rec.StartTime, &rec.EndTime, &rec.DurationSecs, &outcome,
			&rec.PreCSR, &rec.PostCSR, &rec.Kills, &rec.Deaths,
			&rec.KillsExpected, &rec.DeathsExpected, &rec.TeamMMR)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match record: %w", err)
		}
		rec.Outcome = domain.Outcome(outcome)

		if sessionOnly && len(records) > 0 {
			prev := records[len(records)-1]
			if prev.StartTime.Sub(rec.StartTime) > constants.SessionGap {
				break
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate match records: %w", err)
	}

	// Rows arrive newest first; charting wants chronological order.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// CountMatches reports the number of match rows; used by tests and the
// status endpoint.
func (r *MatchRepository) CountMatches(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*domain.Match, error) {
	var m domain.Match
	var outcome int
	var durationSecs int64
	err := row.Scan(&m.MatchID, &m.StartTime, &m.EndTime, &durationSecs, &outcome, &m.Rank,
		&m.PlaylistID, &m.Map.AssetID, &m.Map.VersionID, &m.Mode.AssetID, &m.Mode.VersionID,
		&m.TeamsEnabled, &m.TeamScoring, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Outcome = domain.Outcome(outcome)
	m.Duration = time.Duration(durationSecs) * time.Second
	return &m, nil
}
