package service

import (
	"strings"
	"testing"
	"time"

	"halo-watcher/internal/domain"
)

func summaryFixtures() (*domain.Match, *domain.MatchStats, []domain.TeamRating) {
	start := time.Date(2025, 8, 26, 21, 0, 0, 0, time.UTC)
	match := &domain.Match{
		MatchID:   "match-123",
		StartTime: start,
		EndTime:   start.Add(9 * time.Minute),
		Duration:  8*time.Minute + 33*time.Second,
		Outcome:   domain.OutcomeWin,
		Rank:      2,
		Map:       domain.AssetRef{AssetID: "map-id", VersionID: "map-v"},
		Mode:      domain.AssetRef{AssetID: "mode-id", VersionID: "mode-v"},
	}
	stats := &domain.MatchStats{
		MatchID:        "match-123",
		PreMatchCSR:    1500,
		PostMatchCSR:   1512,
		Kills:          14,
		Deaths:         9,
		KillsExpected:  12.5,
		DeathsExpected: 11.2,
		TeamMMR:        1498.77,
	}
	ratings := []domain.TeamRating{
		{MatchID: "match-123", TeamID: "1", MMR: 1476.1},
		{MatchID: "match-123", TeamID: "0", MMR: 1498.77},
	}
	return match, stats, ratings
}

func TestFormatMatchSummary(t *testing.T) {
	match, stats, ratings := summaryFixtures()
	mapAsset := &domain.Asset{Kind: domain.AssetKindMap, PublicName: "Aquarius"}
	modeAsset := &domain.Asset{Kind: domain.AssetKindMode, PublicName: "Ranked Slayer", Description: "First to 50."}

	got := FormatMatchSummary(match, stats, ratings, mapAsset, modeAsset)

	for _, want := range []string{
		"match-123",
		"Win",
		"8m 33s",
		"Aquarius",
		"Ranked Slayer",
		"First to 50.",
		"1500 → 1512 (+12)",
		"Kills: 14 (expected 12.50)",
		"Deaths: 9 (expected 11.20)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}

	// Team list comes out sorted by team ID.
	if strings.Index(got, "Team 0") > strings.Index(got, "Team 1") {
		t.Errorf("team ratings not sorted:\n%s", got)
	}
}

func TestFormatMatchSummaryWithoutAssets(t *testing.T) {
	match, stats, ratings := summaryFixtures()

	got := FormatMatchSummary(match, stats, ratings, nil, nil)
	if !strings.Contains(got, "map-id") || !strings.Contains(got, "mode-id") {
		t.Errorf("expected raw asset identifiers as placeholders:\n%s", got)
	}
}

func TestFormatMatchSummaryWithoutStats(t *testing.T) {
	match, _, _ := summaryFixtures()

	got := FormatMatchSummary(match, nil, nil, nil, nil)
	if !strings.Contains(got, "No stats available") {
		t.Errorf("expected no-stats notice:\n%s", got)
	}
	if strings.Contains(got, "CSR:") {
		t.Errorf("stats lines must be absent without stats:\n%s", got)
	}
}
