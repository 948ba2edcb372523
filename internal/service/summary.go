package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"halo-watcher/internal/domain"
)

// FormatMatchSummary builds the per-match digest sent to the
// notification channel. Assets may be nil; the summary then falls back
// to raw identifiers.
func FormatMatchSummary(match *domain.Match, stats *domain.MatchStats, ratings []domain.TeamRating, mapAsset, modeAsset *domain.Asset) string {
	var b strings.Builder

	b.WriteString("🎮 **Match Summary**\n")
	fmt.Fprintf(&b, "Match ID: `%s`\n", match.MatchID)
	fmt.Fprintf(&b, "🕒 Start: %s   End: %s   Duration: %s\n",
		formatTime(match.StartTime), formatTime(match.EndTime), formatDuration(match.Duration))
	fmt.Fprintf(&b, "🏆 Outcome: %s   📈 Rank: %d\n\n", match.Outcome, match.Rank)

	if mapAsset != nil {
		fmt.Fprintf(&b, "🗺️ Map: %s\n", mapAsset.PublicName)
	} else {
		fmt.Fprintf(&b, "🗺️ Map: %s (v%s)\n", match.Map.AssetID, match.Map.VersionID)
	}
	if modeAsset != nil {
		fmt.Fprintf(&b, "⚙️ Mode: %s\n", modeAsset.PublicName)
		if modeAsset.Description != "" {
			fmt.Fprintf(&b, "    %q\n", modeAsset.Description)
		}
	} else {
		fmt.Fprintf(&b, "⚙️ Mode: %s\n", match.Mode.AssetID)
	}
	b.WriteString("\n")

	if stats == nil {
		b.WriteString("⚠️ No stats available for this match")
		return b.String()
	}

	fmt.Fprintf(&b, "📊 CSR: %.0f → %.0f (%+.0f)\n", stats.PreMatchCSR, stats.PostMatchCSR, stats.CSRDelta())
	if stats.TeamMMR != 0 {
		fmt.Fprintf(&b, "🤝 Your Team MMR: %.2f\n", stats.TeamMMR)
	}

	if len(ratings) > 0 {
		sorted := make([]domain.TeamRating, len(ratings))
		copy(sorted, ratings)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].TeamID < sorted[j].TeamID })

		b.WriteString("Team MMRs:\n")
		for _, tr := range sorted {
			fmt.Fprintf(&b, "  • Team %s: %.2f\n", tr.TeamID, tr.MMR)
		}
	}

	fmt.Fprintf(&b, "🔫 Kills: %d (expected %.2f)\n", stats.Kills, stats.KillsExpected)
	fmt.Fprintf(&b, "💀 Deaths: %d (expected %.2f)", stats.Deaths, stats.DeathsExpected)

	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("Jan 02, 2006 03:04 PM")
}

func formatDuration(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}
