package domain

import (
	"time"

	"github.com/sosodev/duration"
)

// Outcome is the numeric match result code used by the Waypoint API.
type Outcome int

const (
	OutcomeUnknown Outcome = 0
	OutcomeTie     Outcome = 1
	OutcomeWin     Outcome = 2
	OutcomeLoss    Outcome = 3
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTie:
		return "Tie"
	case OutcomeWin:
		return "Win"
	case OutcomeLoss:
		return "Loss"
	default:
		return "Unknown"
	}
}

// AssetKind selects the reference-data table an asset belongs to.
type AssetKind string

const (
	AssetKindMap  AssetKind = "Maps"
	AssetKindMode AssetKind = "UgcGameVariants"
)

// AssetRef points at one version of a map or game-mode asset.
type AssetRef struct {
	AssetID   string
	VersionID string
}

type Match struct {
	MatchID      string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Outcome      Outcome
	Rank         int
	PlaylistID   string
	Map          AssetRef
	Mode         AssetRef
	TeamsEnabled bool
	TeamScoring  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MatchStats is the per-player skill recap for one match. It can lag the
// match itself on the remote side, so a Match may exist without one.
type MatchStats struct {
	MatchID        string
	PreMatchCSR    float64
	PostMatchCSR   float64
	Kills          int
	Deaths         int
	KillsExpected  float64
	DeathsExpected float64
	TeamMMR        float64
}

func (s *MatchStats) CSRDelta() float64 {
	return s.PostMatchCSR - s.PreMatchCSR
}

type TeamRating struct {
	MatchID string
	TeamID  string
	MMR     float64
}

// Asset is cached map/mode reference data. Rows are written once per
// (kind, asset, version) and never invalidated.
type Asset struct {
	Kind        AssetKind
	AssetID     string
	VersionID   string
	PublicName  string
	Description string
}

// ParseISODuration parses the ISO 8601 duration strings the match history
// endpoint reports (e.g. "PT8M33.6347133S").
func ParseISODuration(raw string) (time.Duration, error) {
	d, err := duration.Parse(raw)
	if err != nil {
		return 0, err
	}
	return d.ToTimeDuration(), nil
}
