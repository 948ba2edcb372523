package constants

import "time"

const (
	// PollInterval is how often the watcher checks for new matches while
	// the player is in game.
	PollInterval = 60 * time.Second

	// MatchPageSize is the number of recent matches requested per poll.
	// The loop assumes at most this many matches finish between polls.
	MatchPageSize = 5

	// SessionGap is the largest pause between two consecutive match start
	// times that still counts as the same play session.
	SessionGap = 2 * time.Hour

	// ReportFallbackCount is how many matches a report covers when the
	// current session is shorter than ReportMinSessionSize.
	ReportFallbackCount  = 20
	ReportMinSessionSize = 3
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
	NotifyTimeout      = 15 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)
