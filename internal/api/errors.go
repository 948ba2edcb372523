package api

import (
	"errors"
	"fmt"
)

// Failure classification happens at this boundary; callers branch on these
// sentinels with errors.Is and never inspect status codes themselves.
var (
	// ErrUnauthorized means the spartan token was rejected. The watch
	// loop must halt on it; a fresh token requires operator action.
	ErrUnauthorized = errors.New("waypoint: spartan token rejected")

	// ErrNotFound covers asset and match lookups that miss remotely.
	ErrNotFound = errors.New("waypoint: not found")

	// ErrStatsNotReady means the skill endpoint answered but has not
	// finished computing the rank recap for the match yet.
	ErrStatsNotReady = errors.New("waypoint: match stats not ready")
)

// StatusError is a transient, non-auth HTTP failure.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("waypoint: unexpected status %d for %s", e.StatusCode, e.URL)
}

func classifyStatus(status int, url string) error {
	switch status {
	case 401:
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	default:
		return &StatusError{StatusCode: status, URL: url}
	}
}
