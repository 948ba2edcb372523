package presence

import (
	"sync"

	"github.com/rs/zerolog"
)

// Monitor is a pure edge detector over one player's activity list. It
// fires the start callback only on a not-playing to playing transition
// and the stop callback only on the reverse; repeated observations of
// the same state are silent.
type Monitor struct {
	target  string
	logger  zerolog.Logger
	onStart func()
	onStop  func()

	mu      sync.Mutex
	playing bool
}

func NewMonitor(target string, onStart, onStop func(), logger zerolog.Logger) *Monitor {
	return &Monitor{
		target:  target,
		onStart: onStart,
		onStop:  onStop,
		logger:  logger,
	}
}

// Observe processes one presence event for the watched identity.
func (m *Monitor) Observe(activities []string) {
	playing := contains(activities, m.target)

	m.mu.Lock()
	was := m.playing
	m.playing = playing
	m.mu.Unlock()

	switch {
	case playing && !was:
		m.logger.Info().Str("activity", m.target).Msg("player started target activity")
		m.onStart()
	case !playing && was:
		m.logger.Info().Str("activity", m.target).Msg("player stopped target activity")
		m.onStop()
	}
}

// Seed initializes the flag from the current presence without requiring
// a transition. A player already in game at process start still gets the
// start-watching consequence.
func (m *Monitor) Seed(activities []string) {
	playing := contains(activities, m.target)

	m.mu.Lock()
	m.playing = playing
	m.mu.Unlock()

	if playing {
		m.logger.Info().Str("activity", m.target).Msg("player already in target activity at startup")
		m.onStart()
	}
}

func (m *Monitor) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func contains(activities []string, target string) bool {
	for _, a := range activities {
		if a == target {
			return true
		}
	}
	return false
}
