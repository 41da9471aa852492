package game

import "time"

// Outcome is how a game ended.
type Outcome string

const (
	OutcomeWon           Outcome = "won"
	OutcomeExhausted     Outcome = "exhausted"
	OutcomeContradictory Outcome = "contradictory"
	// OutcomeReplaced: the player started a new game before finishing this one.
	OutcomeReplaced Outcome = "replaced"
)

// Monitor receives notifications about games. Implementations must be safe
// for concurrent use.
type Monitor interface {
	// OnEvent is called once per handled event; err is the reply's error.
	OnEvent(et EventType, err error)

	// OnGameStart is called when a session is created.
	OnGameStart(mode Mode)

	// OnGameEnd is called when a session is removed.
	OnGameEnd(mode Mode, outcome Outcome, attempts int, duration time.Duration)

	// OnRecord is called when a result becomes the new record for mode.
	OnRecord(mode Mode, attempts int)
}

// NullMonitor is a no-op implementation.
type NullMonitor struct{}

func (NullMonitor) OnEvent(EventType, error)                    {}
func (NullMonitor) OnGameStart(Mode)                            {}
func (NullMonitor) OnGameEnd(Mode, Outcome, int, time.Duration) {}
func (NullMonitor) OnRecord(Mode, int)                          {}

// MultiMonitor fans out notifications to several monitors.
type MultiMonitor struct {
	monitors []Monitor
}

// NewMultiMonitor builds a composite monitor, pruning nil entries and
// returning NullMonitor when nothing is left.
func NewMultiMonitor(monitors ...Monitor) Monitor {
	filtered := make([]Monitor, 0, len(monitors))
	for _, m := range monitors {
		if m != nil {
			filtered = append(filtered, m)
		}
	}

	switch len(filtered) {
	case 0:
		return NullMonitor{}
	case 1:
		return filtered[0]
	default:
		return &MultiMonitor{monitors: filtered}
	}
}

func (m *MultiMonitor) OnEvent(et EventType, err error) {
	for _, mon := range m.monitors {
		mon.OnEvent(et, err)
	}
}

func (m *MultiMonitor) OnGameStart(mode Mode) {
	for _, mon := range m.monitors {
		mon.OnGameStart(mode)
	}
}

func (m *MultiMonitor) OnGameEnd(mode Mode, outcome Outcome, attempts int, duration time.Duration) {
	for _, mon := range m.monitors {
		mon.OnGameEnd(mode, outcome, attempts, duration)
	}
}

func (m *MultiMonitor) OnRecord(mode Mode, attempts int) {
	for _, mon := range m.monitors {
		mon.OnRecord(mode, attempts)
	}
}
