// Package session holds the in-progress game of every user.
package session

import "time"

// Mode is a game variant.
type Mode int

const (
	// ModeHumanPicks: the player picks a number and the agent guesses it.
	ModeHumanPicks Mode = iota + 1
	// ModeAgentPicks: the agent picks a number and the player guesses it.
	ModeAgentPicks
)

func (m Mode) String() string {
	switch m {
	case ModeHumanPicks:
		return "guess_human"
	case ModeAgentPicks:
		return "guess_bot"
	default:
		return "unknown"
	}
}

// Number bounds for both modes.
const (
	MinNumber = 1
	MaxNumber = 100

	DefaultMaxAttempts = 10
)

// GameSession is one user's game. Fields not used by the session's Mode are zero.
type GameSession struct {
	ID        string // set by the controller, used to correlate logs
	Mode      Mode
	Attempts  int
	StartedAt time.Time

	// ModeHumanPicks
	Low       int
	High      int
	LastGuess int

	// ModeAgentPicks
	Secret      int
	MaxAttempts int
}

// NewHumanPicks returns a fresh session covering the full number range.
func NewHumanPicks(now time.Time) GameSession {
	return GameSession{
		Mode:      ModeHumanPicks,
		Low:       MinNumber,
		High:      MaxNumber,
		StartedAt: now,
	}
}

// NewAgentPicks returns a fresh session for the given secret.
func NewAgentPicks(secret, maxAttempts int, now time.Time) GameSession {
	return GameSession{
		Mode:        ModeAgentPicks,
		Secret:      secret,
		MaxAttempts: maxAttempts,
		StartedAt:   now,
	}
}

// AttemptsLeft is the number of guesses the player may still make.
func (s GameSession) AttemptsLeft() int {
	if left := s.MaxAttempts - s.Attempts; left > 0 {
		return left
	}
	return 0
}
