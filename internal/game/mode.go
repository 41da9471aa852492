package game

import "github.com/lox/guessbot/internal/session"

// Mode aliases session.Mode so gateways only need this package.
type Mode = session.Mode

const (
	ModeHumanPicks = session.ModeHumanPicks
	ModeAgentPicks = session.ModeAgentPicks
)
