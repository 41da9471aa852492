package game

import (
	"errors"

	"github.com/lox/guessbot/internal/action"
)

// Errors carried in Reply.Err. None of them is fatal; each one is also
// rendered as a message to the player.
var (
	// ErrNoActiveSession: no game, or a game of the other mode.
	ErrNoActiveSession = errors.New("no active session")
	// ErrMalformedAction: the callback token could not be decoded. The game continues.
	ErrMalformedAction = action.ErrMalformedAction
	// ErrNonNumericGuess: the text was not an integer. Not counted as an attempt.
	ErrNonNumericGuess = errors.New("guess is not a number")
	// ErrOutOfRangeGuess: the integer was outside [1,100]. Not counted as an attempt.
	ErrOutOfRangeGuess = errors.New("guess out of range")
	// ErrAttemptsExhausted ends the game.
	ErrAttemptsExhausted = errors.New("attempts exhausted")
	// ErrContradictoryFeedback: the answers left no possible number. Ends the game.
	ErrContradictoryFeedback = errors.New("contradictory feedback")
)

// ErrorCode returns a stable snake_case name for a reply error, "ok" for nil.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoActiveSession):
		return "no_active_session"
	case errors.Is(err, ErrMalformedAction):
		return "malformed_action"
	case errors.Is(err, ErrNonNumericGuess):
		return "non_numeric_guess"
	case errors.Is(err, ErrOutOfRangeGuess):
		return "out_of_range_guess"
	case errors.Is(err, ErrAttemptsExhausted):
		return "attempts_exhausted"
	case errors.Is(err, ErrContradictoryFeedback):
		return "contradictory_feedback"
	default:
		return "error"
	}
}
