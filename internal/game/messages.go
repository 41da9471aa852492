package game

import (
	"fmt"
	"strings"

	"github.com/lox/guessbot/internal/action"
	"github.com/lox/guessbot/internal/records"
)

const (
	textMenu          = "Choose a game mode:"
	textHumanIntro    = "Think of a number from 1 to 100. I'll try to guess it! Press Higher or Lower to guide me."
	textNoSession     = "Error: start a new game with /start"
	textNoModeChosen  = "Choose a game mode with /start first"
	textNonNumeric    = "Send a number from 1 to 100!"
	textOutOfRange    = "Please send a number from 1 to 100!"
	textGoHigher      = "My number is higher! Try again."
	textGoLower       = "My number is lower! Try again."
	textContradictory = "Error: your answers contradict each other. Start a new game with /start"
	textNewRecord     = "New record!"
)

func textGuessPrompt(n int) string {
	return fmt.Sprintf("My guess: %d. Press a button:", n)
}

func textAgentIntro(maxAttempts int) string {
	return fmt.Sprintf("I've picked a number from 1 to 100. Try to guess it! Send me a number. You have %d attempts.", maxAttempts)
}

func textAgentWin(secret, attempts int) string {
	return fmt.Sprintf("Congratulations! You guessed the number %d in %d attempts! Use /start for a new game.", secret, attempts)
}

func textHumanWin(number, attempts int) string {
	return fmt.Sprintf("I guessed your number %d in %d attempts! Use /start for a new game.", number, attempts)
}

func textExhausted(maxAttempts int) string {
	return fmt.Sprintf("You have used all %d attempts. Start a new game with /start.", maxAttempts)
}

func textMalformed(err error) string {
	return fmt.Sprintf("Error: %v. Start a new game with /start", err)
}

func withRecord(text string, set bool) string {
	if !set {
		return text
	}
	return text + "\n" + textNewRecord
}

func textRecords(snapshot map[Mode]records.Entry) string {
	var b strings.Builder
	for i, m := range []Mode{ModeHumanPicks, ModeAgentPicks} {
		if i > 0 {
			b.WriteByte('\n')
		}
		e := snapshot[m]
		attempts := "not set"
		if e.Set {
			attempts = fmt.Sprintf("%d attempts", e.Attempts)
		}
		fmt.Fprintf(&b, "Record (%s): %s. Holder: @%s", action.Menu(m.String()).Label(), attempts, e.Holder)
	}
	return b.String()
}
