// Package action encodes the button payloads carried by chat callbacks.
//
// Every agent guess is shown with three buttons. Each button's callback
// token carries both the answer and the number it answers, so a callback can
// be processed without remembering which message it came from:
//
//	higher_42  lower_42  correct_42
//
// The main menu uses the fixed tokens guess_human, guess_bot and view_records.
package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedAction is returned for tokens that are not "<kind>_<integer>".
var ErrMalformedAction = errors.New("malformed action")

// Kind is the player's answer to a proposed number.
type Kind int

const (
	KindHigher Kind = iota + 1
	KindLower
	KindCorrect
)

// String returns the token word for the kind.
func (k Kind) String() string {
	switch k {
	case KindHigher:
		return "higher"
	case KindLower:
		return "lower"
	case KindCorrect:
		return "correct"
	default:
		return "unknown"
	}
}

// Label is the button caption shown to the player.
func (k Kind) Label() string {
	switch k {
	case KindHigher:
		return "Higher"
	case KindLower:
		return "Lower"
	case KindCorrect:
		return "Correct"
	default:
		return "?"
	}
}

func kindFromString(s string) (Kind, bool) {
	switch s {
	case "higher":
		return KindHigher, true
	case "lower":
		return KindLower, true
	case "correct":
		return KindCorrect, true
	default:
		return 0, false
	}
}

// Action is a decoded button press.
type Action struct {
	Kind   Kind
	Number int
}

func (a Action) String() string {
	return Encode(a)
}

// Encode renders the callback token for a.
func Encode(a Action) string {
	return a.Kind.String() + "_" + strconv.Itoa(a.Number)
}

// Decode parses a token produced by Encode.
func Decode(token string) (Action, error) {
	parts := strings.Split(token, "_")
	if len(parts) != 2 {
		return Action{}, fmt.Errorf("%w: %q: want <kind>_<number>", ErrMalformedAction, token)
	}

	kind, ok := kindFromString(parts[0])
	if !ok {
		return Action{}, fmt.Errorf("%w: %q: unknown kind %q", ErrMalformedAction, token, parts[0])
	}

	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return Action{}, fmt.Errorf("%w: %q: %v", ErrMalformedAction, token, err)
	}
	if strconv.Itoa(n) != parts[1] {
		return Action{}, fmt.Errorf("%w: %q: number %q is not in canonical form", ErrMalformedAction, token, parts[1])
	}

	return Action{Kind: kind, Number: n}, nil
}

// Button is a labelled callback.
type Button struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Buttons returns the Higher/Lower/Correct buttons for a proposed number.
func Buttons(number int) []Button {
	kinds := []Kind{KindHigher, KindLower, KindCorrect}
	buttons := make([]Button, 0, len(kinds))
	for _, k := range kinds {
		buttons = append(buttons, Button{
			Label: k.Label(),
			Token: Encode(Action{Kind: k, Number: number}),
		})
	}
	return buttons
}
