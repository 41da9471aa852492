package game

import "github.com/lox/guessbot/internal/action"

// EventType identifies an inbound event.
type EventType string

const (
	EventTypeStart        EventType = "start"
	EventTypeModeSelect   EventType = "mode_select"
	EventTypeViewRecords  EventType = "view_records"
	EventTypeTextGuess    EventType = "text_guess"
	EventTypeButtonAction EventType = "button_action"
)

func (et EventType) String() string {
	return string(et)
}

// User identifies the chat user behind an event.
type User struct {
	ID        int64
	Username  string
	FirstName string
}

// DisplayName is the name stored with records: the username, then the
// first name, then "Unknown".
func (u User) DisplayName() string {
	switch {
	case u.Username != "":
		return u.Username
	case u.FirstName != "":
		return u.FirstName
	default:
		return "Unknown"
	}
}

// Event is one inbound interaction. The set of implementations is closed.
type Event interface {
	EventType() EventType
	Sender() User
	isEvent()
}

// Start opens the main menu.
type Start struct {
	From User
}

// ModeSelect starts a new game, replacing any unfinished one.
type ModeSelect struct {
	From User
	Mode Mode
}

// ViewRecords shows the best results of both modes.
type ViewRecords struct {
	From User
}

// TextGuess is a free-text message, interpreted as a guess in guess_bot.
type TextGuess struct {
	From User
	Text string
}

// ButtonAction is a Higher/Lower/Correct button press in guess_human.
type ButtonAction struct {
	From  User
	Token string
}

func (e Start) EventType() EventType        { return EventTypeStart }
func (e ModeSelect) EventType() EventType   { return EventTypeModeSelect }
func (e ViewRecords) EventType() EventType  { return EventTypeViewRecords }
func (e TextGuess) EventType() EventType    { return EventTypeTextGuess }
func (e ButtonAction) EventType() EventType { return EventTypeButtonAction }

func (e Start) Sender() User        { return e.From }
func (e ModeSelect) Sender() User   { return e.From }
func (e ViewRecords) Sender() User  { return e.From }
func (e TextGuess) Sender() User    { return e.From }
func (e ButtonAction) Sender() User { return e.From }

func (Start) isEvent()        {}
func (ModeSelect) isEvent()   {}
func (ViewRecords) isEvent()  {}
func (TextGuess) isEvent()    {}
func (ButtonAction) isEvent() {}

// EventFromCallback turns a raw callback token into the matching event.
// Tokens that are not menu entries become ButtonAction, which the
// controller decodes (and rejects if malformed).
func EventFromCallback(from User, token string) Event {
	switch action.Menu(token) {
	case action.MenuGuessHuman:
		return ModeSelect{From: from, Mode: ModeHumanPicks}
	case action.MenuGuessBot:
		return ModeSelect{From: from, Mode: ModeAgentPicks}
	case action.MenuViewRecords:
		return ViewRecords{From: from}
	default:
		return ButtonAction{From: from, Token: token}
	}
}
