// Package protocol defines the JSON messages exchanged with the websocket gateway.
package protocol

import (
	"github.com/goccy/go-json"

	"github.com/lox/guessbot/internal/action"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Client -> Server
	TypeHello    MessageType = "hello"
	TypeStart    MessageType = "start"
	TypeCallback MessageType = "callback"
	TypeText     MessageType = "text"

	// Server -> Client
	TypeWelcome MessageType = "welcome"
	TypeMessage MessageType = "message"
	TypeEdit    MessageType = "edit"
	TypeError   MessageType = "error"
)

func (mt MessageType) String() string {
	return string(mt)
}

// Envelope wraps every message on the wire.
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client -> Server Messages

// Hello identifies the chat user. It must be the first message on a connection.
type Hello struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Token     string `json:"token,omitempty"`
}

// Callback is a button press.
type Callback struct {
	Token string `json:"token"`
}

// Text is a free-text chat message.
type Text struct {
	Text string `json:"text"`
}

// Server -> Client Messages

// Welcome acknowledges Hello.
type Welcome struct {
	UserID       int64  `json:"user_id"`
	ConnectionID string `json:"connection_id"`
}

// Reply carries a game reply. It is sent as TypeMessage (a new message) or
// TypeEdit (replacing the message whose button was pressed).
type Reply struct {
	Text    string          `json:"text"`
	Buttons []action.Button `json:"buttons,omitempty"`

	// Code is the game error code, empty on success.
	Code string `json:"code,omitempty"`
}

// Error reports a protocol problem, not a game error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Protocol error codes.
const (
	CodeInvalidMessage    = "invalid_message"
	CodeNotIdentified     = "not_identified"
	CodeUnknownType       = "unknown_message_type"
	CodeRateLimited       = "rate_limited"
	CodeAlreadyIdentified = "already_identified"
	CodeUnauthorized      = "unauthorized"
	CodeAuthUnavailable   = "auth_unavailable"
	CodeInternal          = "internal_error"
)
