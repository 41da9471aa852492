package game

import "github.com/lox/guessbot/internal/action"

// Method says how a gateway should deliver a reply.
type Method int

const (
	// MethodSend posts a new message.
	MethodSend Method = iota
	// MethodEdit replaces the message whose button produced the event.
	MethodEdit
)

func (m Method) String() string {
	if m == MethodEdit {
		return "edit"
	}
	return "send"
}

// Reply is the controller's answer to one event.
type Reply struct {
	Method  Method
	Text    string
	Buttons []action.Button

	// Err is the recovered error behind an error reply, nil otherwise.
	Err error
}

func send(text string, buttons ...action.Button) Reply {
	return Reply{Method: MethodSend, Text: text, Buttons: buttons}
}

func edit(text string, buttons ...action.Button) Reply {
	return Reply{Method: MethodEdit, Text: text, Buttons: buttons}
}

func (r Reply) withErr(err error) Reply {
	r.Err = err
	return r
}
