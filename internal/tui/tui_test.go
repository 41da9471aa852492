package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/guessbot/internal/action"
	"github.com/lox/guessbot/internal/client"
	"github.com/lox/guessbot/internal/protocol"
)

type fakeSender struct {
	starts    int
	callbacks []string
	texts     []string
	err       error
}

func (f *fakeSender) Start() error {
	f.starts++
	return f.err
}

func (f *fakeSender) Callback(token string) error {
	f.callbacks = append(f.callbacks, token)
	return f.err
}

func (f *fakeSender) Text(text string) error {
	f.texts = append(f.texts, text)
	return f.err
}

func newTestModel(t *testing.T) (*Model, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	m := NewModel(sender, make(chan client.Message), "guessbot", zerolog.Nop())
	return m, sender
}

// run executes cmd and feeds its results back into the model.
func run(m *Model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			run(m, c)
		}
	default:
		m.Update(msg)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func reply(t protocol.MessageType, text string, buttons ...action.Button) ServerMsg {
	return ServerMsg(client.Message{Type: t, Reply: protocol.Reply{Text: text, Buttons: buttons}})
}

func TestPressSelectedButton(t *testing.T) {
	m, sender := newTestModel(t)

	m.Update(reply(protocol.TypeMessage, "Choose a game mode:", action.MenuButtons()...))
	require.Len(t, m.Buttons(), 3)

	m.Update(key("right"))
	_, cmd := m.Update(key("enter"))
	run(m, cmd)

	assert.Equal(t, []string{string(action.MenuGuessBot)}, sender.callbacks)
	assert.Contains(t, m.Transcript(), "> [You guess the bot's number]")
}

func TestLeftWrapsAround(t *testing.T) {
	m, sender := newTestModel(t)
	m.Update(reply(protocol.TypeMessage, "My guess: 50. Press a button:", action.Buttons(50)...))

	m.Update(key("left"))
	_, cmd := m.Update(key("enter"))
	run(m, cmd)

	assert.Equal(t, []string{"correct_50"}, sender.callbacks)
}

func TestTypedTextIsSent(t *testing.T) {
	m, sender := newTestModel(t)

	for _, r := range "42" {
		m.Update(key(string(r)))
	}
	_, cmd := m.Update(key("enter"))
	run(m, cmd)

	assert.Equal(t, []string{"42"}, sender.texts)
	assert.Empty(t, sender.callbacks)
	assert.Equal(t, []string{"> 42"}, m.Transcript())
}

func TestStartCommand(t *testing.T) {
	m, sender := newTestModel(t)

	for _, r := range "/start" {
		m.Update(key(string(r)))
	}
	_, cmd := m.Update(key("enter"))
	run(m, cmd)

	assert.Equal(t, 1, sender.starts)
	assert.Empty(t, sender.texts)
}

func TestEditReplacesButtonMessage(t *testing.T) {
	m, _ := newTestModel(t)

	m.Update(reply(protocol.TypeMessage, "Choose a game mode:", action.MenuButtons()...))
	m.Update(reply(protocol.TypeEdit, "My guess: 17. Press a button:", action.Buttons(17)...))

	assert.Equal(t, []string{"My guess: 17. Press a button:"}, m.Transcript())
	assert.Equal(t, action.Buttons(17), m.Buttons())

	m.Update(reply(protocol.TypeEdit, "I guessed your number 17 in 1 attempts!"))
	assert.Equal(t, []string{"I guessed your number 17 in 1 attempts!"}, m.Transcript())
	assert.Empty(t, m.Buttons())
}

func TestEditWithoutButtonMessageAppends(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(reply(protocol.TypeEdit, "Error: start a new game with /start"))
	assert.Equal(t, []string{"Error: start a new game with /start"}, m.Transcript())
}

func TestServerErrorShown(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(ServerMsg(client.Message{
		Type:  protocol.TypeError,
		Error: protocol.Error{Code: protocol.CodeRateLimited, Message: "too many events, slow down"},
	}))
	assert.Equal(t, []string{"too many events, slow down"}, m.Transcript())
}

func TestSendFailureShown(t *testing.T) {
	m, sender := newTestModel(t)
	sender.err = errors.New("broken pipe")

	for _, r := range "7" {
		m.Update(key(string(r)))
	}
	_, cmd := m.Update(key("enter"))
	run(m, cmd)

	assert.Equal(t, []string{"> 7", "Send failed: broken pipe"}, m.Transcript())
}

func TestDisconnectDisablesInput(t *testing.T) {
	m, sender := newTestModel(t)
	m.Update(reply(protocol.TypeMessage, "Choose a game mode:", action.MenuButtons()...))
	m.Update(DisconnectedMsg{})

	assert.Empty(t, m.Buttons())
	_, cmd := m.Update(key("enter"))
	run(m, cmd)
	assert.Empty(t, sender.callbacks)
}

func TestListenReportsDisconnect(t *testing.T) {
	ch := make(chan client.Message, 1)
	m := NewModel(&fakeSender{}, ch, "guessbot", zerolog.Nop())

	ch <- client.Message{Type: protocol.TypeMessage, Reply: protocol.Reply{Text: "hi"}}
	assert.Equal(t, ServerMsg(client.Message{Type: protocol.TypeMessage, Reply: protocol.Reply{Text: "hi"}}), m.listen()())

	close(ch)
	assert.Equal(t, DisconnectedMsg{}, m.listen()())
}

func TestViewBeforeSize(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Equal(t, "Loading...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Contains(t, m.View(), "guessbot")

	_, cmd := m.Update(key("esc"))
	require.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestNumberKeysPressButtons(t *testing.T) {
	m, sender := newTestModel(t)
	m.Update(reply(protocol.TypeMessage, "My guess: 30. Press a button:", action.Buttons(30)...))

	_, cmd := m.Update(key("2"))
	run(m, cmd)
	assert.Equal(t, []string{"lower_30"}, sender.callbacks)
	assert.Empty(t, sender.texts)

	// Out of range keys fall through to the input.
	m.Update(key("9"))
	assert.Len(t, sender.callbacks, 1)
}
