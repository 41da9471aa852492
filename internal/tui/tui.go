// Package tui is a terminal chat window for the guessbot gateway. It shows
// the bot's messages, renders inline buttons and sends typed guesses.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/lox/guessbot/internal/action"
	"github.com/lox/guessbot/internal/client"
	"github.com/lox/guessbot/internal/protocol"
)

const startCommand = "/start"

// Sender delivers user input to the gateway. *client.Client implements it.
type Sender interface {
	Start() error
	Callback(token string) error
	Text(text string) error
}

// ServerMsg wraps a message received from the gateway.
type ServerMsg client.Message

// DisconnectedMsg is sent when the gateway connection ends.
type DisconnectedMsg struct{}

type sendResultMsg struct{ err error }

type entry struct {
	text  string
	style lipgloss.Style
}

// Model is the Bubble Tea model of the chat window.
type Model struct {
	sender   Sender
	messages <-chan client.Message
	logger   zerolog.Logger
	title    string

	logViewport viewport.Model
	input       textinput.Model

	entries  []entry
	lastBot  int // last message with buttons, replaced by edits; -1 if none
	buttons  []action.Button
	selected int

	width        int
	height       int
	quitting     bool
	disconnected bool
}

// NewModel creates a chat window. messages is typically client.Messages().
func NewModel(sender Sender, messages <-chan client.Message, title string, logger zerolog.Logger) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "Type a number or /start. Keys 1-3 or left/right and enter press buttons."
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 60
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.Prompt = "> "

	return &Model{
		sender:      sender,
		messages:    messages,
		logger:      logger.With().Str("component", "tui").Logger(),
		title:       title,
		logViewport: vp,
		input:       ti,
		lastBot:     -1,
	}
}

// Init starts listening to the gateway and sends /start.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listen(), m.send(startCommand, m.sender.Start))
}

// listen waits for the next gateway message.
func (m *Model) listen() tea.Cmd {
	ch := m.messages
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return DisconnectedMsg{}
		}
		return ServerMsg(msg)
	}
}

// send echoes the user's input and runs fn in a command.
func (m *Model) send(echo string, fn func() error) tea.Cmd {
	if echo != "" {
		m.appendEntry(entry{text: "> " + echo, style: UserStyle})
	}
	return func() tea.Msg {
		return sendResultMsg{err: fn()}
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ServerMsg:
		m.handleServer(client.Message(msg))
		cmds = append(cmds, m.listen())

	case DisconnectedMsg:
		m.disconnected = true
		m.buttons = nil
		m.appendEntry(entry{text: "Disconnected from server. Press esc to quit.", style: ErrorStyle})

	case sendResultMsg:
		if msg.err != nil {
			m.logger.Error().Err(msg.err).Msg("Failed to send")
			m.appendEntry(entry{text: "Send failed: " + msg.err.Error(), style: ErrorStyle})
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if cmd := m.submit(); cmd != nil {
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		case "left":
			if m.input.Value() == "" && len(m.buttons) > 0 {
				m.selected = (m.selected + len(m.buttons) - 1) % len(m.buttons)
				return m, nil
			}
		case "right", "tab":
			if m.input.Value() == "" && len(m.buttons) > 0 {
				m.selected = (m.selected + 1) % len(m.buttons)
				return m, nil
			}
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			if i := int(msg.Runes[0] - '1'); m.input.Value() == "" && i < len(m.buttons) && !m.disconnected {
				return m, m.press(m.buttons[i])
			}
		case "pgup":
			m.logViewport.HalfPageUp()
		case "pgdown":
			m.logViewport.HalfPageDown()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit sends the typed text, or presses the selected button when the
// input is empty.
func (m *Model) submit() tea.Cmd {
	if m.disconnected {
		return nil
	}

	text := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	switch {
	case text == startCommand:
		return m.send(text, m.sender.Start)
	case text != "":
		return m.send(text, func() error { return m.sender.Text(text) })
	case len(m.buttons) > 0:
		return m.press(m.buttons[m.selected])
	default:
		return nil
	}
}

func (m *Model) press(b action.Button) tea.Cmd {
	return m.send("["+b.Label+"]", func() error { return m.sender.Callback(b.Token) })
}

func (m *Model) handleServer(msg client.Message) {
	switch msg.Type {
	case protocol.TypeError:
		m.logger.Warn().Str("code", msg.Error.Code).Msg("Server error")
		m.appendEntry(entry{text: msg.Error.Message, style: ErrorStyle})
		return

	case protocol.TypeEdit:
		if m.lastBot >= 0 {
			m.entries[m.lastBot] = entry{text: msg.Reply.Text, style: replyStyle(msg.Reply)}
			m.refresh()
		} else {
			m.appendBot(msg.Reply)
		}

	default:
		m.appendBot(msg.Reply)
	}

	m.buttons = msg.Reply.Buttons
	m.selected = 0
}

func (m *Model) appendBot(r protocol.Reply) {
	m.appendEntry(entry{text: r.Text, style: replyStyle(r)})
	if len(r.Buttons) > 0 {
		m.lastBot = len(m.entries) - 1
	}
}

func replyStyle(r protocol.Reply) lipgloss.Style {
	if r.Code != "" {
		return ErrorStyle
	}
	return BotStyle
}

func (m *Model) appendEntry(e entry) {
	m.entries = append(m.entries, e)
	m.refresh()
}

func (m *Model) refresh() {
	lines := make([]string, len(m.entries))
	for i, e := range m.entries {
		lines[i] = e.style.Render(e.text)
	}
	m.logViewport.SetContent(strings.Join(lines, "\n"))
	m.logViewport.GotoBottom()
}

// Transcript returns the plain text of the chat log.
func (m *Model) Transcript() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.text
	}
	return out
}

// Buttons returns the buttons currently shown.
func (m *Model) Buttons() []action.Button {
	return m.buttons
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	// Don't render until we have valid dimensions
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	header := HeaderStyle.Render(m.title)
	buttons := m.renderButtons()
	input := m.input.View()

	logHeight := m.height - lipgloss.Height(header) - lipgloss.Height(buttons) - lipgloss.Height(input) - 2
	if logHeight < 1 {
		logHeight = 1
	}
	logWidth := m.width - 2
	if logWidth < 1 {
		logWidth = 1
	}
	m.logViewport.Width = logWidth
	m.logViewport.Height = logHeight

	logPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(logWidth).
		Height(logHeight).
		Render(m.logViewport.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, logPane, buttons, input)
}

func (m *Model) renderButtons() string {
	if len(m.buttons) == 0 {
		return InfoStyle.Render("(no buttons)")
	}
	rendered := make([]string, len(m.buttons))
	for i, b := range m.buttons {
		style := ButtonStyle
		if i == m.selected {
			style = SelectedButtonStyle
		}
		rendered[i] = style.Render(b.Label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
