// Package client talks to the guessbot websocket gateway.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/guessbot/internal/game"
	"github.com/lox/guessbot/internal/protocol"
)

const writeWait = 10 * time.Second

// ErrClosed is returned when sending on a closed client.
var ErrClosed = errors.New("client closed")

// Message is one server message received by the client.
type Message struct {
	Type  protocol.MessageType
	Reply protocol.Reply
	Error protocol.Error
}

// IsError reports whether the server rejected a message.
func (m Message) IsError() bool {
	return m.Type == protocol.TypeError
}

// Client represents a websocket connection to the gateway for one user.
type Client struct {
	conn         *websocket.Conn
	logger       zerolog.Logger
	messages     chan Message
	writeMu      sync.Mutex
	closeOnce    sync.Once
	done         chan struct{}
	connectionID string
	userID       int64
}

// DialOption configures Dial.
type DialOption func(*protocol.Hello)

// WithToken presents token to a gateway that requires authentication.
func WithToken(token string) DialOption {
	return func(h *protocol.Hello) { h.Token = token }
}

// Dial connects to serverURL, identifies as user and waits for the welcome.
// serverURL may use http, https, ws or wss; the /ws path is added when missing.
func Dial(ctx context.Context, serverURL string, user game.User, logger zerolog.Logger, opts ...DialOption) (*Client, error) {
	wsURL, err := websocketURL(serverURL)
	if err != nil {
		return nil, err
	}

	logger = logger.With().Str("component", "client").Logger()
	logger.Info().Str("url", wsURL).Msg("Connecting to server")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &Client{
		conn:     conn,
		logger:   logger,
		messages: make(chan Message, 64),
		done:     make(chan struct{}),
	}

	hello := protocol.Hello{
		UserID:    user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
	}
	for _, opt := range opts {
		opt(&hello)
	}
	if err := c.write(protocol.TypeHello, hello); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	env, err := c.readEnvelope()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("waiting for welcome: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	switch env.Type {
	case protocol.TypeWelcome:
		var w protocol.Welcome
		if err := env.Decode(&w); err != nil {
			_ = conn.Close()
			return nil, err
		}
		c.connectionID = w.ConnectionID
		c.userID = w.UserID
	case protocol.TypeError:
		var e protocol.Error
		_ = env.Decode(&e)
		_ = conn.Close()
		return nil, fmt.Errorf("server rejected hello: %s: %s", e.Code, e.Message)
	default:
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected %s before welcome", env.Type)
	}

	c.logger.Info().Str("conn_id", c.connectionID).Msg("Connected to server")
	go c.readPump()
	return c, nil
}

func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	} else if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	}
	return u.String(), nil
}

// ConnectionID returns the id the server assigned to this connection.
func (c *Client) ConnectionID() string {
	return c.connectionID
}

// UserID returns the user id the server accepted, which an authenticating
// gateway may have replaced.
func (c *Client) UserID() int64 {
	return c.userID
}

// Messages returns the server messages. The channel is closed when the
// connection ends.
func (c *Client) Messages() <-chan Message {
	return c.messages
}

// Start opens the game menu.
func (c *Client) Start() error {
	return c.write(protocol.TypeStart, nil)
}

// Callback presses a button.
func (c *Client) Callback(token string) error {
	return c.write(protocol.TypeCallback, protocol.Callback{Token: token})
}

// Text sends a chat message.
func (c *Client) Text(text string) error {
	return c.write(protocol.TypeText, protocol.Text{Text: text})
}

// Close ends the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
		c.logger.Info().Msg("Disconnected from server")
	})
	return err
}

func (c *Client) write(t protocol.MessageType, payload any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	data, err := protocol.Marshal(t, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s: %w", t, err)
	}
	return nil
}

func (c *Client) readEnvelope() (protocol.Envelope, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return protocol.Envelope{}, err
	}
	return protocol.Unmarshal(data)
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer close(c.messages)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			switch {
			case errors.As(err, &closeErr):
				c.logger.Debug().Int("code", closeErr.Code).Msg("Server closed connection")
			case isClosed(c.done):
			default:
				c.logger.Error().Err(err).Msg("Failed to read message")
			}
			return
		}

		env, err := protocol.Unmarshal(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Dropping malformed message")
			continue
		}

		msg := Message{Type: env.Type}
		switch env.Type {
		case protocol.TypeMessage, protocol.TypeEdit:
			if err := env.Decode(&msg.Reply); err != nil {
				c.logger.Warn().Err(err).Msg("Dropping malformed reply")
				continue
			}
		case protocol.TypeError:
			if err := env.Decode(&msg.Error); err != nil {
				c.logger.Warn().Err(err).Msg("Dropping malformed error")
				continue
			}
		default:
			c.logger.Debug().Str("type", env.Type.String()).Msg("Ignoring message")
			continue
		}

		select {
		case c.messages <- msg:
		case <-c.done:
			return
		}
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
