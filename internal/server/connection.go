package server

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/guessbot/internal/auth"
	"github.com/lox/guessbot/internal/game"
	"github.com/lox/guessbot/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	sendBufferSize = 256
)

// ErrConnectionClosed is returned when sending on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// Connection is one websocket client of the gateway.
type Connection struct {
	ID string

	conn      *websocket.Conn
	server    *Server
	send      chan []byte
	logger    zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	user      game.User
	hello     bool
	closeOnce sync.Once
}

// NewConnection wraps an upgraded websocket.
func NewConnection(conn *websocket.Conn, s *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	return &Connection{
		ID:     id,
		conn:   conn,
		server: s,
		send:   make(chan []byte, sendBufferSize),
		logger: s.logger.With().Str("conn_id", id).Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// User returns the identified user, if hello has been received.
func (c *Connection) User() (game.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user, c.hello
}

func (c *Connection) setUser(u game.User) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hello {
		return false
	}
	c.user = u
	c.hello = true
	return true
}

func (c *Connection) enqueue(t protocol.MessageType, payload any) error {
	data, err := protocol.Marshal(t, payload)
	if err != nil {
		return err
	}

	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn().Msg("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

func (c *Connection) sendError(code, message string) {
	if err := c.enqueue(protocol.TypeError, protocol.Error{Code: code, Message: message}); err != nil {
		c.logger.Debug().Err(err).Str("code", code).Msg("Failed to send error")
	}
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() {
		c.server.unregister(c)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("WebSocket error")
			}
			return
		}

		env, err := protocol.Unmarshal(data)
		if err != nil {
			c.sendError(protocol.CodeInvalidMessage, err.Error())
			continue
		}
		c.handleMessage(env)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error().Err(err).Msg("Failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// handleMessage processes one envelope from the client
func (c *Connection) handleMessage(env protocol.Envelope) {
	c.logger.Debug().Str("type", env.Type.String()).Msg("Received message")

	if env.Type == protocol.TypeHello {
		c.handleHello(env)
		return
	}

	user, ok := c.User()
	if !ok {
		c.sendError(protocol.CodeNotIdentified, "send hello first")
		return
	}

	var ev game.Event
	switch env.Type {
	case protocol.TypeStart:
		ev = game.Start{From: user}

	case protocol.TypeCallback:
		var data protocol.Callback
		if err := env.Decode(&data); err != nil {
			c.sendError(protocol.CodeInvalidMessage, err.Error())
			return
		}
		ev = game.EventFromCallback(user, data.Token)

	case protocol.TypeText:
		var data protocol.Text
		if err := env.Decode(&data); err != nil {
			c.sendError(protocol.CodeInvalidMessage, err.Error())
			return
		}
		ev = game.TextGuess{From: user, Text: data.Text}

	default:
		c.sendError(protocol.CodeUnknownType, "unknown message type: "+env.Type.String())
		return
	}

	if lim := c.server.limiter; lim != nil && !lim.Allow(user.ID) {
		c.logger.Warn().Int64("user_id", user.ID).Msg("Rate limited")
		c.sendError(protocol.CodeRateLimited, "too many events, slow down")
		return
	}

	reply, ok := c.dispatch(ev)
	if !ok {
		c.sendError(protocol.CodeInternal, "internal error, start a new game with /start")
		return
	}
	c.deliver(reply)
}

// dispatch runs ev through the controller. A panic is logged and reported
// as !ok so one bad event cannot stop the read loop.
func (c *Connection) dispatch(ev game.Event) (reply game.Reply, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Int64("user_id", ev.Sender().ID).
				Msg("Recovered from panic while handling event")
			ok = false
		}
	}()
	return c.server.controller.Handle(ev), true
}

func (c *Connection) handleHello(env protocol.Envelope) {
	var data protocol.Hello
	if err := env.Decode(&data); err != nil {
		c.sendError(protocol.CodeInvalidMessage, err.Error())
		return
	}

	if _, ok := c.User(); ok {
		c.sendError(protocol.CodeAlreadyIdentified, "hello already received")
		return
	}

	u := game.User{ID: data.UserID, Username: data.Username, FirstName: data.FirstName}
	if v := c.server.validator; v != nil {
		id, err := v.Validate(c.ctx, data.Token)
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			c.logger.Warn().Int64("claimed_user_id", data.UserID).Msg("Rejected hello token")
			c.sendError(protocol.CodeUnauthorized, "invalid token")
			return
		case err != nil:
			c.logger.Error().Err(err).Msg("Auth service unavailable")
			c.sendError(protocol.CodeAuthUnavailable, "cannot verify token, try again later")
			return
		case id != nil:
			u = game.User{ID: id.UserID, Username: id.Username, FirstName: id.FirstName}
		}
	}

	if !c.setUser(u) {
		c.sendError(protocol.CodeAlreadyIdentified, "hello already received")
		return
	}

	c.logger.Info().Int64("user_id", u.ID).Str("name", u.DisplayName()).Msg("User identified")

	if err := c.enqueue(protocol.TypeWelcome, protocol.Welcome{UserID: u.ID, ConnectionID: c.ID}); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to send welcome")
	}
}

func (c *Connection) deliver(reply game.Reply) {
	t := protocol.TypeMessage
	if reply.Method == game.MethodEdit {
		t = protocol.TypeEdit
	}

	msg := protocol.Reply{Text: reply.Text, Buttons: reply.Buttons}
	if reply.Err != nil {
		msg.Code = game.ErrorCode(reply.Err)
	}

	if err := c.enqueue(t, msg); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to deliver reply")
	}
}
