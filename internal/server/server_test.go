package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/guessbot/internal/action"
	"github.com/lox/guessbot/internal/auth"
	"github.com/lox/guessbot/internal/game"
	"github.com/lox/guessbot/internal/metrics"
	"github.com/lox/guessbot/internal/protocol"
	"github.com/lox/guessbot/internal/records"
	"github.com/lox/guessbot/internal/session"
)

// fixedRand always returns the same offset, clamped to the requested range.
type fixedRand struct{ n int }

func (f fixedRand) IntN(n int) int {
	if f.n >= n {
		return n - 1
	}
	return f.n
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	clock := quartz.NewMock(t)
	controller := game.NewController(
		session.NewStore(),
		records.NewTracker(records.HolderFirst, clock),
		game.WithClock(clock),
		game.WithRand(fixedRand{n: 41}),
	)
	srv := NewServer(zerolog.Nop(), controller, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func write(t *testing.T, conn *websocket.Conn, mt protocol.MessageType, payload any) {
	t.Helper()
	data, err := protocol.Marshal(mt, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func read(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	env, err := protocol.Unmarshal(data)
	require.NoError(t, err)
	return env
}

func readReply(t *testing.T, conn *websocket.Conn, want protocol.MessageType) protocol.Reply {
	t.Helper()
	env := read(t, conn)
	require.Equal(t, want, env.Type)
	var r protocol.Reply
	require.NoError(t, env.Decode(&r))
	return r
}

func readError(t *testing.T, conn *websocket.Conn) protocol.Error {
	t.Helper()
	env := read(t, conn)
	require.Equal(t, protocol.TypeError, env.Type)
	var e protocol.Error
	require.NoError(t, env.Decode(&e))
	return e
}

func hello(t *testing.T, conn *websocket.Conn, id int64, username string) {
	t.Helper()
	write(t, conn, protocol.TypeHello, protocol.Hello{UserID: id, Username: username})
	env := read(t, conn)
	require.Equal(t, protocol.TypeWelcome, env.Type)
	var w protocol.Welcome
	require.NoError(t, env.Decode(&w))
	require.Equal(t, id, w.UserID)
	require.NotEmpty(t, w.ConnectionID)
}

func TestServerHealth(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRequiresHelloFirst(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)
	conn := dial(t, ts)

	write(t, conn, protocol.TypeStart, nil)
	assert.Equal(t, protocol.CodeNotIdentified, readError(t, conn).Code)

	hello(t, conn, 1, "alice")
	write(t, conn, protocol.TypeHello, protocol.Hello{UserID: 1})
	assert.Equal(t, protocol.CodeAlreadyIdentified, readError(t, conn).Code)
}

func TestInvalidMessages(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)
	conn := dial(t, ts)
	hello(t, conn, 1, "alice")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, protocol.CodeInvalidMessage, readError(t, conn).Code)

	write(t, conn, protocol.MessageType("dance"), nil)
	assert.Equal(t, protocol.CodeUnknownType, readError(t, conn).Code)

	write(t, conn, protocol.TypeCallback, nil)
	assert.Equal(t, protocol.CodeInvalidMessage, readError(t, conn).Code)
}

func TestAgentPicksOverWebsocket(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)
	conn := dial(t, ts)
	hello(t, conn, 7, "alice")

	write(t, conn, protocol.TypeStart, nil)
	menu := readReply(t, conn, protocol.TypeMessage)
	assert.Equal(t, "Choose a game mode:", menu.Text)
	assert.Equal(t, action.MenuButtons(), menu.Buttons)

	write(t, conn, protocol.TypeCallback, protocol.Callback{Token: string(action.MenuGuessBot)})
	intro := readReply(t, conn, protocol.TypeEdit)
	assert.Contains(t, intro.Text, "10 attempts")
	assert.Empty(t, intro.Code)

	write(t, conn, protocol.TypeText, protocol.Text{Text: "abc"})
	assert.Equal(t, "non_numeric_guess", readReply(t, conn, protocol.TypeMessage).Code)

	write(t, conn, protocol.TypeText, protocol.Text{Text: "50"})
	assert.Contains(t, readReply(t, conn, protocol.TypeMessage).Text, "lower")

	write(t, conn, protocol.TypeText, protocol.Text{Text: "42"})
	win := readReply(t, conn, protocol.TypeMessage)
	assert.Contains(t, win.Text, "guessed the number 42 in 2 attempts")
	assert.Contains(t, win.Text, "New record!")
	assert.Empty(t, win.Code)
}

func TestHumanPicksOverWebsocket(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)
	conn := dial(t, ts)
	hello(t, conn, 8, "bob")

	write(t, conn, protocol.TypeCallback, protocol.Callback{Token: string(action.MenuGuessHuman)})
	first := readReply(t, conn, protocol.TypeEdit)
	assert.Contains(t, first.Text, "My guess: 42.")
	require.Len(t, first.Buttons, 3)

	write(t, conn, protocol.TypeCallback, protocol.Callback{Token: first.Buttons[2].Token})
	done := readReply(t, conn, protocol.TypeEdit)
	assert.Contains(t, done.Text, "I guessed your number 42 in 1 attempts")

	write(t, conn, protocol.TypeCallback, protocol.Callback{Token: "higher_42"})
	assert.Equal(t, "no_active_session", readReply(t, conn, protocol.TypeEdit).Code)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, WithRateLimit(0.001, 2))
	conn := dial(t, ts)
	hello(t, conn, 9, "carol")

	write(t, conn, protocol.TypeStart, nil)
	readReply(t, conn, protocol.TypeMessage)
	write(t, conn, protocol.TypeStart, nil)
	readReply(t, conn, protocol.TypeMessage)

	write(t, conn, protocol.TypeStart, nil)
	assert.Equal(t, protocol.CodeRateLimited, readError(t, conn).Code)
}

func TestRecordsEndpoint(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)
	conn := dial(t, ts)
	hello(t, conn, 10, "dave")

	write(t, conn, protocol.TypeCallback, protocol.Callback{Token: string(action.MenuGuessBot)})
	readReply(t, conn, protocol.TypeEdit)
	write(t, conn, protocol.TypeText, protocol.Text{Text: "42"})
	readReply(t, conn, protocol.TypeMessage)

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]records.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body["guess_bot"].Set)
	assert.Equal(t, 1, body["guess_bot"].Attempts)
	assert.Equal(t, "dave", body["guess_bot"].Holder)
	assert.False(t, body["guess_human"].Set)
	assert.Equal(t, records.NoHolder, body["guess_human"].Holder)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	srv, _ := newTestServer(t, WithRegistry(reg))
	metrics.RegisterActiveSessions(reg, func() int { return 0 })

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "guessbot_active_sessions 0")
}

func TestConnectionCount(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)
	conn := dial(t, ts)
	hello(t, conn, 11, "erin")

	assert.Equal(t, 1, srv.ConnectionCount())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return srv.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLimiterPruneKeepsDepletedBuckets(t *testing.T) {
	t.Parallel()
	l := NewLimiter(0.001, 1)

	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))
	assert.True(t, l.Allow(2))
	assert.Equal(t, 2, l.Len())

	l.Prune()
	assert.Equal(t, 2, l.Len())
	assert.False(t, l.Allow(1))
}

func TestLimiterPruneDropsRefilledBuckets(t *testing.T) {
	t.Parallel()
	l := NewLimiter(1e6, 1)

	assert.True(t, l.Allow(1))
	assert.Eventually(t, func() bool {
		l.Prune()
		return l.Len() == 0
	}, time.Second, time.Millisecond)
}

type stubValidator map[string]*auth.Identity

func (v stubValidator) Validate(_ context.Context, token string) (*auth.Identity, error) {
	if token == "down" {
		return nil, auth.ErrUnavailable
	}
	id, ok := v[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return id, nil
}

func TestHelloAuthentication(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, WithAuth(stubValidator{
		"good": {UserID: 500, Username: "verified"},
	}))

	conn := dial(t, ts)
	write(t, conn, protocol.TypeHello, protocol.Hello{UserID: 1, Token: "forged"})
	assert.Equal(t, protocol.CodeUnauthorized, readError(t, conn).Code)

	write(t, conn, protocol.TypeHello, protocol.Hello{UserID: 1, Token: "down"})
	assert.Equal(t, protocol.CodeAuthUnavailable, readError(t, conn).Code)

	write(t, conn, protocol.TypeStart, nil)
	assert.Equal(t, protocol.CodeNotIdentified, readError(t, conn).Code)

	// The token's identity wins over the claimed one.
	write(t, conn, protocol.TypeHello, protocol.Hello{UserID: 1, Username: "mallory", Token: "good"})
	env := read(t, conn)
	require.Equal(t, protocol.TypeWelcome, env.Type)
	var w protocol.Welcome
	require.NoError(t, env.Decode(&w))
	assert.Equal(t, int64(500), w.UserID)
}

type explodingMonitor struct{ game.NullMonitor }

func (explodingMonitor) OnEvent(game.EventType, error) { panic("monitor exploded") }

func TestConnectionSurvivesControllerPanic(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	controller := game.NewController(
		session.NewStore(),
		records.NewTracker(records.HolderFirst, clock),
		game.WithClock(clock),
		game.WithMonitor(explodingMonitor{}),
	)
	ts := httptest.NewServer(NewServer(zerolog.Nop(), controller).Handler())
	t.Cleanup(ts.Close)

	conn := dial(t, ts)
	hello(t, conn, 12, "frank")

	write(t, conn, protocol.TypeStart, nil)
	assert.Equal(t, protocol.CodeInternal, readError(t, conn).Code)

	// The read loop is still running.
	write(t, conn, protocol.MessageType("dance"), nil)
	assert.Equal(t, protocol.CodeUnknownType, readError(t, conn).Code)
	write(t, conn, protocol.TypeStart, nil)
	assert.Equal(t, protocol.CodeInternal, readError(t, conn).Code)
}

func TestRateLimitSurvivesReconnect(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t, WithRateLimit(0.001, 2))

	conn := dial(t, ts)
	hello(t, conn, 13, "grace")
	for range 2 {
		write(t, conn, protocol.TypeStart, nil)
		readReply(t, conn, protocol.TypeMessage)
	}
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return srv.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	conn = dial(t, ts)
	hello(t, conn, 13, "grace")
	write(t, conn, protocol.TypeStart, nil)
	assert.Equal(t, protocol.CodeRateLimited, readError(t, conn).Code)
}
