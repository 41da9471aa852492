package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/guessbot/internal/action"
	"github.com/lox/guessbot/internal/guess"
	"github.com/lox/guessbot/internal/randutil"
	"github.com/lox/guessbot/internal/records"
	"github.com/lox/guessbot/internal/session"
)

// Controller runs the game state machine for every user.
type Controller struct {
	store       *session.Store
	records     *records.Tracker
	rng         guess.Intner
	clock       quartz.Clock
	monitor     Monitor
	logger      zerolog.Logger
	maxAttempts int
}

// Option configures a Controller.
type Option func(*Controller)

// WithRand sets the random source for secrets and agent guesses. It must be
// safe for concurrent use; wrap a *rand.Rand in randutil.Locked.
func WithRand(r guess.Intner) Option {
	return func(c *Controller) { c.rng = r }
}

// WithClock sets the clock used to time games.
func WithClock(clock quartz.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithMonitor sets the monitor notified about games.
func WithMonitor(m Monitor) Option {
	return func(c *Controller) { c.monitor = m }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger.With().Str("component", "controller").Logger() }
}

// WithMaxAttempts sets the number of guesses allowed in guess_bot.
func WithMaxAttempts(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// NewController creates a controller over the given store and tracker.
func NewController(store *session.Store, tracker *records.Tracker, opts ...Option) *Controller {
	c := &Controller{
		store:       store,
		records:     tracker,
		rng:         randutil.NewLocked(nil),
		clock:       quartz.NewReal(),
		monitor:     NullMonitor{},
		logger:      zerolog.Nop(),
		maxAttempts: session.DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the session store.
func (c *Controller) Store() *session.Store {
	return c.store
}

// Records returns the record tracker.
func (c *Controller) Records() *records.Tracker {
	return c.records
}

// Handle processes one event and returns the reply to deliver. A nil event
// gets the no-session reply.
func (c *Controller) Handle(ev Event) Reply {
	var reply Reply
	switch e := ev.(type) {
	case nil:
		return send(textNoSession).withErr(ErrNoActiveSession)
	case Start:
		reply = c.handleStart(e)
	case ModeSelect:
		reply = c.handleModeSelect(e)
	case ViewRecords:
		reply = c.handleViewRecords(e)
	case TextGuess:
		reply = c.handleTextGuess(e)
	case ButtonAction:
		reply = c.handleButtonAction(e)
	}
	c.monitor.OnEvent(ev.EventType(), reply.Err)
	return reply
}

func (c *Controller) handleStart(e Start) Reply {
	c.logger.Info().Int64("user_id", e.From.ID).Msg("User opened the menu")
	return send(textMenu, action.MenuButtons()...)
}

func (c *Controller) handleViewRecords(e ViewRecords) Reply {
	c.logger.Debug().Int64("user_id", e.From.ID).Msg("Records requested")
	return edit(textRecords(c.records.Snapshot()))
}

func (c *Controller) handleModeSelect(e ModeSelect) Reply {
	unlock := c.store.Lock(e.From.ID)
	defer unlock()

	now := c.clock.Now()
	if prev, ok := c.store.Get(e.From.ID); ok {
		c.monitor.OnGameEnd(prev.Mode, OutcomeReplaced, prev.Attempts, now.Sub(prev.StartedAt))
	}

	gameID := newGameID()
	log := c.logger.With().
		Int64("user_id", e.From.ID).
		Str("mode", e.Mode.String()).
		Str("game_id", gameID).
		Logger()

	switch e.Mode {
	case ModeHumanPicks:
		s := session.NewHumanPicks(now)
		s.ID = gameID
		c.proposeNext(&s)
		c.store.Create(e.From.ID, s)
		c.monitor.OnGameStart(e.Mode)
		log.Info().
			Int("guess", s.LastGuess).
			Int("low", s.Low).
			Int("high", s.High).
			Msg("Game started")
		return edit(textHumanIntro+"\n\n"+textGuessPrompt(s.LastGuess), action.Buttons(s.LastGuess)...)

	case ModeAgentPicks:
		secret := session.MinNumber + c.rng.IntN(session.MaxNumber-session.MinNumber+1)
		s := session.NewAgentPicks(secret, c.maxAttempts, now)
		s.ID = gameID
		c.store.Create(e.From.ID, s)
		c.monitor.OnGameStart(e.Mode)
		log.Info().Int("secret", secret).Int("max_attempts", s.MaxAttempts).Msg("Game started")
		return edit(textAgentIntro(s.MaxAttempts))

	default:
		log.Warn().Msg("Unknown mode selected")
		return edit(textNoSession).withErr(ErrNoActiveSession)
	}
}

func (c *Controller) handleTextGuess(e TextGuess) Reply {
	unlock := c.store.Lock(e.From.ID)
	defer unlock()

	log := c.logger.With().Int64("user_id", e.From.ID).Logger()

	s, ok := c.store.Get(e.From.ID)
	if !ok || s.Mode != ModeAgentPicks {
		log.Warn().Msg("Text guess without a guess_bot game")
		return send(textNoModeChosen).withErr(ErrNoActiveSession)
	}
	log = log.With().Str("game_id", s.ID).Logger()

	n, err := strconv.Atoi(strings.TrimSpace(e.Text))
	if err != nil {
		log.Error().Str("text", e.Text).Msg("Guess is not a number")
		return send(textNonNumeric).withErr(ErrNonNumericGuess)
	}
	if n < session.MinNumber || n > session.MaxNumber {
		return send(textOutOfRange).withErr(ErrOutOfRangeGuess)
	}

	s.Attempts++
	if s.Attempts > s.MaxAttempts {
		return c.exhaust(e.From, s)
	}

	log.Info().Int("guess", n).Int("attempts", s.Attempts).Msg("Player guessed")

	switch {
	case n == s.Secret:
		c.store.Remove(e.From.ID)
		set := c.finish(e.From, s, OutcomeWon)
		return send(withRecord(textAgentWin(s.Secret, s.Attempts), set))
	case s.Attempts >= s.MaxAttempts:
		// The last allowed attempt missed.
		return c.exhaust(e.From, s)
	case n < s.Secret:
		c.store.Put(e.From.ID, s)
		return send(textGoHigher)
	default:
		c.store.Put(e.From.ID, s)
		return send(textGoLower)
	}
}

func (c *Controller) exhaust(u User, s session.GameSession) Reply {
	c.store.Remove(u.ID)
	c.finish(u, s, OutcomeExhausted)
	c.logger.Info().
		Int64("user_id", u.ID).
		Str("game_id", s.ID).
		Int("attempts", s.Attempts).
		Int("secret", s.Secret).
		Msg("Attempts exhausted")
	return send(textExhausted(s.MaxAttempts)).withErr(ErrAttemptsExhausted)
}

func (c *Controller) handleButtonAction(e ButtonAction) Reply {
	unlock := c.store.Lock(e.From.ID)
	defer unlock()

	log := c.logger.With().Int64("user_id", e.From.ID).Str("token", e.Token).Logger()

	s, ok := c.store.Get(e.From.ID)
	if !ok || s.Mode != ModeHumanPicks {
		log.Warn().Msg("Button press without a guess_human game")
		return edit(textNoSession).withErr(ErrNoActiveSession)
	}
	log = log.With().Str("game_id", s.ID).Logger()

	a, err := action.Decode(e.Token)
	if err != nil {
		log.Error().Err(err).Msg("Failed to decode action")
		return edit(textMalformed(err)).withErr(err)
	}
	if a.Number < session.MinNumber || a.Number > session.MaxNumber {
		err := fmt.Errorf("%w: %q: number outside %d..%d", ErrMalformedAction, e.Token, session.MinNumber, session.MaxNumber)
		log.Error().Err(err).Msg("Action number out of range")
		return edit(textMalformed(err)).withErr(err)
	}
	if a.Number != s.LastGuess {
		log.Debug().Int("last_guess", s.LastGuess).Msg("Answer refers to an earlier guess")
	}

	switch a.Kind {
	case action.KindCorrect:
		c.store.Remove(e.From.ID)
		set := c.finish(e.From, s, OutcomeWon)
		log.Info().Int("number", a.Number).Int("attempts", s.Attempts).Msg("Agent guessed the number")
		return edit(withRecord(textHumanWin(a.Number, s.Attempts), set))
	case action.KindHigher:
		s.Low, s.High = guess.Narrow(s.Low, s.High, a.Number, guess.Higher)
	case action.KindLower:
		s.Low, s.High = guess.Narrow(s.Low, s.High, a.Number, guess.Lower)
	}

	if !guess.Valid(s.Low, s.High) {
		c.store.Remove(e.From.ID)
		c.finish(e.From, s, OutcomeContradictory)
		log.Warn().Int("low", s.Low).Int("high", s.High).Msg("Contradictory feedback")
		return edit(textContradictory).withErr(ErrContradictoryFeedback)
	}

	c.proposeNext(&s)
	c.store.Put(e.From.ID, s)
	log.Info().
		Int("guess", s.LastGuess).
		Int("low", s.Low).
		Int("high", s.High).
		Int("attempts", s.Attempts).
		Msg("Agent guessed")
	return edit(textGuessPrompt(s.LastGuess), action.Buttons(s.LastGuess)...)
}

// newGameID returns a time-ordered id for a new game.
func newGameID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// proposeNext counts a new agent guess and picks it from the session's range.
func (c *Controller) proposeNext(s *session.GameSession) {
	s.Attempts++
	s.LastGuess = guess.Propose(c.rng, s.Low, s.High)
}

// finish reports the end of a game and, for wins, offers the result to
// the record tracker. It reports whether a new record was set.
func (c *Controller) finish(u User, s session.GameSession, outcome Outcome) bool {
	c.monitor.OnGameEnd(s.Mode, outcome, s.Attempts, c.clock.Now().Sub(s.StartedAt))
	if outcome != OutcomeWon {
		return false
	}
	if !c.records.TryRecord(s.Mode, s.Attempts, u.DisplayName()) {
		return false
	}
	c.monitor.OnRecord(s.Mode, s.Attempts)
	c.logger.Info().
		Str("holder", u.DisplayName()).
		Str("mode", s.Mode.String()).
		Int("attempts", s.Attempts).
		Msg("New record")
	return true
}

// IsTerminal reports whether err ended the player's game.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrAttemptsExhausted) || errors.Is(err, ErrContradictoryFeedback)
}
