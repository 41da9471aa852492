// Package telegram connects the game controller to the Telegram Bot API.
package telegram

import (
	"context"
	"runtime/debug"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/guessbot/internal/action"
	"github.com/lox/guessbot/internal/game"
)

const (
	startCommand      = "start"
	textInternalError = "Something went wrong. Start a new game with /start"
)

// API is the part of *tgbotapi.BotAPI the gateway uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Gateway long-polls updates and answers them through the controller.
type Gateway struct {
	api         API
	controller  *game.Controller
	logger      zerolog.Logger
	pollTimeout int
	workers     int
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(g *Gateway) {
		if seconds > 0 {
			g.pollTimeout = seconds
		}
	}
}

// WithWorkers bounds the number of updates handled concurrently.
func WithWorkers(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.workers = n
		}
	}
}

// NewGateway creates a gateway for api.
func NewGateway(api API, controller *game.Controller, logger zerolog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		api:         api,
		controller:  controller,
		logger:      logger.With().Str("component", "telegram").Logger(),
		pollTimeout: 60,
		workers:     16,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run handles updates until ctx is cancelled or the update channel closes.
func (g *Gateway) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = g.pollTimeout
	updates := g.api.GetUpdatesChan(cfg)

	g.logger.Info().Int("workers", g.workers).Msg("Polling for updates")

	eg := &errgroup.Group{}
	eg.SetLimit(g.workers)

loop:
	for {
		select {
		case <-ctx.Done():
			g.api.StopReceivingUpdates()
			break loop
		case update, ok := <-updates:
			if !ok {
				break loop
			}
			eg.Go(func() error {
				g.HandleUpdate(update)
				return nil
			})
		}
	}

	err := eg.Wait()
	g.logger.Info().Msg("Stopped polling")
	return err
}

// HandleUpdate answers one update. Transport errors are logged, never returned.
func (g *Gateway) HandleUpdate(update tgbotapi.Update) {
	ev, ok := EventFromUpdate(update)
	if !ok {
		return
	}

	log := g.logger.With().Int64("user_id", ev.Sender().ID).Str("event", ev.EventType().String()).Logger()

	if cq := update.CallbackQuery; cq != nil {
		if _, err := g.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			log.Warn().Err(err).Msg("Failed to answer callback query")
		}
	}

	reply, ok := g.dispatch(ev, log)
	if !ok {
		reply = game.Reply{Method: game.MethodSend, Text: textInternalError}
	}
	if reply.Err != nil {
		log.Debug().Err(reply.Err).Msg("Game error")
	}

	c, ok := ReplyChattable(update, reply)
	if !ok {
		log.Warn().Msg("No chat to reply to")
		return
	}
	if _, err := g.api.Send(c); err != nil {
		log.Error().Err(err).Msg("Failed to send reply")
	}
}

// dispatch runs ev through the controller, turning a panic into !ok so a
// worker never takes the bot down.
func (g *Gateway) dispatch(ev game.Event, log zerolog.Logger) (reply game.Reply, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic while handling update")
			ok = false
		}
	}()
	return g.controller.Handle(ev), true
}

// EventFromUpdate maps a Telegram update to a game event. Commands other
// than /start and updates without a sender are ignored.
func EventFromUpdate(update tgbotapi.Update) (game.Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil {
			return nil, false
		}
		return game.EventFromCallback(userFrom(cq.From), cq.Data), true
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil, false
	}
	from := userFrom(msg.From)

	if msg.IsCommand() {
		if msg.Command() == startCommand {
			return game.Start{From: from}, true
		}
		return nil, false
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil, false
	}
	return game.TextGuess{From: from, Text: msg.Text}, true
}

func userFrom(u *tgbotapi.User) game.User {
	return game.User{ID: u.ID, Username: u.UserName, FirstName: u.FirstName}
}

// ReplyChattable renders reply as a Telegram request answering update.
// Edits target the message carrying the pressed button and fall back to a
// new message when there is none.
func ReplyChattable(update tgbotapi.Update, reply game.Reply) (tgbotapi.Chattable, bool) {
	var chatID int64
	var editID int

	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		chatID = update.CallbackQuery.Message.Chat.ID
		editID = update.CallbackQuery.Message.MessageID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		chatID = update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.Chat != nil:
		chatID = update.Message.Chat.ID
	default:
		return nil, false
	}

	if reply.Method == game.MethodEdit && editID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, editID, reply.Text)
		if kb := keyboard(reply.Buttons); kb != nil {
			edit.ReplyMarkup = kb
		}
		return edit, true
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if kb := keyboard(reply.Buttons); kb != nil {
		msg.ReplyMarkup = *kb
	}
	return msg, true
}

// keyboard lays buttons out one per row.
func keyboard(buttons []action.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, len(buttons))
	for i, b := range buttons {
		rows[i] = tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Token))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}
