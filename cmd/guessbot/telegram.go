package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/lox/guessbot/cmd/guessbot/shared"
	"github.com/lox/guessbot/internal/config"
	"github.com/lox/guessbot/internal/metrics"
	"github.com/lox/guessbot/internal/telegram"
)

// TelegramCmd runs the bot against the Telegram Bot API. The token comes
// from GUESSBOT_TELEGRAM_TOKEN, optionally loaded from a .env file.
type TelegramCmd struct {
	Config      string   `kong:"help='HCL config file (defaults apply when missing)'"`
	EnvFile     []string `kong:"name='env-file',default='.env',help='dotenv files to load'"`
	Seed        *int64   `kong:"help='Deterministic RNG seed (overrides config)'"`
	Workers     int      `kong:"default='16',help='Updates handled concurrently'"`
	MetricsAddr string   `kong:"name='metrics-addr',help='Serve /metrics on this address'"`
	Debug       bool     `kong:"help='Enable debug logging'"`
	JSONLogs    bool     `kong:"name='json-logs',help='Log as JSON instead of console output'"`
}

func (c *TelegramCmd) Run() error {
	logger := shared.NewLogger(c.Debug, c.JSONLogs)

	if err := config.LoadDotEnv(c.EnvFile...); err != nil {
		return err
	}
	env, err := config.ParseTelegramEnv()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}

	bot, err := tgbotapi.NewBotAPI(env.Token)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	bot.Debug = env.Debug
	logger.Info().Str("bot", bot.Self.UserName).Msg("Authorized on Telegram")

	rt := newRuntime(cfg, c.Seed, logger)
	gw := telegram.NewGateway(bot, rt.controller, logger,
		telegram.WithPollTimeout(env.PollTimeout),
		telegram.WithWorkers(c.Workers),
	)

	ctx, cancel := context.WithCancel(shared.SetupSignalHandlerWithLogger(logger))
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Polling only ends on shutdown; take the metrics listener down with it.
		defer cancel()
		return gw.Run(ctx)
	})

	if c.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(rt.registry))
		srv := &http.Server{Addr: c.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		g.Go(func() error {
			logger.Info().Str("addr", c.MetricsAddr).Msg("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
