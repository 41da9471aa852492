package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/guessbot/cmd/guessbot/shared"
	"github.com/lox/guessbot/internal/auth"
	"github.com/lox/guessbot/internal/config"
	"github.com/lox/guessbot/internal/server"
)

const shutdownTimeout = 5 * time.Second

// ServerCmd runs the websocket gateway
type ServerCmd struct {
	Config   string   `kong:"help='HCL config file (defaults apply when missing)'"`
	EnvFile  []string `kong:"name='env-file',default='.env',help='dotenv files to load'"`
	Addr     string   `kong:"help='Server address (overrides config)'"`
	Seed     *int64   `kong:"help='Deterministic RNG seed (overrides config)'"`
	Debug    bool     `kong:"help='Enable debug logging'"`
	JSONLogs bool     `kong:"name='json-logs',help='Log as JSON instead of console output'"`
}

func (c *ServerCmd) Run() error {
	logger := shared.NewLogger(c.Debug, c.JSONLogs)

	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	addr := cfg.Server.Address
	if c.Addr != "" {
		addr = c.Addr
	}

	if err := config.LoadDotEnv(c.EnvFile...); err != nil {
		return err
	}

	rt := newRuntime(cfg, c.Seed, logger)
	opts := []server.Option{
		server.WithRegistry(rt.registry),
		server.WithRateLimit(cfg.Limits.EventsPerSecond, cfg.Limits.Burst),
	}
	if cfg.Server.AuthURL != "" {
		authEnv, err := config.ParseAuthEnv()
		if err != nil {
			return err
		}
		logger.Info().Str("auth_url", cfg.Server.AuthURL).Msg("Hello tokens are validated")
		opts = append(opts, server.WithAuth(auth.NewHTTPValidator(cfg.Server.AuthURL, authEnv.Secret)))
	}
	s := server.NewServer(logger, rt.controller, opts...)

	logger.Info().
		Str("address", addr).
		Float64("events_per_second", cfg.Limits.EventsPerSecond).
		Int("burst", cfg.Limits.Burst).
		Msg("Starting guessbot server")

	g, ctx := errgroup.WithContext(shared.SetupSignalHandlerWithLogger(logger))

	g.Go(func() error {
		if err := s.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
