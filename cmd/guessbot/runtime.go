package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/lox/guessbot/internal/config"
	"github.com/lox/guessbot/internal/game"
	"github.com/lox/guessbot/internal/metrics"
	"github.com/lox/guessbot/internal/randutil"
	"github.com/lox/guessbot/internal/records"
	"github.com/lox/guessbot/internal/session"
)

// runtime is the game core shared by the gateways.
type runtime struct {
	controller *game.Controller
	registry   *prometheus.Registry
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// newRuntime builds the controller and its metrics. seed overrides the
// configured seed when set.
func newRuntime(cfg *config.Config, seed *int64, logger zerolog.Logger) *runtime {
	if seed == nil {
		seed = cfg.Game.Seed
	}
	var s int64
	if seed != nil {
		s = *seed
		logger.Info().Int64("seed", s).Msg("Using deterministic seed")
	} else {
		s = time.Now().UnixNano()
		logger.Info().Int64("seed", s).Msg("Using random seed")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := session.NewStore()
	metrics.RegisterActiveSessions(reg, store.Len)

	controller := game.NewController(
		store,
		records.NewTracker(cfg.HolderPolicy(), nil),
		game.WithRand(randutil.NewLocked(&s)),
		game.WithMonitor(metrics.NewMonitor(reg)),
		game.WithLogger(logger),
		game.WithMaxAttempts(cfg.Game.MaxAttempts),
	)

	logger.Info().
		Int("max_attempts", cfg.Game.MaxAttempts).
		Str("holder_policy", string(cfg.HolderPolicy())).
		Msg("Game controller ready")

	return &runtime{controller: controller, registry: reg}
}
