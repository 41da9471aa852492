// Package metrics exports game activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/guessbot/internal/game"
)

const namespace = "guessbot"

// Monitor implements game.Monitor on top of Prometheus collectors.
type Monitor struct {
	eventsTotal   *prometheus.CounterVec
	gamesStarted  *prometheus.CounterVec
	gamesEnded    *prometheus.CounterVec
	gameAttempts  *prometheus.HistogramVec
	gameDuration  *prometheus.HistogramVec
	recordsBroken *prometheus.CounterVec
}

var _ game.Monitor = (*Monitor)(nil)

// NewMonitor creates the collectors and registers them with reg.
func NewMonitor(reg prometheus.Registerer) *Monitor {
	m := &Monitor{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Inbound events handled, by type and result",
			},
			[]string{"type", "result"},
		),
		gamesStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "games_started_total",
				Help:      "Games started, by mode",
			},
			[]string{"mode"},
		),
		gamesEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "games_ended_total",
				Help:      "Games ended, by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		gameAttempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "game_attempts",
				Help:      "Attempts used by won games",
				Buckets:   prometheus.LinearBuckets(1, 1, 10),
			},
			[]string{"mode"},
		),
		gameDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "game_duration_seconds",
				Help:      "Wall time from game start to end",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"mode", "outcome"},
		),
		recordsBroken: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "New records set, by mode",
			},
			[]string{"mode"},
		),
	}

	reg.MustRegister(
		m.eventsTotal,
		m.gamesStarted,
		m.gamesEnded,
		m.gameAttempts,
		m.gameDuration,
		m.recordsBroken,
	)
	return m
}

// RegisterActiveSessions exports the current number of sessions.
func RegisterActiveSessions(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Games currently in progress",
		},
		func() float64 { return float64(count()) },
	))
}

// Handler serves the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (m *Monitor) OnEvent(et game.EventType, err error) {
	m.eventsTotal.WithLabelValues(et.String(), game.ErrorCode(err)).Inc()
}

func (m *Monitor) OnGameStart(mode game.Mode) {
	m.gamesStarted.WithLabelValues(mode.String()).Inc()
}

func (m *Monitor) OnGameEnd(mode game.Mode, outcome game.Outcome, attempts int, duration time.Duration) {
	m.gamesEnded.WithLabelValues(mode.String(), string(outcome)).Inc()
	m.gameDuration.WithLabelValues(mode.String(), string(outcome)).Observe(duration.Seconds())
	if outcome == game.OutcomeWon {
		m.gameAttempts.WithLabelValues(mode.String()).Observe(float64(attempts))
	}
}

func (m *Monitor) OnRecord(mode game.Mode, _ int) {
	m.recordsBroken.WithLabelValues(mode.String()).Inc()
}
