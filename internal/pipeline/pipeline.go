// Package pipeline drives the twin: each cycle takes the latest staged
// reading, scores it, folds the result into the health state and publishes
// the new snapshot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/staging"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/transport"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/twin"
)

const DefaultPublishTimeout = 5 * time.Second

// Scorer turns a raw reading into an anomaly result. On failure it still
// returns a well-formed, possibly degraded, result.
type Scorer interface {
	ScoreReading(ctx context.Context, raw domain.RawReading) (domain.AnomalyResult, error)
}

// Aggregator folds anomaly results into the health state.
type Aggregator interface {
	ApplyCycle(result domain.AnomalyResult, cycle string) twin.State
}

// Stats counts cycle outcomes since start.
type Stats struct {
	Cycles   int64 `json:"cycles"`
	Skipped  int64 `json:"skipped"`
	Degraded int64 `json:"degraded"`
	Panics   int64 `json:"panics"`
}

type Loop struct {
	slot      staging.Slot
	scorer    Scorer
	twin      Aggregator
	publisher transport.Publisher

	interval       time.Duration
	publishTimeout time.Duration

	cycles, skipped, degraded, panics atomic.Int64
}

func New(slot staging.Slot, scorer Scorer, tw Aggregator, publisher transport.Publisher, interval time.Duration) *Loop {
	if publisher == nil {
		publisher = transport.NewFanout()
	}
	return &Loop{
		slot:           slot,
		scorer:         scorer,
		twin:           tw,
		publisher:      publisher,
		interval:       interval,
		publishTimeout: DefaultPublishTimeout,
	}
}

// Run executes a cycle immediately and then once per interval. It only
// returns when ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	log.Info().Str("component", "pipeline").Dur("interval", l.interval).Msg("scoring loop started")

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		if _, err := l.RunCycle(ctx); err != nil && !errors.Is(err, staging.ErrNoReading) {
			log.Error().Str("component", "pipeline").Err(err).Msg("cycle failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Str("component", "pipeline").Msg("scoring loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle performs one acquire, score, aggregate, publish pass. When no
// reading is staged the cycle is skipped and staging.ErrNoReading returned.
// Scoring failures still produce a published snapshot built from the
// degraded result; the returned error reports what went wrong.
func (l *Loop) RunCycle(ctx context.Context) (state twin.State, err error) {
	cycle := uuid.NewString()
	logger := log.With().Str("component", "pipeline").Str("cycle", cycle).Logger()

	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("cycle panicked")
			err = fmt.Errorf("cycle %s panicked: %v", cycle, r)
		}
	}()
	l.cycles.Add(1)

	raw, err := l.slot.Latest(ctx)
	var result domain.AnomalyResult
	switch {
	case errors.Is(err, staging.ErrNoReading):
		l.skipped.Add(1)
		logger.Debug().Msg("no reading staged")
		return twin.State{}, err
	case err != nil:
		if !domain.IsInvalidInput(err) {
			l.skipped.Add(1)
			return twin.State{}, fmt.Errorf("acquire reading: %w", err)
		}
		result = domain.NeutralResult(domain.DetailsInvalidInput, err)
	default:
		result, err = l.scorer.ScoreReading(ctx, raw)
	}

	if result.Degraded() {
		l.degraded.Add(1)
		logger.Warn().Str("details", result.Details).Str("error", result.Error).Msg("degraded result")
	}

	state = l.twin.ApplyCycle(result, cycle)
	logger.Info().
		Int("overall_health", state.OverallHealth).
		Int("model_health", result.HealthScore).
		Str("status", result.Status).
		Msg("cycle complete")

	pubCtx, cancel := context.WithTimeout(ctx, l.publishTimeout)
	defer cancel()
	// delivery is best-effort and never fails a cycle
	if perr := l.publisher.Publish(pubCtx, state); perr != nil {
		logger.Debug().Err(perr).Msg("snapshot not delivered everywhere")
	}

	return state, err
}

func (l *Loop) Stats() Stats {
	return Stats{
		Cycles:   l.cycles.Load(),
		Skipped:  l.skipped.Load(),
		Degraded: l.degraded.Load(),
		Panics:   l.panics.Load(),
	}
}
