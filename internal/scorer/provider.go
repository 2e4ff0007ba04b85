package scorer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/baseline"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
)

// Provider hands out the baseline model used for scoring.
type Provider interface {
	Model(ctx context.Context) (baseline.Model, error)
}

// LoadFunc produces a model, typically by reading a persisted artifact.
type LoadFunc func(ctx context.Context) (baseline.Model, error)

// Static always returns the same model.
type Static struct {
	model baseline.Model
}

func NewStatic(m baseline.Model) *Static { return &Static{model: m} }

func (s *Static) Model(context.Context) (baseline.Model, error) {
	if s.model == nil {
		return nil, domain.ErrModelUnavailable
	}
	return s.model, nil
}

// DefaultLoadTimeout bounds a single model load.
const DefaultLoadTimeout = 30 * time.Second

// LazyProvider loads the model on first use and caches it. Concurrent first
// callers share a single load; a failed load is not cached, so the next call
// tries again. The shared load is detached from the cancellation of whichever
// caller started it and bounded by LoadTimeout instead.
type LazyProvider struct {
	LoadTimeout time.Duration

	load  LoadFunc
	group singleflight.Group
	model atomic.Pointer[modelRef]
}

type modelRef struct{ m baseline.Model }

func NewLazyProvider(load LoadFunc) *LazyProvider {
	return &LazyProvider{load: load, LoadTimeout: DefaultLoadTimeout}
}

// FromStore adapts an artifact store into a LoadFunc.
func FromStore(store baseline.ArtifactStore) LoadFunc {
	return func(ctx context.Context) (baseline.Model, error) {
		f, err := store.Load(ctx)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

func (p *LazyProvider) Model(ctx context.Context) (baseline.Model, error) {
	if ref := p.model.Load(); ref != nil {
		return ref.m, nil
	}
	v, err, _ := p.group.Do("model", func() (any, error) {
		if ref := p.model.Load(); ref != nil {
			return ref.m, nil
		}
		timeout := p.LoadTimeout
		if timeout <= 0 {
			timeout = DefaultLoadTimeout
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		m, err := p.load(loadCtx)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("loader returned no model")
		}
		p.model.Store(&modelRef{m: m})
		log.Info().Str("component", "scorer").Strs("features", m.Features()).Msg("baseline model loaded")
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	return v.(baseline.Model), nil
}

// Loaded reports whether a model is cached.
func (p *LazyProvider) Loaded() bool { return p.model.Load() != nil }
