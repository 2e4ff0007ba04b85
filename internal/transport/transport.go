// Package transport pushes published twin snapshots to observers. Delivery
// is best-effort: a failing sink is logged and never stalls the pipeline.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/twin"
)

// Publisher delivers one snapshot to a sink.
type Publisher interface {
	Publish(ctx context.Context, s twin.State) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, s twin.State) error

func (f PublisherFunc) Publish(ctx context.Context, s twin.State) error { return f(ctx, s) }

type sink struct {
	name string
	pub  Publisher
}

// Fanout publishes every snapshot to each registered sink in turn. Publishes
// are serialised and a snapshot older than one already delivered is dropped,
// so sinks never see the twin go back in time.
type Fanout struct {
	sinks []sink

	mu   sync.Mutex
	last uint64
}

var _ Publisher = (*Fanout)(nil)

func NewFanout() *Fanout { return &Fanout{} }

// Add registers a sink. Not safe to call once publishing has started.
func (f *Fanout) Add(name string, p Publisher) *Fanout {
	f.sinks = append(f.sinks, sink{name: name, pub: p})
	return f
}

func (f *Fanout) Len() int { return len(f.sinks) }

// Publish tries every sink. Failures are wrapped as *domain.TransportError,
// logged, and joined into the returned error.
func (f *Fanout) Publish(ctx context.Context, s twin.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.Seq < f.last {
		log.Debug().Str("component", "transport").Uint64("seq", s.Seq).Uint64("last", f.last).Msg("stale snapshot dropped")
		return nil
	}
	f.last = s.Seq

	var errs []error
	for _, sk := range f.sinks {
		if err := sk.pub.Publish(ctx, s); err != nil {
			terr := &domain.TransportError{Sink: sk.name, Err: err}
			log.Warn().Str("component", "transport").Str("sink", sk.name).Err(err).Msg("publish failed")
			errs = append(errs, terr)
		}
	}
	return errors.Join(errs...)
}
