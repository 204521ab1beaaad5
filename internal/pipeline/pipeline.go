package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/quake-alert/internal/domain"
	"github.com/couchcryptid/quake-alert/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Extractor reads raw payloads from one upstream feed. Extract blocks until a
// payload arrives or ctx ends; an error means the transport failed and the
// next call should reconnect or refetch.
type Extractor interface {
	Name() string
	Extract(ctx context.Context) (domain.RawPayload, error)
}

// Dispatcher accepts alerts without blocking.
type Dispatcher interface {
	Dispatch(alert domain.Alert) bool
}

// Pipeline runs one ingestion loop per feed and hands composed alerts to the
// dispatcher. Feeds never wait on each other or on the sinks.
type Pipeline struct {
	extractors []Extractor
	processor  *Processor
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock
	backoff    time.Duration
	ready      atomic.Bool
}

// New creates a Pipeline. backoff is the fixed wait between a transport error
// and the next attempt on the same feed.
func New(extractors []Extractor, processor *Processor, dispatcher Dispatcher, logger *slog.Logger, metrics *observability.Metrics, backoff time.Duration) *Pipeline {
	return &Pipeline{
		extractors: extractors,
		processor:  processor,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		clock:      clockwork.NewRealClock(),
		backoff:    backoff,
	}
}

// WithClock swaps the clock used for retry waits. Intended for tests.
func (p *Pipeline) WithClock(c clockwork.Clock) *Pipeline {
	p.clock = c
	return p
}

// CheckReadiness returns nil once any payload has been processed,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no feed payload has been processed yet")
	}
	return nil
}

// Ready reports whether any payload has been processed.
func (p *Pipeline) Ready() bool { return p.ready.Load() }

// Run starts every feed loop and blocks until ctx is cancelled and all loops
// have returned.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "feeds", len(p.extractors), "backoff", p.backoff)

	var wg sync.WaitGroup
	for _, ext := range p.extractors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.metrics.FeedsRunning.Inc()
			defer p.metrics.FeedsRunning.Dec()
			p.runFeed(ctx, ext)
		}()
	}
	wg.Wait()

	p.logger.Info("pipeline stopped", "reason", ctx.Err())
	return nil
}

func (p *Pipeline) runFeed(ctx context.Context, ext Extractor) {
	name := ext.Name()
	for {
		raw, err := ext.Extract(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.metrics.FeedErrors.WithLabelValues(name).Inc()
			p.logger.Warn("feed error, retrying", "source", name, "error", err, "backoff", p.backoff)
			if !p.sleepWithContext(ctx, p.backoff) {
				return
			}
			continue
		}
		p.handle(raw)
	}
}

func (p *Pipeline) handle(raw domain.RawPayload) {
	p.metrics.PayloadsReceived.WithLabelValues(raw.Source).Inc()

	alerts, err := p.processor.Process(raw)
	if err != nil {
		p.logger.Warn("dropping malformed payload",
			"source", raw.Source,
			"kind", raw.Kind,
			"bytes", len(raw.Body),
			"error", err,
		)
		return
	}
	p.ready.Store(true)

	for _, a := range alerts {
		p.dispatcher.Dispatch(a)
	}
}

func (p *Pipeline) sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
