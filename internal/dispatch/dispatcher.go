// Package dispatch delivers composed alerts to the audio, speech and relay
// sinks from a single background worker.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/quake-alert/internal/domain"
	"github.com/couchcryptid/quake-alert/internal/observability"
)

// CuePlayer plays the sound asset for a cue and returns when playback ends.
type CuePlayer interface {
	Play(ctx context.Context, cue domain.SoundCue) error
}

// Speaker reads alert text aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Publisher relays a composed alert to another system.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, alert domain.Alert) error
}

// Sinks lists the delivery targets. Nil sinks are skipped.
type Sinks struct {
	Player  CuePlayer
	Speaker Speaker
	Relays  []Publisher
}

// Config sizes the queue and bounds each delivery.
type Config struct {
	QueueSize     int
	SpeechTimeout time.Duration
	RelayTimeout  time.Duration
}

// Dispatcher owns a bounded alert queue. Dispatch never blocks; a single
// worker started by Run delivers alerts in the order they were queued.
type Dispatcher struct {
	queue   chan domain.Alert
	sinks   Sinks
	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics

	running   atomic.Bool
	delivered atomic.Int64
}

// New creates a Dispatcher. A non-positive queue size is treated as 1.
func New(cfg Config, sinks Sinks, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	return &Dispatcher{
		queue:   make(chan domain.Alert, cfg.QueueSize),
		sinks:   sinks,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Dispatch queues an alert and returns immediately. It returns false, and the
// alert is dropped, when the queue is full.
func (d *Dispatcher) Dispatch(a domain.Alert) bool {
	select {
	case d.queue <- a:
		d.metrics.AlertsQueued.WithLabelValues(string(a.Class)).Inc()
		d.metrics.QueueDepth.Set(float64(len(d.queue)))
		return true
	default:
		d.metrics.AlertsDropped.Inc()
		d.logger.Error("dispatch queue full, dropping alert",
			"alert_id", a.ID,
			"class", a.Class,
			"capacity", cap(d.queue),
		)
		return false
	}
}

// Run delivers queued alerts until ctx is cancelled. Alerts still queued at
// that point are left for Drain.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.running.Store(true)
	defer d.running.Store(false)
	d.logger.Info("dispatcher started", "queue_size", cap(d.queue))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping", "reason", ctx.Err(), "pending", len(d.queue))
			return nil
		case a := <-d.queue:
			d.deliver(ctx, a)
		}
	}
}

// Drain delivers whatever is still queued, giving up when ctx ends. Call it
// after Run has returned.
func (d *Dispatcher) Drain(ctx context.Context) int {
	n := 0
	for {
		select {
		case <-ctx.Done():
			return n
		case a := <-d.queue:
			d.deliver(ctx, a)
			n++
		default:
			return n
		}
	}
}

// Running reports whether the worker loop is active.
func (d *Dispatcher) Running() bool { return d.running.Load() }

// Delivered returns how many alerts have gone through the sinks.
func (d *Dispatcher) Delivered() int64 { return d.delivered.Load() }

// deliver plays the cue, then speaks, then relays. A failing sink never stops
// the ones after it.
func (d *Dispatcher) deliver(ctx context.Context, a domain.Alert) {
	d.metrics.QueueDepth.Set(float64(len(d.queue)))
	if !a.ComposedAt.IsZero() {
		d.metrics.AlertLatency.Observe(time.Since(a.ComposedAt).Seconds())
	}
	d.logger.Info("alert", "alert_id", a.ID, "class", a.Class, "cue", a.Cue, "text", a.Text)

	if d.sinks.Player != nil {
		d.call(ctx, a, "audio", 0, func(ctx context.Context) error {
			return d.sinks.Player.Play(ctx, a.Cue)
		})
	}
	if d.sinks.Speaker != nil {
		d.call(ctx, a, "speech", d.cfg.SpeechTimeout, func(ctx context.Context) error {
			return d.sinks.Speaker.Speak(ctx, a.Text)
		})
	}
	for _, r := range d.sinks.Relays {
		d.call(ctx, a, r.Name(), d.cfg.RelayTimeout, func(ctx context.Context) error {
			return r.Publish(ctx, a)
		})
	}
	d.delivered.Add(1)
}

func (d *Dispatcher) call(ctx context.Context, a domain.Alert, sink string, timeout time.Duration, fn func(context.Context) error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := safeCall(ctx, fn)
	d.metrics.SinkDuration.WithLabelValues(sink).Observe(time.Since(start).Seconds())
	if err != nil {
		d.metrics.SinkErrors.WithLabelValues(sink).Inc()
		d.logger.Warn("sink delivery failed", "sink", sink, "alert_id", a.ID, "error", err)
	}
}

// safeCall turns a sink panic into an error so the worker keeps running.
func safeCall(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return fn(ctx)
}
