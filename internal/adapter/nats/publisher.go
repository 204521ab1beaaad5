// Package nats relays composed alerts to a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/quake-alert/internal/domain"
	natsgo "github.com/nats-io/nats.go"
)

// conn is the subset of *natsgo.Conn used here.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Config holds connection settings for the relay.
type Config struct {
	URL            string
	Subject        string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// Publisher publishes alerts as JSON. It implements dispatch.Publisher.
type Publisher struct {
	conn    conn
	subject string
	logger  *slog.Logger
}

// Connect dials NATS and returns a Publisher for cfg.Subject.
func Connect(cfg Config, logger *slog.Logger) (*Publisher, error) {
	options := []natsgo.Option{
		natsgo.Name("quake-alert"),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.Timeout(cfg.ConnectTimeout),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		natsgo.ClosedHandler(func(_ *natsgo.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	nc, err := natsgo.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}
	return &Publisher{conn: nc, subject: cfg.Subject, logger: logger}, nil
}

// Name identifies the relay in logs and metrics.
func (p *Publisher) Name() string { return "nats" }

// Publish sends alert on the subject and waits for the server to acknowledge
// the flush, bounded by ctx.
func (p *Publisher) Publish(ctx context.Context, alert domain.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("serialize alert: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish alert %s: %w", alert.ID, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush alert %s: %w", alert.ID, err)
	}
	p.logger.Debug("alert relayed", "sink", "nats", "subject", p.subject, "alert_id", alert.ID)
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
