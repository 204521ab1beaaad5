// Package stream reads push feeds delivered over WebSocket.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/couchcryptid/quake-alert/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// Extractor implements pipeline.Extractor for one WebSocket feed. The
// connection is opened lazily and dropped on any read error; the pipeline's
// backoff decides when the next Extract redials.
type Extractor struct {
	name   string
	url    string
	kind   domain.SourceKind
	dialer *websocket.Dialer
	header http.Header
	logger *slog.Logger
	clock  clockwork.Clock

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewExtractor creates an Extractor that tags every message with kind.
func NewExtractor(name, url string, kind domain.SourceKind, logger *slog.Logger) *Extractor {
	header := http.Header{}
	header.Set("User-Agent", "quake-alert")
	return &Extractor{
		name:   name,
		url:    url,
		kind:   kind,
		dialer: websocket.DefaultDialer,
		header: header,
		logger: logger,
		clock:  clockwork.NewRealClock(),
	}
}

// WithClock swaps the clock used for ReceivedAt stamps.
func (e *Extractor) WithClock(c clockwork.Clock) *Extractor {
	e.clock = c
	return e
}

// Name returns the feed name used in logs and metrics.
func (e *Extractor) Name() string { return e.name }

// Extract blocks until the next message arrives.
func (e *Extractor) Extract(ctx context.Context) (domain.RawPayload, error) {
	conn, err := e.connect(ctx)
	if err != nil {
		return domain.RawPayload{}, err
	}

	// ReadMessage has no context; closing the socket unblocks it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			e.drop(conn)
			if ctx.Err() != nil {
				return domain.RawPayload{}, ctx.Err()
			}
			return domain.RawPayload{}, fmt.Errorf("read %s: %w", e.name, err)
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if len(data) == 0 {
			continue
		}
		return domain.RawPayload{
			Source:     e.name,
			Kind:       e.kind,
			Body:       data,
			ReceivedAt: e.clock.Now(),
		}, nil
	}
}

// Close closes the current connection, if any.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return nil
	}
	err := e.conn.Close()
	e.conn = nil
	return err
}

func (e *Extractor) connect(ctx context.Context) (*websocket.Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.conn != nil {
		return e.conn, nil
	}

	conn, resp, err := e.dialer.DialContext(ctx, e.url, e.header)
	if err != nil {
		if resp != nil {
			e.logger.Warn("websocket handshake rejected", "source", e.name, "status_code", resp.StatusCode)
			return nil, fmt.Errorf("dial %s: status %d: %w", e.name, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", e.name, err)
	}
	e.logger.Info("stream connected", "source", e.name, "url", e.url)
	e.conn = conn
	return conn, nil
}

func (e *Extractor) drop(conn *websocket.Conn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	conn.Close()
	if e.conn == conn {
		e.conn = nil
	}
}
