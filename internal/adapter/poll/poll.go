// Package poll fetches pull feeds over HTTP on a fixed interval.
package poll

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-alert/internal/domain"
	"github.com/jonboulle/clockwork"
)

// maxBodyBytes caps a single response. History endpoints return a few KB.
const maxBodyBytes = 4 << 20

// Extractor implements pipeline.Extractor by fetching url every interval. The
// first call fetches immediately.
type Extractor struct {
	name       string
	url        string
	kind       domain.SourceKind
	interval   time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	clock      clockwork.Clock
	due        time.Time
}

// NewExtractor creates a polling Extractor. timeout bounds each request.
func NewExtractor(name, url string, kind domain.SourceKind, interval, timeout time.Duration, logger *slog.Logger) *Extractor {
	return &Extractor{
		name:       name,
		url:        url,
		kind:       kind,
		interval:   interval,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		clock:      clockwork.NewRealClock(),
	}
}

// WithClock swaps the clock used for the poll interval. Intended for tests.
func (e *Extractor) WithClock(c clockwork.Clock) *Extractor {
	e.clock = c
	return e
}

// Name returns the feed name used in logs and metrics.
func (e *Extractor) Name() string { return e.name }

// Extract waits for the next poll slot and fetches the feed once.
func (e *Extractor) Extract(ctx context.Context) (domain.RawPayload, error) {
	if err := e.wait(ctx); err != nil {
		return domain.RawPayload{}, err
	}
	e.due = e.clock.Now().Add(e.interval)

	body, err := Fetch(ctx, e.httpClient, e.url)
	if err != nil {
		return domain.RawPayload{}, fmt.Errorf("poll %s: %w", e.name, err)
	}
	e.logger.Debug("polled feed", "source", e.name, "bytes", len(body))

	return domain.RawPayload{
		Source:     e.name,
		Kind:       e.kind,
		Body:       body,
		ReceivedAt: e.clock.Now(),
	}, nil
}

func (e *Extractor) wait(ctx context.Context) error {
	d := e.due.Sub(e.clock.Now())
	if e.due.IsZero() || d <= 0 {
		return ctx.Err()
	}

	timer := e.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

// Fetch performs a GET and returns the body of a 200 response.
func Fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "quake-alert")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
