// Package jma polls the JMA Atom feed and emits the tsunami observation and
// long-period ground motion documents it links.
package jma

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-alert/internal/adapter/poll"
	"github.com/couchcryptid/quake-alert/internal/domain"
	"github.com/couchcryptid/quake-alert/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DefaultFeedURL is the JMA high-frequency earthquake and volcano feed.
const DefaultFeedURL = "https://www.data.jma.go.jp/developer/xml/feed/eqvol.xml"

type httpFetcher struct {
	client *http.Client
}

func (f httpFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return poll.Fetch(ctx, f.client, url)
}

// Extractor implements pipeline.Extractor. Each feed poll yields the newest
// VTSE51 and VXSE62 documents, returned one per Extract call.
type Extractor struct {
	name    string
	feed    *poll.Extractor
	docs    fetcher
	logger  *slog.Logger
	clock   clockwork.Clock
	pending []domain.RawPayload
}

// Config holds the JMA feed settings.
type Config struct {
	FeedURL   string
	Interval  time.Duration
	Timeout   time.Duration
	CacheSize int
}

// NewExtractor creates an Extractor polling cfg.FeedURL.
func NewExtractor(name string, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Extractor {
	client := &http.Client{Timeout: cfg.Timeout}
	return &Extractor{
		name:   name,
		feed:   poll.NewExtractor(name, cfg.FeedURL, "", cfg.Interval, cfg.Timeout, logger),
		docs:   newCachedFetcher(httpFetcher{client: client}, cfg.CacheSize, metrics),
		logger: logger,
		clock:  clockwork.NewRealClock(),
	}
}

// WithClock swaps the clock used for the poll interval and stamps.
func (e *Extractor) WithClock(c clockwork.Clock) *Extractor {
	e.clock = c
	e.feed.WithClock(c)
	return e
}

// Name returns the feed name used in logs and metrics.
func (e *Extractor) Name() string { return e.name }

// Extract returns the next linked document, polling the feed when none are
// pending. Polls that link no relevant document are skipped silently.
func (e *Extractor) Extract(ctx context.Context) (domain.RawPayload, error) {
	for len(e.pending) == 0 {
		feed, err := e.feed.Extract(ctx)
		if err != nil {
			return domain.RawPayload{}, err
		}
		if err := e.load(ctx, feed.Body); err != nil {
			return domain.RawPayload{}, err
		}
	}

	next := e.pending[0]
	e.pending = e.pending[1:]
	return next, nil
}

func (e *Extractor) load(ctx context.Context, feedBody []byte) error {
	links, err := ParseFeed(feedBody)
	if err != nil {
		return fmt.Errorf("%s: %w", e.name, err)
	}

	payloads := make([]domain.RawPayload, 0, len(links))
	for _, l := range links {
		body, err := e.docs.Fetch(ctx, l.URL)
		if err != nil {
			return fmt.Errorf("%s: fetch %s: %w", e.name, l.URL, err)
		}
		payloads = append(payloads, domain.RawPayload{
			Source:     e.name,
			Kind:       l.Kind,
			Body:       body,
			ReceivedAt: e.clock.Now(),
		})
	}
	e.logger.Debug("jma feed polled", "source", e.name, "documents", len(payloads))
	e.pending = payloads
	return nil
}
