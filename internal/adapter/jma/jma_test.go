package jma

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/quake-alert/internal/domain"
	"github.com/couchcryptid/quake-alert/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedTemplate = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" lang="ja">
  <title>高頻度（地震火山）</title>
  <entry>
    <title>長周期地震動に関する観測情報</title>
    <id>%[1]s/data/20240101162500_0_VXSE62_270000.xml</id>
    <updated>2024-01-01T07:25:00Z</updated>
    <link type="application/xml" href="%[1]s/data/20240101162500_0_VXSE62_270000.xml"/>
  </entry>
  <entry>
    <title>津波情報a</title>
    <id>%[1]s/data/20240101162000_0_VTSE51_010000.xml</id>
    <updated>2024-01-01T07:20:00Z</updated>
    <link type="application/xml" href="%[1]s/data/20240101162000_0_VTSE51_010000.xml"/>
  </entry>
  <entry>
    <title>震源・震度に関する情報</title>
    <id>%[1]s/data/20240101161500_0_VXSE53_010000.xml</id>
    <updated>2024-01-01T07:15:00Z</updated>
    <link type="application/xml" href="%[1]s/data/20240101161500_0_VXSE53_010000.xml"/>
  </entry>
  <entry>
    <title>津波情報a</title>
    <id>%[1]s/data/20240101161200_0_VTSE51_010000.xml</id>
    <updated>2024-01-01T07:12:00Z</updated>
    <link type="application/xml" href="%[1]s/data/20240101161200_0_VTSE51_010000.xml"/>
  </entry>
</feed>`

func TestParseFeed(t *testing.T) {
	links, err := ParseFeed(fmt.Appendf(nil, feedTemplate, "https://jma.example"))
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, domain.KindJMALongPeriod, links[0].Kind)
	assert.Equal(t, "https://jma.example/data/20240101162500_0_VXSE62_270000.xml", links[0].URL)
	assert.Equal(t, domain.KindJMATsunami, links[1].Kind)
	assert.Equal(t, "https://jma.example/data/20240101162000_0_VTSE51_010000.xml", links[1].URL, "newest tsunami document wins")
	assert.Equal(t, time.Date(2024, 1, 1, 7, 20, 0, 0, time.UTC), links[1].Updated)
}

func TestParseFeed_NewerEntryLaterInFeed(t *testing.T) {
	body := `<feed xmlns="http://www.w3.org/2005/Atom">
<entry><updated>2024-01-01T07:00:00Z</updated><link href="https://x/old_VTSE51.xml"/></entry>
<entry><updated>2024-01-01T08:00:00Z</updated><link href="https://x/new_VTSE51.xml"/></entry>
</feed>`
	links, err := ParseFeed([]byte(body))
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://x/new_VTSE51.xml", links[0].URL)
}

func TestParseFeed_Edges(t *testing.T) {
	links, err := ParseFeed([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	require.NoError(t, err)
	assert.Empty(t, links)

	_, err = ParseFeed([]byte(`<feed><entry>`))
	assert.Error(t, err)
}

// newJMAServer serves the feed at /feed and every document path with its own name.
func newJMAServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var docHits atomic.Int32
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/feed", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, feedTemplate, srv.URL)
	})
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		docHits.Add(1)
		_, _ = fmt.Fprintf(w, "<Report>%s</Report>", r.URL.Path)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &docHits
}

func TestExtractor_EmitsLinkedDocuments(t *testing.T) {
	srv, docHits := newJMAServer(t)
	fake := clockwork.NewFakeClock()
	metrics := observability.NewMetricsForTesting()
	ext := NewExtractor("jma", Config{FeedURL: srv.URL + "/feed", Interval: time.Minute, Timeout: time.Second, CacheSize: 8},
		slog.Default(), metrics).WithClock(fake)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := ext.Extract(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.KindJMALongPeriod, first.Kind)
	assert.Contains(t, string(first.Body), "VXSE62")
	assert.Equal(t, "jma", first.Source)
	assert.Equal(t, fake.Now(), first.ReceivedAt)

	second, err := ext.Extract(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.KindJMATsunami, second.Kind)
	assert.Contains(t, string(second.Body), "20240101162000_0_VTSE51")

	// The next poll reuses cached documents.
	done := make(chan error, 1)
	go func() {
		_, err := ext.Extract(ctx)
		done <- err
	}()
	require.NoError(t, fake.BlockUntilContext(ctx, 1))
	fake.Advance(time.Minute)
	require.NoError(t, <-done)

	assert.Equal(t, int32(2), docHits.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DocumentCache.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DocumentCache.WithLabelValues("hit")))
}

func TestExtractor_FeedErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "feed unavailable",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			want: "status 502",
		},
		{
			name: "feed not xml",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<feed><entry>"))
			},
			want: "parse atom feed",
		},
		{
			name: "document missing",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/feed" {
					_, _ = w.Write([]byte(`<feed><entry><link href="http://` + r.Host + `/gone_VTSE51.xml"/></entry></feed>`))
					return
				}
				w.WriteHeader(http.StatusNotFound)
			},
			want: "status 404",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			ext := NewExtractor("jma", Config{FeedURL: srv.URL + "/feed", Interval: time.Minute, Timeout: time.Second, CacheSize: 8},
				slog.Default(), observability.NewMetricsForTesting())
			_, err := ext.Extract(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

type stubFetcher struct {
	calls int
	err   error
}

func (s *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte(url), nil
}

func TestCachedFetcher(t *testing.T) {
	inner := &stubFetcher{}
	c := newCachedFetcher(inner, 10, observability.NewMetricsForTesting())

	for range 2 {
		body, err := c.Fetch(context.Background(), "a")
		require.NoError(t, err)
		assert.Equal(t, "a", string(body))
	}
	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedFetcher_ErrorsAreNotCached(t *testing.T) {
	inner := &stubFetcher{err: errors.New("boom")}
	c := newCachedFetcher(inner, 10, observability.NewMetricsForTesting())

	_, err := c.Fetch(context.Background(), "a")
	require.Error(t, err)
	_, err = c.Fetch(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, c.cache.len())
}

func TestLRUCache(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", []byte("1"))
	c.put("b", []byte("2"))

	_, ok := c.get("a") // a is now most recent
	require.True(t, ok)

	c.put("c", []byte("3")) // evicts b
	_, ok = c.get("b")
	assert.False(t, ok)

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", string(v))

	c.put("a", []byte("updated"))
	v, _ = c.get("a")
	assert.Equal(t, "updated", string(v))
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_MinimumSize(t *testing.T) {
	c := newLRUCache(0)
	c.put("a", []byte("1"))
	c.put("b", []byte("2"))
	assert.Equal(t, 1, c.len())
}
