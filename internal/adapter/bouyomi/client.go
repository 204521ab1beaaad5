// Package bouyomi speaks alert text through a local BouyomiChan HTTP server.
package bouyomi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultURL is BouyomiChan's talk endpoint when the HTTP plugin is enabled.
const DefaultURL = "http://localhost:50080/Talk"

// Voice selects the speaker and delivery. -1 means "use the server setting".
type Voice struct {
	Voice  int
	Volume int
	Speed  int
	Tone   int
}

// DefaultVoice uses the server's default voice with its own volume, speed and
// tone settings.
var DefaultVoice = Voice{Voice: 0, Volume: -1, Speed: -1, Tone: -1}

// Client implements dispatch.Speaker using the BouyomiChan Talk API.
type Client struct {
	baseURL    string
	voice      Voice
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a BouyomiChan client. timeout bounds each request.
func NewClient(baseURL string, timeout time.Duration, voice Voice, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		voice:   voice,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Speak queues text on the server. It returns once the server accepted the
// request, not when speech ends.
func (c *Client) Speak(ctx context.Context, text string) error {
	params := url.Values{
		"text":   {text},
		"voice":  {strconv.Itoa(c.voice.Voice)},
		"volume": {strconv.Itoa(c.voice.Volume)},
		"speed":  {strconv.Itoa(c.voice.Speed)},
		"tone":   {strconv.Itoa(c.voice.Tone)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("talk request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bouyomi error: status %d: %s", resp.StatusCode, body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug("speech queued", "chars", len([]rune(text)), "duration", time.Since(start))
	return nil
}
