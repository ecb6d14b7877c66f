// Package prices fetches precious metal and index quotes from the public feed.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"walletwatcher/internal/core"
	"walletwatcher/internal/log"
)

const (
	DefaultURL     = "https://gold-silver-api.vercel.app/api/all"
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

type Client struct {
	url    string
	http   *http.Client
	logger *log.Logger
}

func NewClient(url string, timeout time.Duration, logger *log.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		logger: logger.WithComponent(log.ComponentPrices),
	}
}

// FetchRaw returns the upstream body verbatim.
func (c *Client) FetchRaw(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &core.UpstreamFetchError{URL: c.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &core.UpstreamFetchError{URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnContext(ctx, "Price feed returned error status",
			log.FieldStatusCode, resp.StatusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
		return nil, &core.UpstreamFetchError{URL: c.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &core.UpstreamFetchError{URL: c.url, StatusCode: resp.StatusCode, Err: err}
	}
	c.logger.DebugContext(ctx, "Fetched price feed", log.FieldDuration, time.Since(start).Milliseconds())
	return body, nil
}

func (c *Client) Fetch(ctx context.Context) (Quote, error) {
	raw, err := c.FetchRaw(ctx)
	if err != nil {
		return Quote{}, err
	}
	return DecodeQuote(raw)
}

func DecodeQuote(raw []byte) (Quote, error) {
	var q Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return Quote{}, fmt.Errorf("decode price feed: %w", err)
	}
	return q, nil
}
