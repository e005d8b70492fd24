// Package httpclient wraps outbound requests to the election report server
// with bounded retries and exponential backoff.
package httpclient

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"election_crawler/internal/config"
)

// RequestError is returned once every retry attempt for a single request has
// been exhausted. Callers must not retry further.
type RequestError struct {
	Attempts int
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Client struct {
	http       *resty.Client
	maxRetries int
	baseDelay  time.Duration
	sleep      func(time.Duration)
	logger     *zap.Logger
}

// New builds a client carrying the fixed browser header set and a referer
// pointing at the crawl's entry page. Retries are handled by Execute rather
// than resty so backoff timing stays under our control.
func New(cfg config.HTTPConfig, referer string, logger *zap.Logger) *Client {
	client := resty.New()
	client.SetTimeout(time.Duration(cfg.TimeoutSec) * time.Second)
	client.SetHeaders(map[string]string{
		"User-Agent":                cfg.UserAgent,
		"Accept":                    "application/excel, application/vnd.ms-excel, application/x-msexcel, application/csv, text/csv, application/octet-stream, */*",
		"Accept-Language":           "ko-KR,ko;q=0.9,en;q=0.8",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
	})
	client.SetHeader("Referer", referer)

	return &Client{
		http:       client,
		maxRetries: cfg.MaxRetries,
		baseDelay:  time.Duration(cfg.RetryDelaySec) * time.Second,
		sleep:      time.Sleep,
		logger:     logger,
	}
}

// Execute performs an HTTP request, retrying transport errors and HTTP error
// statuses up to the attempt ceiling. Before every retry (never before the
// first attempt) it sleeps baseDelay * 2^attempt scaled by uniform jitter in
// [0.5, 1.5) so concurrent workers do not retry in lockstep.
func (c *Client) Execute(ctx context.Context, method, rawURL string, form url.Values) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			jitter := 0.5 + rand.Float64()
			delay := time.Duration(float64(c.baseDelay) * math.Pow(2, float64(attempt)) * jitter)
			c.logger.Info("retrying request",
				zap.String("url", rawURL),
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", c.maxRetries))
			c.sleep(delay)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req := c.http.R().SetContext(ctx)
		if form != nil {
			req.SetFormDataFromValues(form)
		}

		resp, err := req.Execute(method, rawURL)
		if err != nil {
			lastErr = err
			c.logger.Warn("request failed",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}
		if resp.IsError() {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode())
			c.logger.Warn("request returned error status",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Int("status", resp.StatusCode()))
			continue
		}

		return &Response{
			StatusCode: resp.StatusCode(),
			Header:     resp.Header(),
			Body:       resp.Body(),
		}, nil
	}

	return nil, &RequestError{Attempts: c.maxRetries, Err: lastErr}
}

// Once performs a single attempt with no retry policy, for advisory fetches
// like robots.txt where failing fast is preferable.
func (c *Client) Once(ctx context.Context, method, rawURL string) (*Response, error) {
	resp, err := c.http.R().SetContext(ctx).Execute(method, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode())
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}
