// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tkharbeche/musicseer/internal/metrics"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// waiter is satisfied by *rate.Limiter and *Throttle.
type waiter interface {
	Wait(ctx context.Context) error
}

// httpSource holds what every adapter needs to issue a request.
type httpSource struct {
	name      string
	client    *http.Client
	breaker   *Breaker
	userAgent string
	header    http.Header
	wait      waiter
}

func newHTTPSource(name string, timeout time.Duration, userAgent string) *httpSource {
	return &httpSource{
		name:      name,
		client:    &http.Client{Timeout: timeout},
		breaker:   NewBreaker(name),
		userAgent: userAgent,
		header:    http.Header{},
	}
}

// withLimiter adds a token bucket in front of every request.
func (s *httpSource) withLimiter(rps float64) *httpSource {
	if rps > 0 {
		s.wait = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return s
}

// decodeFunc interprets a response. It is called for every status code.
type decodeFunc func(status int, body []byte) error

// get issues a GET to rawURL with query appended and hands the body to decode.
// It records the outcome in the external request metrics.
func (s *httpSource) get(ctx context.Context, rawURL string, query url.Values, decode decodeFunc) error {
	if s.wait != nil {
		if err := s.wait.Wait(ctx); err != nil {
			metrics.RecordExternalRequest(s.name, metrics.ResultRejected, 0)
			return fmt.Errorf("%w: %s: wait: %w", ErrUnavailable, s.name, err)
		}
	}

	start := time.Now()
	_, err := s.breaker.execute(func() (interface{}, error) {
		return nil, s.do(ctx, rawURL, query, decode)
	})
	metrics.RecordExternalRequest(s.name, resultLabel(err), time.Since(start))
	return err
}

func (s *httpSource) do(ctx context.Context, rawURL string, query url.Values, decode decodeFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %s: create request: %w", ErrUnavailable, s.name, err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	for k, v := range s.header {
		req.Header[k] = v
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, s.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %w", ErrUnavailable, s.name, err)
	}
	return decode(resp.StatusCode, body)
}

// statusError maps a non-2xx status to a sentinel error. It returns nil for 2xx.
func (s *httpSource) statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, s.name)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, s.name)
	default:
		return fmt.Errorf("%w: %s returned status %d", ErrUnavailable, s.name, status)
	}
}

// jsonInto returns a decodeFunc that checks the status and unmarshals into out.
func (s *httpSource) jsonInto(out interface{}) decodeFunc {
	return func(status int, body []byte) error {
		if err := s.statusError(status); err != nil {
			return err
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: %s: decode response: %w", ErrUnavailable, s.name, err)
		}
		return nil
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, ErrRateLimited):
		return metrics.ResultRejected
	default:
		return metrics.ResultFailure
	}
}
