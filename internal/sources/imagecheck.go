// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package sources

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tkharbeche/musicseer/internal/cache"
	"github.com/tkharbeche/musicseer/internal/logging"
	"github.com/tkharbeche/musicseer/internal/metrics"
)

// SourceImageCheck is the metrics label of image HEAD checks.
const SourceImageCheck = "imagecheck"

// DefaultImageCheckTimeout bounds one HEAD request.
const DefaultImageCheckTimeout = 3 * time.Second

// ImageChecker verifies that a URL serves an image. Verdicts are memoized in
// the given cache; a nil cache disables memoization.
type ImageChecker struct {
	client *http.Client
	cache  cache.Cacher
}

// NewImageChecker creates a checker. timeout <= 0 uses DefaultImageCheckTimeout.
func NewImageChecker(timeout time.Duration, verdicts cache.Cacher) *ImageChecker {
	if timeout <= 0 {
		timeout = DefaultImageCheckTimeout
	}
	return &ImageChecker{
		client: &http.Client{Timeout: timeout},
		cache:  verdicts,
	}
}

// IsDisplayable issues a HEAD request and reports whether the answer is 2xx
// with an image/* content type. Network errors count as false.
func (c *ImageChecker) IsDisplayable(ctx context.Context, rawURL string) bool {
	if !isHTTPURL(rawURL) {
		return false
	}
	key := "img:" + rawURL
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			if verdict, isBool := v.(bool); isBool {
				return verdict
			}
		}
	}

	start := time.Now()
	ok, definitive := c.head(ctx, rawURL)
	result := metrics.ResultSuccess
	if !ok {
		result = metrics.ResultRejected
	}
	metrics.RecordExternalRequest(SourceImageCheck, result, time.Since(start))

	// Transport failures are not memoized; the host may come back.
	if c.cache != nil && definitive {
		c.cache.Set(key, ok)
	}
	return ok
}

func (c *ImageChecker) head(ctx context.Context, rawURL string) (ok, definitive bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, http.NoBody)
	if err != nil {
		return false, true
	}
	resp, err := c.client.Do(req)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("url", rawURL).Msg("Image HEAD check failed")
		return false, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, true
	}
	ct := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
	return strings.HasPrefix(ct, "image/"), true
}
