// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

// Package middleware provides the HTTP middleware shared by every API route:
// request ids wired into the logging context, Prometheus request metrics
// labeled by route pattern, and a structured access log.
package middleware
