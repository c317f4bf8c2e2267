// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

/*
Package api exposes the discovery service over HTTP.

Routes are mounted on a chi router under /api/v1:

	GET  /health/live                         process liveness
	GET  /health/ready                        database ping
	GET  /discovery/trending                  trending snapshot (?limit=)
	GET  /discovery/recommendations/{userID}  personalized ranking (?limit=&server_id=)
	GET  /discovery/hidden-gems/{userID}      similarity-weighted ranking (?limit=&server_id=)
	POST /discovery/sync                      queue a trending sync (202, 409 when busy)
	GET  /discovery/sync/status               current and last sync reports
	GET  /artists/lookup                      enrichment cache read (?name=&mbid=)
	PUT  /library/{userID}/{serverID}         library snapshot ingest

Prometheus metrics are served on /metrics.

Every JSON response uses the same envelope:

	{"success": true, "data": ..., "meta": {"timestamp": ..., "request_id": ...}}
	{"success": false, "error": {"code": "VALIDATION_FAILED", "message": ..., "details": ...}, "meta": ...}

Validation failures, negative limits and malformed bodies map to 400
VALIDATION_FAILED. Upstream source failures never reach callers; they are
absorbed by the enrichment and recommendation layers.
*/
package api
