// Package server serves the vaccination widget over HTTP.
//
// Routes:
//
//	GET /healthz
//	GET /v1/snapshot.json
//	GET /v1/widget.json?family=small|medium
//	GET /v1/widget.txt?family=small|medium&color=true
//	GET /v1/snapshots
//	GET /v1/snapshots/:date
//	GET /v1/stream
//
// Snapshots come from a Loader, usually a CachedSource wrapping a
// *feed.Fetcher, so the feed is read at most once per refresh interval.
package server
