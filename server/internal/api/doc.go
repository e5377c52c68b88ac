// Package api implements the HTTP API for processdash-server.
//
// New(src, opts) returns an http.Handler that serves:
//
//	GET /                          — plain-text liveness message
//	GET /api/data                  — every record in file order
//	GET /api/data/latest/{count}   — the newest count records, oldest first
//	GET /api/alerts                — firing and recently resolved alerts
//
// All endpoints:
//   - Carry CORS headers; OPTIONS on any path returns 204
//   - Return 405 for other non-GET methods
//   - Report failures as {"message": "..."}; load errors are logged, not echoed
//   - Answer 503 {"message": "request timed out"} past Options.RequestTimeout
//
// Records are loaded through the Source on every request. Wrap the source in a
// store.Store to cache them between file changes.
package api
