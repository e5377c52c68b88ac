// Package ws streams the latest process records to dashboard clients over
// WebSocket.
//
// New(src, count, interval, allowOrigin) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker and blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection, sends the latest records
// immediately on connect, then streams updates on each tick.
//
// Message format sent to clients:
//
//	{
//	  "event":        "records",
//	  "data":         [ /* same schema as GET /api/data/latest/{count} */ ],
//	  "generated_at": "2024-01-01T00:00:00Z"
//	}
//
// A tick whose load fails is skipped. The endpoint is mounted at /ws/stream.
package ws
