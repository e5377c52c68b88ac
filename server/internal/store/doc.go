// Package store caches the most recently loaded record set in memory.
//
// Store wraps any Source and returns the cached Set until it is invalidated,
// either explicitly, by TTL expiry, or by Watch observing a change to the
// source file through fsnotify. Load errors are never cached.
package store
