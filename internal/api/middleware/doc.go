// Package middleware provides the gin middleware stack of the workspace API.
//
// Middleware stack includes:
//   - RequestID: X-Request-ID tagging with prefixed ULIDs
//   - CORS: Cross-origin resource sharing, including WebSocket upgrades
//   - RateLimit: Per-IP token bucket rate limiting with idle cleanup
//   - Gzip: klauspost/compress response compression
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
//	router.Use(middleware.Gzip(gzip.DefaultCompression, "/workspaces/stream"))
package middleware
