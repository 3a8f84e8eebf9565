// Package practice is the HTTP client for the practice backend: problem
// records, autosave and submission, the AI tutor relay and recommendations.
//
// Requests go through resty on top of a go-retryablehttp transport, are rate
// limited with golang.org/x/time/rate and guarded by a resilience.Breaker.
// Backend error bodies ({"error": "..."}) become *APIError values; a 404 also
// matches ErrNotFound with errors.Is.
//
// The Client satisfies every provider interface of the workspace package and
// also serves as the sandbox.FetchFunc for a remote interpreter prelude.
//
// Example Usage:
//
//	client := practice.NewClient(practice.DefaultConfig(), logger, metrics)
//	providers := client.Providers()
//	problem, err := client.Problem(ctx, "1")
package practice
