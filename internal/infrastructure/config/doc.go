// Package config provides 12-factor configuration for the workspace service.
//
// Values start from Default, are overlaid by an optional file named in
// CONFIG_FILE (YAML via goccy/go-yaml or TOML via go-toml, chosen by
// extension), and finally by environment variables read with envconfig.
//
// Configuration Sections:
//   - Server: listen address, CORS origins, gzip, shutdown timeout
//   - Backend: practice backend URL, retries, rate and circuit breaker
//   - Sandbox: interpreter timeouts, prelude and script library
//   - Layout: default pane split and pixel minimums
//   - Workspace: idle eviction and event buffering
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, CORS_ORIGINS, GZIP_ENABLED, SHUTDOWN_TIMEOUT
//   - BACKEND_URL, BACKEND_TIMEOUT, BACKEND_MAX_RETRIES, BACKEND_RPS
//   - SANDBOX_EXEC_TIMEOUT, SANDBOX_PRELUDE_URL, SANDBOX_LIBRARY_DIR, SANDBOX_PRELOAD
//   - LAYOUT_DEFAULT_SIZES, LAYOUT_MIN_PANE_PX
//   - WORKSPACE_IDLE_TIMEOUT, WORKSPACE_JANITOR_INTERVAL
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST
package config
