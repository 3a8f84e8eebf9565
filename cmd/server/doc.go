// Package main is the entry point for the CodeShin workspace server.
//
// The server hosts coding practice workspaces: a problem description, a code
// editor with a terminal and an AI assistant pane, arranged in a resizable
// three-pane layout. Learner code runs in a lazily loaded sandbox runtime
// per workspace, and problems, drafts, submissions and assistant replies are
// relayed to the practice backend.
//
//	Browser → Workspace server → Practice backend (problems, progress, tutor)
//	                           → goja sandbox (per workspace)
//
// Configuration:
//   - Defaults for development
//   - CONFIG_FILE pointing at a YAML or TOML file
//   - Environment variables (12-factor), applied last
//
// Usage:
//
//	PORT=8080 BACKEND_URL=http://localhost:8000 ./server
//
//	# Development mode (console logs, debug level)
//	LOG_DEV=true LOG_LEVEL=debug ./server
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
