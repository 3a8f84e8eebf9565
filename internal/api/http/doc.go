// Package http exposes the workspace service as a JSON REST API on gin.
//
// Every response carries a "success" flag; failures add an "error" message
// and map domain errors to status codes: validation problems to 400, unknown
// workspaces and problems to 404, practice backend failures to 502, and an
// unavailable backend or a shutting down manager to 503.
//
// Routes:
//   - /workspaces: open, list, stats
//   - /workspaces/:id: view, close, source, run, sandbox retry
//   - /workspaces/:id/layout: pane toggle, drag, resize, restore, container size
//   - /workspaces/:id/terminal: toggle and resize
//   - /workspaces/:id/{autosave,submit,assistant,recommendations}: backend relays
package http
