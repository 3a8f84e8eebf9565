// Package workspace coordinates one practice session: the sandbox host that
// runs the learner's code, the pane layout around the editor and the calls
// out to the practice backend.
//
// A Workspace is the unit the HTTP and WebSocket layers work with. It keeps
// the current source snapshot, writes run output into the terminal sub-pane
// and publishes events (layout, run, assistant) to subscribers.
//
// The Manager owns every open Workspace, keyed by a prefixed ULID. It creates
// the sandbox host for each workspace from a LoaderFactory, seeds the source
// from the learner's last autosaved draft and evicts idle workspaces.
//
// Example Usage:
//
//	mgr := workspace.NewManager(cfg, loaders, providers, logger)
//	ws, err := mgr.Open(ctx, workspace.OpenOptions{UserID: "7", ProblemID: "1"})
//	ws.SetSource("print('hi')")
//	outcome := ws.Run(ctx)
//	fmt.Print(outcome.Terminal)
package workspace
