// Package server wires the workspace service together.
//
// NewServer builds, in order: the zap logger, a private Prometheus registry
// and metrics collector, the request tracer, the practice backend client, and
// the workspace manager whose sandboxes load goja engines. The gin router
// then gets its middleware stack (recovery, request IDs, tracing, access
// logs, metrics, CORS, optional rate limiting and gzip) and every route:
// the workspace REST API, the event stream, /metrics and the runtime log
// level endpoint.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
