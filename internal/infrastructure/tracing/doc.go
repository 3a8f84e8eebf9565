/*
Package tracing provides lightweight request tracing for the workspace API.

Each HTTP request gets a span; the trace continues into practice backend
calls through the X-Trace-ID and X-Span-ID headers. Finished spans are
collected on a buffered channel and written to the zap logger, so a slow run
or a failing backend call can be followed across services by its trace ID.

# Usage

	tracer := tracing.New("workspace", logger, 1000)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer, middleware.RequestIDKey))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "sandbox.load")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

	// Outgoing requests
	tracing.Inject(ctx, req.Header)
*/
package tracing
