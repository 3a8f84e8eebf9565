package tracing

import (
	"context"

	"github.com/gin-gonic/gin"
)

// HTTPMiddleware opens a span per request. A trace started upstream is
// continued; otherwise the request ID set by earlier middleware becomes the
// trace ID.
func HTTPMiddleware(tracer *Tracer, requestIDKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := Extract(c.Request.Context(), c.Request.Header)
		if TraceIDFrom(ctx) == "" {
			if rid := c.GetString(requestIDKey); rid != "" {
				ctx = context.WithValue(ctx, traceIDKey, TraceID(rid))
			}
		}

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.path", c.Request.URL.Path)
		if wsID := c.Param("id"); wsID != "" {
			span.SetTag("workspace_id", wsID)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceHeader, string(span.TraceID))
		c.Header(SpanHeader, string(span.SpanID))

		c.Next()

		span.SetStatus(c.Writer.Status())
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		span.Finish()
		tracer.Submit(span)
	}
}
