package ctxmanage

import (
	"context"

	"github.com/gin-gonic/gin"
)

type key string

// TraceIDKey is the context key under which middleware.Logger stores the
// per-request trace id.
const TraceIDKey key = "traceId"

// GetTraceIdOfRequest returns the trace id assigned to the request, or
// "unknown" if the logger middleware did not run.
func GetTraceIdOfRequest(c *gin.Context) string {
	traceId, ok := c.Request.Context().Value(TraceIDKey).(string)
	if !ok {
		return "unknown"
	}
	return traceId
}

// WithTraceId attaches a trace id to the given context.
func WithTraceId(ctx context.Context, traceId string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceId)
}
