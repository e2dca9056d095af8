package log

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const requestContextKey contextKey = "itinera_request_context"

// RequestContext carries per-request tracing data through the context.
type RequestContext struct {
	RequestID string
	ClientIP  string
	Operation string
	StartTime time.Time
}

// GenerateRequestID returns a 12 character hex request ID.
func GenerateRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// WithRequestContext stores a RequestContext in ctx. It is called by the
// HTTP logging middleware.
func WithRequestContext(ctx context.Context, requestID, clientIP, operation string) context.Context {
	return context.WithValue(ctx, requestContextKey, &RequestContext{
		RequestID: requestID,
		ClientIP:  clientIP,
		Operation: operation,
		StartTime: time.Now(),
	})
}

// GetRequestContext returns the RequestContext stored in ctx, or an empty
// one with RequestID "unknown".
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx != nil {
		if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{RequestID: "unknown"}
}

// GetRequestID returns the request ID stored in ctx.
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// GetClientIP returns the client address stored in ctx.
func GetClientIP(ctx context.Context) string {
	return GetRequestContext(ctx).ClientIP
}

// GetElapsedTime returns milliseconds since the request started.
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
