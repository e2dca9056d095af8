package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// LogHelper extends log.Helper with typed methods. Each method tags the
// entry with a "type" field that EmojiConsoleEncoder maps to a prefix.
type LogHelper struct {
	*log.Helper
}

// NewLogHelper wraps logger.
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

func tagged(msg, logType string, kvs []interface{}) []interface{} {
	all := make([]interface{}, 0, len(kvs)+4)
	all = append(all, log.DefaultMessageKey, msg)
	all = append(all, kvs...)
	return append(all, "type", logType)
}

// Request logs a completed HTTP request.
func (h *LogHelper) Request(method, path string, status int, durationMs int64, kvs ...interface{}) {
	msg := fmt.Sprintf("%s %s - %d (%s)", method, path, status, formatDuration(durationMs))
	kvs = append(kvs,
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(tagged(msg, "request", kvs)...)
}

// RequestWithContext is Request with the request ID and client IP from ctx.
func (h *LogHelper) RequestWithContext(ctx context.Context, method, path string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)
	kvs = append(kvs, "request_id", reqCtx.RequestID)
	if reqCtx.ClientIP != "" {
		kvs = append(kvs, "client_ip", reqCtx.ClientIP)
	}
	h.Request(method, path, status, durationMs, kvs...)
}

// SlowRequest warns when a request exceeds threshold milliseconds.
func (h *LogHelper) SlowRequest(ctx context.Context, method, path string, durationMs, thresholdMs int64, kvs ...interface{}) {
	msg := fmt.Sprintf("slow request %s %s took %s", method, path, formatDuration(durationMs))
	kvs = append(kvs,
		"request_id", GetRequestID(ctx),
		"duration_ms", durationMs,
		"threshold_ms", thresholdMs,
	)
	h.Warnw(tagged(msg, "slow_request", kvs)...)
}

// Cache logs result cache activity.
func (h *LogHelper) Cache(msg string, kvs ...interface{}) {
	h.Debugw(tagged(msg, "cache", kvs)...)
}

// Breaker logs circuit breaker transitions.
func (h *LogHelper) Breaker(msg string, kvs ...interface{}) {
	h.Warnw(tagged(msg, "breaker", kvs)...)
}

// Admission logs gate rejections.
func (h *LogHelper) Admission(msg string, kvs ...interface{}) {
	h.Warnw(tagged(msg, "admission", kvs)...)
}

// Upstream logs generation calls.
func (h *LogHelper) Upstream(msg string, kvs ...interface{}) {
	h.Infow(tagged(msg, "upstream", kvs)...)
}

// Fallback logs that a deterministic result was served.
func (h *LogHelper) Fallback(msg string, kvs ...interface{}) {
	h.Warnw(tagged(msg, "fallback", kvs)...)
}

// RateLimit logs a rejected client.
func (h *LogHelper) RateLimit(msg string, kvs ...interface{}) {
	h.Warnw(tagged(msg, "rate_limit", kvs)...)
}

// Probe logs storage probe results.
func (h *LogHelper) Probe(msg string, kvs ...interface{}) {
	h.Debugw(tagged(msg, "probe", kvs)...)
}

// Success logs a completed operation.
func (h *LogHelper) Success(msg string, kvs ...interface{}) {
	h.Infow(tagged(msg, "success", kvs)...)
}

// Startup logs service lifecycle events.
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.Infow(tagged(msg, "startup", kvs)...)
}
