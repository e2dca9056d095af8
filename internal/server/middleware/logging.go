// Package middleware provides HTTP middleware for request logging and metrics.
package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	pkglog "Itinera/pkg/log"
	"Itinera/pkg/metrics"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// SlowRequestThreshold marks requests worth a warning.
const SlowRequestThreshold = 30 * time.Second

// Logging returns a middleware that injects the request context, logs each
// request and records HTTP metrics.
//
// Example console output:
//
//	🟢 POST /api/v1/itineraries/generate - 200 (1.4s)
//	🐌 slow request POST /api/v1/itineraries/generate took 31.2s
func Logging(logger *pkglog.LogHelper, m *metrics.Metrics) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			startTime := time.Now()

			var (
				method    string
				path      string
				ip        string
				requestID string
				operation string
				reply     transport.Header
			)

			if tr, ok := transport.FromServerContext(ctx); ok {
				operation = tr.Operation()
				method = operation
				path = operation

				if ht, ok := tr.(http.Transporter); ok {
					httpReq := ht.Request()
					method = httpReq.Method
					path = httpReq.URL.Path
					ip = extractClientIP(httpReq)
					requestID = httpReq.Header.Get("X-Request-ID")
				}
				reply = tr.ReplyHeader()
			}
			if requestID == "" {
				requestID = pkglog.GenerateRequestID()
			}
			if reply != nil {
				reply.Set("X-Request-ID", requestID)
			}

			ctx = pkglog.WithRequestContext(ctx, requestID, ip, operation)

			resp, err := handler(ctx, req)

			elapsed := time.Since(startTime)
			status := extractHTTPStatus(err)

			logger.RequestWithContext(ctx, method, path, status, elapsed.Milliseconds())
			if elapsed > SlowRequestThreshold {
				logger.SlowRequest(ctx, method, path, elapsed.Milliseconds(), SlowRequestThreshold.Milliseconds())
			}
			m.ObserveHTTP(method, path, strconv.Itoa(status), elapsed)

			return resp, err
		}
	}
}

// extractClientIP returns the client address.
// Priority: X-Real-IP > X-Forwarded-For > RemoteAddr
func extractClientIP(req *http.Request) string {
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	addr := req.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i > 0 && !strings.HasSuffix(addr, "]") {
		return strings.Trim(addr[:i], "[]")
	}
	return addr
}

// extractHTTPStatus maps a handler error to its HTTP status.
func extractHTTPStatus(err error) int {
	if err == nil {
		return 200
	}
	return int(errors.FromError(err).Code)
}
