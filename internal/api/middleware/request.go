package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apiContext "docketflow/internal/api/context"
	"docketflow/internal/pkg/errors"
	"docketflow/internal/pkg/parser"
	"docketflow/internal/platform/audit"
	"docketflow/internal/platform/metrics"
)

const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Observe is the outermost middleware of every route. It assigns the request
// id, recovers panics, and records the access log line and HTTP metrics under
// the route template.
func Observe(route string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := context.WithValue(r.Context(), apiContext.RequestID, id)
			ctx = audit.WithRequestMeta(ctx, audit.RequestMeta{IPAddress: clientIP(r), UserAgent: r.UserAgent()})

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				if p := recover(); p != nil {
					log.Error().
						Str("request_id", id).
						Str("panic", fmt.Sprint(p)).
						Bytes("stack", debug.Stack()).
						Msg("panic serving request")
					errors.WriteError(rec, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal server error", nil)
				}

				elapsed := time.Since(start)
				metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, fmt.Sprintf("%d", rec.status)).Inc()
				metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

				log.Info().
					Str("request_id", id).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", rec.status).
					Str("client", parser.ParseUserAgent(r.UserAgent()).String()).
					Dur("duration", elapsed).
					Msg("request")
			}()

			next(rec, r.WithContext(ctx))
		}
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
