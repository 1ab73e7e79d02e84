// Package httplog provides a zerolog-backed request logging middleware.
package httplog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Middleware logs one structured line per request: method, path, status,
// bytes written, duration, and the chi request ID when present.
func Middleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				ev := log.Info()
				if ww.Status() >= 500 {
					ev = log.Error()
				}
				ev.Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start))
				if rid := middleware.GetReqID(r.Context()); rid != "" {
					ev.Str("request_id", rid)
				}
				ev.Msg("request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
