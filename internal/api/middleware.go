package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// headerSessionID carries the anonymous browsing session for telemetry.
const headerSessionID = "X-Session-ID"

// requestLogger logs one line per request through the server's slog logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := s.logger.Info
		if status >= http.StatusInternalServerError {
			level = s.logger.Error
		} else if status >= http.StatusBadRequest {
			level = s.logger.Warn
		}
		level("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
