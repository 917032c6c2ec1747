package daemon

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"vidsub/internal/logging"
	"vidsub/internal/services"
)

const requestIDHeader = "X-Request-ID"

// requestID tags each request with a correlation id, reusing the client's
// when one is supplied.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func accessLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.WithContext(r.Context(), logger).Debug("request completed",
			logging.EventType("http_request"),
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("duration", time.Since(start)),
		)
	})
}

func recovery(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logging.ErrorWithContext(logging.WithContext(r.Context(), logger), "panic recovered", "http_panic",
					logging.Any("panic", v),
					logging.String("path", r.URL.Path),
				)
				writeJSON(w, http.StatusInternalServerError, errorBody(r, "internal server error", string(services.KindInternal), nil))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
