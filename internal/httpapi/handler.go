package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/policydesk/pkg/logger"
)

// HandlerFunc is a route handler that reports failures as errors.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// requestIDHeaders are checked in order for an upstream request id.
var requestIDHeaders = []string{"X-Request-ID", "X-Correlation-ID"}

const stackSize = 4096

// wrap converts h to an http.HandlerFunc and renders its error as JSON.
func (s *Server) wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww, ok := w.(middleware.WrapResponseWriter)
		if !ok {
			ww = middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		}
		if err := h(ww, r); err != nil {
			s.handleError(ww, r, err)
		}
	}
}

func (s *Server) handleError(w middleware.WrapResponseWriter, r *http.Request, err error) {
	httpErr := AsHTTPError(err)
	httpErr.RequestID = logger.RequestID(r.Context())

	if httpErr.Code >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", httpErr.Code),
			slog.Any("error", err),
		)
	}
	// a partial response cannot be replaced
	if w.Status() != 0 {
		return
	}
	writeJSON(w, httpErr.Code, httpErr)
}

// requestID reuses an upstream request id or generates one, stores it in the
// request context for log extraction and echoes it in the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		for _, h := range requestIDHeaders {
			if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
				id = v
				break
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// recoverer logs a panic with its stack and answers 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				stack := make([]byte, stackSize)
				stack = stack[:runtime.Stack(stack, false)]
				s.logger.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", p),
					slog.String("stack", string(stack)),
				)
				writeJSON(w, http.StatusInternalServerError, &HTTPError{
					Message:   http.StatusText(http.StatusInternalServerError),
					RequestID: logger.RequestID(r.Context()),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// accessLog logs one line per request at debug level.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// queryInt returns the integer query parameter name, or def when it is
// missing or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
