package http

import (
	"net/http"
	"strings"
	"time"

	"kharcha/internal/log"
)

// withRequestContext assigns a request ID, attaches a request scoped
// logger, sets security headers, rate limits mutations and records the
// request in the logs and metrics.
func (s *Server) withRequestContext(route string, next http.Handler) http.Handler {
	// "POST /api/transactions" -> "/api/transactions"
	label := route
	if i := strings.IndexByte(route, ' '); i >= 0 {
		label = route[i+1:]
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		logger := s.logger.With(log.FieldRequestID, requestID)
		r = r.WithContext(log.NewContext(r.Context(), logger))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		setSecurityHeaders(rw)

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, clientIP, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			rw.Header().Set("Retry-After", "60")
			writeError(rw, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", "")
		} else {
			next.ServeHTTP(rw, r)
		}

		elapsed := time.Since(start)
		s.metrics.ObserveRequest(rw.statusCode, r.Method, label, elapsed)
		log.NewStructuredLogger(logger).LogHTTPEnd(r.Context(), r, rw.statusCode, elapsed.Milliseconds(), clientIP)
	})
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
