package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"RestAPIPlatform/pkg/logger"
	"RestAPIPlatform/pkg/validation"
)

// RequestIDHeader заголовок с идентификатором запроса
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware берет идентификатор запроса из заголовка или генерирует новый,
// кладет его в контекст и возвращает клиенту
func RequestIDMiddleware() func(http.Handler) http.Handler {
	v := validation.NewValidator()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if v.ValidateStringLength(requestID, "request_id", 1, 128) != nil {
				requestID = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, requestID)
			next.ServeHTTP(w, r.WithContext(logger.ContextWithRequestID(r.Context(), requestID)))
		})
	}
}

// LoggingMiddleware логирует все HTTP запросы
func LoggingMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			fields := []logger.Field{
				logger.CtxField(r.Context()),
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.String("remote_addr", r.RemoteAddr),
				logger.String("user_agent", r.UserAgent()),
				logger.Int("status_code", wrapped.statusCode),
				logger.Int64("bytes", wrapped.written),
				logger.Duration("duration", time.Since(start)),
			}

			switch {
			case wrapped.statusCode >= 500:
				log.Error("Completed request", fields...)
			case wrapped.statusCode >= 400:
				log.Warn("Completed request", fields...)
			default:
				log.Info("Completed request", fields...)
			}
		})
	}
}

// responseWriter обертка для перехвата статуса и размера ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

// WriteHeader перехватывает установку статуса
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Chain применяет middleware в порядке перечисления: первый в списке становится внешним
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
