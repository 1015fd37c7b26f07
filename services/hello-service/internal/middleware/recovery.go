package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"RestAPIPlatform/pkg/errors"
	"RestAPIPlatform/pkg/logger"
)

// RecoveryMiddleware обрабатывает паники в обработчиках HTTP
func RecoveryMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// net/http использует эту панику для обрыва ответа, ее нельзя глушить
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error("Panic recovered in HTTP handler",
					logger.CtxField(r.Context()),
					logger.Any("panic", rec),
					logger.String("stack_trace", string(debug.Stack())),
					logger.String("method", r.Method),
					logger.String("path", r.URL.Path))

				errors.WriteJSON(w, errors.New(errors.ErrInternal, fmt.Sprintf("panic: %v", rec)))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
