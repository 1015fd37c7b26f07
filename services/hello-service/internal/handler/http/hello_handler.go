package http

import (
	"io"
	"net/http"
	"strconv"

	"RestAPIPlatform/pkg/logger"
)

const (
	// HelloPath единственный маршрут API
	HelloPath = "/api/hello"
	// Greeting тело ответа на HelloPath
	Greeting = "Hello from the standard Java REST API!"
)

var greetingLength = strconv.Itoa(len(Greeting))

// HelloHandler отдает статическое приветствие. Не хранит состояния между запросами.
type HelloHandler struct {
	log logger.Logger
}

// NewHelloHandler создает новый HelloHandler
func NewHelloHandler(log logger.Logger) *HelloHandler {
	return &HelloHandler{log: log}
}

// RegisterRoutes регистрирует маршрут приветствия. Остальные пути
// обрабатывает ServeMux по умолчанию (404).
func (h *HelloHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(HelloPath, h.Hello)
}

// Hello отвечает 200 и приветствием на любой метод
func (h *HelloHandler) Hello(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", greetingLength)
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, Greeting); err != nil {
		h.log.Warn("Failed to write greeting",
			logger.CtxField(r.Context()),
			logger.Error(err))
		return
	}

	h.log.Debug("Greeting sent",
		logger.CtxField(r.Context()),
		logger.String("method", r.Method))
}
