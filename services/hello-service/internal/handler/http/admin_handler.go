package http

import (
	"net/http"

	"RestAPIPlatform/pkg/health"
	"RestAPIPlatform/pkg/logger"
)

// AdminHandler обслуживает служебные эндпоинты: health, ready, live и метрики
type AdminHandler struct {
	checker     health.HealthChecker
	state       *health.State
	metrics     http.Handler
	metricsPath string
	log         logger.Logger
}

// NewAdminHandler создает новый AdminHandler. metrics может быть nil, если метрики отключены.
func NewAdminHandler(checker health.HealthChecker, state *health.State, metrics http.Handler, metricsPath string, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		checker:     checker,
		state:       state,
		metrics:     metrics,
		metricsPath: metricsPath,
		log:         log,
	}
}

// RegisterRoutes регистрирует служебные маршруты
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", health.Handler(h.checker))
	mux.HandleFunc("GET /ready", h.ready)
	mux.HandleFunc("GET /live", health.LiveHandler())

	if h.metrics != nil {
		mux.Handle("GET "+h.metricsPath, h.metrics)
	}
}

func (h *AdminHandler) ready(w http.ResponseWriter, r *http.Request) {
	if !h.state.Ready() {
		h.log.Debug("Ready check failed", logger.String("phase", h.state.Phase().String()))
	}
	health.ReadyHandler(h.state)(w, r)
}
