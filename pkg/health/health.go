package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Phase фаза жизненного цикла сервиса
type Phase int32

const (
	PhaseStarting Phase = iota
	PhaseRunning
	PhaseStopping
)

// String возвращает текстовое имя фазы
func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// State хранит текущую фазу сервиса. Безопасен для конкурентного использования.
type State struct {
	phase     atomic.Int32
	startedAt atomic.Int64
}

// NewState создает состояние в фазе starting
func NewState() *State {
	return &State{}
}

// Set переключает фазу. Переход в running фиксирует время старта.
func (s *State) Set(p Phase) {
	if p == PhaseRunning {
		s.startedAt.Store(time.Now().UnixNano())
	}
	s.phase.Store(int32(p))
}

// Phase возвращает текущую фазу
func (s *State) Phase() Phase {
	return Phase(s.phase.Load())
}

// Ready возвращает true, если сервис принимает трафик
func (s *State) Ready() bool {
	return s.Phase() == PhaseRunning
}

// Uptime возвращает время работы с момента последнего перехода в running
func (s *State) Uptime() time.Duration {
	started := s.startedAt.Load()
	if started == 0 || !s.Ready() {
		return 0
	}
	return time.Since(time.Unix(0, started))
}

// HealthChecker интерфейс для проверки здоровья сервиса
type HealthChecker interface {
	Check() *HealthStatus
}

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status     string            `json:"status"`
	Phase      string            `json:"phase"`
	Timestamp  time.Time         `json:"timestamp"`
	Uptime     string            `json:"uptime"`
	Version    string            `json:"version,omitempty"`
	Components map[string]Status `json:"components,omitempty"`
}

// Status представляет статус компонента
type Status struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// ComponentFunc возвращает статус отдельного компонента
type ComponentFunc func() Status

// Checker реализация HealthChecker поверх State
type Checker struct {
	version    string
	state      *State
	components map[string]ComponentFunc
}

// NewChecker создает новый Checker
func NewChecker(version string, state *State) *Checker {
	return &Checker{
		version:    version,
		state:      state,
		components: make(map[string]ComponentFunc),
	}
}

// AddComponent регистрирует проверку компонента. Вызывается до запуска сервера.
func (c *Checker) AddComponent(name string, fn ComponentFunc) {
	c.components[name] = fn
}

// Check проверяет здоровье сервиса
func (c *Checker) Check() *HealthStatus {
	status := &HealthStatus{
		Status:    "healthy",
		Phase:     c.state.Phase().String(),
		Timestamp: time.Now().UTC(),
		Uptime:    c.state.Uptime().Round(time.Second).String(),
		Version:   c.version,
	}

	if len(c.components) > 0 {
		status.Components = make(map[string]Status, len(c.components))
		for name, fn := range c.components {
			st := fn()
			status.Components[name] = st
			if st.Status != "healthy" {
				status.Status = "degraded"
			}
		}
	}

	return status
}

// Handler создает HTTP обработчик для health check эндпоинта
func Handler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := checker.Check()
		writeJSON(w, http.StatusOK, status)
	}
}

// ReadyHandler создает HTTP обработчик для ready check эндпоинта
// Возвращает 200 только в фазе running, иначе 503
func ReadyHandler(state *State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := http.StatusOK
		status := "ready"
		if !state.Ready() {
			code = http.StatusServiceUnavailable
			status = "not_ready"
		}
		writeJSON(w, code, map[string]string{
			"status": status,
			"phase":  state.Phase().String(),
		})
	}
}

// LiveHandler создает HTTP обработчик для live check эндпоинта
// Возвращает 200 если процесс жив
func LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
