package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestMetrics(t *testing.T) (*Metrics, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	m := NewMetrics("test_service",
		WithTracerProvider(tp),
		WithKnownPaths("/known"),
		WithoutRuntimeCollectors(),
	)
	return m, recorder
}

// TestNewMetrics проверяет создание системы метрик
func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_service")
	require.NotNil(t, m)

	assert.NotNil(t, m.RequestCount)
	assert.NotNil(t, m.RequestDuration)
	assert.NotNil(t, m.ErrorsCount)
	assert.NotNil(t, m.InFlight)
	assert.NotNil(t, m.Tracer)
	assert.NotNil(t, m.Registry())

	// второй экземпляр не конфликтует с первым
	assert.NotPanics(t, func() { NewMetrics("test_service") })
}

// TestHandler проверяет обработчик метрик
func TestHandler(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.RequestCount.WithLabelValues("GET", "/known", "200").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, w.Body.String(), `test_service_http_requests_total{endpoint="/known",method="GET",status="200"} 1`)
}

// TestMiddleware проверяет сбор метрик и трассировку
func TestMiddleware(t *testing.T) {
	m, recorder := newTestMetrics(t)

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "OK")
	}))

	req := httptest.NewRequest(http.MethodGet, "/known", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCount.WithLabelValues("GET", "/known", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /known", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", http.StatusOK))
	assert.Contains(t, spans[0].Attributes(), attribute.Int64("http.response_content_length", 2))
}

// TestMiddleware_UnknownPath проверяет схлопывание неизвестных путей
func TestMiddleware_UnknownPath(t *testing.T) {
	m, _ := newTestMetrics(t)
	handler := m.Middleware(http.NotFoundHandler())

	for _, path := range []string{"/a", "/b", "/c"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RequestCount.WithLabelValues("GET", OtherEndpoint, "404")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ErrorsCount.WithLabelValues("GET", OtherEndpoint, "client_error")))
}

// TestMiddleware_ServerError проверяет статус спана при ошибке сервера
func TestMiddleware_ServerError(t *testing.T) {
	m, recorder := newTestMetrics(t)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/known", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsCount.WithLabelValues("POST", "/known", "server_error")))
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

// TestInitTracing проверяет инициализацию провайдера трассировки
func TestInitTracing(t *testing.T) {
	shutdown, err := InitTracing("test-service", "1.0.0", 0.5)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
