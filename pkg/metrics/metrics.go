package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// OtherEndpoint метка для путей, не зарегистрированных в WithKnownPaths
const OtherEndpoint = "other"

// Metrics представляет систему метрик
type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsCount     *prometheus.CounterVec
	InFlight        prometheus.Gauge

	// OpenTelemetry Tracer
	Tracer trace.Tracer `json:"-"`

	registry   *prometheus.Registry
	knownPaths map[string]struct{}
}

type options struct {
	tracerProvider trace.TracerProvider
	knownPaths     []string
	runtime        bool
}

// Option настраивает систему метрик
type Option func(*options)

// WithTracerProvider задает провайдер трассировки вместо глобального
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithKnownPaths задает пути, которые попадают в метку endpoint как есть.
// Остальные пути схлопываются в OtherEndpoint.
func WithKnownPaths(paths ...string) Option {
	return func(o *options) { o.knownPaths = append(o.knownPaths, paths...) }
}

// WithoutRuntimeCollectors отключает Go и process коллекторы
func WithoutRuntimeCollectors() Option {
	return func(o *options) { o.runtime = false }
}

// NewMetrics создает новую систему метрик с собственным реестром
func NewMetrics(namespace string, opts ...Option) *Metrics {
	o := &options{runtime: true}
	for _, opt := range opts {
		opt(o)
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}

	registry := prometheus.NewRegistry()

	requestCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	errorsCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of HTTP errors",
		},
		[]string{"method", "endpoint", "error_type"},
	)

	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	registry.MustRegister(requestCount, requestDuration, errorsCount, inFlight)
	if o.runtime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	known := make(map[string]struct{}, len(o.knownPaths))
	for _, p := range o.knownPaths {
		known[p] = struct{}{}
	}

	return &Metrics{
		RequestCount:    requestCount,
		RequestDuration: requestDuration,
		ErrorsCount:     errorsCount,
		InFlight:        inFlight,
		Tracer:          o.tracerProvider.Tracer(namespace),
		registry:        registry,
		knownPaths:      known,
	}
}

// Registry возвращает реестр Prometheus этого экземпляра
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает HTTP обработчик для эндпоинта метрик
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) endpoint(path string) string {
	if _, ok := m.knownPaths[path]; ok {
		return path
	}
	return OtherEndpoint
}

// Middleware создает middleware для сбора метрик и трассировки
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := m.endpoint(r.URL.Path)

		ctx, span := m.Tracer.Start(r.Context(), r.Method+" "+endpoint,
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		m.InFlight.Inc()
		defer m.InFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(wrapped, r.WithContext(ctx))

		duration := time.Since(start).Seconds()

		m.RequestCount.WithLabelValues(r.Method, endpoint, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(duration)

		if wrapped.statusCode >= 400 {
			errorType := "client_error"
			if wrapped.statusCode >= 500 {
				errorType = "server_error"
				span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
			}
			m.ErrorsCount.WithLabelValues(r.Method, endpoint, errorType).Inc()
		}

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
			attribute.Int("http.status_code", wrapped.statusCode),
			attribute.Int64("http.response_content_length", wrapped.written),
		)
	})
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

// InitTracing устанавливает глобальный провайдер трассировки OpenTelemetry.
// Возвращает функцию остановки провайдера.
func InitTracing(serviceName, version string, sampleRatio float64) (func(context.Context) error, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(sampleRatio))),
		tracesdk.WithResource(res),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
