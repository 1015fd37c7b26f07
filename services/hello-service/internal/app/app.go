package app

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"RestAPIPlatform/pkg/config"
	"RestAPIPlatform/pkg/health"
	"RestAPIPlatform/pkg/logger"
	"RestAPIPlatform/pkg/metrics"
	grpchandler "RestAPIPlatform/services/hello-service/internal/handler/grpc"
	httphandler "RestAPIPlatform/services/hello-service/internal/handler/http"
	"RestAPIPlatform/services/hello-service/internal/middleware"
	"RestAPIPlatform/services/hello-service/internal/server"
)

const (
	ServiceName = "hello-service"
	Version     = "1.0.0"

	metricsNamespace = "hello_service"
)

// App собирает обработчики, middleware и листенеры сервиса
type App struct {
	Server  *server.Server
	Metrics *metrics.Metrics
	State   *health.State
}

type options struct {
	apiAddr       string
	serverOptions []server.Option
}

// Option настраивает App
type Option func(*options)

// WithAPIAddr переопределяет адрес API листенера. Используется в тестах,
// в рабочем бинарнике порт всегда server.DefaultPort.
func WithAPIAddr(addr string) Option {
	return func(o *options) { o.apiAddr = addr }
}

// WithServerOptions передает дополнительные опции в server.New
func WithServerOptions(opts ...server.Option) Option {
	return func(o *options) { o.serverOptions = append(o.serverOptions, opts...) }
}

// New создает App по конфигурации
func New(cfg *config.Config, log logger.Logger, opts ...Option) *App {
	o := &options{
		apiAddr: net.JoinHostPort(cfg.Server.Host, strconv.Itoa(server.DefaultPort)),
	}
	for _, opt := range opts {
		opt(o)
	}

	state := health.NewState()
	m := metrics.NewMetrics(metricsNamespace, metrics.WithKnownPaths(httphandler.HelloPath))

	// API: единственный маршрут приветствия
	apiMux := http.NewServeMux()
	httphandler.NewHelloHandler(log).RegisterRoutes(apiMux)

	apiMiddleware := []func(http.Handler) http.Handler{
		middleware.RequestIDMiddleware(),
		middleware.LoggingMiddleware(log),
	}
	if cfg.Metrics.Enabled {
		apiMiddleware = append(apiMiddleware, m.Middleware)
	}
	apiMiddleware = append(apiMiddleware, middleware.RecoveryMiddleware(log))
	api := middleware.Chain(apiMux, apiMiddleware...)

	serverCfg := server.Config{APIAddr: o.apiAddr}
	var serverOpts []server.Option

	checker := health.NewChecker(Version, state)

	if cfg.Admin.Enabled {
		var metricsHandler http.Handler
		if cfg.Metrics.Enabled {
			metricsHandler = m.Handler()
		}
		adminMux := http.NewServeMux()
		httphandler.NewAdminHandler(checker, state, metricsHandler, cfg.Metrics.Path, log).RegisterRoutes(adminMux)

		serverCfg.AdminAddr = net.JoinHostPort(cfg.Admin.Host, strconv.Itoa(cfg.Admin.Port))
		serverOpts = append(serverOpts, server.WithAdminHandler(middleware.RecoveryMiddleware(log)(adminMux)))
	}

	if cfg.GRPC.Enabled {
		serverCfg.GRPCAddr = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.GRPC.Port))
		serverOpts = append(serverOpts, server.WithGRPCHealth(grpchandler.NewHealthHandler(ServiceName, log)))
	}

	srv := server.New(serverCfg, api, state, log, append(serverOpts, o.serverOptions...)...)

	checker.AddComponent("api", func() health.Status {
		if srv.Addr() == "" {
			return health.Status{Status: "down", Details: "listener not bound"}
		}
		return health.Status{Status: "healthy", Details: srv.Addr()}
	})

	return &App{
		Server:  srv,
		Metrics: m,
		State:   state,
	}
}

// Start запускает все листенеры
func (a *App) Start(ctx context.Context) error {
	return a.Server.Start(ctx)
}

// Shutdown останавливает все листенеры
func (a *App) Shutdown(ctx context.Context) error {
	return a.Server.Shutdown(ctx)
}
