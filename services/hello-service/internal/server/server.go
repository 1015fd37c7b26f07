package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"

	"RestAPIPlatform/pkg/errors"
	"RestAPIPlatform/pkg/health"
	"RestAPIPlatform/pkg/logger"
	grpchandler "RestAPIPlatform/services/hello-service/internal/handler/grpc"
)

// DefaultPort порт API. Не настраивается.
const DefaultPort = 8000

// Config адреса листенеров. Пустой AdminAddr или GRPCAddr отключает листенер.
type Config struct {
	APIAddr           string
	AdminAddr         string
	GRPCAddr          string
	ReadHeaderTimeout time.Duration
}

// Server владеет листенерами API, admin и gRPC и их жизненным циклом.
// После Shutdown может быть запущен повторно.
type Server struct {
	cfg    Config
	api    http.Handler
	admin  http.Handler
	grpc   *grpchandler.HealthHandler
	state  *health.State
	log    logger.Logger
	stdout io.Writer

	mu       sync.Mutex
	running  bool
	wg       sync.WaitGroup
	apiSrv   *http.Server
	adminSrv *http.Server
	grpcSrv  *grpc.Server

	// адреса читаются из обработчиков health без захвата mu
	addrs atomic.Pointer[addresses]
}

type addresses struct {
	api, admin, grpc string
}

// Option настраивает Server
type Option func(*Server)

// WithAdminHandler задает обработчик служебного листенера
func WithAdminHandler(h http.Handler) Option {
	return func(s *Server) { s.admin = h }
}

// WithGRPCHealth включает gRPC health сервис
func WithGRPCHealth(h *grpchandler.HealthHandler) Option {
	return func(s *Server) { s.grpc = h }
}

// WithStdout перенаправляет строку об успешном старте (по умолчанию os.Stdout)
func WithStdout(w io.Writer) Option {
	return func(s *Server) { s.stdout = w }
}

// New создает Server. api обслуживается на cfg.APIAddr.
func New(cfg Config, api http.Handler, state *health.State, log logger.Logger, opts ...Option) *Server {
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	s := &Server{
		cfg:    cfg,
		api:    api,
		state:  state,
		log:    log,
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start привязывает все листенеры и запускает обслуживание в фоне.
// Ошибка привязки возвращается синхронно, уже открытые листенеры закрываются.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New(errors.ErrValidation, "server already running")
	}
	s.state.Set(health.PhaseStarting)

	apiLn, err := listen(s.cfg.APIAddr, "API")
	if err != nil {
		return err
	}

	var adminLn, grpcLn net.Listener
	if s.admin != nil && s.cfg.AdminAddr != "" {
		if adminLn, err = listen(s.cfg.AdminAddr, "admin"); err != nil {
			apiLn.Close()
			return err
		}
	}
	if s.grpc != nil && s.cfg.GRPCAddr != "" {
		if grpcLn, err = listen(s.cfg.GRPCAddr, "gRPC"); err != nil {
			apiLn.Close()
			if adminLn != nil {
				adminLn.Close()
			}
			return err
		}
	}

	baseCtx := func(net.Listener) context.Context { return context.WithoutCancel(ctx) }

	s.apiSrv = &http.Server{
		Handler:           s.api,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		BaseContext:       baseCtx,
	}
	s.serveHTTP("API", s.apiSrv, apiLn)

	if adminLn != nil {
		s.adminSrv = &http.Server{
			Handler:           s.admin,
			ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
			BaseContext:       baseCtx,
		}
		s.serveHTTP("admin", s.adminSrv, adminLn)
	}

	if grpcLn != nil {
		s.grpcSrv = s.grpc.NewServer()
		srv := s.grpcSrv
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := grpchandler.Serve(srv, grpcLn); err != nil {
				s.log.Error("gRPC server failed", logger.Error(err))
			}
		}()
	}

	port := apiLn.Addr().(*net.TCPAddr).Port
	fmt.Fprintf(s.stdout, "Server started on port %d\n", port)

	s.log.Info("Server started",
		logger.String("api_addr", apiLn.Addr().String()),
		logger.String("admin_addr", addrOf(adminLn)),
		logger.String("grpc_addr", addrOf(grpcLn)))

	s.addrs.Store(&addresses{
		api:   apiLn.Addr().String(),
		admin: addrOf(adminLn),
		grpc:  addrOf(grpcLn),
	})
	s.running = true
	s.state.Set(health.PhaseRunning)
	if s.grpc != nil {
		s.grpc.SetServing(true)
	}

	return nil
}

func (s *Server) serveHTTP(name string, srv *http.Server, ln net.Listener) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("HTTP server failed", logger.String("listener", name), logger.Error(err))
		}
	}()
}

// Shutdown останавливает листенеры, дожидаясь активных запросов в пределах ctx.
// Повторный вызов без Start ничего не делает.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.state.Set(health.PhaseStopping)
	if s.grpc != nil {
		s.grpc.SetServing(false)
	}

	var errs []error
	if err := shutdownHTTP(ctx, s.apiSrv); err != nil {
		errs = append(errs, fmt.Errorf("api shutdown: %w", err))
	}
	if s.adminSrv != nil {
		if err := shutdownHTTP(ctx, s.adminSrv); err != nil {
			errs = append(errs, fmt.Errorf("admin shutdown: %w", err))
		}
	}
	if s.grpcSrv != nil {
		grpchandler.Stop(ctx, s.grpcSrv)
	}

	s.wg.Wait()

	s.running = false
	s.apiSrv, s.adminSrv, s.grpcSrv = nil, nil, nil
	s.addrs.Store(nil)

	s.log.Info("Server stopped")
	return stderrors.Join(errs...)
}

// shutdownHTTP закрывает оставшиеся соединения принудительно, если ctx истек раньше
func shutdownHTTP(ctx context.Context, srv *http.Server) error {
	err := srv.Shutdown(ctx)
	if err != nil {
		srv.Close()
	}
	return err
}

// Addr возвращает адрес API листенера или пустую строку, если сервер не запущен
func (s *Server) Addr() string {
	if a := s.addrs.Load(); a != nil {
		return a.api
	}
	return ""
}

// AdminAddr возвращает адрес служебного листенера
func (s *Server) AdminAddr() string {
	if a := s.addrs.Load(); a != nil {
		return a.admin
	}
	return ""
}

// GRPCAddr возвращает адрес gRPC листенера
func (s *Server) GRPCAddr() string {
	if a := s.addrs.Load(); a != nil {
		return a.grpc
	}
	return ""
}

func listen(addr, name string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnavailable, fmt.Sprintf("failed to bind %s listener", name)).
			WithDetails("addr=" + addr)
	}
	return ln, nil
}

func addrOf(ln net.Listener) string {
	if ln == nil {
		return ""
	}
	return ln.Addr().String()
}
