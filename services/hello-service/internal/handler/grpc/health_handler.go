package grpc

import (
	"context"
	stderrors "errors"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"RestAPIPlatform/pkg/errors"
	"RestAPIPlatform/pkg/logger"
)

// HealthHandler публикует grpc.health.v1.Health для сервиса.
// Статус общий для всех перезапусков, gRPC сервер создается заново в каждом Serve.
type HealthHandler struct {
	serviceName string
	health      *health.Server
	log         logger.Logger
}

// NewHealthHandler создает HealthHandler в статусе NOT_SERVING
func NewHealthHandler(serviceName string, log logger.Logger) *HealthHandler {
	h := &HealthHandler{
		serviceName: serviceName,
		health:      health.NewServer(),
		log:         log,
	}
	h.SetServing(false)
	return h
}

// SetServing переключает статус для всего сервера и для serviceName
func (h *HealthHandler) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(h.serviceName, st)
}

// NewServer создает gRPC сервер с зарегистрированным health сервисом
func (h *HealthHandler) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingServerInterceptor(h.log)))
	healthpb.RegisterHealthServer(srv, h.health)
	reflection.Register(srv)
	return srv
}

// Stop останавливает сервер, дожидаясь активных вызовов не дольше, чем позволяет ctx
func Stop(ctx context.Context, srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
		<-done
	}
}

// Serve обслуживает ln до остановки srv
func Serve(srv *grpc.Server, ln net.Listener) error {
	if err := srv.Serve(ln); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// LoggingServerInterceptor логирует gRPC вызовы на сервере.
// Кастомные ошибки из pkg/errors переводятся в gRPC статус.
func LoggingServerInterceptor(log logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		var appErr *errors.Error
		if stderrors.As(err, &appErr) {
			err = appErr.ToGRPCErr()
		}

		fields := []logger.Field{
			logger.String("grpc_method", info.FullMethod),
			logger.Duration("duration", time.Since(start)),
		}
		if err != nil {
			st, _ := status.FromError(err)
			fields = append(fields,
				logger.String("grpc_code", st.Code().String()),
				logger.Error(err))
			log.Warn("gRPC call failed", fields...)
			return resp, err
		}

		log.Debug("gRPC call completed", fields...)
		return resp, nil
	}
}
