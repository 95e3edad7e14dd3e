// Package health публикует готовность сервиса по протоколу grpc.health.v1.
// До завершения прогрева статус NOT_SERVING, после MarkReady SERVING.
package health

import (
	"context"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName имя сервиса в ответах health
const ServiceName = "routesafety.RouteSafety"

// Readiness gRPC сервер с единственным сервисом health
type Readiness struct {
	server *grpc.Server
	health *health.Server
	logger *logrus.Logger
}

// NewReadiness создает сервер в состоянии NOT_SERVING
func NewReadiness(logger *logrus.Logger) *Readiness {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	return &Readiness{server: server, health: hs, logger: logger}
}

// MarkReady переводит сервис в SERVING
func (r *Readiness) MarkReady() {
	r.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	r.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	r.logger.Info("Сервис готов к приему запросов")
}

// MarkNotReady переводит сервис в NOT_SERVING
func (r *Readiness) MarkNotReady() {
	r.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	r.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
}

// Serve принимает соединения на lis до Stop
func (r *Readiness) Serve(lis net.Listener) error {
	r.logger.Infof("gRPC health доступен на %s", lis.Addr())
	if err := r.server.Serve(lis); err != nil {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}

// ListenAndServe слушает порт и обслуживает запросы
func (r *Readiness) ListenAndServe(ctx context.Context, port int) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on %d: %w", port, err)
	}
	return r.Serve(lis)
}

// Stop останавливает сервер, активные проверки получают NOT_SERVING
func (r *Readiness) Stop() {
	r.health.Shutdown()
	r.server.GracefulStop()
}
