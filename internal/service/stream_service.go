package service

import (
	"context"
	"fmt"

	"route-safety-go/internal/stream"
	"route-safety-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// StreamService открывает сессии голосовых подсказок
type StreamService struct {
	narrator stream.Narrator
	routes   stream.RouteProvider
	logger   *logrus.Logger
}

// NewStreamService создает новый сервис потоков
func NewStreamService(narrator stream.Narrator, routes stream.RouteProvider, logger *logrus.Logger) *StreamService {
	return &StreamService{
		narrator: narrator,
		routes:   routes,
		logger:   logger,
	}
}

// Open проверяет запрос и подготавливает контроллер потока.
// Запуск выполняет вызывающая сторона через Controller.Start.
func (s *StreamService) Open(ctx context.Context, req models.StreamRequest) (*stream.Controller, error) {
	source, err := stream.SourceFromRequest(req)
	if err != nil {
		return nil, err
	}

	ctrl, err := stream.New(ctx, source, stream.Deps{
		Narrator: s.narrator,
		Routes:   s.routes,
		Logger:   s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	s.logger.Infof("Открыт поток %s: %d точек", ctrl.ID(), ctrl.Len())
	return ctrl, nil
}
