package service

import (
	"context"
	"fmt"
	"time"

	"route-safety-go/internal/crash"
	"route-safety-go/internal/risk"

	"github.com/sirupsen/logrus"
)

// TrainFromSource загружает записи об авариях и обучает поверхность риска.
// Выполняется один раз при старте, до приема запросов.
func TrainFromSource(ctx context.Context, source crash.Source, gridSize float64, opts risk.Options, logger *logrus.Logger) (*risk.Surface, error) {
	started := time.Now()
	logger.Infof("Загрузка данных об авариях из %s", source.Name())

	records, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load crash records from %s: %w", source.Name(), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no crash records loaded from %s", source.Name())
	}
	logger.Infof("Загружено %d записей за %v", len(records), time.Since(started))

	surface, err := risk.TrainRiskSurface(records, gridSize, opts, logger)
	if err != nil {
		return nil, err
	}
	return surface, nil
}
