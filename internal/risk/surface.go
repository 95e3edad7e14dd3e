package risk

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"route-safety-go/internal/grid"
	"route-safety-go/pkg/models"

	"github.com/sirupsen/logrus"
)

var errAlreadyFitted = errors.New("risk surface already fitted")

// Options параметры обучения ансамбля
type Options struct {
	Trees              int
	Seed               int64
	ValidationFraction float64
	MinSamplesLeaf     int
	MaxDepth           int
}

// DefaultOptions возвращает параметры по умолчанию: 100 деревьев, seed 42, 20% на проверку
func DefaultOptions() Options {
	return Options{
		Trees:              100,
		Seed:               42,
		ValidationFraction: 0.2,
		MinSamplesLeaf:     1,
	}
}

func (o Options) normalized() Options {
	if o.Trees < 1 {
		o.Trees = 1
	}
	if o.MinSamplesLeaf < 1 {
		o.MinSamplesLeaf = 1
	}
	if o.ValidationFraction < 0 || o.ValidationFraction >= 1 || math.IsNaN(o.ValidationFraction) {
		o.ValidationFraction = 0
	}
	return o
}

// FitReport итог обучения для наблюдаемости
type FitReport struct {
	Cells         int
	Trees         int
	PointEstimate bool
	Validated     bool
	ValidationMSE float64
	Duration      time.Duration
}

type fitted struct {
	model  regressor
	report FitReport
}

// Surface поверхность риска: до Fit только запись, после Fit только чтение.
// Predict безопасен для параллельных вызовов.
type Surface struct {
	opts   Options
	logger *logrus.Logger

	fitMu sync.Mutex
	state atomic.Pointer[fitted]
}

// NewSurface создает необученную поверхность
func NewSurface(opts Options, logger *logrus.Logger) *Surface {
	return &Surface{opts: opts.normalized(), logger: logger}
}

// Fit обучает модель на ячейках сетки. Повторный вызов возвращает ошибку.
func (s *Surface) Fit(cells []models.GridCell) (FitReport, error) {
	s.fitMu.Lock()
	defer s.fitMu.Unlock()

	if s.state.Load() != nil {
		return FitReport{}, errAlreadyFitted
	}

	started := time.Now()
	samples := make([]sample, len(cells))
	for i, c := range cells {
		samples[i] = sample{x: [2]float64{c.LatBin, c.LngBin}, y: c.MeanSeverity}
	}

	report := FitReport{Cells: len(cells)}
	var model regressor

	if len(samples) < 2 {
		model = fitMean(samples)
		report.PointEstimate = true
		s.logger.Warnf("Недостаточно ячеек (%d) для ансамбля, используется среднее значение", len(samples))
	} else {
		rng := rand.New(rand.NewSource(s.opts.Seed))

		if s.opts.ValidationFraction > 0 {
			train, test := holdOut(samples, s.opts.ValidationFraction, rng)
			validation := fitForest(train, s.opts, rng)
			report.ValidationMSE = meanSquaredError(validation, test)
			report.Validated = true
			s.logger.Infof("Среднеквадратичная ошибка на проверочной выборке: %.3f (%d/%d ячеек)",
				report.ValidationMSE, len(test), len(samples))
		}

		// Обслуживаемая модель обучается на всех ячейках и своем генераторе,
		// поэтому проверочное разбиение на нее не влияет.
		model = fitForest(samples, s.opts, rand.New(rand.NewSource(s.opts.Seed)))
		report.Trees = s.opts.Trees
	}

	report.Duration = time.Since(started)
	s.state.Store(&fitted{model: model, report: report})
	s.logger.Infof("Поверхность риска обучена: %d ячеек, %d деревьев за %v", report.Cells, report.Trees, report.Duration)

	return report, nil
}

// Predict возвращает ожидаемую тяжесть аварии в точке.
// Координаты подаются как есть, без привязки к сетке.
func (s *Surface) Predict(lat, lng float64) (float64, error) {
	f := s.state.Load()
	if f == nil {
		return 0, models.ErrModelNotReady
	}
	return f.model.predict([2]float64{lat, lng}), nil
}

// Ready сообщает, завершено ли обучение
func (s *Surface) Ready() bool {
	return s.state.Load() != nil
}

// Report возвращает итог обучения (нулевой до Fit)
func (s *Surface) Report() FitReport {
	if f := s.state.Load(); f != nil {
		return f.report
	}
	return FitReport{}
}

// TrainRiskSurface группирует записи по сетке и обучает поверхность риска
func TrainRiskSurface(records []models.CrashRecord, gridSize float64, opts Options, logger *logrus.Logger) (*Surface, error) {
	cells, err := grid.Bin(records, gridSize)
	if err != nil {
		return nil, fmt.Errorf("failed to bin crash records: %w", err)
	}
	logger.Infof("Сгруппировано %d записей в %d ячеек (размер %.4f°)", len(records), len(cells), gridSize)

	surface := NewSurface(opts, logger)
	if _, err := surface.Fit(cells); err != nil {
		return nil, fmt.Errorf("failed to fit risk surface: %w", err)
	}
	return surface, nil
}
