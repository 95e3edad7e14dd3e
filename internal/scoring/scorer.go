// Package scoring оценивает безопасность маршрутов по поверхности риска.
package scoring

import (
	"fmt"
	"math"

	"route-safety-go/pkg/models"
)

const (
	maxScore = 10.0
	minScore = 1.0
)

// Predictor источник ожидаемой тяжести аварии в точке
type Predictor interface {
	Predict(lat, lng float64) (float64, error)
}

// ScoreRoute вычисляет оценку безопасности маршрута и его длительность.
// Предсказание берется в конечной точке каждого шага, оценка = clamp(10 - среднее, 1, 10).
func ScoreRoute(route models.Route, p Predictor) (models.SafetyScore, error) {
	var (
		totalMinutes float64
		sum          float64
		n            int
	)

	for _, leg := range route.Legs {
		for _, step := range leg.Steps {
			totalMinutes += step.DurationSeconds / 60

			severity, err := p.Predict(step.EndLocation.Lat, step.EndLocation.Lng)
			if err != nil {
				return models.SafetyScore{}, fmt.Errorf("failed to predict step %d: %w", n, err)
			}
			sum += severity
			n++
		}
	}

	var avg float64
	if n > 0 {
		avg = sum / float64(n)
	}

	return models.SafetyScore{
		Value:                clamp(maxScore-avg, minScore, maxScore),
		TotalDurationMinutes: totalMinutes,
	}, nil
}

// SelectSafest возвращает индекс маршрута с максимальной оценкой.
// При равенстве выигрывает первый; -1 для пустого списка.
func SelectSafest(scores []models.SafetyScore) int {
	best := -1
	for i, s := range scores {
		if best == -1 || s.Value > scores[best].Value {
			best = i
		}
	}
	return best
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
