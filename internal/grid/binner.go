package grid

import (
	"fmt"
	"math"
	"sort"

	"route-safety-go/pkg/models"
)

// DefaultGridSize размер ячейки в градусах (~1.1 км)
const DefaultGridSize = 0.01

type cellKey struct {
	lat, lng float64
}

type accumulator struct {
	sum   float64
	count int
}

// BinValue привязывает координату к нижней границе ячейки.
// Частное округляется к минус бесконечности по точному остатку, а не по
// уже округленному v/gridSize: -97.01/0.01 дает ровно -9701, хотя
// точное частное меньше.
func BinValue(v, gridSize float64) float64 {
	return floorDiv(v, gridSize) * gridSize
}

// floorDiv целочисленное деление с округлением вниз для float64
func floorDiv(v, g float64) float64 {
	mod := math.Mod(v, g)
	div := (v - mod) / g
	if mod != 0 && (mod < 0) != (g < 0) {
		div--
	}
	if div == 0 {
		return 0
	}
	fl := math.Floor(div)
	if div-fl > 0.5 {
		fl++
	}
	return fl
}

// Bin группирует записи об авариях по ячейкам сетки и считает среднюю тяжесть.
// Ячейки возвращаются отсортированными по (LatBin, LngBin).
func Bin(records []models.CrashRecord, gridSize float64) ([]models.GridCell, error) {
	if !(gridSize > 0) || math.IsInf(gridSize, 0) {
		return nil, fmt.Errorf("%w: grid size must be positive, got %v", models.ErrInvalidInput, gridSize)
	}

	groups := make(map[cellKey]*accumulator)
	for i, rec := range records {
		if !finite(rec.Latitude) || !finite(rec.Longitude) || !finite(rec.Severity) {
			return nil, fmt.Errorf("%w: record %d has non-finite values (%v, %v, %v)",
				models.ErrInvalidInput, i, rec.Latitude, rec.Longitude, rec.Severity)
		}

		key := cellKey{lat: BinValue(rec.Latitude, gridSize), lng: BinValue(rec.Longitude, gridSize)}
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{}
			groups[key] = acc
		}
		acc.sum += rec.Severity
		acc.count++
	}

	cells := make([]models.GridCell, 0, len(groups))
	for key, acc := range groups {
		cells = append(cells, models.GridCell{
			LatBin:       key.lat,
			LngBin:       key.lng,
			MeanSeverity: acc.sum / float64(acc.count),
			Count:        acc.count,
		})
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].LatBin != cells[j].LatBin {
			return cells[i].LatBin < cells[j].LatBin
		}
		return cells[i].LngBin < cells[j].LngBin
	})

	return cells, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
