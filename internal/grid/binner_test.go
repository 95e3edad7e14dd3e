package grid

import (
	"errors"
	"math"
	"testing"

	"route-safety-go/pkg/models"
)

func TestBinSameCellMean(t *testing.T) {
	records := []models.CrashRecord{
		{Latitude: 30.01, Longitude: -97.01, Severity: 2},
		{Latitude: 30.014, Longitude: -97.012, Severity: 4},
	}

	cells, err := Bin(records, 0.01)
	if err != nil {
		t.Fatalf("Bin returned error: %v", err)
	}
	if len(cells) != 1 {
		t.Fatalf("expected 1 cell, got %d: %+v", len(cells), cells)
	}
	if cells[0].MeanSeverity != 3 || cells[0].Count != 2 {
		t.Fatalf("unexpected cell %+v", cells[0])
	}
}

func TestBinSortsByLatThenLng(t *testing.T) {
	records := []models.CrashRecord{
		{Latitude: 30.015, Longitude: -97.005, Severity: 1},
		{Latitude: 30.015, Longitude: -97.015, Severity: 2},
		{Latitude: 30.005, Longitude: -97.005, Severity: 3},
	}

	cells, err := Bin(records, 0.01)
	if err != nil {
		t.Fatalf("Bin returned error: %v", err)
	}
	if len(cells) != 3 {
		t.Fatalf("expected 3 cells, got %d: %+v", len(cells), cells)
	}
	for i := 1; i < len(cells); i++ {
		prev, cur := cells[i-1], cells[i]
		if prev.LatBin > cur.LatBin || (prev.LatBin == cur.LatBin && prev.LngBin >= cur.LngBin) {
			t.Errorf("cells not sorted: %+v", cells)
		}
	}
}

func TestBinValue(t *testing.T) {
	tests := []struct {
		name     string
		v        float64
		expected float64
	}{
		{"positive", 30.2672, 30.26},
		{"negative", -97.7431, -97.75},
		{"small negative", -0.001, -0.01},
		{"zero", 0, 0},
		// v/gridSize округляется до -9701, точное частное меньше
		{"rounded quotient below zero", -97.01, -97.02},
		// 0.03/0.01 округляется до 3, точное частное меньше
		{"rounded quotient above zero", 0.03, 0.02},
		{"exact grid line", 30.01, 30.01},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BinValue(tc.v, 0.01)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("BinValue(%v) = %v, expected %v", tc.v, got, tc.expected)
			}
		})
	}
}

func TestBinEveryRecordMapsToOneCell(t *testing.T) {
	lats := []float64{30.2672, 30.2772, 30.2872, 30.2972, 30.3072, 30.3172, 30.3272, 30.3372, 30.3472, 30.3572}
	lngs := []float64{-97.7431, -97.7531, -97.7631, -97.7731, -97.7831, -97.7931, -97.8031, -97.8131, -97.8231, -97.8331}
	sev := []float64{1, 2, 3, 2, 1, 3, 2, 1, 3, 2}

	var records []models.CrashRecord
	for i := range lats {
		records = append(records, models.CrashRecord{Latitude: lats[i], Longitude: lngs[i], Severity: sev[i]})
	}
	// Дубликаты в той же ячейке
	records = append(records, models.CrashRecord{Latitude: 30.2675, Longitude: -97.7435, Severity: 3})

	for _, size := range []float64{0.001, 0.01, 0.05, 1} {
		cells, err := Bin(records, size)
		if err != nil {
			t.Fatalf("size %v: %v", size, err)
		}

		total := 0
		for _, c := range cells {
			total += c.Count

			var sum float64
			var n int
			for _, r := range records {
				if BinValue(r.Latitude, size) == c.LatBin && BinValue(r.Longitude, size) == c.LngBin {
					sum += r.Severity
					n++
				}
			}
			if n != c.Count {
				t.Errorf("size %v: cell %+v count mismatch, members=%d", size, c, n)
			}
			if math.Abs(sum/float64(n)-c.MeanSeverity) > 1e-12 {
				t.Errorf("size %v: cell %+v mean mismatch, expected %v", size, c, sum/float64(n))
			}
		}
		if total != len(records) {
			t.Errorf("size %v: cells hold %d records, expected %d", size, total, len(records))
		}
	}
}

func TestBinEmptyInput(t *testing.T) {
	cells, err := Bin(nil, DefaultGridSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cells) != 0 {
		t.Fatalf("expected no cells, got %d", len(cells))
	}
}

func TestBinInvalidInput(t *testing.T) {
	valid := []models.CrashRecord{{Latitude: 1, Longitude: 1, Severity: 1}}

	if _, err := Bin(valid, 0); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("zero grid size: expected ErrInvalidInput, got %v", err)
	}
	if _, err := Bin(valid, math.NaN()); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("NaN grid size: expected ErrInvalidInput, got %v", err)
	}

	bad := []models.CrashRecord{{Latitude: math.NaN(), Longitude: 1, Severity: 1}}
	if _, err := Bin(bad, 0.01); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("NaN latitude: expected ErrInvalidInput, got %v", err)
	}
}
