package crash

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"route-safety-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// CSVSource читает записи из CSV с колонками latitude, longitude, crash_sev_id
type CSVSource struct {
	path   string
	logger *logrus.Logger
}

// NewCSVSource создает CSV-источник
func NewCSVSource(path string, logger *logrus.Logger) *CSVSource {
	return &CSVSource{path: path, logger: logger}
}

// Name описание источника для логов
func (s *CSVSource) Name() string {
	return "csv:" + s.path
}

// Load читает файл целиком
func (s *CSVSource) Load(ctx context.Context) ([]models.CrashRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open crash data: %w", err)
	}
	defer f.Close()

	records, skipped, err := ReadCSV(ctx, f)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.logger.Warnf("Пропущено %d строк с неполными данными в %s", skipped, s.path)
	}
	s.logger.Infof("Загружено %d записей об авариях из %s", len(records), s.path)
	return records, nil
}

// ReadCSV разбирает CSV с заголовком. Возвращает записи и число пропущенных строк.
func ReadCSV(ctx context.Context, r io.Reader) ([]models.CrashRecord, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	latIdx, ok1 := cols[ColumnLatitude]
	lngIdx, ok2 := cols[ColumnLongitude]
	sevIdx, ok3 := cols[ColumnSeverity]
	if !ok1 || !ok2 || !ok3 {
		return nil, 0, fmt.Errorf("%w: csv must contain %s, %s and %s columns",
			models.ErrInvalidInput, ColumnLatitude, ColumnLongitude, ColumnSeverity)
	}

	var (
		records []models.CrashRecord
		skipped int
		line    int
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read csv row %d: %w", line, err)
		}
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}

		if latIdx >= len(row) || lngIdx >= len(row) || sevIdx >= len(row) {
			skipped++
			continue
		}
		rec, ok := parseRecord(row[latIdx], row[lngIdx], row[sevIdx])
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}
