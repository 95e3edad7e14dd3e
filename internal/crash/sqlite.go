package crash

import (
	"context"
	"database/sql"
	"fmt"

	"route-safety-go/pkg/models"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteSource читает записи из локального файла SQLite
type SQLiteSource struct {
	db     *sql.DB
	table  string
	logger *logrus.Logger
}

// NewSQLiteSource открывает файл базы
func NewSQLiteSource(ctx context.Context, path, table string, logger *logrus.Logger) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open crash database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping crash database: %w", err)
	}
	return &SQLiteSource{db: db, table: table, logger: logger}, nil
}

// Name описание источника для логов
func (s *SQLiteSource) Name() string {
	return "sqlite:" + s.table
}

// Load выбирает все строки таблицы, строки с NULL отбрасываются
func (s *SQLiteSource) Load(ctx context.Context) ([]models.CrashRecord, error) {
	query, err := selectQuery(s.table, "")
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query crash records: %w", err)
	}
	defer rows.Close()

	var (
		records []models.CrashRecord
		skipped int
	)
	for rows.Next() {
		var lat, lng, sev sql.NullFloat64
		if err := rows.Scan(&lat, &lng, &sev); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan crash record: %w", err)
		}
		if !lat.Valid || !lng.Valid || !sev.Valid {
			skipped++
			continue
		}
		rec, ok := buildRecord(lat.Float64, lng.Float64, sev.Float64)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate crash records: %w", err)
	}

	if skipped > 0 {
		s.logger.Warnf("Пропущено %d строк с неполными данными в %s", skipped, s.table)
	}
	s.logger.Infof("Загружено %d записей об авариях из SQLite", len(records))
	return records, nil
}

// Close закрывает базу
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
