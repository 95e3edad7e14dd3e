package crash

import (
	"context"
	"fmt"

	"route-safety-go/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// PostgresSource читает записи из таблицы PostgreSQL
type PostgresSource struct {
	pool   *pgxpool.Pool
	table  string
	logger *logrus.Logger
}

// NewPostgresSource создает пул соединений и проверяет доступность базы
func NewPostgresSource(ctx context.Context, databaseURL, table string, logger *logrus.Logger) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create crash database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping crash database: %w", err)
	}
	return &PostgresSource{pool: pool, table: table, logger: logger}, nil
}

// Name описание источника для логов
func (s *PostgresSource) Name() string {
	return "postgres:" + s.table
}

// Load выбирает все строки таблицы, строки с NULL отбрасываются
func (s *PostgresSource) Load(ctx context.Context) ([]models.CrashRecord, error) {
	// crash_sev_id обычно целочисленный, приводим все к float8 на стороне базы
	query, err := selectQuery(s.table, "float8")
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query crash records: %w", err)
	}
	defer rows.Close()

	var (
		records []models.CrashRecord
		skipped int
	)
	for rows.Next() {
		var lat, lng, sev *float64
		if err := rows.Scan(&lat, &lng, &sev); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan crash record: %w", err)
		}
		if lat == nil || lng == nil || sev == nil {
			skipped++
			continue
		}
		rec, ok := buildRecord(*lat, *lng, *sev)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate crash records: %w", err)
	}

	if skipped > 0 {
		s.logger.Warnf("Пропущено %d строк с неполными данными в %s", skipped, s.table)
	}
	s.logger.Infof("Загружено %d записей об авариях из PostgreSQL", len(records))
	return records, nil
}

// Close закрывает пул соединений
func (s *PostgresSource) Close() {
	s.pool.Close()
}
