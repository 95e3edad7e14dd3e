// Package crash загружает исторические записи об авариях.
package crash

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"route-safety-go/pkg/models"
)

const (
	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
	ColumnSeverity  = "crash_sev_id"

	DefaultTable = "crashes"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Source источник записей об авариях
type Source interface {
	Load(ctx context.Context) ([]models.CrashRecord, error)
	Name() string
}

// parseRecord разбирает строку; пустые и нечисловые значения отбрасываются
func parseRecord(lat, lng, sev string) (models.CrashRecord, bool) {
	la, ok1 := parseValue(lat)
	lo, ok2 := parseValue(lng)
	s, ok3 := parseValue(sev)
	if !ok1 || !ok2 || !ok3 {
		return models.CrashRecord{}, false
	}
	return buildRecord(la, lo, s)
}

func buildRecord(lat, lng, sev float64) (models.CrashRecord, bool) {
	for _, v := range []float64{lat, lng, sev} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.CrashRecord{}, false
		}
	}
	if sev < 0 {
		return models.CrashRecord{}, false
	}
	return models.CrashRecord{Latitude: lat, Longitude: lng, Severity: sev}, true
}

func parseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// selectQuery строит запрос к таблице с проверенным именем.
// Непустой cast приводит каждый столбец к этому типу PostgreSQL.
func selectQuery(table, cast string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identPattern.MatchString(table) {
		return "", fmt.Errorf("%w: invalid table name %q", models.ErrInvalidInput, table)
	}

	columns := []string{ColumnLatitude, ColumnLongitude, ColumnSeverity}
	if cast != "" {
		for i, c := range columns {
			columns[i] = c + "::" + cast
		}
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), table), nil
}
