package geofence

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"route-safety-go/internal/geo"
	"route-safety-go/pkg/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/sirupsen/logrus"
)

// DefaultBufferMeters буфер вокруг полигона по умолчанию
const DefaultBufferMeters = 50.0

// AxisOrder порядок координат в вершинах источника
type AxisOrder string

const (
	// AxisLatLng вершины хранятся как [lat, lng]
	AxisLatLng AxisOrder = "latlng"
	// AxisLngLat вершины хранятся как [lng, lat] (стандарт GeoJSON)
	AxisLngLat AxisOrder = "lnglat"
)

// Index набор полигонов зон с высокой аварийностью.
// После построения не изменяется, Contains безопасен для параллельных вызовов.
type Index struct {
	polygons []orb.Polygon
	bounds   []orb.Bound
	calc     *geo.Calculator
}

// NewIndex строит индекс из колец (lng, lat)
func NewIndex(rings []orb.Ring) *Index {
	idx := &Index{calc: geo.NewCalculator()}
	for _, ring := range rings {
		if len(ring) < 3 {
			continue
		}
		if !ring.Closed() {
			ring = append(append(orb.Ring{}, ring...), ring[0])
		}
		poly := orb.Polygon{ring}
		idx.polygons = append(idx.polygons, poly)
		idx.bounds = append(idx.bounds, poly.Bound())
	}
	return idx
}

// Len количество полигонов в индексе
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.polygons)
}

// Contains проверяет, попадает ли точка (lat, lng) в какой-либо полигон,
// расширенный на bufferMeters. Буфер переводится в градусы на каждый запрос.
func (idx *Index) Contains(lat, lng, bufferMeters float64) bool {
	if idx == nil || len(idx.polygons) == 0 {
		return false
	}
	if bufferMeters < 0 {
		bufferMeters = 0
	}

	buf := idx.calc.MetersToDegrees(bufferMeters)
	pt := orb.Point{lng, lat}

	for i, poly := range idx.polygons {
		if !idx.bounds[i].Pad(buf).Contains(pt) {
			continue
		}
		if planar.PolygonContains(poly, pt) {
			return true
		}
		// Точка вне кольца, но в пределах буфера от границы
		if buf > 0 && planar.DistanceFrom(poly, pt) <= buf {
			return true
		}
	}
	return false
}

// Load загружает индекс из файла или URL.
// Любая ошибка дает пустой индекс и предупреждение в лог.
func Load(ctx context.Context, source string, order AxisOrder, logger *logrus.Logger) *Index {
	idx, err := BuildGeofenceIndex(ctx, source, order)
	if err != nil {
		logger.Warnf("Не удалось загрузить полигоны горячих точек из %s: %v", source, err)
		return NewIndex(nil)
	}
	logger.Infof("Загружено %d полигонов горячих точек из %s", idx.Len(), source)
	return idx
}

// BuildGeofenceIndex читает GeoJSON FeatureCollection и строит индекс.
// Берется внешнее кольцо каждого Polygon и MultiPolygon.
func BuildGeofenceIndex(ctx context.Context, source string, order AxisOrder) (*Index, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: empty source", models.ErrGeofenceLoad)
	}

	data, err := readSource(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGeofenceLoad, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid geojson: %v", models.ErrGeofenceLoad, err)
	}

	var rings []orb.Ring
	for _, feature := range fc.Features {
		switch g := feature.Geometry.(type) {
		case orb.Polygon:
			if len(g) > 0 {
				rings = append(rings, orient(g[0], order))
			}
		case orb.MultiPolygon:
			for _, p := range g {
				if len(p) > 0 {
					rings = append(rings, orient(p[0], order))
				}
			}
		}
	}

	return NewIndex(rings), nil
}

// orient приводит кольцо к порядку (lng, lat)
func orient(ring orb.Ring, order AxisOrder) orb.Ring {
	out := make(orb.Ring, len(ring))
	for i, p := range ring {
		if order == AxisLngLat {
			out[i] = p
		} else {
			out[i] = orb.Point{p[1], p[0]}
		}
	}
	return out
}

func readSource(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.ReadFile(source)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch polygons: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read polygons: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("polygon source returned status %d", resp.StatusCode)
	}
	return body, nil
}
