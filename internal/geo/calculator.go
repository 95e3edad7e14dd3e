package geo

import (
	"math"

	"route-safety-go/pkg/models"
)

// MetersPerDegree приближенное число метров в одном градусе
const MetersPerDegree = 111320.0

// Calculator для географических вычислений
type Calculator struct{}

// NewCalculator создает новый калькулятор
func NewCalculator() *Calculator {
	return &Calculator{}
}

// DistanceMeters вычисляет расстояние между двумя точками в метрах
// Использует формулу гаверсинуса
func (c *Calculator) DistanceMeters(point1, point2 models.Coordinates) float64 {
	const earthRadiusKm = 6371.0

	lat1Rad := point1.Lat * math.Pi / 180
	lon1Rad := point1.Lng * math.Pi / 180
	lat2Rad := point2.Lat * math.Pi / 180
	lon2Rad := point2.Lng * math.Pi / 180

	deltaLat := lat2Rad - lat1Rad
	deltaLon := lon2Rad - lon1Rad

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	chord := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * chord * 1000
}

// Bearing вычисляет азимут от from к to в градусах (0-360)
func (c *Calculator) Bearing(from, to models.Coordinates) float64 {
	phi1 := from.Lat * math.Pi / 180
	phi2 := to.Lat * math.Pi / 180
	deltaLambda := (to.Lng - from.Lng) * math.Pi / 180

	x := math.Sin(deltaLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)

	bearing := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}

var compassPoints = []string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest"}

// Heading возвращает направление движения словами.
// Для совпадающих точек возвращает "stationary".
func (c *Calculator) Heading(from, to models.Coordinates) string {
	if from == to {
		return "stationary"
	}
	sector := int(math.Round(c.Bearing(from, to)/45)) % len(compassPoints)
	return compassPoints[sector]
}

// MetersToDegrees переводит метры в приближенные градусы
func (c *Calculator) MetersToDegrees(meters float64) float64 {
	return meters / MetersPerDegree
}
