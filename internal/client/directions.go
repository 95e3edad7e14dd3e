package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"route-safety-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// DefaultDirectionsURL адрес Google Directions API
const DefaultDirectionsURL = "https://maps.googleapis.com/maps/api/directions/json"

// DirectionsClient клиент провайдера маршрутов Google Directions
type DirectionsClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewDirectionsClient создает новый клиент провайдера маршрутов
func NewDirectionsClient(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *DirectionsClient {
	if baseURL == "" {
		baseURL = DefaultDirectionsURL
	}
	return &DirectionsClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type directionsResponse struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message"`
	Routes       []directionsRoute `json:"routes"`
}

type directionsRoute struct {
	Summary string          `json:"summary"`
	Legs    []directionsLeg `json:"legs"`
}

type directionsLeg struct {
	Distance textValue        `json:"distance"`
	Duration textValue        `json:"duration"`
	Steps    []directionsStep `json:"steps"`
}

type directionsStep struct {
	Distance         textValue `json:"distance"`
	Duration         textValue `json:"duration"`
	EndLocation      latLng    `json:"end_location"`
	HTMLInstructions string    `json:"html_instructions"`
}

type textValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Routes запрашивает альтернативные автомобильные маршруты между двумя адресами.
// Ответ без маршрутов или со статусом, отличным от OK, дает ErrNoRoutes.
// Сетевые ошибки и отсутствие ключа дают ErrRouteProvider.
func (c *DirectionsClient) Routes(ctx context.Context, origin, destination string) ([]models.Route, error) {
	if origin == "" || destination == "" {
		return nil, fmt.Errorf("%w: origin and destination are required", models.ErrInvalidInput)
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: directions api key is not configured", models.ErrRouteProvider)
	}

	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)
	params.Set("mode", "driving")
	params.Set("alternatives", "true")
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	c.logger.Debugf("Запрос маршрутов: %s -> %s", origin, destination)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка отправки HTTP запроса: %v", models.ErrRouteProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка чтения ответа: %v", models.ErrRouteProvider, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Errorf("Directions API вернул статус %d", resp.StatusCode)
		return nil, fmt.Errorf("%w: directions api returned status %d", models.ErrNoRoutes, resp.StatusCode)
	}

	var parsed directionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: ошибка парсинга JSON ответа: %v", models.ErrInvalidInput, err)
	}

	if parsed.Status != "OK" {
		c.logger.Warnf("Directions API: статус %s, сообщение: %s", parsed.Status, parsed.ErrorMessage)
		return nil, fmt.Errorf("%w: directions status %s", models.ErrNoRoutes, parsed.Status)
	}
	if len(parsed.Routes) == 0 {
		return nil, models.ErrNoRoutes
	}

	routes := make([]models.Route, len(parsed.Routes))
	for i, r := range parsed.Routes {
		routes[i] = r.toModel()
	}

	c.logger.Infof("Получено %d маршрутов: %s -> %s", len(routes), origin, destination)
	return routes, nil
}

func (r directionsRoute) toModel() models.Route {
	route := models.Route{Summary: r.Summary, Legs: make([]models.RouteLeg, len(r.Legs))}
	for i, leg := range r.Legs {
		out := models.RouteLeg{
			DistanceText:    leg.Distance.Text,
			DurationSeconds: leg.Duration.Value,
			Steps:           make([]models.RouteStep, len(leg.Steps)),
		}
		for j, s := range leg.Steps {
			out.Steps[j] = models.RouteStep{
				EndLocation:      models.Coordinates{Lat: s.EndLocation.Lat, Lng: s.EndLocation.Lng},
				DurationSeconds:  s.Duration.Value,
				DistanceMeters:   s.Distance.Value,
				HTMLInstructions: s.HTMLInstructions,
			}
		}
		route.Legs[i] = out
	}
	return route
}
