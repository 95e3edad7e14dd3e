package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"route-safety-go/pkg/models"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

const directionsOK = `{
  "status": "OK",
  "routes": [
    {
      "summary": "I-35 S",
      "legs": [
        {
          "distance": {"text": "12.4 mi", "value": 19956},
          "duration": {"text": "18 mins", "value": 1080},
          "steps": [
            {
              "distance": {"text": "0.2 mi", "value": 322},
              "duration": {"text": "1 min", "value": 60},
              "end_location": {"lat": 30.2672, "lng": -97.7431},
              "html_instructions": "Head <b>north</b> on <b>Congress Ave</b>"
            },
            {
              "distance": {"text": "12.2 mi", "value": 19634},
              "duration": {"text": "17 mins", "value": 1020},
              "end_location": {"lat": 30.1, "lng": -97.8},
              "html_instructions": "Turn <b>left</b> onto <b>I-35 S</b>"
            }
          ]
        }
      ]
    },
    {
      "summary": "US-183 S",
      "legs": [{"distance": {"text": "14 mi", "value": 22530}, "duration": {"text": "22 mins", "value": 1320}, "steps": []}]
    }
  ]
}`

func TestDirectionsRoutes(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query = map[string]string{
			"origin":       q.Get("origin"),
			"destination":  q.Get("destination"),
			"mode":         q.Get("mode"),
			"alternatives": q.Get("alternatives"),
			"key":          q.Get("key"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(directionsOK))
	}))
	defer srv.Close()

	c := NewDirectionsClient(srv.URL, "test-key", 5*time.Second, testLogger())
	routes, err := c.Routes(context.Background(), "Austin, TX", "Houston, TX")
	if err != nil {
		t.Fatalf("Routes: %v", err)
	}

	expectedQuery := map[string]string{
		"origin": "Austin, TX", "destination": "Houston, TX", "mode": "driving", "alternatives": "true", "key": "test-key",
	}
	for k, v := range expectedQuery {
		if query[k] != v {
			t.Errorf("query %s = %q, expected %q", k, query[k], v)
		}
	}

	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	first := routes[0]
	if first.Summary != "I-35 S" || first.Legs[0].DistanceText != "12.4 mi" {
		t.Errorf("unexpected route %+v", first)
	}
	steps := first.Steps()
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	expected := models.RouteStep{
		EndLocation:      models.Coordinates{Lat: 30.2672, Lng: -97.7431},
		DurationSeconds:  60,
		DistanceMeters:   322,
		HTMLInstructions: "Head <b>north</b> on <b>Congress Ave</b>",
	}
	if steps[0] != expected {
		t.Errorf("step 0 = %+v, expected %+v", steps[0], expected)
	}
	if len(routes[1].Steps()) != 0 {
		t.Errorf("second route must have no steps")
	}
}

func TestDirectionsFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{"zero results", http.StatusOK, `{"status": "ZERO_RESULTS", "routes": []}`, models.ErrNoRoutes},
		{"request denied", http.StatusOK, `{"status": "REQUEST_DENIED", "error_message": "bad key"}`, models.ErrNoRoutes},
		{"ok without routes", http.StatusOK, `{"status": "OK", "routes": []}`, models.ErrNoRoutes},
		{"http error", http.StatusInternalServerError, `oops`, models.ErrNoRoutes},
		{"malformed", http.StatusOK, `{"status":`, models.ErrInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewDirectionsClient(srv.URL, "k", 5*time.Second, testLogger())
			_, err := c.Routes(context.Background(), "A", "B")
			if !errors.Is(err, tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, err)
			}
			if !errors.Is(err, models.ErrInvalidInput) {
				t.Fatalf("route provider failures must be InvalidInput-class, got %v", err)
			}
		})
	}
}

func TestDirectionsPreconditions(t *testing.T) {
	c := NewDirectionsClient("http://127.0.0.1:1", "", time.Second, testLogger())
	if _, err := c.Routes(context.Background(), "", "B"); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := c.Routes(context.Background(), "A", "B"); !errors.Is(err, models.ErrRouteProvider) {
		t.Fatalf("expected ErrRouteProvider without api key, got %v", err)
	}
}

func TestDirectionsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := NewDirectionsClient(addr, "k", time.Second, testLogger())
	_, err := c.Routes(context.Background(), "A", "B")
	if !errors.Is(err, models.ErrRouteProvider) {
		t.Fatalf("expected ErrRouteProvider, got %v", err)
	}
	if !errors.Is(err, models.ErrInvalidInput) || errors.Is(err, models.ErrCollaboratorFailure) {
		t.Fatalf("route provider failures must be InvalidInput-class only, got %v", err)
	}
}
