package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
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

// recordingNarrator подсказки вида "delta i" / "step <instruction>"
type recordingNarrator struct {
	mu       sync.Mutex
	calls    int
	failAt   int // номер вызова NarrateDelta с ошибкой, 0 = никогда
	prevSeen []models.Coordinates
}

func (n *recordingNarrator) Narrate(ctx context.Context, raw string, lat, lng float64) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return "step " + raw
}

func (n *recordingNarrator) NarrateDelta(ctx context.Context, lat, lng, prevLat, prevLng float64) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.prevSeen = append(n.prevSeen, models.Coordinates{Lat: prevLat, Lng: prevLng})
	if n.failAt > 0 && n.calls == n.failAt {
		return "", fmt.Errorf("%w: upstream timeout", models.ErrCollaboratorFailure)
	}
	return fmt.Sprintf("delta %d", n.calls), nil
}

func (n *recordingNarrator) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type stubProvider struct {
	routes []models.Route
	err    error
}

func (p stubProvider) Routes(ctx context.Context, origin, destination string) ([]models.Route, error) {
	return p.routes, p.err
}

func threePoints() []models.Coordinates {
	return []models.Coordinates{
		{Lat: 30.2672, Lng: -97.7431},
		{Lat: 30.2680, Lng: -97.7420},
		{Lat: 30.2690, Lng: -97.7410},
	}
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream did not close in time")
		}
	}
}

func intPtr(v int) *int { return &v }

func TestWaypointStreamOrder(t *testing.T) {
	narrator := &recordingNarrator{}
	c, err := New(context.Background(), WaypointSource{Points: threePoints()}, Deps{Narrator: narrator, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.State() != StateIdle || c.ID() == "" {
		t.Fatalf("unexpected initial state %v id %q", c.State(), c.ID())
	}

	events, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := collect(t, events)

	if len(got) != 4 {
		t.Fatalf("expected 4 events, got %d", len(got))
	}
	for i := 0; i < 3; i++ {
		if got[i].Kind != EventCue || got[i].Cue == nil {
			t.Fatalf("event %d: expected cue, got %+v", i, got[i])
		}
		if got[i].Cue.Index != i || got[i].Cue.Text != fmt.Sprintf("delta %d", i+1) {
			t.Errorf("event %d: unexpected cue %+v", i, got[i].Cue)
		}
		if got[i].Cue.Latitude != threePoints()[i].Lat {
			t.Errorf("event %d: latitude %v", i, got[i].Cue.Latitude)
		}
	}
	if got[3].Kind != EventArrived || *got[3].Arrival != threePoints()[2] {
		t.Fatalf("expected arrival at final waypoint, got %+v", got[3])
	}
	if c.State() != StateFinished {
		t.Fatalf("expected finished state, got %v", c.State())
	}

	// prev начинается с первой точки и сдвигается на каждом шаге
	expectedPrev := []models.Coordinates{threePoints()[0], threePoints()[0], threePoints()[1]}
	for i, p := range narrator.prevSeen {
		if p != expectedPrev[i] {
			t.Errorf("call %d: prev %v, expected %v", i, p, expectedPrev[i])
		}
	}
}

func TestStartTwice(t *testing.T) {
	c, err := New(context.Background(), WaypointSource{Points: threePoints()}, Deps{Narrator: &recordingNarrator{}, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	events, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := c.Start(context.Background()); err == nil {
		t.Fatal("second Start must fail")
	}
	collect(t, events)
	if _, err := c.Start(context.Background()); err == nil {
		t.Fatal("Start after finish must fail")
	}
}

func TestContinuousFailureTerminatesStream(t *testing.T) {
	narrator := &recordingNarrator{failAt: 2}
	c, err := New(context.Background(), WaypointSource{Points: threePoints()}, Deps{Narrator: narrator, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	events, _ := c.Start(context.Background())
	got := collect(t, events)

	if len(got) != 2 {
		t.Fatalf("expected cue + error, got %d events", len(got))
	}
	if got[0].Kind != EventCue {
		t.Fatalf("first event must be a cue, got %v", got[0].Kind)
	}
	if got[1].Kind != EventError || !errors.Is(got[1].Err, models.ErrCollaboratorFailure) {
		t.Fatalf("expected collaborator error event, got %+v", got[1])
	}
	if narrator.callCount() != 2 {
		t.Fatalf("stream must stop after failure, narrator called %d times", narrator.callCount())
	}
}

func TestCancellationStopsStream(t *testing.T) {
	narrator := &recordingNarrator{}
	points := make([]models.Coordinates, 50)
	for i := range points {
		points[i] = models.Coordinates{Lat: 30 + float64(i)*0.001, Lng: -97.7}
	}
	c, err := New(context.Background(), WaypointSource{Points: points}, Deps{Narrator: narrator, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, _ := c.Start(ctx)

	first := <-events
	if first.Kind != EventCue {
		t.Fatalf("expected cue, got %v", first.Kind)
	}
	cancel()

	rest := collect(t, events)
	for _, ev := range rest {
		if ev.Kind == EventArrived {
			t.Fatal("cancelled stream must not emit arrival")
		}
	}
	if n := narrator.callCount(); n >= len(points) {
		t.Fatalf("narrator called %d times after cancellation", n)
	}
	if c.State() != StateFinished {
		t.Fatalf("expected finished state, got %v", c.State())
	}
}

func TestRouteStream(t *testing.T) {
	routes := []models.Route{
		{Legs: []models.RouteLeg{{Steps: []models.RouteStep{
			{EndLocation: models.Coordinates{Lat: 1, Lng: 1}, HTMLInstructions: "A"},
		}}}},
		{Legs: []models.RouteLeg{
			{Steps: []models.RouteStep{
				{EndLocation: models.Coordinates{Lat: 2, Lng: 2}, HTMLInstructions: "Head <b>north</b>"},
				{EndLocation: models.Coordinates{Lat: 3, Lng: 3}, HTMLInstructions: "Turn left"},
			}},
			{Steps: []models.RouteStep{
				{EndLocation: models.Coordinates{Lat: 4, Lng: 4}, HTMLInstructions: "Arrive"},
			}},
		}},
	}

	c, err := New(context.Background(),
		RouteSource{Start: "Austin, TX", End: "Houston, TX", RouteIndex: intPtr(1)},
		Deps{Narrator: &recordingNarrator{}, Routes: stubProvider{routes: routes}, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 waypoints across legs, got %d", c.Len())
	}

	events, _ := c.Start(context.Background())
	got := collect(t, events)
	expected := []string{"step Head <b>north</b>", "step Turn left", "step Arrive"}
	if len(got) != 4 {
		t.Fatalf("expected 4 events, got %d", len(got))
	}
	for i, text := range expected {
		if got[i].Cue == nil || got[i].Cue.Text != text {
			t.Errorf("event %d: %+v, expected %q", i, got[i], text)
		}
	}
	if got[3].Arrival == nil || *got[3].Arrival != (models.Coordinates{Lat: 4, Lng: 4}) {
		t.Fatalf("unexpected arrival %+v", got[3])
	}
}

func TestNewValidation(t *testing.T) {
	oneRoute := []models.Route{{Legs: []models.RouteLeg{{Steps: []models.RouteStep{{HTMLInstructions: "A"}}}}}}

	tests := []struct {
		name     string
		source   Source
		provider RouteProvider
		expected error
	}{
		{"nil source", nil, nil, models.ErrInvalidInput},
		{"empty waypoints", WaypointSource{}, nil, models.ErrInvalidInput},
		{"nan waypoint", WaypointSource{Points: []models.Coordinates{{Lat: math.NaN(), Lng: 1}}}, nil, models.ErrInvalidInput},
		{"latitude out of range", WaypointSource{Points: []models.Coordinates{{Lat: 91, Lng: 1}}}, nil, models.ErrInvalidInput},
		{"missing end", RouteSource{Start: "A"}, stubProvider{routes: oneRoute}, models.ErrInvalidInput},
		{"index out of range", RouteSource{Start: "A", End: "B", RouteIndex: intPtr(1)}, stubProvider{routes: oneRoute}, models.ErrInvalidInput},
		{"negative index", RouteSource{Start: "A", End: "B", RouteIndex: intPtr(-1)}, stubProvider{routes: oneRoute}, models.ErrInvalidInput},
		{"no routes", RouteSource{Start: "A", End: "B"}, stubProvider{}, models.ErrNoRoutes},
		{"provider failure", RouteSource{Start: "A", End: "B"}, stubProvider{err: models.ErrNoRoutes}, models.ErrNoRoutes},
		{"route without steps", RouteSource{Start: "A", End: "B"}, stubProvider{routes: []models.Route{{}}}, models.ErrInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(context.Background(), tc.source, Deps{Narrator: &recordingNarrator{}, Routes: tc.provider, Logger: testLogger()})
			if !errors.Is(err, tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, err)
			}
		})
	}
}

func TestSourceFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     models.StreamRequest
		want    Source
		invalid bool
	}{
		{"waypoints", models.StreamRequest{Waypoints: threePoints()}, WaypointSource{}, false},
		{"route", models.StreamRequest{Start: "A", End: "B", RouteIndex: intPtr(0)}, RouteSource{}, false},
		{"neither", models.StreamRequest{}, nil, true},
		{"both", models.StreamRequest{Waypoints: threePoints(), Start: "A", End: "B"}, nil, true},
		{"start only", models.StreamRequest{Start: "A"}, nil, true},
		{"index without route", models.StreamRequest{Waypoints: threePoints(), RouteIndex: intPtr(0)}, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src, err := SourceFromRequest(tc.req)
			if tc.invalid {
				if !errors.Is(err, models.ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SourceFromRequest: %v", err)
			}
			switch tc.want.(type) {
			case WaypointSource:
				if _, ok := src.(WaypointSource); !ok {
					t.Fatalf("expected WaypointSource, got %T", src)
				}
			case RouteSource:
				if _, ok := src.(RouteSource); !ok {
					t.Fatalf("expected RouteSource, got %T", src)
				}
			}
		})
	}
}
