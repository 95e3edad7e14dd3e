// Package stream воспроизводит последовательность точек маршрута
// и выдает упорядоченные события с голосовыми подсказками.
package stream

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"route-safety-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var errAlreadyStarted = errors.New("stream already started")

// Source режим потока: WaypointSource или RouteSource
type Source interface {
	isSource()
}

// WaypointSource явная последовательность GPS-точек (непрерывный режим)
type WaypointSource struct {
	Points []models.Coordinates
}

// RouteSource пара адресов и необязательный индекс маршрута (пошаговый режим).
// Без индекса используется первый маршрут провайдера.
type RouteSource struct {
	Start      string
	End        string
	RouteIndex *int
}

func (WaypointSource) isSource() {}
func (RouteSource) isSource()    {}

// SourceFromRequest выбирает режим по форме запроса.
// Ровно один из режимов должен быть заполнен.
func SourceFromRequest(req models.StreamRequest) (Source, error) {
	hasPoints := len(req.Waypoints) > 0
	hasRoute := req.Start != "" || req.End != ""

	switch {
	case hasPoints && hasRoute:
		return nil, fmt.Errorf("%w: waypoints and start/end are mutually exclusive", models.ErrInvalidInput)
	case hasPoints:
		if req.RouteIndex != nil {
			return nil, fmt.Errorf("%w: route_index requires start/end", models.ErrInvalidInput)
		}
		return WaypointSource{Points: req.Waypoints}, nil
	case hasRoute:
		if req.Start == "" || req.End == "" {
			return nil, fmt.Errorf("%w: both start and end are required", models.ErrInvalidInput)
		}
		return RouteSource{Start: req.Start, End: req.End, RouteIndex: req.RouteIndex}, nil
	default:
		return nil, fmt.Errorf("%w: either waypoints or start/end must be provided", models.ErrInvalidInput)
	}
}

// RouteProvider внешний провайдер маршрутов
type RouteProvider interface {
	Routes(ctx context.Context, origin, destination string) ([]models.Route, error)
}

// Narrator движок подсказок
type Narrator interface {
	Narrate(ctx context.Context, rawInstruction string, lat, lng float64) string
	NarrateDelta(ctx context.Context, lat, lng, prevLat, prevLng float64) (string, error)
}

// Deps зависимости контроллера
type Deps struct {
	Narrator Narrator
	Routes   RouteProvider
	Logger   *logrus.Logger
}

// State состояние контроллера
type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

// EventKind тип события потока
type EventKind string

const (
	EventCue     EventKind = "cue"
	EventArrived EventKind = "arrived"
	EventError   EventKind = "error"
)

// Event событие потока. Заполнено ровно одно из полей Cue, Arrival, Err.
type Event struct {
	Kind    EventKind
	Cue     *models.NarrationCue
	Arrival *models.Coordinates
	Err     error
}

type mode int

const (
	modeContinuous mode = iota
	modeTurnByTurn
)

type waypoint struct {
	models.Coordinates
	instruction string
}

// Controller одна сессия потока: один производитель, один потребитель
type Controller struct {
	id        string
	mode      mode
	waypoints []waypoint
	narrator  Narrator
	logger    *logrus.Logger
	state     atomic.Int32
}

// New проверяет источник и подготавливает точки.
// Ошибки ввода и провайдера маршрутов возвращаются синхронно.
func New(ctx context.Context, source Source, deps Deps) (*Controller, error) {
	if deps.Narrator == nil {
		return nil, errors.New("stream requires a narrator")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c := &Controller{
		id:       uuid.New().String(),
		narrator: deps.Narrator,
		logger:   logger,
	}

	switch src := source.(type) {
	case WaypointSource:
		if len(src.Points) == 0 {
			return nil, fmt.Errorf("%w: waypoint sequence is empty", models.ErrInvalidInput)
		}
		for i, p := range src.Points {
			if err := validateCoordinates(p); err != nil {
				return nil, fmt.Errorf("waypoint %d: %w", i, err)
			}
			c.waypoints = append(c.waypoints, waypoint{Coordinates: p})
		}
		c.mode = modeContinuous

	case RouteSource:
		waypoints, err := routeWaypoints(ctx, src, deps.Routes)
		if err != nil {
			return nil, err
		}
		c.waypoints = waypoints
		c.mode = modeTurnByTurn

	default:
		return nil, fmt.Errorf("%w: stream source is not set", models.ErrInvalidInput)
	}

	return c, nil
}

func routeWaypoints(ctx context.Context, src RouteSource, provider RouteProvider) ([]waypoint, error) {
	if src.Start == "" || src.End == "" {
		return nil, fmt.Errorf("%w: both start and end are required", models.ErrInvalidInput)
	}
	if provider == nil {
		return nil, errors.New("route mode requires a route provider")
	}

	routes, err := provider.Routes(ctx, src.Start, src.End)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch routes: %w", err)
	}
	if len(routes) == 0 {
		return nil, models.ErrNoRoutes
	}

	idx := 0
	if src.RouteIndex != nil {
		idx = *src.RouteIndex
	}
	if idx < 0 || idx >= len(routes) {
		return nil, fmt.Errorf("%w: route index %d out of range [0, %d)", models.ErrInvalidInput, idx, len(routes))
	}

	steps := routes[idx].Steps()
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: route %d has no steps", models.ErrInvalidInput, idx)
	}

	waypoints := make([]waypoint, len(steps))
	for i, s := range steps {
		waypoints[i] = waypoint{Coordinates: s.EndLocation, instruction: s.HTMLInstructions}
	}
	return waypoints, nil
}

func validateCoordinates(p models.Coordinates) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("%w: coordinates must be finite", models.ErrInvalidInput)
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: coordinates (%v, %v) out of range", models.ErrInvalidInput, p.Lat, p.Lng)
	}
	return nil
}

// ID идентификатор сессии
func (c *Controller) ID() string {
	return c.id
}

// State текущее состояние
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Len количество точек в сессии
func (c *Controller) Len() int {
	return len(c.waypoints)
}

// Start запускает поток. Канал закрывается после события прибытия,
// ошибки непрерывного режима или отмены ctx. Повторный запуск невозможен.
func (c *Controller) Start(ctx context.Context) (<-chan Event, error) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateStreaming)) {
		return nil, errAlreadyStarted
	}

	out := make(chan Event)
	go c.run(ctx, out)
	return out, nil
}

func (c *Controller) run(ctx context.Context, out chan<- Event) {
	defer close(out)
	defer c.state.Store(int32(StateFinished))

	c.logger.Infof("Поток %s запущен: %d точек", c.id, len(c.waypoints))

	prev := c.waypoints[0].Coordinates
	for i, wp := range c.waypoints {
		// Отмена проверяется перед каждым обращением к внешнему сервису
		if err := ctx.Err(); err != nil {
			c.logger.Infof("Поток %s отменен на шаге %d", c.id, i)
			return
		}

		text, err := c.narrate(ctx, wp, prev)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Infof("Поток %s отменен на шаге %d", c.id, i)
				return
			}
			c.logger.Errorf("Поток %s остановлен на шаге %d: %v", c.id, i, err)
			c.send(ctx, out, Event{Kind: EventError, Err: err})
			return
		}

		cue := &models.NarrationCue{Index: i, Text: text, Latitude: wp.Lat, Longitude: wp.Lng}
		if !c.send(ctx, out, Event{Kind: EventCue, Cue: cue}) {
			return
		}
		prev = wp.Coordinates
	}

	last := c.waypoints[len(c.waypoints)-1].Coordinates
	if c.send(ctx, out, Event{Kind: EventArrived, Arrival: &last}) {
		c.logger.Infof("Поток %s завершен", c.id)
	}
}

func (c *Controller) narrate(ctx context.Context, wp waypoint, prev models.Coordinates) (string, error) {
	if c.mode == modeTurnByTurn {
		return c.narrator.Narrate(ctx, wp.instruction, wp.Lat, wp.Lng), nil
	}
	return c.narrator.NarrateDelta(ctx, wp.Lat, wp.Lng, prev.Lat, prev.Lng)
}

func (c *Controller) send(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
