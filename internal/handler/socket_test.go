package handler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"route-safety-go/internal/service"
	"route-safety-go/internal/stream"
	"route-safety-go/pkg/models"

	socketio "github.com/googollee/go-socket.io"
)

const twoWaypoints = `{"waypoints":[{"lat":30.27,"lng":-97.74},{"lat":30.28,"lng":-97.74}]}`

type emitted struct {
	event string
	args  []interface{}
}

// recordingConn запоминает отправленные клиенту события.
// Остальные методы соединения в тестах не вызываются.
type recordingConn struct {
	socketio.Conn

	id     string
	mu     sync.Mutex
	events []emitted
	notify chan string
}

func newRecordingConn(id string) *recordingConn {
	return &recordingConn{id: id, notify: make(chan string, 32)}
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Emit(event string, v ...interface{}) {
	c.mu.Lock()
	c.events = append(c.events, emitted{event: event, args: v})
	c.mu.Unlock()
	c.notify <- event
}

func (c *recordingConn) emitted() []emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]emitted(nil), c.events...)
}

// waitEvent ждет события с заданным именем, пропуская остальные
func (c *recordingConn) waitEvent(t *testing.T, name string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.notify:
			if ev == name {
				return
			}
		case <-timeout:
			t.Fatalf("event %q not emitted, got %+v", name, c.emitted())
		}
	}
}

// gateNarrator держит поток открытым до отмены контекста
type gateNarrator struct {
	started   chan struct{}
	cancelled chan struct{}
}

func newGateNarrator() *gateNarrator {
	return &gateNarrator{started: make(chan struct{}, 4), cancelled: make(chan struct{}, 4)}
}

func (n *gateNarrator) Narrate(ctx context.Context, raw string, lat, lng float64) string {
	<-ctx.Done()
	return ""
}

func (n *gateNarrator) NarrateDelta(ctx context.Context, lat, lng, prevLat, prevLng float64) (string, error) {
	n.started <- struct{}{}
	<-ctx.Done()
	n.cancelled <- struct{}{}
	return "", ctx.Err()
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s: timed out", what)
	}
}

func waitActive(t *testing.T, h *SocketHandler, expected int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Active() != expected {
		if time.Now().After(deadline) {
			t.Fatalf("active streams = %d, expected %d", h.Active(), expected)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newSocketHandler(narrator stream.Narrator, routes fakeRoutes) *SocketHandler {
	logger := quietLogger()
	return NewSocketHandler(service.NewStreamService(narrator, routes, logger), logger)
}

func TestSocketStreamDeliversCues(t *testing.T) {
	h := newSocketHandler(fakeNarrator{}, fakeRoutes{})
	conn := newRecordingConn("c1")

	h.handleStream(conn, twoWaypoints)
	conn.waitEvent(t, "arrived")
	waitActive(t, h, 0)

	var names []string
	for _, ev := range conn.emitted() {
		names = append(names, ev.event)
	}
	if got := strings.Join(names, ","); got != "cue,cue,arrived" {
		t.Fatalf("events = %s, expected cue,cue,arrived", got)
	}

	cue, ok := conn.emitted()[0].args[0].(*models.NarrationCue)
	if !ok {
		t.Fatalf("cue payload has type %T", conn.emitted()[0].args[0])
	}
	if cue.Index != 0 || cue.Text != "go to 30.2700" {
		t.Errorf("unexpected first cue %+v", cue)
	}
}

func TestSocketStreamRejectsRequest(t *testing.T) {
	tests := []struct {
		name    string
		routes  fakeRoutes
		payload string
		message string
	}{
		{"malformed payload", fakeRoutes{}, "{not json", "invalid stream payload"},
		{"empty request", fakeRoutes{}, `{}`, "either waypoints or start/end"},
		{"no routes", fakeRoutes{}, `{"start":"A","end":"B"}`, "no routes found"},
		{
			"provider failure",
			fakeRoutes{err: fmt.Errorf("%w: connection refused", models.ErrRouteProvider)},
			`{"start":"A","end":"B"}`,
			"route provider unavailable",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newSocketHandler(fakeNarrator{}, tc.routes)
			conn := newRecordingConn("c1")

			h.handleStream(conn, tc.payload)

			events := conn.emitted()
			if len(events) != 1 || events[0].event != "streamError" {
				t.Fatalf("expected a single streamError, got %+v", events)
			}
			body := events[0].args[0].(map[string]string)
			if !strings.Contains(body["message"], tc.message) {
				t.Errorf("message = %q, expected it to contain %q", body["message"], tc.message)
			}
			if h.Active() != 0 {
				t.Errorf("active streams = %d, expected 0", h.Active())
			}
		})
	}
}

func TestSocketOneStreamPerConnection(t *testing.T) {
	narrator := newGateNarrator()
	h := newSocketHandler(narrator, fakeRoutes{})
	first := newRecordingConn("c1")
	other := newRecordingConn("c2")

	h.handleStream(first, twoWaypoints)
	waitSignal(t, narrator.started, "first stream start")

	h.handleStream(first, twoWaypoints)
	first.waitEvent(t, "streamError")
	body := first.emitted()[0].args[0].(map[string]string)
	if body["message"] != "stream already active" {
		t.Errorf("message = %q", body["message"])
	}

	// Другое соединение не блокируется
	h.handleStream(other, twoWaypoints)
	waitSignal(t, narrator.started, "second connection start")
	if h.Active() != 2 {
		t.Fatalf("active streams = %d, expected 2", h.Active())
	}

	h.handleStop(first)
	waitSignal(t, narrator.cancelled, "stop")
	waitActive(t, h, 1)

	h.handleDisconnect(other, "transport close")
	waitSignal(t, narrator.cancelled, "disconnect")
	waitActive(t, h, 0)
}

func TestSocketNewStreamAfterStop(t *testing.T) {
	narrator := newGateNarrator()
	h := newSocketHandler(narrator, fakeRoutes{})
	conn := newRecordingConn("c1")

	h.handleStream(conn, twoWaypoints)
	waitSignal(t, narrator.started, "first start")
	h.handleStop(conn)
	waitSignal(t, narrator.cancelled, "first stop")

	h.handleStream(conn, twoWaypoints)
	waitSignal(t, narrator.started, "second start")
	if h.Active() != 1 {
		t.Fatalf("active streams = %d, expected 1", h.Active())
	}

	h.handleDisconnect(conn, "client namespace disconnect")
	waitSignal(t, narrator.cancelled, "second stop")
	waitActive(t, h, 0)
}

func TestSocketReleaseKeepsNewerStream(t *testing.T) {
	h := newSocketHandler(fakeNarrator{}, fakeRoutes{})

	oldCtx, oldCancel := context.WithCancel(context.Background())
	older := &activeStream{cancel: oldCancel}
	newCtx, newCancel := context.WithCancel(context.Background())
	defer newCancel()
	newer := &activeStream{cancel: newCancel}

	if !h.register("c1", older) {
		t.Fatal("first register rejected")
	}
	h.stop("c1")
	if !h.register("c1", newer) {
		t.Fatal("register after stop rejected")
	}

	// Завершение старого потока не снимает новый
	h.release("c1", older)
	if oldCtx.Err() == nil {
		t.Error("older stream not cancelled")
	}
	if newCtx.Err() != nil {
		t.Error("newer stream cancelled by release of older one")
	}
	if h.Active() != 1 {
		t.Fatalf("active streams = %d, expected 1", h.Active())
	}

	h.release("c1", newer)
	if newCtx.Err() == nil {
		t.Error("newer stream not cancelled on release")
	}
	if h.Active() != 0 {
		t.Errorf("active streams = %d, expected 0", h.Active())
	}
}
