package handler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"route-safety-go/internal/service"
	"route-safety-go/internal/stream"
	"route-safety-go/pkg/models"

	socketio "github.com/googollee/go-socket.io"
	"github.com/mdobak/go-xerrors"
	"github.com/sirupsen/logrus"
)

// SocketHandler отдает голосовые подсказки через socket.io.
// Клиент шлет "stream" с телом StreamRequest и получает "cue", "arrived" или "streamError".
// "stop" или отключение клиента отменяет активный поток.
type SocketHandler struct {
	streamService *service.StreamService
	logger        *logrus.Logger

	mu     sync.Mutex
	active map[string]*activeStream
}

type activeStream struct {
	cancel context.CancelFunc
}

// NewSocketHandler создает обработчик socket.io
func NewSocketHandler(streamService *service.StreamService, logger *logrus.Logger) *SocketHandler {
	return &SocketHandler{
		streamService: streamService,
		logger:        logger,
		active:        make(map[string]*activeStream),
	}
}

// Register подключает обработчики событий к серверу
func (h *SocketHandler) Register(server *socketio.Server) {
	server.OnConnect("/", func(socket socketio.Conn) error {
		h.logger.Infof("Клиент подключен: %s", socket.ID())
		return nil
	})

	server.OnEvent("/", "stream", h.handleStream)

	server.OnEvent("/", "stop", h.handleStop)

	server.OnError("/", func(socket socketio.Conn, err error) {
		err = xerrors.New(err)
		if socket != nil {
			h.logger.WithField("socket", socket.ID()).Errorf("Ошибка сокета: %v", err)
			return
		}
		h.logger.Errorf("Ошибка сокета: %v", err)
	})

	server.OnDisconnect("/", h.handleDisconnect)
}

func (h *SocketHandler) handleStop(socket socketio.Conn) {
	h.stop(socket.ID())
}

func (h *SocketHandler) handleDisconnect(socket socketio.Conn, reason string) {
	h.stop(socket.ID())
	h.logger.Infof("Клиент отключен: %s (%s)", socket.ID(), reason)
}

func (h *SocketHandler) handleStream(socket socketio.Conn, payload string) {
	var req models.StreamRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		err := xerrors.New(err)
		h.logger.Warnf("Некорректный запрос потока от %s: %v", socket.ID(), err)
		socket.Emit("streamError", map[string]string{"message": "invalid stream payload"})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	active := &activeStream{cancel: cancel}
	if !h.register(socket.ID(), active) {
		cancel()
		socket.Emit("streamError", map[string]string{"message": "stream already active"})
		return
	}

	ctrl, err := h.streamService.Open(ctx, req)
	if err != nil {
		h.release(socket.ID(), active)
		h.logger.Warnf("Поток для %s не открыт: %v", socket.ID(), xerrors.New(err))
		socket.Emit("streamError", map[string]string{"message": clientMessage(err)})
		return
	}

	events, err := ctrl.Start(ctx)
	if err != nil {
		h.release(socket.ID(), active)
		socket.Emit("streamError", map[string]string{"message": err.Error()})
		return
	}

	go func() {
		defer h.release(socket.ID(), active)
		for ev := range events {
			switch ev.Kind {
			case stream.EventCue:
				socket.Emit("cue", ev.Cue)
			case stream.EventArrived:
				socket.Emit("arrived", ev.Arrival)
			case stream.EventError:
				socket.Emit("streamError", map[string]string{"message": ev.Err.Error()})
			}
		}
		h.logger.Infof("Поток %s для %s завершен (%s)", ctrl.ID(), socket.ID(), ctrl.State())
	}()
}

// register запоминает поток; у соединения может быть только один активный поток
func (h *SocketHandler) register(id string, s *activeStream) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, busy := h.active[id]; busy {
		return false
	}
	h.active[id] = s
	return true
}

// release отменяет поток s и снимает его с соединения, если он еще активен
func (h *SocketHandler) release(id string, s *activeStream) {
	h.mu.Lock()
	if h.active[id] == s {
		delete(h.active, id)
	}
	h.mu.Unlock()

	s.cancel()
}

func (h *SocketHandler) stop(id string) {
	h.mu.Lock()
	s, ok := h.active[id]
	delete(h.active, id)
	h.mu.Unlock()

	if ok {
		s.cancel()
	}
}

// Active количество активных потоков
func (h *SocketHandler) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.active)
}

func clientMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrNoRoutes):
		return "no routes found"
	case errors.Is(err, models.ErrRouteProvider):
		return "route provider unavailable"
	case errors.Is(err, models.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, models.ErrCollaboratorFailure):
		return "text service unavailable"
	default:
		return "internal error"
	}
}
