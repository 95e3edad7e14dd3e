// Package narration формирует голосовые подсказки для шагов маршрута
// и для непрерывного потока GPS-точек.
package narration

import (
	"context"
	"fmt"
	"hash/fnv"
	"html"
	"regexp"
	"strings"
	"time"

	"route-safety-go/internal/geo"
	"route-safety-go/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	// HotspotAlert префикс подсказки внутри зоны с высокой аварийностью
	HotspotAlert = "High-crash zone ahead. "
	// HotspotMessage фиксированное сообщение непрерывного режима
	HotspotMessage = "High-crash zone ahead. Proceed with caution."

	DefaultWordBudget    = 28
	DefaultCondenseWords = 20
	DefaultTimeout       = 15 * time.Second
	defaultBufferMeters  = 50.0
)

var (
	leftCautions     = []string{"watch for oncoming traffic", "use extra care", "remain alert to cross-traffic"}
	rightCautions    = []string{"yield to cyclists", "check for pedestrians", "stay aware of merging cars"}
	straightCautions = []string{"stay alert ahead", "maintain safe speed", "watch the road ahead"}

	markupPattern = regexp.MustCompile(`<[^>]+>`)
	leftPattern   = regexp.MustCompile(`(?i)\bleft\b`)
	rightPattern  = regexp.MustCompile(`(?i)\bright\b`)
)

// Geofence проверка попадания точки в зону с высокой аварийностью
type Geofence interface {
	Contains(lat, lng, bufferMeters float64) bool
}

// Condenser сокращает инструкцию до заданного числа слов
type Condenser interface {
	Condense(ctx context.Context, instruction string, maxWords int) (string, error)
}

// Conversation отвечает на запрос с системным сообщением
type Conversation interface {
	Reply(ctx context.Context, system, user string) (string, error)
}

// Options параметры движка подсказок
type Options struct {
	WordBudget    int
	CondenseWords int
	BufferMeters  float64
	Timeout       time.Duration
}

// Engine движок голосовых подсказок.
// Не хранит состояние между вызовами и безопасен для параллельного использования.
type Engine struct {
	fence        Geofence
	condenser    Condenser
	conversation Conversation
	prompt       *PromptTemplate
	opts         Options
	calc         *geo.Calculator
	logger       *logrus.Logger
}

// NewEngine создает движок. condenser и conversation могут быть nil.
func NewEngine(fence Geofence, condenser Condenser, conversation Conversation, prompt *PromptTemplate, opts Options, logger *logrus.Logger) *Engine {
	if opts.WordBudget <= 0 {
		opts.WordBudget = DefaultWordBudget
	}
	if opts.CondenseWords <= 0 {
		opts.CondenseWords = DefaultCondenseWords
	}
	if opts.BufferMeters <= 0 {
		opts.BufferMeters = defaultBufferMeters
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if prompt == nil {
		prompt = DefaultPromptTemplate()
	}
	return &Engine{
		fence:        fence,
		condenser:    condenser,
		conversation: conversation,
		prompt:       prompt,
		opts:         opts,
		calc:         geo.NewCalculator(),
		logger:       logger,
	}
}

// Narrate возвращает подсказку для шага маршрута.
// Ошибка сервиса сокращения не приводит к пустой подсказке: возвращается собранный текст целиком.
func (e *Engine) Narrate(ctx context.Context, rawInstruction string, lat, lng float64) string {
	plain := StripMarkup(rawInstruction)

	var alert, caution string
	if e.inHotspot(lat, lng) {
		alert = HotspotAlert
		caution = ", " + PickCaution(plain) + "."
	}

	spoken := alert + plain + caution
	if len(strings.Fields(spoken)) <= e.opts.WordBudget {
		return spoken
	}

	if e.condenser == nil {
		return spoken
	}

	cctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	short, err := e.condenser.Condense(cctx, plain, e.opts.CondenseWords)
	if err != nil {
		e.logger.Warnf("Не удалось сократить инструкцию, используется полный текст: %v", err)
		return spoken
	}
	short = strings.TrimSpace(short)
	if short == "" {
		e.logger.Warn("Сервис сокращения вернул пустой текст, используется полный текст")
		return spoken
	}

	return alert + short + caution
}

// NarrateDelta возвращает голосовое обновление для непрерывного режима.
// Ошибка внешнего сервиса возвращается как ErrCollaboratorFailure.
func (e *Engine) NarrateDelta(ctx context.Context, lat, lng, prevLat, prevLng float64) (string, error) {
	if e.inHotspot(lat, lng) {
		return HotspotMessage, nil
	}

	if e.conversation == nil {
		return "", fmt.Errorf("%w: conversational service is not configured", models.ErrCollaboratorFailure)
	}

	cur := models.Coordinates{Lat: lat, Lng: lng}
	prev := models.Coordinates{Lat: prevLat, Lng: prevLng}
	user := e.prompt.Render(PromptValues{
		Latitude:      lat,
		Longitude:     lng,
		PrevLatitude:  prevLat,
		PrevLongitude: prevLng,
		DistanceM:     e.calc.DistanceMeters(prev, cur),
		Heading:       e.calc.Heading(prev, cur),
	})

	cctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	reply, err := e.conversation.Reply(cctx, e.prompt.System, user)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrCollaboratorFailure, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", models.ErrCollaboratorFailure)
	}
	return reply, nil
}

func (e *Engine) inHotspot(lat, lng float64) bool {
	return e.fence != nil && e.fence.Contains(lat, lng, e.opts.BufferMeters)
}

// StripMarkup удаляет HTML-теги и сущности из инструкции
func StripMarkup(instruction string) string {
	text := markupPattern.ReplaceAllString(instruction, "")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", " "))
}

// PickCaution выбирает фразу предупреждения по направлению маневра.
// Выбор детерминирован: FNV-1a от текста инструкции по модулю длины списка.
func PickCaution(plain string) string {
	bank := straightCautions
	switch {
	case leftPattern.MatchString(plain):
		bank = leftCautions
	case rightPattern.MatchString(plain):
		bank = rightCautions
	}

	h := fnv.New32a()
	h.Write([]byte(plain))
	return bank[h.Sum32()%uint32(len(bank))]
}
