package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"route-safety-go/internal/repository"
	"route-safety-go/internal/risk"
	"route-safety-go/internal/service"
	"route-safety-go/internal/stream"
	"route-safety-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Version версия API
const Version = "1.0.0"

// ModelStatus состояние модели риска
type ModelStatus interface {
	Ready() bool
	Report() risk.FitReport
}

// RouteHandler обрабатывает HTTP запросы для анализа маршрутов
type RouteHandler struct {
	safetyService *service.SafetyService
	streamService *service.StreamService
	model         ModelStatus
	hotspots      int
	logger        *logrus.Logger
}

// NewRouteHandler создает новый экземпляр RouteHandler
func NewRouteHandler(safetyService *service.SafetyService, streamService *service.StreamService,
	model ModelStatus, hotspots int, logger *logrus.Logger) *RouteHandler {
	return &RouteHandler{
		safetyService: safetyService,
		streamService: streamService,
		model:         model,
		hotspots:      hotspots,
		logger:        logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *RouteHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/analyze_route", h.AnalyzeRoute)
		api.POST("/stream_route", h.StreamRoute)
		api.GET("/analyses", h.ListAnalyses)
		api.GET("/analyses/:id", h.GetAnalysis)
		api.DELETE("/analyses/:id", h.DeleteAnalysis)
		api.GET("/health", h.CheckHealth)
	}
}

// AnalyzeRoute оценивает маршруты между двумя адресами
func (h *RouteHandler) AnalyzeRoute(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Ошибка разбора запроса: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректное тело запроса"})
		return
	}

	h.logger.Infof("Получен запрос на анализ маршрута: %s -> %s", req.Start, req.End)

	result, err := h.safetyService.AnalyzeRoute(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Ошибка анализа маршрута")
		return
	}

	h.logger.Infof("Анализ %s завершен, самый безопасный маршрут: %d", result.AnalysisID, result.SafestIndex)
	c.JSON(http.StatusOK, result)
}

// StreamRoute отдает голосовые подсказки как Server-Sent Events.
// События: cue, arrived, error. Отключение клиента останавливает поток.
func (h *RouteHandler) StreamRoute(c *gin.Context) {
	var req models.StreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Ошибка разбора запроса: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректное тело запроса"})
		return
	}

	ctx := c.Request.Context()
	ctrl, err := h.streamService.Open(ctx, req)
	if err != nil {
		h.respondError(c, err, "Ошибка запуска потока")
		return
	}

	events, err := ctrl.Start(ctx)
	if err != nil {
		h.respondError(c, err, "Ошибка запуска потока")
		return
	}

	c.Header("X-Stream-ID", ctrl.ID())
	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		switch ev.Kind {
		case stream.EventCue:
			c.SSEvent(string(ev.Kind), ev.Cue)
		case stream.EventArrived:
			c.SSEvent(string(ev.Kind), ev.Arrival)
		case stream.EventError:
			c.SSEvent(string(ev.Kind), gin.H{"error": ev.Err.Error()})
		}
		return true
	})

	h.logger.Infof("Поток %s закрыт (%s)", ctrl.ID(), ctrl.State())
}

// ListAnalyses возвращает историю анализов с пагинацией
func (h *RouteHandler) ListAnalyses(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size < 1 || size > 100 {
		size = 10
	}

	analyses, total, err := h.safetyService.ListAnalyses(page, size)
	if err != nil {
		h.respondError(c, err, "Ошибка получения списка анализов")
		return
	}

	h.logger.Infof("Возвращено %d анализов из %d", len(analyses), total)
	c.JSON(http.StatusOK, service.ListAnalysesResponse{
		Analyses: analyses,
		Total:    total,
		Page:     page,
		Size:     size,
	})
}

// GetAnalysis возвращает анализ по ID
func (h *RouteHandler) GetAnalysis(c *gin.Context) {
	id := c.Param("id")

	analysis, err := h.safetyService.GetAnalysis(id)
	if err != nil {
		h.respondError(c, err, "Анализ не найден")
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// DeleteAnalysis удаляет анализ по ID
func (h *RouteHandler) DeleteAnalysis(c *gin.Context) {
	id := c.Param("id")
	h.logger.Infof("Получен запрос на удаление анализа %s", id)

	if err := h.safetyService.DeleteAnalysis(id); err != nil {
		h.respondError(c, err, "Ошибка удаления анализа")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Анализ успешно удален"})
}

// CheckHealth проверяет состояние сервиса
func (h *RouteHandler) CheckHealth(c *gin.Context) {
	report := h.model.Report()
	resp := models.HealthResponse{
		Status:        "healthy",
		ModelLoaded:   h.model.Ready(),
		GridCells:     report.Cells,
		ValidationMSE: report.ValidationMSE,
		Hotspots:      h.hotspots,
		Version:       Version,
	}

	if !resp.ModelLoaded {
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// respondError переводит ошибку в HTTP статус
func (h *RouteHandler) respondError(c *gin.Context, err error, message string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorf("%s: %v", message, err)
	} else {
		h.logger.Warnf("%s: %v", message, err)
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNoRoutes), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrModelNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrCollaboratorFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
