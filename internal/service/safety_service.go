package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"route-safety-go/internal/model"
	"route-safety-go/internal/narration"
	"route-safety-go/internal/repository"
	"route-safety-go/internal/scoring"
	"route-safety-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Количество первых шагов маршрута в кратком описании
const previewSteps = 3

// RouteProvider внешний провайдер маршрутов
type RouteProvider interface {
	Routes(ctx context.Context, origin, destination string) ([]models.Route, error)
}

// HotspotChecker проверка попадания точки в зону с высокой аварийностью
type HotspotChecker interface {
	Contains(lat, lng, bufferMeters float64) bool
}

// SafetyService сервис оценки безопасности маршрутов
type SafetyService struct {
	routes       RouteProvider
	model        scoring.Predictor
	hotspots     HotspotChecker
	bufferMeters float64
	repo         repository.AnalysisRepository
	logger       *logrus.Logger
}

// NewSafetyService создает новый сервис оценки маршрутов. hotspots может быть nil.
func NewSafetyService(routes RouteProvider, predictor scoring.Predictor, hotspots HotspotChecker, bufferMeters float64,
	repo repository.AnalysisRepository, logger *logrus.Logger) *SafetyService {
	return &SafetyService{
		routes:       routes,
		model:        predictor,
		hotspots:     hotspots,
		bufferMeters: bufferMeters,
		repo:         repo,
		logger:       logger,
	}
}

// AnalyzeRoute получает маршруты, оценивает каждый и выбирает самый безопасный.
// Сохранение в историю выполняется по возможности и не влияет на ответ.
func (s *SafetyService) AnalyzeRoute(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	origin := strings.TrimSpace(req.Start)
	destination := strings.TrimSpace(req.End)
	if origin == "" || destination == "" {
		return nil, fmt.Errorf("%w: start and end are required", models.ErrInvalidInput)
	}

	s.logger.Infof("Анализ маршрутов: %s -> %s", origin, destination)

	routes, err := s.routes.Routes(ctx, origin, destination)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch routes: %w", err)
	}
	if len(routes) == 0 {
		return nil, models.ErrNoRoutes
	}

	scores := make([]models.SafetyScore, len(routes))
	details := make([]models.RouteDetail, len(routes))
	for i, route := range routes {
		score, err := scoring.ScoreRoute(route, s.model)
		if err != nil {
			return nil, fmt.Errorf("failed to score route %d: %w", i, err)
		}
		scores[i] = score
		details[i] = s.routeDetail(route, score)
		s.logger.Infof("Маршрут %d: оценка %.2f, %.1f мин, шагов в опасных зонах: %d",
			i+1, score.Value, score.TotalDurationMinutes, details[i].HotspotSteps)
	}

	safest := scoring.SelectSafest(scores)
	resp := &models.AnalyzeResponse{
		AnalysisID:   uuid.New().String(),
		SafestIndex:  safest,
		RouteDetails: details,
		Routes:       routes,
	}

	s.persist(resp, origin, destination)
	return resp, nil
}

func (s *SafetyService) routeDetail(route models.Route, score models.SafetyScore) models.RouteDetail {
	detail := models.RouteDetail{
		SafetyScore:     score.Value,
		DurationMinutes: score.TotalDurationMinutes,
		Steps:           []string{},
	}
	if len(route.Legs) > 0 {
		detail.Distance = route.Legs[0].DistanceText
	}

	for i, step := range route.Steps() {
		if i < previewSteps {
			detail.Steps = append(detail.Steps, narration.StripMarkup(step.HTMLInstructions))
		}
		if s.hotspots != nil && s.hotspots.Contains(step.EndLocation.Lat, step.EndLocation.Lng, s.bufferMeters) {
			detail.HotspotSteps++
		}
	}
	return detail
}

func (s *SafetyService) persist(resp *models.AnalyzeResponse, origin, destination string) {
	if s.repo == nil {
		return
	}

	analysis := &model.Analysis{
		ID:          resp.AnalysisID,
		Origin:      origin,
		Destination: destination,
		RouteCount:  len(resp.RouteDetails),
		SafestIndex: resp.SafestIndex,
		CreatedAt:   time.Now(),
	}
	if resp.SafestIndex >= 0 {
		analysis.SafestScore = resp.RouteDetails[resp.SafestIndex].SafetyScore
	}

	for i, d := range resp.RouteDetails {
		analysis.Hotspots += d.HotspotSteps
		analysis.Candidates = append(analysis.Candidates, model.Candidate{
			RouteIndex:      i,
			Summary:         resp.Routes[i].Summary,
			SafetyScore:     d.SafetyScore,
			DurationMinutes: d.DurationMinutes,
			Distance:        d.Distance,
			FirstSteps:      strings.Join(d.Steps, "\n"),
			StepCount:       len(resp.Routes[i].Steps()),
		})
	}

	if err := s.repo.Create(analysis); err != nil {
		s.logger.Warnf("Не удалось сохранить анализ %s: %v", analysis.ID, err)
		return
	}
	s.logger.Infof("Анализ %s сохранен: %d маршрутов", analysis.ID, analysis.RouteCount)
}

// GetAnalysis получает анализ по ID
func (s *SafetyService) GetAnalysis(id string) (*AnalysisResponse, error) {
	if s.repo == nil {
		return nil, repository.ErrNotFound
	}

	analysis, err := s.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return modelToResponse(analysis), nil
}

// ListAnalyses получает список анализов с пагинацией
func (s *SafetyService) ListAnalyses(page, pageSize int) ([]AnalysisResponse, int64, error) {
	if s.repo == nil {
		return []AnalysisResponse{}, 0, nil
	}

	analyses, total, err := s.repo.List(page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}

	responses := make([]AnalysisResponse, len(analyses))
	for i, a := range analyses {
		responses[i] = *modelToResponse(a)
	}
	return responses, total, nil
}

// DeleteAnalysis удаляет анализ по ID
func (s *SafetyService) DeleteAnalysis(id string) error {
	if s.repo == nil {
		return repository.ErrNotFound
	}

	if err := s.repo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	s.logger.Infof("Анализ %s удален", id)
	return nil
}

// modelToResponse преобразует модель базы данных в ответ API
func modelToResponse(a *model.Analysis) *AnalysisResponse {
	resp := &AnalysisResponse{
		ID:          a.ID,
		Origin:      a.Origin,
		Destination: a.Destination,
		RouteCount:  a.RouteCount,
		SafestIndex: a.SafestIndex,
		SafestScore: a.SafestScore,
		Hotspots:    a.Hotspots,
		Candidates:  make([]CandidateInfo, 0, len(a.Candidates)),
		CreatedAt:   a.CreatedAt,
	}

	for _, c := range a.Candidates {
		var steps []string
		if c.FirstSteps != "" {
			steps = strings.Split(c.FirstSteps, "\n")
		}
		resp.Candidates = append(resp.Candidates, CandidateInfo{
			RouteIndex:      c.RouteIndex,
			Summary:         c.Summary,
			SafetyScore:     c.SafetyScore,
			DurationMinutes: c.DurationMinutes,
			Distance:        c.Distance,
			StepCount:       c.StepCount,
			Steps:           steps,
			CreatedAt:       c.CreatedAt,
		})
	}
	return resp
}
