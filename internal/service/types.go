package service

import (
	"time"
)

// CandidateInfo информация об оцененном маршруте-кандидате
type CandidateInfo struct {
	RouteIndex      int       `json:"route_index"`
	Summary         string    `json:"summary"`
	SafetyScore     float64   `json:"safety_score"`
	DurationMinutes float64   `json:"duration_minutes"`
	Distance        string    `json:"distance"`
	StepCount       int       `json:"step_count"`
	Steps           []string  `json:"steps"`
	CreatedAt       time.Time `json:"created_at"`
}

// AnalysisResponse ответ с сохраненным анализом маршрутов
type AnalysisResponse struct {
	ID          string          `json:"id"`
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
	RouteCount  int             `json:"route_count"`
	SafestIndex int             `json:"safest_index"`
	SafestScore float64         `json:"safest_score"`
	Hotspots    int             `json:"hotspots"`
	Candidates  []CandidateInfo `json:"candidates"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ListAnalysesResponse ответ со списком анализов
type ListAnalysesResponse struct {
	Analyses []AnalysisResponse `json:"analyses"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}
