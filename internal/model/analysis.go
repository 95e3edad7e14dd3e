package model

import (
	"time"

	"gorm.io/gorm"
)

// Analysis представляет анализ маршрутов в базе данных
type Analysis struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Origin      string `gorm:"type:varchar(255);not null" json:"origin"`
	Destination string `gorm:"type:varchar(255);not null" json:"destination"`

	// Итог анализа
	RouteCount  int     `gorm:"not null;default:0" json:"route_count"`
	SafestIndex int     `gorm:"not null;default:-1" json:"safest_index"`
	SafestScore float64 `gorm:"not null;default:0" json:"safest_score"`
	Hotspots    int     `gorm:"not null;default:0" json:"hotspots"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Связь с маршрутами-кандидатами
	Candidates []Candidate `gorm:"foreignKey:AnalysisID;constraint:OnDelete:CASCADE" json:"candidates"`
}

// Candidate представляет оцененный маршрут-кандидат в базе данных
type Candidate struct {
	ID              uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	AnalysisID      string  `gorm:"type:varchar(36);not null;index" json:"analysis_id"`
	RouteIndex      int     `gorm:"not null" json:"route_index"`
	Summary         string  `gorm:"type:varchar(255)" json:"summary"`
	SafetyScore     float64 `gorm:"not null" json:"safety_score"`
	DurationMinutes float64 `gorm:"not null" json:"duration_minutes"`
	Distance        string  `gorm:"type:varchar(64)" json:"distance"`
	FirstSteps      string  `gorm:"type:text" json:"first_steps"` // инструкции через перевод строки
	StepCount       int     `gorm:"not null" json:"step_count"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Обратная связь с анализом
	Analysis Analysis `gorm:"foreignKey:AnalysisID;references:ID" json:"-"`
}

// TableName указывает имя таблицы для Analysis
func (Analysis) TableName() string {
	return "analyses"
}

// TableName указывает имя таблицы для Candidate
func (Candidate) TableName() string {
	return "route_candidates"
}
