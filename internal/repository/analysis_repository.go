package repository

import (
	"errors"
	"fmt"

	"route-safety-go/internal/model"

	"gorm.io/gorm"
)

// ErrNotFound анализ не найден
var ErrNotFound = errors.New("analysis not found")

// AnalysisRepository интерфейс для работы с историей анализов
type AnalysisRepository interface {
	Create(analysis *model.Analysis) error
	GetByID(id string) (*model.Analysis, error)
	List(page, pageSize int) ([]*model.Analysis, int64, error)
	Delete(id string) error
}

// analysisRepository реализация AnalysisRepository на gorm
type analysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository создает новый instance AnalysisRepository
func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{
		db: db,
	}
}

// Create сохраняет анализ вместе с кандидатами в одной транзакции
func (r *analysisRepository) Create(analysis *model.Analysis) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		candidates := analysis.Candidates
		analysis.Candidates = nil

		if err := tx.Create(analysis).Error; err != nil {
			return fmt.Errorf("failed to create analysis: %w", err)
		}

		for i := range candidates {
			candidates[i].ID = 0 // auto-increment
			candidates[i].AnalysisID = analysis.ID
			if err := tx.Create(&candidates[i]).Error; err != nil {
				return fmt.Errorf("failed to create candidate %d: %w", i, err)
			}
		}

		analysis.Candidates = candidates
		return nil
	})
}

// GetByID получает анализ по ID
func (r *analysisRepository) GetByID(id string) (*model.Analysis, error) {
	var analysis model.Analysis
	err := r.db.Preload("Candidates", func(db *gorm.DB) *gorm.DB {
		return db.Order("route_index ASC")
	}).Where("id = ?", id).First(&analysis).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return &analysis, nil
}

// List получает список анализов с пагинацией, новые первыми
func (r *analysisRepository) List(page, pageSize int) ([]*model.Analysis, int64, error) {
	var analyses []*model.Analysis
	var total int64

	if err := r.db.Model(&model.Analysis{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count analyses: %w", err)
	}

	offset := (page - 1) * pageSize
	err := r.db.Preload("Candidates").
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&analyses).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}

	return analyses, total, nil
}

// Delete удаляет анализ и его кандидатов
func (r *analysisRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("analysis_id = ?", id).Delete(&model.Candidate{}).Error; err != nil {
			return fmt.Errorf("failed to delete candidates: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&model.Analysis{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete analysis: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}
