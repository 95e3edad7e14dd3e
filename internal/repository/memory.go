package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"route-safety-go/internal/model"
)

// MemoryRepository хранит историю анализов в памяти процесса.
// Используется, когда база данных выключена.
type MemoryRepository struct {
	mu       sync.RWMutex
	items    map[string]*model.Analysis
	nextCand uint
}

// NewMemoryRepository создает пустое хранилище
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*model.Analysis)}
}

// Create сохраняет копию анализа
func (r *MemoryRepository) Create(analysis *model.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[analysis.ID]; exists {
		return fmt.Errorf("analysis %s already exists", analysis.ID)
	}

	now := time.Now()
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = now
	}
	analysis.UpdatedAt = now
	for i := range analysis.Candidates {
		r.nextCand++
		analysis.Candidates[i].ID = r.nextCand
		analysis.Candidates[i].AnalysisID = analysis.ID
	}

	r.items[analysis.ID] = cloneAnalysis(analysis)
	return nil
}

// GetByID возвращает копию анализа
func (r *MemoryRepository) GetByID(id string) (*model.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneAnalysis(a), nil
}

// List возвращает страницу анализов, новые первыми
func (r *MemoryRepository) List(page, pageSize int) ([]*model.Analysis, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*model.Analysis, 0, len(r.items))
	for _, a := range r.items {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []*model.Analysis{}, total, nil
	}
	end := offset + pageSize
	if end > len(all) {
		end = len(all)
	}

	out := make([]*model.Analysis, 0, end-offset)
	for _, a := range all[offset:end] {
		out = append(out, cloneAnalysis(a))
	}
	return out, total, nil
}

// Delete удаляет анализ
func (r *MemoryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.items, id)
	return nil
}

func cloneAnalysis(a *model.Analysis) *model.Analysis {
	c := *a
	c.Candidates = append([]model.Candidate(nil), a.Candidates...)
	return &c
}
