package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ivanzhdanov/trailmix/internal/domain"
)

// rowStoreInMemory — простая in-memory реализация RowStore для локальной
// разработки и тестов. Семантика совпадает с PostgreSQL-реализацией:
// плоские snake_case-строки, точечные выборки по равенству.
type rowStoreInMemory struct {
	mu     sync.RWMutex
	tables map[string][]domain.Row
}

// NewRowStore возвращает in-memory строковое хранилище.
func NewRowStore() domain.RowStore {
	return &rowStoreInMemory{
		tables: make(map[string][]domain.Row),
	}
}

func (s *rowStoreInMemory) Select(_ context.Context, table string, filter domain.Filter, orderBy string, desc bool) ([]domain.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Row, 0)
	for _, row := range s.tables[table] {
		if matches(row, filter) {
			result = append(result, copyRow(row))
		}
	}

	if orderBy != "" {
		sort.SliceStable(result, func(i, j int) bool {
			less := lessValues(result[i][orderBy], result[j][orderBy])
			if desc {
				return !less && !equalValues(result[i][orderBy], result[j][orderBy])
			}
			return less
		})
	}

	return result, nil
}

func (s *rowStoreInMemory) Insert(_ context.Context, table string, row domain.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	s.tables[table] = append(s.tables[table], copyRow(row))
	return nil
}

func (s *rowStoreInMemory) Update(_ context.Context, table string, filter domain.Filter, patch domain.Row) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	for i, row := range s.tables[table] {
		if !matches(row, filter) {
			continue
		}
		updated := copyRow(row)
		for key, value := range patch {
			updated[key] = value
		}
		s.tables[table][i] = updated
		affected++
	}
	return affected, nil
}

func (s *rowStoreInMemory) Delete(_ context.Context, table string, filter domain.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]domain.Row, 0, len(s.tables[table]))
	var deleted int64
	for _, row := range s.tables[table] {
		if matches(row, filter) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.tables[table] = kept
	return deleted, nil
}

func matches(row domain.Row, filter domain.Filter) bool {
	for key, want := range filter {
		if !equalValues(row[key], want) {
			return false
		}
	}
	return true
}

func copyRow(row domain.Row) domain.Row {
	c := make(domain.Row, len(row))
	for key, value := range row {
		c[key] = value
	}
	return c
}

func equalValues(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
		return false
	}
	return a == b
}

func lessValues(a, b any) bool {
	switch va := a.(type) {
	case time.Time:
		if vb, ok := b.(time.Time); ok {
			return va.Before(vb)
		}
	case string:
		if vb, ok := b.(string); ok {
			return va < vb
		}
	case int64:
		if vb, ok := b.(int64); ok {
			return va < vb
		}
	case int:
		if vb, ok := b.(int); ok {
			return va < vb
		}
	}
	return false
}

var _ domain.RowStore = (*rowStoreInMemory)(nil)
