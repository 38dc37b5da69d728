package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/ivanzhdanov/trailmix/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentProvider для тестов
// и локальной разработки.
type MockGateway struct {
	mu sync.Mutex

	CreateErr error

	Calls    int
	Requests []domain.PreferenceRequest
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// CreatePreference возвращает детерминированный preference и считает вызовы.
func (m *MockGateway) CreatePreference(_ context.Context, req domain.PreferenceRequest) (domain.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.Requests = append(m.Requests, req)
	if m.CreateErr != nil {
		return domain.Preference{}, m.CreateErr
	}
	id := fmt.Sprintf("pref-%d", m.Calls)
	return domain.Preference{
		ID:        id,
		InitPoint: "https://pay.example/init/" + id,
	}, nil
}

var _ domain.PaymentProvider = (*MockGateway)(nil)
