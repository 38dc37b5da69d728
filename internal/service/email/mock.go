package email

import (
	"context"
	"sync"

	"github.com/ivanzhdanov/trailmix/internal/domain"
)

// MockSender — конфигурируемая заглушка EmailSender для тестов.
type MockSender struct {
	mu sync.Mutex

	SendErr error

	Calls    int
	Messages []domain.EmailMessage
}

// NewMockSender возвращает mock с успешным сценарием по умолчанию.
func NewMockSender() *MockSender {
	return &MockSender{}
}

// Send запоминает письмо и возвращает настроенный результат.
func (m *MockSender) Send(_ context.Context, msg domain.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.Messages = append(m.Messages, msg)
	return m.SendErr
}

var _ domain.EmailSender = (*MockSender)(nil)
