package kafka

import "time"

// EventType определяет тип события заказа.
type EventType string

const (
	// EventTypeOrderCreated — заказ создан через checkout.
	EventTypeOrderCreated EventType = "order.created"
	// EventTypeOrderStatusChanged — оператор сменил статус заказа.
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	// EventTypeOrderPaymentNotified — пришло уведомление платёжного провайдера.
	EventTypeOrderPaymentNotified EventType = "order.payment_notified"
)

// TopicOrderEvents — топик событий заказов.
const TopicOrderEvents = "trailmix.order.events"

// OrderEvent представляет событие жизненного цикла заказа.
type OrderEvent struct {
	EventType EventType      `json:"event_type"`
	OrderID   string         `json:"order_id"`
	Email     string         `json:"email,omitempty"`
	Status    string         `json:"status,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewOrderEvent создаёт событие заказа с текущим временем.
func NewOrderEvent(eventType EventType, orderID, email, status string, metadata map[string]any) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		Email:     email,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
