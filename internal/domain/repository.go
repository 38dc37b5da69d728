package domain

import "context"

// ItemResult — исход одной позиции в bulk-операции.
// Общий вызов завершается успехом, даже если часть позиций упала:
// вызывающий обязан просмотреть список результатов.
type ItemResult struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ; ID и CreatedAt проставляются внутри.
	// Возвращает присвоенный идентификатор.
	Create(ctx context.Context, order Order) (string, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// List возвращает все заказы, новые первыми.
	List(ctx context.Context) ([]Order, error)
	// SetStatus переводит заказ в указанный статус. Повторная установка
	// текущего статуса — no-op с успешным исходом.
	SetStatus(ctx context.Context, id string, status OrderStatus) error
	// SetPaymentLink сохраняет ссылку на оплату заказа.
	SetPaymentLink(ctx context.Context, id string, link string) error
	// DeleteMany удаляет заказы по списку идентификаторов best-effort:
	// частичный сбой оставляет часть строк удалёнными.
	DeleteMany(ctx context.Context, ids []string) []ItemResult
}
