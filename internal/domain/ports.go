package domain

import "context"

// Row — плоская запись хранилища со snake_case-ключами.
type Row map[string]any

// Filter задаёт условия точечной выборки по равенству колонок.
type Filter map[string]any

// RowStore описывает внешнее строковое хранилище.
// Транзакций между вызовами нет; каждая операция самостоятельна.
type RowStore interface {
	// Select возвращает строки таблицы по фильтру; orderBy может быть пустым.
	Select(ctx context.Context, table string, filter Filter, orderBy string, desc bool) ([]Row, error)
	// Insert сохраняет одну строку.
	Insert(ctx context.Context, table string, row Row) error
	// Update применяет patch ко всем строкам под фильтром и возвращает число затронутых.
	Update(ctx context.Context, table string, filter Filter, patch Row) (int64, error)
	// Delete удаляет строки под фильтром и возвращает число удалённых.
	Delete(ctx context.Context, table string, filter Filter) (int64, error)
}

// PreferenceItem — позиция в платёжном preference. UnitPrice может быть
// отрицательной: так провайдеру передаются скидочные строки.
type PreferenceItem struct {
	Title     string `json:"title"`
	Qty       int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// BackURLs — адреса возврата покупателя после оплаты.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// Payer — данные плательщика для провайдера.
type Payer struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// PreferenceRequest — запрос на создание платёжного preference.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	BackURLs          BackURLs         `json:"back_urls"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	ExternalReference string           `json:"external_reference"`
	Payer             Payer            `json:"payer"`
}

// Preference — результат создания preference у провайдера.
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// PaymentProvider описывает взаимодействие с платёжным провайдером.
type PaymentProvider interface {
	// CreatePreference создаёт платёжный preference и возвращает ссылку на оплату.
	CreatePreference(ctx context.Context, req PreferenceRequest) (Preference, error)
}

// EmailMessage — письмо для транзакционной отправки.
type EmailMessage struct {
	From    string
	To      string
	Subject string
	HTML    string
	BCC     []string
}

// EmailSender описывает отправку писем. Отправка fire-and-forget:
// ошибка логируется и возвращается вызывающему, ретраев нет.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EventPublisher публикует события жизненного цикла заказа наружу.
type EventPublisher interface {
	Publish(topic string, key string, event any) error
}
