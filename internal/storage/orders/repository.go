// Пакет orders — фасад хранения заказов поверх строкового хранилища.
// Наружу отдаются доменные структуры; на границе с хранилищем записи
// проходят через преобразование регистра ключей (camelCase ↔ snake_case),
// а список позиций переносится как непрозрачное JSON-значение.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivanzhdanov/trailmix/internal/domain"
	"github.com/ivanzhdanov/trailmix/internal/record"
)

const table = "orders"

type repository struct {
	rows domain.RowStore
	now  func() time.Time
	// newID генерирует глобально-уникальные идентификаторы: схема на основе
	// таймстемпа сталкивалась бы при конкурирующих созданиях.
	newID func() string
}

// NewRepository создаёт фасад заказов поверх RowStore.
func NewRepository(rows domain.RowStore) domain.OrderRepository {
	return &repository{
		rows:  rows,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

func (r *repository) Create(ctx context.Context, order domain.Order) (string, error) {
	order.ID = r.newID()
	order.Status = domain.OrderStatusPending
	order.CreatedAt = r.now().UTC()

	row, err := toRow(order)
	if err != nil {
		return "", err
	}
	if err := r.rows.Insert(ctx, table, row); err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}
	return order.ID, nil
}

func (r *repository) Get(ctx context.Context, id string) (domain.Order, error) {
	rows, err := r.rows.Select(ctx, table, domain.Filter{"id": id}, "", false)
	if err != nil {
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	if len(rows) == 0 {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return fromRow(rows[0])
}

func (r *repository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.rows.Select(ctx, table, nil, "created_at", true)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		order, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *repository) SetStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if !status.Valid() {
		return domain.ErrStatusInvalid
	}

	// Статус просто перезаписывается: повторная установка текущего значения —
	// валидный no-op, а не ошибка.
	affected, err := r.rows.Update(ctx, table, domain.Filter{"id": id}, domain.Row{"status": string(status)})
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *repository) SetPaymentLink(ctx context.Context, id string, link string) error {
	affected, err := r.rows.Update(ctx, table, domain.Filter{"id": id}, domain.Row{"payment_link": link})
	if err != nil {
		return fmt.Errorf("update payment link: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *repository) DeleteMany(ctx context.Context, ids []string) []domain.ItemResult {
	results := make([]domain.ItemResult, 0, len(ids))
	for _, id := range ids {
		deleted, err := r.rows.Delete(ctx, table, domain.Filter{"id": id})
		switch {
		case err != nil:
			results = append(results, domain.ItemResult{ID: id, OK: false, Error: err.Error()})
		case deleted == 0:
			results = append(results, domain.ItemResult{ID: id, OK: false, Error: domain.ErrOrderNotFound.Error()})
		default:
			results = append(results, domain.ItemResult{ID: id, OK: true})
		}
	}
	return results
}

// toRow переводит заказ в snake_case-строку хранилища.
func toRow(order domain.Order) (domain.Row, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal order items: %w", err)
	}

	rec := record.Record{
		"id":              order.ID,
		"name":            order.Name,
		"email":           order.Email,
		"phone":           order.Phone,
		"items":           string(items),
		"deliveryOption":  string(order.DeliveryOption),
		"deliveryAddress": order.DeliveryAddress,
		"totalPrice":      order.TotalPrice,
		"totalMixQty":     int64(order.TotalMixQty),
		"paymentMethod":   string(order.PaymentMethod),
		"paymentLink":     order.PaymentLink,
		"discountCode":    order.DiscountCode,
		"discountAmount":  order.DiscountAmount,
		"status":          string(order.Status),
		"createdAt":       order.CreatedAt,
	}
	return domain.Row(record.SnakeKeys(rec)), nil
}

// fromRow восстанавливает заказ из строки хранилища.
func fromRow(row domain.Row) (domain.Order, error) {
	rec := record.CamelKeys(record.Record(row))

	order := domain.Order{
		ID:              asString(rec["id"]),
		Name:            asString(rec["name"]),
		Email:           asString(rec["email"]),
		Phone:           asString(rec["phone"]),
		DeliveryOption:  domain.DeliveryOption(asString(rec["deliveryOption"])),
		DeliveryAddress: asString(rec["deliveryAddress"]),
		TotalPrice:      asInt64(rec["totalPrice"]),
		TotalMixQty:     int(asInt64(rec["totalMixQty"])),
		PaymentMethod:   domain.PaymentMethod(asString(rec["paymentMethod"])),
		PaymentLink:     asString(rec["paymentLink"]),
		DiscountCode:    asString(rec["discountCode"]),
		DiscountAmount:  asInt64(rec["discountAmount"]),
		Status:          domain.OrderStatus(asString(rec["status"])),
	}

	if t, ok := rec["createdAt"].(time.Time); ok {
		order.CreatedAt = t
	}

	if raw := asString(rec["items"]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &order.Items); err != nil {
			return domain.Order{}, fmt.Errorf("unmarshal order items: %w", err)
		}
	}

	return order, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		parsed, _ := n.Int64()
		return parsed
	}
	return 0
}

var _ domain.OrderRepository = (*repository)(nil)
