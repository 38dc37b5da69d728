package domain

import "time"

// OrderStatus описывает жизненный цикл заказа в витрине.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, но ещё не отдан покупателю.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusDelivered — заказ отдан покупателю; оператор может вернуть его в pending.
	OrderStatusDelivered OrderStatus = "delivered"
)

// Valid сообщает, входит ли статус в закрытый набор допустимых.
func (s OrderStatus) Valid() bool {
	return s == OrderStatusPending || s == OrderStatusDelivered
}

// DeliveryOption описывает способ получения заказа.
type DeliveryOption string

const (
	// DeliveryPickup — самовывоз, доставка не тарифицируется.
	DeliveryPickup DeliveryOption = "pickup"
	// DeliveryShipping — доставка с фиксированной стоимостью.
	DeliveryShipping DeliveryOption = "shipping"
)

// Valid сообщает, входит ли способ доставки в закрытый набор.
func (d DeliveryOption) Valid() bool {
	return d == DeliveryPickup || d == DeliveryShipping
}

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	// PaymentCash — оплата наличными при получении.
	PaymentCash PaymentMethod = "cash"
	// PaymentGateway — оплата через платёжного провайдера по ссылке.
	PaymentGateway PaymentMethod = "gateway"
)

// Valid сообщает, входит ли способ оплаты в закрытый набор.
func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentGateway
}

// OrderItem представляет одну позицию заказа.
// Отрицательная UnitPrice означает скидочную строку, свёрнутую в список позиций.
type OrderItem struct {
	Title     string `json:"title"`
	Qty       int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// IsDiscount сообщает, является ли позиция материализованной скидкой.
func (i OrderItem) IsDiscount() bool {
	return i.UnitPrice < 0
}

// Order агрегирует состояние заказа витрины.
type Order struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	Items           []OrderItem
	DeliveryOption  DeliveryOption
	DeliveryAddress string
	TotalPrice      int64
	TotalMixQty     int
	PaymentMethod   PaymentMethod
	PaymentLink     string
	DiscountCode    string
	DiscountAmount  int64
	Status          OrderStatus
	CreatedAt       time.Time
}

// MixQty возвращает суммарное количество единиц по обычным (не скидочным) позициям.
func (o *Order) MixQty() int {
	var total int
	for _, item := range o.Items {
		if item.IsDiscount() {
			continue
		}
		total += item.Qty
	}
	return total
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.Email == "" {
		errs = append(errs, ErrEmailRequired)
	}
	if o.Phone == "" {
		errs = append(errs, ErrPhoneRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !o.DeliveryOption.Valid() {
		errs = append(errs, ErrDeliveryOptionInvalid)
	}
	if !o.PaymentMethod.Valid() {
		errs = append(errs, ErrPaymentMethodInvalid)
	}
	if o.TotalPrice < 0 {
		errs = append(errs, ErrTotalNegative)
	}
	if o.DiscountAmount < 0 {
		errs = append(errs, ErrDiscountNegative)
	}

	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
	}

	// Сверяем сохранённое количество с суммой обычных позиций.
	if o.TotalMixQty != o.MixQty() {
		errs = append(errs, ErrMixQtyMismatch)
	}

	return errs
}
