package domain

import "errors"

var (
	// Ошибка отсутствующего email покупателя.
	ErrEmailRequired = errors.New("email is required")
	// Ошибка отсутствующего телефона покупателя.
	ErrPhoneRequired = errors.New("phone is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при недопустимом способе доставки.
	ErrDeliveryOptionInvalid = errors.New("delivery option must be pickup or shipping")
	// Ошибка при недопустимом способе оплаты.
	ErrPaymentMethodInvalid = errors.New("payment method must be cash or gateway")
	// Ошибка отрицательной итоговой суммы заказа.
	ErrTotalNegative = errors.New("total_price must be non-negative")
	// Ошибка отрицательной применённой скидки.
	ErrDiscountNegative = errors.New("discount_amount must be non-negative")
	// Ошибка при некорректном количестве в позиции (<= 0).
	ErrItemQtyInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка несоответствия total_mix_qty и суммы количеств обычных позиций.
	ErrMixQtyMismatch = errors.New("total_mix_qty does not match items sum")
	// Ошибка при недопустимом переходе статуса.
	ErrStatusInvalid = errors.New("status must be pending or delivered")
	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists возвращается при попытке создать заказ с занятым ID.
	ErrOrderExists = errors.New("order already exists")
	// ErrPaymentGateway — ошибка при создании платёжного preference у провайдера.
	ErrPaymentGateway = errors.New("payment gateway error")
	// ErrEmailSend — ошибка отправки письма; повторная отправка не выполняется.
	ErrEmailSend = errors.New("email send failed")
)
