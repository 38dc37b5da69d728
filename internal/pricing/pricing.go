package pricing

import (
	"errors"
	"fmt"

	"github.com/ivanzhdanov/trailmix/internal/domain"
)

// ErrQtyNegative возвращается для отрицательного количества: это нарушение
// контракта вызывающего, а не повод молча округлить.
var ErrQtyNegative = errors.New("quantity must be non-negative")

// PriceTable задаёт цены упаковок. Покупателю всегда считается жадная
// раскладка 15/10/5/1 — это контракт витрины, а не оптимизация: при
// действующих ценах 10-пак выгоднее за единицу, чем 15-пак, поэтому для
// отдельных количеств (например, 20 = 15+5 против 10+10) жадная цена выше
// минимально возможной. Это осознанное ограничение тарифа.
type PriceTable struct {
	Unit   int64
	Pack5  int64
	Pack10 int64
	Pack15 int64
}

// DefaultPriceTable — действующие цены витрины.
func DefaultPriceTable() PriceTable {
	return PriceTable{Unit: 4000, Pack5: 18000, Pack10: 35000, Pack15: 53000}
}

// Validate проверяет, что каждая упаковка не дороже поштучной покупки того
// же количества: только это нужно, чтобы скидка за упаковки была
// неотрицательной. Взаимную выгодность упаковок таблица не обещает.
func (t PriceTable) Validate() error {
	if t.Unit <= 0 {
		return fmt.Errorf("unit price must be positive, got %d", t.Unit)
	}
	if t.Pack5 > 5*t.Unit || t.Pack10 > 10*t.Unit || t.Pack15 > 15*t.Unit {
		return fmt.Errorf("pack must not cost more than its units: %+v", t)
	}
	return nil
}

// Packs — раскладка количества по упаковкам.
type Packs struct {
	N15 int `json:"n15"`
	N10 int `json:"n10"`
	N5  int `json:"n5"`
	N1  int `json:"n1"`
}

// Units возвращает суммарное количество единиц в раскладке.
func (p Packs) Units() int {
	return p.N15*15 + p.N10*10 + p.N5*5 + p.N1
}

// PackQuote — результат упаковочного расчёта без доставки и скидок.
type PackQuote struct {
	Qty          int   `json:"qty"`
	Packs        Packs `json:"packs"`
	Price        int64 `json:"price"`
	ListPrice    int64 `json:"list_price"`
	PackDiscount int64 `json:"pack_discount"`
}

// Quote — полный расчёт заказа: упаковки, доставка, скидка по коду, итог.
// Все три точки пересчёта (предпросмотр корзины, письмо-чек, платёжный
// preference) обязаны получать побитово одинаковые значения; целочисленная
// арифметика это гарантирует.
type Quote struct {
	PackQuote
	DeliveryOption domain.DeliveryOption `json:"delivery_option"`
	DeliveryFee    int64                 `json:"delivery_fee"`
	Subtotal       int64                 `json:"subtotal"`
	DiscountCode   string                `json:"discount_code,omitempty"`
	Discount       int64                 `json:"discount"`
	Capped         bool                  `json:"capped"`
	Total          int64                 `json:"total"`
}

// Engine считает цены заказов по таблице упаковок.
type Engine struct {
	table       PriceTable
	deliveryFee int64
	cap         int64
}

// NewEngine создаёт движок расчёта цен.
func NewEngine(table PriceTable, deliveryFee, discountCap int64) *Engine {
	return &Engine{table: table, deliveryFee: deliveryFee, cap: discountCap}
}

// Cap возвращает действующий потолок скидки.
func (e *Engine) Cap() int64 {
	return e.cap
}

// DeliveryFee возвращает стоимость доставки для способа delivery.
func (e *Engine) DeliveryFee(delivery domain.DeliveryOption) int64 {
	if delivery == domain.DeliveryShipping {
		return e.deliveryFee
	}
	return 0
}

// UnitPrice возвращает штучную цену единицы смеси.
func (e *Engine) UnitPrice() int64 {
	return e.table.Unit
}

// PackQuote раскладывает количество по упаковкам, большие первыми.
func (e *Engine) PackQuote(qty int) (PackQuote, error) {
	if qty < 0 {
		return PackQuote{}, ErrQtyNegative
	}

	r := qty
	packs := Packs{}
	packs.N15 = r / 15
	r -= packs.N15 * 15
	packs.N10 = r / 10
	r -= packs.N10 * 10
	packs.N5 = r / 5
	r -= packs.N5 * 5
	packs.N1 = r

	price := int64(packs.N15)*e.table.Pack15 +
		int64(packs.N10)*e.table.Pack10 +
		int64(packs.N5)*e.table.Pack5 +
		int64(packs.N1)*e.table.Unit
	list := int64(qty) * e.table.Unit

	return PackQuote{
		Qty:          qty,
		Packs:        packs,
		Price:        price,
		ListPrice:    list,
		PackDiscount: list - price,
	}, nil
}

// Quote считает полную стоимость заказа с доставкой и скидкой по коду.
// rule может быть nil — тогда скидка не применяется.
func (e *Engine) Quote(qty int, delivery domain.DeliveryOption, code string, rule *Rule) (Quote, error) {
	pq, err := e.PackQuote(qty)
	if err != nil {
		return Quote{}, err
	}

	var fee int64
	if delivery == domain.DeliveryShipping {
		fee = e.deliveryFee
	}
	subtotal := pq.Price + fee

	var discount int64
	var capped bool
	if rule != nil {
		discount, capped = rule.Apply(subtotal, e.cap)
	}

	total := subtotal - discount
	if total < 0 {
		total = 0
	}

	q := Quote{
		PackQuote:      pq,
		DeliveryOption: delivery,
		DeliveryFee:    fee,
		Subtotal:       subtotal,
		Discount:       discount,
		Capped:         capped,
		Total:          total,
	}
	if rule != nil {
		q.DiscountCode = code
	}
	return q, nil
}
