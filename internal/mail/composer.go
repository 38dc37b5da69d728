// Пакет mail собирает HTML-письма витрины: чек заказа и промо-рассылку.
// Чек — чистая функция от сохранённых полей заказа: строки экономии
// восстанавливаются из items/total_mix_qty/discount_amount, resolver кодов
// повторно не запускается — к этому моменту код мог быть уже отозван,
// авторитетна сохранённая сумма скидки.
package mail

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/ivanzhdanov/trailmix/internal/domain"
	"github.com/ivanzhdanov/trailmix/internal/pricing"
)

var receiptTmpl = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333;">
  <h2>¡Gracias por tu pedido{{if .Name}}, {{.Name}}{{end}}!</h2>
  <p>Pedido <strong>{{.OrderID}}</strong></p>
  <table cellpadding="6" cellspacing="0" border="0">
    <tr><th align="left">Detalle</th><th align="right">Cant.</th><th align="right">Precio</th></tr>
    {{range .Lines}}<tr>
      <td>{{.Title}}</td>
      <td align="right">{{.Qty}}</td>
      <td align="right">{{.Amount}}</td>
    </tr>
    {{end}}{{range .Savings}}<tr>
      <td colspan="2" style="color: #2a7a2a;">{{.Title}}</td>
      <td align="right" style="color: #2a7a2a;">-{{.Amount}}</td>
    </tr>
    {{end}}<tr>
      <td colspan="2"><strong>Total</strong></td>
      <td align="right"><strong>{{.Total}}</strong></td>
    </tr>
  </table>
  {{if .PaymentLink}}<p><a href="{{.PaymentLink}}">Pagar pedido</a></p>{{end}}
  {{if .DeliveryNote}}<p>{{.DeliveryNote}}</p>{{end}}
</body>
</html>`))

var promoTmpl = template.Must(template.New("promo").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333;">
  <h2>{{.Subject}}</h2>
  <div>{{.Body}}</div>
</body>
</html>`))

type receiptLine struct {
	Title  string
	Qty    int
	Amount string
}

type savingsLine struct {
	Title  string
	Amount string
}

type receiptData struct {
	OrderID      string
	Name         string
	Lines        []receiptLine
	Savings      []savingsLine
	Total        string
	PaymentLink  string
	DeliveryNote string
}

// Composer собирает письма. Движок цен нужен только для строки экономии
// на упаковках, восстанавливаемой из сохранённого количества.
type Composer struct {
	engine *pricing.Engine
}

// NewComposer создаёт сборщик писем.
func NewComposer(engine *pricing.Engine) *Composer {
	return &Composer{engine: engine}
}

// ComposeReceipt рендерит чек заказа из его сохранённых полей.
func (c *Composer) ComposeReceipt(order domain.Order) (string, error) {
	data := receiptData{
		OrderID:     order.ID,
		Name:        order.Name,
		Total:       formatMoney(order.TotalPrice),
		PaymentLink: order.PaymentLink,
	}

	for _, item := range order.Items {
		if item.IsDiscount() {
			// Скидка уже материализована отрицательной строкой — показываем
			// её в блоке экономии и не применяем discount_amount повторно.
			data.Savings = append(data.Savings, savingsLine{
				Title:  item.Title,
				Amount: formatMoney(-item.UnitPrice * int64(item.Qty)),
			})
			continue
		}
		data.Lines = append(data.Lines, receiptLine{
			Title:  item.Title,
			Qty:    item.Qty,
			Amount: formatMoney(item.UnitPrice * int64(item.Qty)),
		})
	}

	if fee := c.engine.DeliveryFee(order.DeliveryOption); fee > 0 {
		data.Lines = append(data.Lines, receiptLine{
			Title:  "Despacho",
			Qty:    1,
			Amount: formatMoney(fee),
		})
	}

	// Экономия на упаковках восстанавливается из сохранённого количества.
	if pq, err := c.engine.PackQuote(order.TotalMixQty); err == nil && pq.PackDiscount > 0 {
		data.Savings = append(data.Savings, savingsLine{
			Title:  fmt.Sprintf("Descuento por pack (%d uds.)", order.TotalMixQty),
			Amount: formatMoney(pq.PackDiscount),
		})
	}

	// discount_amount показывается, только если скидка не свёрнута в позиции.
	if order.DiscountAmount > 0 && !hasDiscountLine(order.Items) {
		title := "Descuento"
		if order.DiscountCode != "" {
			title = "Descuento " + order.DiscountCode
		}
		data.Savings = append(data.Savings, savingsLine{
			Title:  title,
			Amount: formatMoney(order.DiscountAmount),
		})
	}

	if order.DeliveryOption == domain.DeliveryPickup {
		data.DeliveryNote = "Retiro en tienda."
	} else if order.DeliveryAddress != "" {
		data.DeliveryNote = "Despacho a: " + order.DeliveryAddress
	}

	var b strings.Builder
	if err := receiptTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return b.String(), nil
}

// ComposePromo рендерит промо-письмо с произвольным текстом.
func (c *Composer) ComposePromo(subject, body string) (string, error) {
	var b strings.Builder
	err := promoTmpl.Execute(&b, struct {
		Subject string
		Body    template.HTML
	}{Subject: subject, Body: template.HTML(body)})
	if err != nil {
		return "", fmt.Errorf("render promo: %w", err)
	}
	return b.String(), nil
}

func hasDiscountLine(items []domain.OrderItem) bool {
	for _, item := range items {
		if item.IsDiscount() {
			return true
		}
	}
	return false
}

// formatMoney печатает сумму с точками-разделителями тысяч: 61000 → $61.000.
func formatMoney(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := fmt.Sprintf("%d", v)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}
