// Пакет checkout реализует оформление заказа: авторитетный расчёт цены,
// сохранение, письмо-чек и создание платёжного preference. Все денежные
// значения пересчитываются одним движком цен, поэтому предпросмотр корзины,
// письмо и preference не могут разойтись между собой.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ivanzhdanov/trailmix/internal/domain"
	"github.com/ivanzhdanov/trailmix/internal/mail"
	"github.com/ivanzhdanov/trailmix/internal/messaging/kafka"
	"github.com/ivanzhdanov/trailmix/internal/metrics"
	"github.com/ivanzhdanov/trailmix/internal/paytoken"
	"github.com/ivanzhdanov/trailmix/internal/pricing"
)

// TokenTTL — срок действия ссылки на дооплату заказа.
const TokenTTL = 72 * time.Hour

// ErrValidation оборачивает ошибки валидации входа checkout.
var ErrValidation = errors.New("checkout validation failed")

// ItemInput — выбранная покупателем позиция смеси.
type ItemInput struct {
	Title string `json:"title"`
	Qty   int    `json:"quantity"`
}

// Input — вход оформления заказа.
type Input struct {
	Name            string                `json:"name"`
	Email           string                `json:"email"`
	Phone           string                `json:"phone"`
	Items           []ItemInput           `json:"items"`
	DeliveryOption  domain.DeliveryOption `json:"delivery_option"`
	DeliveryAddress string                `json:"delivery_address"`
	PaymentMethod   domain.PaymentMethod  `json:"payment_method"`
	DiscountCode    string                `json:"discount_code"`
}

// Result — итог оформления заказа.
type Result struct {
	OrderID     string        `json:"order_id"`
	Quote       pricing.Quote `json:"quote"`
	PaymentLink string        `json:"payment_link,omitempty"`
	ResumeToken string        `json:"resume_token,omitempty"`
	EmailSent   bool          `json:"email_sent"`
}

// Config — внешние адреса и реквизиты, попадающие в preference и письма.
type Config struct {
	PublicBaseURL string
	FromEmail     string
	BCC           []string
}

// Service оформляет заказы витрины.
type Service struct {
	repo      domain.OrderRepository
	gateway   domain.PaymentProvider
	sender    domain.EmailSender
	publisher domain.EventPublisher // nil, если события не настроены
	engine    *pricing.Engine
	resolver  *pricing.Resolver
	composer  *mail.Composer
	tokens    *paytoken.Codec
	metrics   *metrics.StorefrontMetrics
	cfg       Config
	logger    *log.Entry
}

// NewService создаёт сервис оформления заказов.
func NewService(
	repo domain.OrderRepository,
	gateway domain.PaymentProvider,
	sender domain.EmailSender,
	publisher domain.EventPublisher,
	engine *pricing.Engine,
	resolver *pricing.Resolver,
	composer *mail.Composer,
	tokens *paytoken.Codec,
	m *metrics.StorefrontMetrics,
	cfg Config,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "checkout")
	}
	return &Service{
		repo:      repo,
		gateway:   gateway,
		sender:    sender,
		publisher: publisher,
		engine:    engine,
		resolver:  resolver,
		composer:  composer,
		tokens:    tokens,
		metrics:   m,
		cfg:       cfg,
		logger:    logger,
	}
}

// Quote считает предварительную цену для корзины. Та же арифметика, что и
// при оформлении: покупатель видит ровно то, что потом будет в письме
// и в платёжном preference.
func (s *Service) Quote(qty int, delivery domain.DeliveryOption, code string) (pricing.Quote, error) {
	if !delivery.Valid() {
		return pricing.Quote{}, fmt.Errorf("%w: %s", ErrValidation, domain.ErrDeliveryOptionInvalid)
	}

	rule, err := s.resolveRule(code)
	if err != nil {
		return pricing.Quote{}, err
	}

	quote, err := s.engine.Quote(qty, delivery, normalizedCode(code), rule)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	s.metrics.QuoteServed()
	return quote, nil
}

// Checkout оформляет заказ: цена → сохранение → письмо → preference.
// Письмо fire-and-forget: его сбой логируется и не отменяет заказ.
// Уже созданный preference возвращается покупателю, даже если
// последующая запись ссылки в хранилище не удалась.
func (s *Service) Checkout(ctx context.Context, in Input) (Result, error) {
	started := time.Now()

	if err := validateInput(in); err != nil {
		return Result{}, err
	}

	rule, err := s.resolveRule(in.DiscountCode)
	if err != nil {
		return Result{}, err
	}

	totalQty := 0
	for _, item := range in.Items {
		totalQty += item.Qty
	}

	quote, err := s.engine.Quote(totalQty, in.DeliveryOption, normalizedCode(in.DiscountCode), rule)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	order := s.buildOrder(in, quote)
	id, err := s.repo.Create(ctx, order)
	if err != nil {
		return Result{}, fmt.Errorf("create order: %w", err)
	}
	order.ID = id
	s.metrics.OrderCreated()

	logger := s.logger.WithField("order_id", id)

	result := Result{OrderID: id, Quote: quote}

	if in.PaymentMethod == domain.PaymentGateway {
		link, prefErr := s.createPreference(ctx, &order, quote)
		if prefErr != nil {
			// Заказ уже сохранён; покупатель сможет доплатить по pay-ссылке.
			logger.WithError(prefErr).Error("payment preference creation failed")
		} else {
			result.PaymentLink = link
			order.PaymentLink = link
		}
		if s.tokens != nil {
			if token, tokenErr := s.tokens.Issue(id, TokenTTL); tokenErr == nil {
				result.ResumeToken = token
			}
		}
	}

	result.EmailSent = s.sendReceipt(ctx, order, logger)
	s.publishEvent(kafka.EventTypeOrderCreated, order, nil)
	s.metrics.ObserveCheckout(time.Since(started))

	return result, nil
}

// ResumePayment обменивает pay-токен на действующую ссылку оплаты.
// Существующая ссылка — источник истины: preference пересоздаётся только
// когда ссылки ещё нет, иначе ретраи плодили бы дубли с разными суммами.
func (s *Service) ResumePayment(ctx context.Context, token string) (string, error) {
	orderID, err := s.tokens.Verify(token)
	if err != nil {
		s.metrics.PayTokenRejected()
		return "", err
	}

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return "", err
	}

	if order.PaymentLink != "" {
		return order.PaymentLink, nil
	}

	quote, err := s.engine.Quote(order.TotalMixQty, order.DeliveryOption, order.DiscountCode, storedRule(order))
	if err != nil {
		return "", fmt.Errorf("requote stored order: %w", err)
	}

	link, err := s.createPreference(ctx, &order, quote)
	if err != nil {
		return "", err
	}
	return link, nil
}

func (s *Service) resolveRule(code string) (*pricing.Rule, error) {
	if code == "" {
		return nil, nil
	}
	rule, err := s.resolver.Resolve(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	return &rule, nil
}

// buildOrder собирает доменный заказ из входа и расчёта. Скидка по коду
// материализуется отрицательной строкой; скидка за упаковки в строки
// не попадает — письмо восстанавливает её из total_mix_qty.
func (s *Service) buildOrder(in Input, quote pricing.Quote) domain.Order {
	items := make([]domain.OrderItem, 0, len(in.Items)+1)
	for _, item := range in.Items {
		items = append(items, domain.OrderItem{
			Title:     item.Title,
			Qty:       item.Qty,
			UnitPrice: s.engine.UnitPrice(),
		})
	}
	if quote.Discount > 0 {
		items = append(items, domain.OrderItem{
			Title:     quote.DiscountCode,
			Qty:       1,
			UnitPrice: -quote.Discount,
		})
	}

	return domain.Order{
		Name:            in.Name,
		Email:           in.Email,
		Phone:           in.Phone,
		Items:           items,
		DeliveryOption:  in.DeliveryOption,
		DeliveryAddress: in.DeliveryAddress,
		TotalPrice:      quote.Total,
		TotalMixQty:     quote.Qty,
		PaymentMethod:   in.PaymentMethod,
		DiscountCode:    quote.DiscountCode,
		DiscountAmount:  quote.Discount,
	}
}

// createPreference создаёт preference у провайдера и сохраняет ссылку.
// Сбой записи ссылки не теряет её: платёжный артефакт уже существует
// и обязан дойти до покупателя.
func (s *Service) createPreference(ctx context.Context, order *domain.Order, quote pricing.Quote) (string, error) {
	ref, err := json.Marshal(map[string]string{
		"order_id": order.ID,
		"email":    order.Email,
	})
	if err != nil {
		return "", fmt.Errorf("marshal external reference: %w", err)
	}

	pref, err := s.gateway.CreatePreference(ctx, domain.PreferenceRequest{
		Items:             s.preferenceItems(*order, quote),
		BackURLs:          s.backURLs(),
		NotificationURL:   s.cfg.PublicBaseURL + "/webhooks/payment",
		ExternalReference: string(ref),
		Payer:             domain.Payer{Email: order.Email, Name: order.Name},
	})
	if err != nil {
		return "", err
	}
	s.metrics.PreferenceCreated()

	if err := s.repo.SetPaymentLink(ctx, order.ID, pref.InitPoint); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).
			Error("payment link not persisted, returning it anyway")
	} else {
		order.PaymentLink = pref.InitPoint
	}
	return pref.InitPoint, nil
}

// preferenceItems переводит заказ в позиции preference. Сумма позиций
// побитово равна итогу заказа: доставка добавляется строкой, скидки —
// отрицательными строками (провайдер обязан их принимать).
func (s *Service) preferenceItems(order domain.Order, quote pricing.Quote) []domain.PreferenceItem {
	items := make([]domain.PreferenceItem, 0, len(order.Items)+2)
	for _, item := range order.Items {
		items = append(items, domain.PreferenceItem{
			Title:     item.Title,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
		})
	}
	if quote.DeliveryFee > 0 {
		items = append(items, domain.PreferenceItem{
			Title:     "Despacho",
			Qty:       1,
			UnitPrice: quote.DeliveryFee,
		})
	}
	if quote.PackDiscount > 0 {
		items = append(items, domain.PreferenceItem{
			Title:     "Descuento por pack",
			Qty:       1,
			UnitPrice: -quote.PackDiscount,
		})
	}
	return items
}

func (s *Service) backURLs() domain.BackURLs {
	return domain.BackURLs{
		Success: s.cfg.PublicBaseURL + "/pay/success",
		Failure: s.cfg.PublicBaseURL + "/pay/failure",
		Pending: s.cfg.PublicBaseURL + "/pay/pending",
	}
}

func (s *Service) sendReceipt(ctx context.Context, order domain.Order, logger *log.Entry) bool {
	html, err := s.composer.ComposeReceipt(order)
	if err != nil {
		logger.WithError(err).Error("receipt rendering failed")
		s.metrics.EmailSent(false)
		return false
	}

	err = s.sender.Send(ctx, domain.EmailMessage{
		From:    s.cfg.FromEmail,
		To:      order.Email,
		Subject: fmt.Sprintf("Tu pedido %s", order.ID),
		HTML:    html,
		BCC:     s.cfg.BCC,
	})
	if err != nil {
		logger.WithError(err).Error("receipt email failed")
		s.metrics.EmailSent(false)
		return false
	}
	s.metrics.EmailSent(true)
	return true
}

func (s *Service) publishEvent(eventType kafka.EventType, order domain.Order, metadata map[string]any) {
	if s.publisher == nil {
		return
	}
	event := kafka.NewOrderEvent(eventType, order.ID, order.Email, string(order.Status), metadata)
	if err := s.publisher.Publish(kafka.TopicOrderEvents, order.ID, event); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("order event not published")
	}
}

// storedRule восстанавливает применённую скидку из сохранённых полей заказа.
// Resolver повторно не запускается: код мог быть отозван после оформления,
// авторитетна сохранённая сумма.
func storedRule(order domain.Order) *pricing.Rule {
	if order.DiscountAmount <= 0 {
		return nil
	}
	return &pricing.Rule{Kind: pricing.RuleFixed, Value: order.DiscountAmount}
}

func validateInput(in Input) error {
	switch {
	case in.Email == "":
		return fmt.Errorf("%w: %s", ErrValidation, domain.ErrEmailRequired)
	case in.Phone == "":
		return fmt.Errorf("%w: %s", ErrValidation, domain.ErrPhoneRequired)
	case len(in.Items) == 0:
		return fmt.Errorf("%w: %s", ErrValidation, domain.ErrItemsRequired)
	case !in.DeliveryOption.Valid():
		return fmt.Errorf("%w: %s", ErrValidation, domain.ErrDeliveryOptionInvalid)
	case !in.PaymentMethod.Valid():
		return fmt.Errorf("%w: %s", ErrValidation, domain.ErrPaymentMethodInvalid)
	}
	for _, item := range in.Items {
		if item.Qty <= 0 {
			return fmt.Errorf("%w: %s", ErrValidation, domain.ErrItemQtyInvalid)
		}
	}
	return nil
}

func normalizedCode(code string) string {
	if code == "" {
		return ""
	}
	return pricing.NormalizeCode(code)
}
