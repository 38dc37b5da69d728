// Пакет admin реализует операторские операции над заказами: просмотр,
// смена статуса, массовое удаление и промо-рассылка.
package admin

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ivanzhdanov/trailmix/internal/domain"
	"github.com/ivanzhdanov/trailmix/internal/mail"
	"github.com/ivanzhdanov/trailmix/internal/messaging/kafka"
	"github.com/ivanzhdanov/trailmix/internal/metrics"
)

// Service выполняет операторские действия витрины.
type Service struct {
	repo      domain.OrderRepository
	sender    domain.EmailSender
	publisher domain.EventPublisher // nil, если события не настроены
	composer  *mail.Composer
	metrics   *metrics.StorefrontMetrics
	fromEmail string
	logger    *log.Entry
}

// NewService создаёт операторский сервис.
func NewService(
	repo domain.OrderRepository,
	sender domain.EmailSender,
	publisher domain.EventPublisher,
	composer *mail.Composer,
	m *metrics.StorefrontMetrics,
	fromEmail string,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "admin")
	}
	return &Service{
		repo:      repo,
		sender:    sender,
		publisher: publisher,
		composer:  composer,
		metrics:   m,
		fromEmail: fromEmail,
		logger:    logger,
	}
}

// List возвращает все заказы, новые первыми.
func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	return s.repo.List(ctx)
}

// Get возвращает заказ по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.Get(ctx, id)
}

// SetStatus переводит заказ в указанный статус. Повторная установка того же
// статуса — успешный no-op; переходы разрешены в обе стороны.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("set status %q: %w", status, domain.ErrStatusInvalid)
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return err
	}

	if s.publisher != nil {
		event := kafka.NewOrderEvent(kafka.EventTypeOrderStatusChanged, id, "", string(status), nil)
		if err := s.publisher.Publish(kafka.TopicOrderEvents, id, event); err != nil {
			s.logger.WithError(err).WithField("order_id", id).Warn("status event not published")
		}
	}
	return nil
}

// MarkPaid помечает заказ оплаченным по уведомлению провайдера.
// Неизвестный заказ — не ошибка обработки уведомления: провайдер ретраит
// доставку, и падать на уже удалённом заказе бессмысленно.
func (s *Service) MarkPaid(ctx context.Context, orderID string, metadata map[string]any) {
	logger := s.logger.WithField("order_id", orderID)

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		logger.WithError(err).Warn("payment notification for unknown order")
		return
	}

	logger.WithField("status", order.Status).Info("payment notification received")
	if s.publisher != nil {
		event := kafka.NewOrderEvent(kafka.EventTypeOrderPaymentNotified, orderID, order.Email, string(order.Status), metadata)
		if err := s.publisher.Publish(kafka.TopicOrderEvents, orderID, event); err != nil {
			logger.WithError(err).Warn("payment event not published")
		}
	}
}

// DeleteMany удаляет заказы по списку идентификаторов в режиме best-effort:
// каждая позиция получает собственный исход, частичный успех допустим.
func (s *Service) DeleteMany(ctx context.Context, ids []string) []domain.ItemResult {
	return s.repo.DeleteMany(ctx, ids)
}

// SendPromo рассылает промо-письмо по списку адресов. Каждый адрес
// обрабатывается независимо; сбой одного не прерывает остальные.
func (s *Service) SendPromo(ctx context.Context, emails []string, subject, body string) []domain.ItemResult {
	html, err := s.composer.ComposePromo(subject, body)
	if err != nil {
		results := make([]domain.ItemResult, 0, len(emails))
		for _, addr := range emails {
			results = append(results, domain.ItemResult{Email: addr, OK: false, Error: err.Error()})
		}
		return results
	}

	results := make([]domain.ItemResult, 0, len(emails))
	for _, addr := range emails {
		sendErr := s.sender.Send(ctx, domain.EmailMessage{
			From:    s.fromEmail,
			To:      addr,
			Subject: subject,
			HTML:    html,
		})
		if sendErr != nil {
			s.logger.WithError(sendErr).WithField("to", addr).Warn("promo email failed")
			s.metrics.EmailSent(false)
			results = append(results, domain.ItemResult{Email: addr, OK: false, Error: sendErr.Error()})
			continue
		}
		s.metrics.EmailSent(true)
		results = append(results, domain.ItemResult{Email: addr, OK: true})
	}
	return results
}
