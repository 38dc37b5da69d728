package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ivanzhdanov/trailmix/internal/domain"
)

const requestTimeout = 10 * time.Second

// HTTPSender — клиент транзакционного email-сервиса поверх его JSON API.
// Отправка fire-and-forget: ошибка возвращается вызывающему, ретраев нет.
type HTTPSender struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *log.Entry
}

// NewHTTPSender создаёт клиент email-сервиса.
func NewHTTPSender(baseURL, apiKey string) *HTTPSender {
	return &HTTPSender{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  log.WithField("component", "email-sender"),
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	BCC     []string `json:"bcc,omitempty"`
}

// Send отправляет одно письмо.
func (s *HTTPSender) Send(ctx context.Context, msg domain.EmailMessage) error {
	body, err := json.Marshal(sendRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		BCC:     msg.BCC,
	})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEmailSend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.WithFields(log.Fields{
			"status": resp.StatusCode,
			"to":     msg.To,
		}).Error("email rejected by provider")
		return fmt.Errorf("%w: http %d", domain.ErrEmailSend, resp.StatusCode)
	}
	return nil
}

var _ domain.EmailSender = (*HTTPSender)(nil)
