package payment

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

// HTTPGateway — клиент платёжного провайдера поверх его JSON API.
type HTTPGateway struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *log.Entry
}

// NewHTTPGateway создаёт клиент провайдера. baseURL — корень API,
// token — access-token аккаунта продавца.
func NewHTTPGateway(baseURL, token string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  log.WithField("component", "payment-gateway"),
	}
}

// CreatePreference создаёт платёжный preference и возвращает ссылку на оплату.
func (g *HTTPGateway) CreatePreference(ctx context.Context, req domain.PreferenceRequest) (domain.Preference, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.Preference{}, fmt.Errorf("marshal preference request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return domain.Preference{}, fmt.Errorf("build preference request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return domain.Preference{}, fmt.Errorf("%w: %v", domain.ErrPaymentGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.WithFields(log.Fields{
			"status":             resp.StatusCode,
			"external_reference": req.ExternalReference,
		}).Error("preference creation rejected by provider")
		return domain.Preference{}, fmt.Errorf("%w: http %d", domain.ErrPaymentGateway, resp.StatusCode)
	}

	var pref domain.Preference
	if err := json.NewDecoder(resp.Body).Decode(&pref); err != nil {
		return domain.Preference{}, fmt.Errorf("decode preference response: %w", err)
	}
	if pref.InitPoint == "" {
		return domain.Preference{}, fmt.Errorf("%w: empty init_point", domain.ErrPaymentGateway)
	}
	return pref, nil
}

var _ domain.PaymentProvider = (*HTTPGateway)(nil)
