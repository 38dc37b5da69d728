// Пакет httpapi поднимает HTTP-поверхность витрины: checkout и расчёт цены,
// переход по pay-ссылке, приём вебхуков провайдера и операторские операции.
package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/ivanzhdanov/trailmix/internal/domain"
	"github.com/ivanzhdanov/trailmix/internal/metrics"
	"github.com/ivanzhdanov/trailmix/internal/paytoken"
	"github.com/ivanzhdanov/trailmix/internal/service/admin"
	"github.com/ivanzhdanov/trailmix/internal/service/checkout"
)

// Config — секреты и адреса HTTP-поверхности.
type Config struct {
	// AdminSecret защищает операторские маршруты; пустой секрет
	// полностью закрывает группу /admin.
	AdminSecret string
	// WebhookSecret подписывает тело вебхука; пустой секрет отключает проверку.
	WebhookSecret string
	// PayErrorURL — страница, куда отправляется покупатель с негодным pay-токеном.
	PayErrorURL string
}

// Server — HTTP-сервер витрины.
type Server struct {
	engine   *gin.Engine
	checkout *checkout.Service
	admin    *admin.Service
	metrics  *metrics.StorefrontMetrics
	cfg      Config
	logger   *log.Entry
}

// NewServer собирает сервер с зарегистрированными маршрутами.
func NewServer(co *checkout.Service, ad *admin.Service, m *metrics.StorefrontMetrics, cfg Config, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{engine: r, checkout: co, admin: ad, metrics: m, cfg: cfg, logger: logger}
	s.registerRoutes()
	return s
}

// Engine возвращает внутренний gin-движок (для httptest и запуска).
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/pay/:token", s.resumePayment)
	s.engine.POST("/webhooks/payment", s.paymentWebhook)

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/checkout", s.createCheckout)
		v1.GET("/quote", s.getQuote)

		adm := v1.Group("/admin", s.requireAdminSecret())
		adm.GET("/orders", s.listOrders)
		adm.GET("/orders/:id", s.getOrder)
		adm.PATCH("/orders/:id/status", s.setOrderStatus)
		adm.POST("/orders/delete", s.deleteOrders)
		adm.POST("/promo", s.sendPromo)
	}
}

func (s *Server) createCheckout(c *gin.Context) {
	var req checkout.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := s.checkout.Checkout(c.Request.Context(), req)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, res)
}

type quoteQuery struct {
	Qty      int                   `form:"qty"`
	Delivery domain.DeliveryOption `form:"delivery"`
	Code     string                `form:"code"`
}

func (s *Server) getQuote(c *gin.Context) {
	var q quoteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	if q.Delivery == "" {
		q.Delivery = domain.DeliveryPickup
	}
	quote, err := s.checkout.Quote(q.Qty, q.Delivery, q.Code)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quote)
}

// resumePayment обменивает pay-токен на редирект к оплате. Негодный токен
// уводит на страницу ошибки, а не отдаёт JSON: по ссылке ходит браузер
// покупателя из письма.
func (s *Server) resumePayment(c *gin.Context) {
	link, err := s.checkout.ResumePayment(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.logger.WithError(err).Info("pay link rejected")
		if s.cfg.PayErrorURL != "" {
			c.Redirect(http.StatusFound, s.cfg.PayErrorURL)
			return
		}
		status := http.StatusNotFound
		if errors.Is(err, paytoken.ErrTokenInvalid) || errors.Is(err, paytoken.ErrTokenExpired) {
			status = http.StatusGone
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Redirect(http.StatusFound, link)
}

// webhookBody — уведомление платёжного провайдера. Идентификатор заказа
// приходит либо напрямую, либо внутри external_reference.
type webhookBody struct {
	Type    string `json:"type"`
	OrderID string `json:"order_id"`
	Data    struct {
		ID                string `json:"id"`
		ExternalReference string `json:"external_reference"`
	} `json:"data"`
}

// paymentWebhook принимает уведомление провайдера. Подпись проверяется над
// сырым телом до разбора JSON; повторная доставка одного уведомления
// допустима и обрабатывается как первая.
func (s *Server) paymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if s.cfg.WebhookSecret != "" {
		sig := c.GetHeader("X-Signature")
		if sig == "" {
			s.metrics.WebhookRejected()
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing signature"})
			return
		}
		if !verifySignature(body, sig, s.cfg.WebhookSecret) {
			s.metrics.WebhookRejected()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		s.metrics.WebhookRejected()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	orderID := wb.OrderID
	if orderID == "" && wb.Data.ExternalReference != "" {
		var ref struct {
			OrderID string `json:"order_id"`
		}
		if err := json.Unmarshal([]byte(wb.Data.ExternalReference), &ref); err == nil {
			orderID = ref.OrderID
		}
	}

	s.metrics.WebhookAccepted()
	if orderID != "" {
		s.admin.MarkPaid(c.Request.Context(), orderID, map[string]any{
			"type":       wb.Type,
			"payment_id": wb.Data.ID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// verifySignature сверяет hex(HMAC-SHA256(secret, body)) за константное время.
func verifySignature(body []byte, sig, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}

// requireAdminSecret закрывает операторские маршруты заголовком X-Admin-Secret.
// Сравнение константное по времени; при непроставленном секрете группа
// недоступна целиком.
func (s *Server) requireAdminSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AdminSecret == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin api disabled"})
			return
		}
		got := c.GetHeader("X-Admin-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.AdminSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) listOrders(c *gin.Context) {
	list, err := s.admin.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (s *Server) getOrder(c *gin.Context) {
	order, err := s.admin.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

type setStatusReq struct {
	Status domain.OrderStatus `json:"status"`
}

func (s *Server) setOrderStatus(c *gin.Context) {
	var req setStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := s.admin.SetStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type deleteOrdersReq struct {
	IDs []string `json:"ids"`
}

func (s *Server) deleteOrders(c *gin.Context) {
	var req deleteOrdersReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids required"})
		return
	}
	results := s.admin.DeleteMany(c.Request.Context(), req.IDs)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type sendPromoReq struct {
	Emails  []string `json:"emails"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

func (s *Server) sendPromo(c *gin.Context) {
	var req sendPromoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.Emails) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "emails required"})
		return
	}
	results := s.admin.SendPromo(c.Request.Context(), req.Emails, req.Subject, req.Body)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, checkout.ErrValidation),
		errors.Is(err, domain.ErrStatusInvalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPaymentGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
