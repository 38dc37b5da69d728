package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics содержит метрики витрины.
type StorefrontMetrics struct {
	// Счётчики операций
	ordersCreated      prometheus.Counter
	quotesServed       prometheus.Counter
	emailsSent         prometheus.Counter
	emailsFailed       prometheus.Counter
	preferencesCreated prometheus.Counter
	payTokenRejected   prometheus.Counter
	webhooksAccepted   prometheus.Counter
	webhooksRejected   prometheus.Counter

	// Гистограмма времени оформления заказа
	checkoutDuration prometheus.Histogram
}

// NewStorefrontMetrics создаёт и регистрирует метрики витрины.
func NewStorefrontMetrics() *StorefrontMetrics {
	return newStorefrontMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newStorefrontMetricsWithRegisterer(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "trailmix_orders_created_total",
			Help: "Total number of orders created",
		}),
		quotesServed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "trailmix_quotes_served_total",
			Help: "Total number of price quotes served",
		}),
		emailsSent: registerCounter(registerer, prometheus.CounterOpts{
			Name: "trailmix_emails_sent_total",
			Help: "Total number of emails sent successfully",
		}),
		emailsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "trailmix_emails_failed_total",
			Help: "Total number of email send failures",
		}),
		preferencesCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "trailmix_payment_preferences_created_total",
			Help: "Total number of payment preferences created",
		}),
		payTokenRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "trailmix_pay_tokens_rejected_total",
			Help: "Total number of rejected pay tokens",
		}),
		webhooksAccepted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "trailmix_webhooks_accepted_total",
			Help: "Total number of accepted payment webhooks",
		}),
		webhooksRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "trailmix_webhooks_rejected_total",
			Help: "Total number of rejected payment webhooks",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "trailmix_checkout_duration_seconds",
			Help:    "Checkout processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// OrderCreated увеличивает счётчик созданных заказов.
func (m *StorefrontMetrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// QuoteServed увеличивает счётчик выданных расчётов цены.
func (m *StorefrontMetrics) QuoteServed() {
	if m == nil {
		return
	}
	m.quotesServed.Inc()
}

// EmailSent фиксирует исход отправки письма.
func (m *StorefrontMetrics) EmailSent(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.emailsSent.Inc()
	} else {
		m.emailsFailed.Inc()
	}
}

// PreferenceCreated увеличивает счётчик созданных платёжных preference.
func (m *StorefrontMetrics) PreferenceCreated() {
	if m == nil {
		return
	}
	m.preferencesCreated.Inc()
}

// PayTokenRejected увеличивает счётчик отвергнутых pay-токенов.
func (m *StorefrontMetrics) PayTokenRejected() {
	if m == nil {
		return
	}
	m.payTokenRejected.Inc()
}

// WebhookAccepted/WebhookRejected фиксируют исход проверки подписи вебхука.
func (m *StorefrontMetrics) WebhookAccepted() {
	if m == nil {
		return
	}
	m.webhooksAccepted.Inc()
}

func (m *StorefrontMetrics) WebhookRejected() {
	if m == nil {
		return
	}
	m.webhooksRejected.Inc()
}

// ObserveCheckout записывает длительность оформления заказа.
func (m *StorefrontMetrics) ObserveCheckout(d time.Duration) {
	if m == nil {
		return
	}
	m.checkoutDuration.Observe(d.Seconds())
}

// registerCounter регистрирует счётчик, переиспользуя уже зарегистрированный
// коллектор при повторной инициализации (например, в тестах).
func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	if err := registerer.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(prometheus.Counter); ok2 {
				return existing
			}
		}
		panic(fmt.Sprintf("register counter %s: %v", opts.Name, err))
	}
	return c
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	if err := registerer.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(prometheus.Histogram); ok2 {
				return existing
			}
		}
		panic(fmt.Sprintf("register histogram %s: %v", opts.Name, err))
	}
	return h
}
