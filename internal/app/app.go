// Пакет app собирает витрину из компонентов и управляет её жизненным циклом.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/ivanzhdanov/trailmix/internal/domain"
	healthcheck "github.com/ivanzhdanov/trailmix/internal/health"
	httpapi "github.com/ivanzhdanov/trailmix/internal/http"
	"github.com/ivanzhdanov/trailmix/internal/mail"
	"github.com/ivanzhdanov/trailmix/internal/messaging/kafka"
	"github.com/ivanzhdanov/trailmix/internal/metrics"
	"github.com/ivanzhdanov/trailmix/internal/paytoken"
	"github.com/ivanzhdanov/trailmix/internal/pricing"
	"github.com/ivanzhdanov/trailmix/internal/service/admin"
	"github.com/ivanzhdanov/trailmix/internal/service/checkout"
	"github.com/ivanzhdanov/trailmix/internal/service/email"
	"github.com/ivanzhdanov/trailmix/internal/service/payment"
	"github.com/ivanzhdanov/trailmix/internal/storage/memory"
	"github.com/ivanzhdanov/trailmix/internal/storage/orders"
	"github.com/ivanzhdanov/trailmix/internal/storage/postgres"
	"github.com/ivanzhdanov/trailmix/internal/version"
)

// Run поднимает витрину и блокируется до отмены контекста.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	rows, pingFn, cleanup, err := initRowStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	repo := orders.NewRepository(rows)
	engine := pricing.NewEngine(cfg.PriceTable, cfg.DeliveryFee, cfg.DiscountCap)
	resolver := pricing.NewResolver(cfg.DiscountCodes, cfg.DiscountRules)
	composer := mail.NewComposer(engine)
	tokens := paytoken.New([]byte(cfg.PayTokenSecret))
	m := metrics.NewStorefrontMetrics()

	gateway := initGateway(cfg, logger)
	sender := initSender(cfg, logger)

	// Kafka опционален: без брокеров события просто не публикуются.
	var publisher domain.EventPublisher
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("kafka producer not created, continuing without events")
		} else {
			producer = p
			publisher = p
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		}
	}
	defer func() {
		if producer != nil {
			if err := producer.Close(); err != nil {
				logger.WithError(err).Warn("kafka producer close failed")
			}
		}
	}()

	checkoutSvc := checkout.NewService(
		repo, gateway, sender, publisher,
		engine, resolver, composer, tokens, m,
		checkout.Config{
			PublicBaseURL: cfg.PublicBaseURL,
			FromEmail:     cfg.FromEmail,
			BCC:           cfg.BCC,
		},
		logger.WithField("layer", "checkout"),
	)
	adminSvc := admin.NewService(
		repo, sender, publisher, composer, m,
		cfg.FromEmail,
		logger.WithField("layer", "admin"),
	)

	server := httpapi.NewServer(checkoutSvc, adminSvc, m, httpapi.Config{
		AdminSecret:   cfg.AdminSecret,
		WebhookSecret: cfg.WebhookSecret,
		PayErrorURL:   cfg.PayErrorURL,
	}, logger.WithField("layer", "http"))

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if pingFn != nil {
		healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", pingFn))
	}
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Engine()}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// initRowStore выбирает хранилище: Postgres при заданном DSN, иначе память.
func initRowStore(ctx context.Context, cfg Config, logger *log.Entry) (domain.RowStore, func() error, func(), error) {
	if cfg.DatabaseDSN == "" {
		logger.Info("DATABASE_DSN не задан, заказы хранятся в памяти")
		return memory.NewRowStore(), nil, func() {}, nil
	}

	store, err := postgres.Open(ctx, cfg.DatabaseDSN, cfg.DBPool)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("подключение к Postgres установлено")
	pingFn := func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return store.Ping(pingCtx)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("postgres close failed")
		}
	}
	return postgres.NewRowStore(store), pingFn, cleanup, nil
}

func initGateway(cfg Config, logger *log.Entry) domain.PaymentProvider {
	if cfg.PaymentAPIURL == "" {
		logger.Warn("PAYMENT_API_URL не задан, используется mock платёжного провайдера")
		return payment.NewMockGateway()
	}
	return payment.NewHTTPGateway(cfg.PaymentAPIURL, cfg.PaymentAPIToken)
}

func initSender(cfg Config, logger *log.Entry) domain.EmailSender {
	if cfg.EmailAPIURL == "" {
		logger.Warn("EMAIL_API_URL не задан, используется mock отправки писем")
		return email.NewMockSender()
	}
	return email.NewHTTPSender(cfg.EmailAPIURL, cfg.EmailAPIKey)
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
