package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/ivanzhdanov/trailmix/internal/pricing"
	"github.com/ivanzhdanov/trailmix/internal/storage/postgres"
)

// Config описывает настройки запуска витрины.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	// DatabaseDSN пустой — заказы живут в памяти процесса.
	DatabaseDSN string
	DBPool      postgres.PoolConfig
	// KafkaBrokers пустой — события заказов не публикуются.
	KafkaBrokers []string

	PayTokenSecret string
	AdminSecret    string
	WebhookSecret  string

	PublicBaseURL string
	PayErrorURL   string

	FromEmail string
	BCC       []string

	PriceTable  pricing.PriceTable
	DeliveryFee int64
	DiscountCap int64

	DiscountCodes []string
	DiscountRules map[string]pricing.Rule

	// PaymentAPIURL пустой — используется mock-провайдер.
	PaymentAPIURL   string
	PaymentAPIToken string
	// EmailAPIURL пустой — используется mock-отправитель.
	EmailAPIURL string
	EmailAPIKey string
}

// DefaultConfig возвращает конфигурацию для локальной разработки.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:       ":8080",
		MetricsAddr:    ":9090",
		DBPool:         postgres.DefaultPoolConfig(),
		PayTokenSecret: "dev-secret-change-me",
		PublicBaseURL:  "http://localhost:8080",
		FromEmail:      "pedidos@trailmix.local",
		PriceTable:     pricing.DefaultPriceTable(),
		DeliveryFee:    2500,
		DiscountCap:    787,
		DiscountRules:  map[string]pricing.Rule{},
	}
}

// ReadConfig формирует конфигурацию из переменных окружения поверх
// значений по умолчанию. .env подхватывается, если лежит рядом.
func ReadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Debug(".env не загружен")
	}

	cfg := DefaultConfig()
	var err error

	if v := os.Getenv("TRAILMIX_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("TRAILMIX_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	cfg.DatabaseDSN = os.Getenv("DATABASE_DSN")
	if cfg.DBPool.MaxOpenConns, err = envInt("DB_MAX_OPEN_CONNS", cfg.DBPool.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if cfg.DBPool.MaxIdleConns, err = envInt("DB_MAX_IDLE_CONNS", cfg.DBPool.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("PAY_TOKEN_SECRET"); v != "" {
		cfg.PayTokenSecret = v
	}
	cfg.AdminSecret = os.Getenv("ADMIN_SECRET")
	cfg.WebhookSecret = os.Getenv("WEBHOOK_SECRET")
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		cfg.PublicBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("PAY_ERROR_URL"); v != "" {
		cfg.PayErrorURL = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		cfg.FromEmail = v
	}
	if v := os.Getenv("EMAIL_BCC"); v != "" {
		cfg.BCC = splitList(v)
	}

	if cfg.PriceTable.Unit, err = envInt64("PRICE_UNIT", cfg.PriceTable.Unit); err != nil {
		return Config{}, err
	}
	if cfg.PriceTable.Pack5, err = envInt64("PRICE_PACK5", cfg.PriceTable.Pack5); err != nil {
		return Config{}, err
	}
	if cfg.PriceTable.Pack10, err = envInt64("PRICE_PACK10", cfg.PriceTable.Pack10); err != nil {
		return Config{}, err
	}
	if cfg.PriceTable.Pack15, err = envInt64("PRICE_PACK15", cfg.PriceTable.Pack15); err != nil {
		return Config{}, err
	}
	if cfg.DeliveryFee, err = envInt64("DELIVERY_FEE", cfg.DeliveryFee); err != nil {
		return Config{}, err
	}
	if cfg.DiscountCap, err = envInt64("DISCOUNT_CAP", cfg.DiscountCap); err != nil {
		return Config{}, err
	}
	if err := cfg.PriceTable.Validate(); err != nil {
		return Config{}, fmt.Errorf("price table: %w", err)
	}

	if v := os.Getenv("DISCOUNT_CODES"); v != "" {
		cfg.DiscountCodes = splitList(v)
	}
	if v := os.Getenv("DISCOUNT_RULES"); v != "" {
		rules, err := parseDiscountRules(v)
		if err != nil {
			return Config{}, err
		}
		cfg.DiscountRules = rules
	}

	cfg.PaymentAPIURL = os.Getenv("PAYMENT_API_URL")
	cfg.PaymentAPIToken = os.Getenv("PAYMENT_API_TOKEN")
	cfg.EmailAPIURL = os.Getenv("EMAIL_API_URL")
	cfg.EmailAPIKey = os.Getenv("EMAIL_API_KEY")

	return cfg, nil
}

// parseDiscountRules разбирает явную таблицу правил вида
// "CODE=fixed:500,OTRO=percentage:10".
func parseDiscountRules(s string) (map[string]pricing.Rule, error) {
	rules := make(map[string]pricing.Rule)
	for _, pair := range splitList(s) {
		code, spec, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("discount rule %q: want CODE=kind:value", pair)
		}
		kind, valueStr, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("discount rule %q: want CODE=kind:value", pair)
		}
		value, err := strconv.ParseInt(valueStr, 10, 64)
		if err != nil || value <= 0 {
			return nil, fmt.Errorf("discount rule %q: bad value", pair)
		}
		switch pricing.RuleKind(kind) {
		case pricing.RulePercentage, pricing.RuleFixed:
		default:
			return nil, fmt.Errorf("discount rule %q: unknown kind %q", pair, kind)
		}
		rules[strings.ToUpper(strings.TrimSpace(code))] = pricing.Rule{
			Kind:  pricing.RuleKind(kind),
			Value: value,
		}
	}
	return rules, nil
}

func envInt(name string, def int) (int, error) {
	n, err := envInt64(name, int64(def))
	return int(n), err
}

func envInt64(name string, def int64) (int64, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
