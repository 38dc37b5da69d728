package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ivanzhdanov/trailmix/internal/pricing"
	"github.com/ivanzhdanov/trailmix/internal/storage/postgres"
)

func TestReadConfig_Defaults(t *testing.T) {
	cfg, err := ReadConfig()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, ":9090", cfg.MetricsAddr)
	require.Empty(t, cfg.DatabaseDSN)
	require.Equal(t, pricing.DefaultPriceTable(), cfg.PriceTable)
	require.Equal(t, int64(787), cfg.DiscountCap)
	require.Equal(t, postgres.DefaultPoolConfig(), cfg.DBPool)
}

func TestReadConfig_Overrides(t *testing.T) {
	t.Setenv("TRAILMIX_HTTP_ADDR", ":9999")
	t.Setenv("PRICE_UNIT", "5000")
	t.Setenv("PRICE_PACK5", "22000")
	t.Setenv("PRICE_PACK10", "42000")
	t.Setenv("PRICE_PACK15", "60000")
	t.Setenv("DISCOUNT_CODES", "promo10, save500")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example/")
	t.Setenv("DB_MAX_OPEN_CONNS", "50")

	cfg, err := ReadConfig()
	require.NoError(t, err)

	require.Equal(t, ":9999", cfg.HTTPAddr)
	require.Equal(t, int64(5000), cfg.PriceTable.Unit)
	require.Equal(t, []string{"promo10", "save500"}, cfg.DiscountCodes)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "https://shop.example", cfg.PublicBaseURL)
	require.Equal(t, 50, cfg.DBPool.MaxOpenConns)
	require.Equal(t, 25, cfg.DBPool.MaxIdleConns)
}

func TestReadConfig_BadPriceTable(t *testing.T) {
	// Упаковка дороже поштучной цены — таблица отвергается.
	t.Setenv("PRICE_PACK5", "999999")

	_, err := ReadConfig()
	require.Error(t, err)
}

func TestReadConfig_DiscountRules(t *testing.T) {
	t.Setenv("DISCOUNT_RULES", "mega787=fixed:787,promo=percentage:10")

	cfg, err := ReadConfig()
	require.NoError(t, err)
	require.Equal(t, pricing.Rule{Kind: pricing.RuleFixed, Value: 787}, cfg.DiscountRules["MEGA787"])
	require.Equal(t, pricing.Rule{Kind: pricing.RulePercentage, Value: 10}, cfg.DiscountRules["PROMO"])
}

func TestReadConfig_BadDiscountRules(t *testing.T) {
	for _, v := range []string{"mega787", "x=fixed", "x=weird:10", "x=fixed:abc", "x=fixed:0"} {
		t.Setenv("DISCOUNT_RULES", v)
		_, err := ReadConfig()
		require.Error(t, err, v)
	}
}
