package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ivanzhdanov/trailmix/internal/pricing"
)

func newResolver() *pricing.Resolver {
	return pricing.NewResolver(
		[]string{"PROMO10", "SAVE500", "VERANO25", "FRIEND", "VIP"},
		map[string]pricing.Rule{
			"VIP": {Kind: pricing.RuleFixed, Value: 787},
		},
	)
}

func TestResolve_Heuristic(t *testing.T) {
	r := newResolver()

	cases := []struct {
		code string
		want pricing.Rule
	}{
		// 2 хвостовые цифры в [1,100] — процент.
		{"PROMO10", pricing.Rule{Kind: pricing.RulePercentage, Value: 10}},
		{"VERANO25", pricing.Rule{Kind: pricing.RulePercentage, Value: 25}},
		// 3 хвостовые цифры — фиксированная сумма.
		{"SAVE500", pricing.Rule{Kind: pricing.RuleFixed, Value: 500}},
		// Регистр не важен.
		{"promo10", pricing.Rule{Kind: pricing.RulePercentage, Value: 10}},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			rule, err := r.Resolve(tc.code)
			require.NoError(t, err)
			require.Equal(t, tc.want, rule)
		})
	}
}

func TestResolve_ExplicitTableWins(t *testing.T) {
	rule, err := newResolver().Resolve("vip")
	require.NoError(t, err)
	require.Equal(t, pricing.Rule{Kind: pricing.RuleFixed, Value: 787}, rule)
}

func TestResolve_Invalid(t *testing.T) {
	r := newResolver()

	for _, code := range []string{
		"",         // пустой код
		"UNKNOWN9", // не в allow-list
		"FRIEND",   // в allow-list, но без хвостовых цифр и не в таблице
	} {
		_, err := r.Resolve(code)
		require.ErrorIs(t, err, pricing.ErrCodeInvalid, code)
	}

	// Пробелы по краям обрезаются до проверки.
	_, err := r.Resolve("  promo10 ")
	require.NoError(t, err)
}

func TestRuleApply_FixedAndCap(t *testing.T) {
	fixed := pricing.Rule{Kind: pricing.RuleFixed, Value: 787}

	// Ровно на потолке — не считается обрезанной.
	applied, capped := fixed.Apply(1000, 787)
	require.Equal(t, int64(787), applied)
	require.False(t, capped)

	// Фиксированная скидка не превышает саму сумму.
	applied, capped = fixed.Apply(500, 787)
	require.Equal(t, int64(500), applied)
	require.False(t, capped)

	// Процент выше потолка обрезается.
	pct := pricing.Rule{Kind: pricing.RulePercentage, Value: 50}
	applied, capped = pct.Apply(10000, 787)
	require.Equal(t, int64(787), applied)
	require.True(t, capped)
}

func TestRuleApply_CapIdempotent(t *testing.T) {
	pct := pricing.Rule{Kind: pricing.RulePercentage, Value: 50}
	applied, _ := pct.Apply(10000, 787)

	// Повторное применение потолка к уже обрезанному значению ничего не меняет.
	again := applied
	if again > 787 {
		again = 787
	}
	require.Equal(t, applied, again)
}
