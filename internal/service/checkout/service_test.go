package checkout_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ivanzhdanov/trailmix/internal/domain"
	"github.com/ivanzhdanov/trailmix/internal/mail"
	"github.com/ivanzhdanov/trailmix/internal/paytoken"
	"github.com/ivanzhdanov/trailmix/internal/pricing"
	"github.com/ivanzhdanov/trailmix/internal/service/checkout"
	"github.com/ivanzhdanov/trailmix/internal/service/email"
	"github.com/ivanzhdanov/trailmix/internal/service/payment"
	"github.com/ivanzhdanov/trailmix/internal/storage/memory"
	"github.com/ivanzhdanov/trailmix/internal/storage/orders"
)

type fixture struct {
	svc     *checkout.Service
	repo    domain.OrderRepository
	gateway *payment.MockGateway
	sender  *email.MockSender
	tokens  *paytoken.Codec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	engine := pricing.NewEngine(pricing.DefaultPriceTable(), 2500, 787)
	resolver := pricing.NewResolver(
		[]string{"PROMO10", "SAVE500", "MEGA787"},
		map[string]pricing.Rule{"MEGA787": {Kind: pricing.RuleFixed, Value: 787}},
	)
	repo := orders.NewRepository(memory.NewRowStore())
	gateway := payment.NewMockGateway()
	sender := email.NewMockSender()
	tokens := paytoken.New([]byte("test-secret"))

	svc := checkout.NewService(
		repo, gateway, sender, nil,
		engine, resolver, mail.NewComposer(engine), tokens, nil,
		checkout.Config{
			PublicBaseURL: "https://trailmix.example",
			FromEmail:     "pedidos@trailmix.example",
		},
		nil,
	)
	return &fixture{svc: svc, repo: repo, gateway: gateway, sender: sender, tokens: tokens}
}

func validInput() checkout.Input {
	return checkout.Input{
		Name:           "Ana",
		Email:          "ana@example.com",
		Phone:          "+56911112222",
		Items:          []checkout.ItemInput{{Title: "Mix clásico", Qty: 17}},
		DeliveryOption: domain.DeliveryPickup,
		PaymentMethod:  domain.PaymentCash,
	}
}

func TestCheckout_CashOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Checkout(ctx, validInput())
	require.NoError(t, err)
	require.NotEmpty(t, res.OrderID)
	require.True(t, res.EmailSent)
	require.Empty(t, res.PaymentLink)
	require.Zero(t, f.gateway.Calls)

	// 17 = 1x15 + 2x1 → 53000 + 8000.
	require.Equal(t, int64(61000), res.Quote.Total)

	stored, err := f.repo.Get(ctx, res.OrderID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusPending, stored.Status)
	require.Equal(t, int64(61000), stored.TotalPrice)
	require.Equal(t, 17, stored.TotalMixQty)
	require.Empty(t, stored.ValidateInvariants())

	require.Len(t, f.sender.Messages, 1)
	msg := f.sender.Messages[0]
	require.Equal(t, "ana@example.com", msg.To)
	require.Contains(t, msg.Subject, res.OrderID)
	require.Contains(t, msg.HTML, "$61.000")
}

func TestCheckout_GatewayOrderCreatesPreference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput()
	in.PaymentMethod = domain.PaymentGateway
	in.DeliveryOption = domain.DeliveryShipping
	in.DeliveryAddress = "Av. Siempre Viva 742"
	in.DiscountCode = "save500"

	res, err := f.svc.Checkout(ctx, in)
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/init/pref-1", res.PaymentLink)
	require.NotEmpty(t, res.ResumeToken)
	require.Equal(t, 1, f.gateway.Calls)

	// 53000 + 8000 + 2500 доставка − 500 по коду.
	require.Equal(t, int64(63000), res.Quote.Total)

	// Сумма позиций preference побитово равна итогу заказа.
	req := f.gateway.Requests[0]
	var sum int64
	for _, item := range req.Items {
		sum += int64(item.Qty) * item.UnitPrice
	}
	require.Equal(t, res.Quote.Total, sum)
	require.Contains(t, req.ExternalReference, res.OrderID)
	require.Equal(t, "https://trailmix.example/webhooks/payment", req.NotificationURL)
	require.Equal(t, "ana@example.com", req.Payer.Email)

	stored, err := f.repo.Get(ctx, res.OrderID)
	require.NoError(t, err)
	require.Equal(t, res.PaymentLink, stored.PaymentLink)
	require.Equal(t, "SAVE500", stored.DiscountCode)
	require.Equal(t, int64(500), stored.DiscountAmount)
}

func TestCheckout_DiscountMaterializedAsLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput()
	in.DiscountCode = "MEGA787"

	res, err := f.svc.Checkout(ctx, in)
	require.NoError(t, err)

	stored, err := f.repo.Get(ctx, res.OrderID)
	require.NoError(t, err)

	var discountLines int
	for _, item := range stored.Items {
		if item.IsDiscount() {
			discountLines++
			require.Equal(t, "MEGA787", item.Title)
			require.Equal(t, int64(-787), item.UnitPrice)
		}
	}
	require.Equal(t, 1, discountLines)
}

func TestCheckout_InvalidCodeRejected(t *testing.T) {
	f := newFixture(t)

	in := validInput()
	in.DiscountCode = "HACK999999"

	_, err := f.svc.Checkout(context.Background(), in)
	require.ErrorIs(t, err, checkout.ErrValidation)
}

func TestCheckout_ValidationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(in *checkout.Input)
	}{
		{"empty email", func(in *checkout.Input) { in.Email = "" }},
		{"empty phone", func(in *checkout.Input) { in.Phone = "" }},
		{"no items", func(in *checkout.Input) { in.Items = nil }},
		{"bad delivery", func(in *checkout.Input) { in.DeliveryOption = "teleport" }},
		{"bad payment", func(in *checkout.Input) { in.PaymentMethod = "barter" }},
		{"zero qty item", func(in *checkout.Input) { in.Items[0].Qty = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := f.svc.Checkout(ctx, in)
			require.ErrorIs(t, err, checkout.ErrValidation)
		})
	}
}

func TestCheckout_EmailFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.sender.SendErr = errors.New("smtp down")

	res, err := f.svc.Checkout(context.Background(), validInput())
	require.NoError(t, err)
	require.False(t, res.EmailSent)

	_, err = f.repo.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
}

func TestCheckout_PreferenceFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.gateway.CreateErr = domain.ErrPaymentGateway

	in := validInput()
	in.PaymentMethod = domain.PaymentGateway

	res, err := f.svc.Checkout(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, res.PaymentLink)
	require.NotEmpty(t, res.ResumeToken)

	stored, err := f.repo.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
	require.Empty(t, stored.PaymentLink)
}

func TestQuote_MatchesCheckoutTotals(t *testing.T) {
	f := newFixture(t)

	quote, err := f.svc.Quote(17, domain.DeliveryShipping, "PROMO10")
	require.NoError(t, err)

	in := validInput()
	in.DeliveryOption = domain.DeliveryShipping
	in.DeliveryAddress = "Av. Siempre Viva 742"
	in.DiscountCode = "PROMO10"

	res, err := f.svc.Checkout(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, quote, res.Quote)
}

func TestQuote_InvalidDelivery(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Quote(5, "drone", "")
	require.ErrorIs(t, err, checkout.ErrValidation)
}

func TestResumePayment_ReturnsStoredLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput()
	in.PaymentMethod = domain.PaymentGateway
	res, err := f.svc.Checkout(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 1, f.gateway.Calls)

	link, err := f.svc.ResumePayment(ctx, res.ResumeToken)
	require.NoError(t, err)
	require.Equal(t, res.PaymentLink, link)
	// Ссылка уже была — новый preference не создаётся.
	require.Equal(t, 1, f.gateway.Calls)
}

func TestResumePayment_CreatesMissingPreference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.CreateErr = domain.ErrPaymentGateway
	in := validInput()
	in.PaymentMethod = domain.PaymentGateway
	res, err := f.svc.Checkout(ctx, in)
	require.NoError(t, err)
	require.Empty(t, res.PaymentLink)

	f.gateway.CreateErr = nil
	link, err := f.svc.ResumePayment(ctx, res.ResumeToken)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "https://pay.example/init/"))

	stored, err := f.repo.Get(ctx, res.OrderID)
	require.NoError(t, err)
	require.Equal(t, link, stored.PaymentLink)
}

func TestResumePayment_BadToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ResumePayment(context.Background(), "not-a-token")
	require.ErrorIs(t, err, paytoken.ErrTokenInvalid)
}

func TestResumePayment_ExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput()
	in.PaymentMethod = domain.PaymentGateway
	res, err := f.svc.Checkout(ctx, in)
	require.NoError(t, err)

	expired := paytoken.New([]byte("test-secret")).
		WithClock(func() time.Time { return time.Now().Add(2 * checkout.TokenTTL) })
	_, err = expired.Verify(res.ResumeToken)
	require.ErrorIs(t, err, paytoken.ErrTokenExpired)
}

func TestResumePayment_UnknownOrder(t *testing.T) {
	f := newFixture(t)

	token, err := f.tokens.Issue("no-such-order", time.Hour)
	require.NoError(t, err)

	_, err = f.svc.ResumePayment(context.Background(), token)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}
