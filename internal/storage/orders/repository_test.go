package orders_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ivanzhdanov/trailmix/internal/domain"
	"github.com/ivanzhdanov/trailmix/internal/storage/memory"
	"github.com/ivanzhdanov/trailmix/internal/storage/orders"
)

func newRepo() domain.OrderRepository {
	return orders.NewRepository(memory.NewRowStore())
}

func sampleOrder() domain.Order {
	return domain.Order{
		Name:           "Ivan",
		Email:          "ivan@example.com",
		Phone:          "+56911111111",
		Items:          []domain.OrderItem{{Title: "Mix 100g", Qty: 17, UnitPrice: 4000}},
		DeliveryOption: domain.DeliveryShipping,
		TotalPrice:     61000,
		TotalMixQty:    17,
		PaymentMethod:  domain.PaymentGateway,
		DiscountCode:   "PROMO10",
		DiscountAmount: 787,
	}
}

func TestRepository_CreateGet(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()

	id, err := repo.Create(ctx, sampleOrder())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	stored, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, stored.ID)
	require.Equal(t, domain.OrderStatusPending, stored.Status)
	require.Equal(t, "ivan@example.com", stored.Email)
	require.Equal(t, int64(61000), stored.TotalPrice)
	require.Equal(t, 17, stored.TotalMixQty)
	require.Len(t, stored.Items, 1)
	require.Equal(t, int64(4000), stored.Items[0].UnitPrice)
	require.False(t, stored.CreatedAt.IsZero())
}

func TestRepository_UniqueIDs(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, err := repo.Create(ctx, sampleOrder())
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestRepository_GetNotFound(t *testing.T) {
	_, err := newRepo().Get(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestRepository_ListNewestFirst(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := repo.Create(ctx, sampleOrder())
		require.NoError(t, err)
		ids = append(ids, id)
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	// Новые первыми.
	require.Equal(t, ids[2], list[0].ID)
	require.Equal(t, ids[0], list[2].ID)
}

func TestRepository_SetStatusIdempotent(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()

	id, err := repo.Create(ctx, sampleOrder())
	require.NoError(t, err)

	require.NoError(t, repo.SetStatus(ctx, id, domain.OrderStatusDelivered))
	// Повторная установка того же статуса — успех, не ошибка.
	require.NoError(t, repo.SetStatus(ctx, id, domain.OrderStatusDelivered))
	// Обратный переход тоже разрешён.
	require.NoError(t, repo.SetStatus(ctx, id, domain.OrderStatusPending))

	require.ErrorIs(t, repo.SetStatus(ctx, "missing", domain.OrderStatusDelivered), domain.ErrOrderNotFound)
	require.ErrorIs(t, repo.SetStatus(ctx, id, "shipped"), domain.ErrStatusInvalid)
}

func TestRepository_SetPaymentLink(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()

	id, err := repo.Create(ctx, sampleOrder())
	require.NoError(t, err)

	require.NoError(t, repo.SetPaymentLink(ctx, id, "https://pay.example/p/1"))
	stored, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/p/1", stored.PaymentLink)
}

func TestRepository_DeleteManyBestEffort(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()

	idA, err := repo.Create(ctx, sampleOrder())
	require.NoError(t, err)
	idB, err := repo.Create(ctx, sampleOrder())
	require.NoError(t, err)

	results := repo.DeleteMany(ctx, []string{idA, "missing", idB})
	require.Len(t, results, 3)
	require.True(t, results[0].OK)
	require.False(t, results[1].OK)
	require.True(t, results[2].OK)

	// Существовавшие заказы удалены, несмотря на сбой по несуществующему id.
	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestRepository_DiscountLineSurvivesRoundTrip(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()

	order := sampleOrder()
	order.Items = append(order.Items, domain.OrderItem{Title: "PROMO10", Qty: 1, UnitPrice: -787})

	id, err := repo.Create(ctx, order)
	require.NoError(t, err)

	stored, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	require.True(t, stored.Items[1].IsDiscount())
	require.Equal(t, int64(-787), stored.Items[1].UnitPrice)
}
