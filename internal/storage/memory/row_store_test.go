package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/ivanzhdanov/trailmix/internal/domain"
	"github.com/ivanzhdanov/trailmix/internal/storage/memory"
)

func TestRowStore_InsertSelect(t *testing.T) {
	rs := memory.NewRowStore()
	ctx := context.Background()

	if err := rs.Insert(ctx, "orders", domain.Row{"id": "a", "status": "pending"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := rs.Insert(ctx, "orders", domain.Row{"id": "b", "status": "delivered"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	rows, err := rs.Select(ctx, "orders", domain.Filter{"status": "pending"}, "", false)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != "a" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestRowStore_SelectOrderByCreatedAtDesc(t *testing.T) {
	rs := memory.NewRowStore()
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"old", "mid", "new"} {
		err := rs.Insert(ctx, "orders", domain.Row{"id": id, "created_at": base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	rows, err := rs.Select(ctx, "orders", nil, "created_at", true)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0]["id"] != "new" || rows[2]["id"] != "old" {
		t.Fatalf("unexpected order: %v, %v, %v", rows[0]["id"], rows[1]["id"], rows[2]["id"])
	}
}

func TestRowStore_Update(t *testing.T) {
	rs := memory.NewRowStore()
	ctx := context.Background()

	if err := rs.Insert(ctx, "orders", domain.Row{"id": "a", "status": "pending"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	affected, err := rs.Update(ctx, "orders", domain.Filter{"id": "a"}, domain.Row{"status": "delivered"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 affected, got %d", affected)
	}

	affected, err = rs.Update(ctx, "orders", domain.Filter{"id": "missing"}, domain.Row{"status": "delivered"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 affected, got %d", affected)
	}
}

func TestRowStore_Delete(t *testing.T) {
	rs := memory.NewRowStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := rs.Insert(ctx, "orders", domain.Row{"id": id}); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	deleted, err := rs.Delete(ctx, "orders", domain.Filter{"id": "a"})
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}

	rows, err := rs.Select(ctx, "orders", nil, "", false)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != "b" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestRowStore_CopyOnWrite(t *testing.T) {
	rs := memory.NewRowStore()
	ctx := context.Background()

	row := domain.Row{"id": "a", "status": "pending"}
	if err := rs.Insert(ctx, "orders", row); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	// Мутация исходной строки не должна влиять на хранилище.
	row["status"] = "mutated"

	rows, err := rs.Select(ctx, "orders", nil, "", false)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if rows[0]["status"] != "pending" {
		t.Fatalf("store row was mutated externally: %v", rows[0])
	}
}
