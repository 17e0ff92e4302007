package cart

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brightbasket/brightbasket-backend/pkg/db/models"
	"github.com/brightbasket/brightbasket-backend/pkg/types"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Cart{}, &models.CartLineItem{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewRepository(conn)
}

func sessionOwner(id string) types.OwnerRef {
	return types.OwnerRef{SessionID: id}
}

func TestGetOrCreate_ReusesCartPerOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, sessionOwner("sess-1"))
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, err := repo.GetOrCreate(ctx, sessionOwner("sess-1"))
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same cart for same session, got %s and %s", first.ID, second.ID)
	}

	other, err := repo.GetOrCreate(ctx, sessionOwner("sess-2"))
	if err != nil {
		t.Fatalf("other session get: %v", err)
	}
	if other.ID == first.ID {
		t.Fatalf("expected distinct carts for distinct sessions")
	}

	userID := uuid.New()
	userCart, err := repo.GetOrCreate(ctx, types.OwnerRef{UserID: &userID})
	if err != nil {
		t.Fatalf("user cart get: %v", err)
	}
	if userCart.OwnerUserID == nil || *userCart.OwnerUserID != userID {
		t.Fatalf("expected user-owned cart")
	}

	if _, err := repo.GetOrCreate(ctx, types.OwnerRef{}); err == nil {
		t.Fatalf("expected error for empty owner")
	}
}

func TestAddLineItem_AccumulatesQuantity(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cart, err := repo.GetOrCreate(ctx, sessionOwner("sess-acc"))
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	productID := uuid.New()

	first, err := repo.AddLineItem(ctx, cart.ID, productID, false, 2, 1500)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	second, err := repo.AddLineItem(ctx, cart.ID, productID, false, 3, 1500)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same line to accumulate, got new line %s", second.ID)
	}
	if second.Quantity != 5 {
		t.Fatalf("expected quantity 5 after accumulation, got %d", second.Quantity)
	}

	items, err := repo.ListLineItems(ctx, cart.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected a single line, got %d", len(items))
	}

	// A free line for the same product is a distinct line.
	free, err := repo.AddLineItem(ctx, cart.ID, productID, true, 1, 0)
	if err != nil {
		t.Fatalf("free add: %v", err)
	}
	if free.ID == first.ID {
		t.Fatalf("expected free line to be separate from the paid line")
	}
	items, _ = repo.ListLineItems(ctx, cart.ID)
	if len(items) != 2 {
		t.Fatalf("expected paid and free lines, got %d", len(items))
	}
}

func TestRemoveLineItem_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cart, _ := repo.GetOrCreate(ctx, sessionOwner("sess-rm"))
	item, err := repo.AddLineItem(ctx, cart.ID, uuid.New(), false, 1, 999)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	removed, err := repo.RemoveLineItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Fatalf("expected first remove to report a deletion")
	}

	removed, err = repo.RemoveLineItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if removed {
		t.Fatalf("expected second remove to be a no-op")
	}
}

func TestSetLineItemQuantity(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cart, _ := repo.GetOrCreate(ctx, sessionOwner("sess-qty"))
	item, _ := repo.AddLineItem(ctx, cart.ID, uuid.New(), false, 1, 500)

	if err := repo.SetLineItemQuantity(ctx, item.ID, 7); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	reloaded, err := repo.FindLineItemByID(ctx, cart.ID, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", reloaded.Quantity)
	}

	if err := repo.SetLineItemQuantity(ctx, uuid.New(), 1); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected record not found for unknown line, got %v", err)
	}
}

func TestClearItems(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cart, _ := repo.GetOrCreate(ctx, sessionOwner("sess-clear"))
	repo.AddLineItem(ctx, cart.ID, uuid.New(), false, 2, 100)
	repo.AddLineItem(ctx, cart.ID, uuid.New(), true, 1, 0)

	if err := repo.ClearItems(ctx, cart.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	items, err := repo.ListLineItems(ctx, cart.ID)
	if err != nil {
		t.Fatalf("list after clear: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(items))
	}

	// Cart row survives a clear.
	if _, err := repo.FindByID(ctx, cart.ID); err != nil {
		t.Fatalf("expected cart to remain after clear: %v", err)
	}
}

func TestDeleteCart(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cart, _ := repo.GetOrCreate(ctx, sessionOwner("sess-del"))
	if err := repo.DeleteCart(ctx, cart.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteCart(ctx, cart.ID); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected record not found on second delete, got %v", err)
	}
}
