package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/store"
)

func seedProduct(t *testing.T, s *Store, id string, stock int) {
	t.Helper()
	_, err := s.CreateProduct(context.Background(), domain.Product{
		ID:    id,
		Name:  "Produto " + id,
		Price: decimal.NewFromInt(100),
		Cost:  decimal.NewFromInt(50),
		Stock: stock,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := New()
	seedProduct(t, s, "p1", 10)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.AdjustStock(ctx, "p1", -4); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	product, err := s.GetProduct(ctx, "p1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 10 {
		t.Fatalf("expected stock 10 after rollback, got %d", product.Stock)
	}
}

func TestInTxCommitsSaleAndStock(t *testing.T) {
	s := New()
	seedProduct(t, s, "p1", 10)
	ctx := context.Background()
	if _, err := s.CreateClient(ctx, domain.Client{ID: "c1", Name: "Cliente", Email: "c1@example.com"}); err != nil {
		t.Fatalf("create client: %v", err)
	}

	err := s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertSale(ctx, domain.Sale{
			ID:        "s1",
			ClientID:  "c1",
			Total:     decimal.NewFromInt(300),
			Status:    domain.SaleStatusCompleted,
			CreatedAt: time.Now().UTC(),
			Items:     []domain.SaleItem{{ProductID: "p1", Quantity: 3, Price: decimal.NewFromInt(90)}},
		}); err != nil {
			return err
		}
		return tx.AdjustStock(ctx, "p1", -3)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	sale, err := s.GetSale(ctx, "s1")
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if sale.Client == nil || sale.Client.Email != "c1@example.com" {
		t.Fatalf("expected hydrated client, got %+v", sale.Client)
	}
	if len(sale.Items) != 1 || sale.Items[0].Product == nil || sale.Items[0].Product.Stock != 7 {
		t.Fatalf("expected one item with product stock 7, got %+v", sale.Items)
	}
	if sale.Items[0].SaleID != "s1" || sale.Items[0].ID == "" {
		t.Fatalf("expected item linked to sale with id, got %+v", sale.Items[0])
	}
}

func TestGuardedStockRejectsNegative(t *testing.T) {
	s := New(WithGuardedStock(true))
	seedProduct(t, s, "p1", 2)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx store.Tx) error {
		return tx.AdjustStock(ctx, "p1", -3)
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestClientEmailIsUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.CreateClient(ctx, domain.Client{ID: "c1", Name: "A", Email: "a@example.com"}); err != nil {
		t.Fatalf("create client: %v", err)
	}
	_, err := s.CreateClient(ctx, domain.Client{ID: "c2", Name: "B", Email: "A@example.com"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDeleteProductReferencedBySaleConflicts(t *testing.T) {
	s := New()
	seedProduct(t, s, "p1", 5)
	ctx := context.Background()
	if _, err := s.CreateClient(ctx, domain.Client{ID: "c1", Name: "A", Email: "a@example.com"}); err != nil {
		t.Fatalf("create client: %v", err)
	}
	if err := s.InTx(ctx, func(tx store.Tx) error {
		return tx.InsertSale(ctx, domain.Sale{
			ID:       "s1",
			ClientID: "c1",
			Items:    []domain.SaleItem{{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(100)}},
		})
	}); err != nil {
		t.Fatalf("insert sale: %v", err)
	}

	if err := s.DeleteProduct(ctx, "p1"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRankingPositionsFollowPoints(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"u1", "u2", "u3"} {
		if _, err := s.CreateUser(ctx, domain.User{ID: id, Name: id, Email: id + "@example.com", Password: "hash"}); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	if _, err := s.AddRankingPoints(ctx, "u1", 10); err != nil {
		t.Fatalf("points: %v", err)
	}
	if _, err := s.AddRankingPoints(ctx, "u2", 30); err != nil {
		t.Fatalf("points: %v", err)
	}
	r, err := s.AddRankingPoints(ctx, "u1", 25)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	if r.Points != 35 || r.Position != 1 {
		t.Fatalf("expected u1 35 points at position 1, got %+v", r)
	}

	top, err := s.TopRankings(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "u1" || top[1].Position != 2 {
		t.Fatalf("unexpected ranking order: %+v", top)
	}
	if top[0].User == nil || top[0].User.Email != "u1@example.com" {
		t.Fatalf("expected user details on ranking, got %+v", top[0].User)
	}
}

func TestFindActiveLicensePicksLatestExpiry(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()
	for _, id := range []string{"u1", "u2", "u3"} {
		if _, err := s.CreateUser(ctx, domain.User{ID: id, Email: id + "@example.com", Password: "hash"}); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	licenses := []domain.License{
		{ID: "l1", Key: "K1", Status: domain.LicenseStatusActive, ExpiresAt: now.Add(24 * time.Hour), UserID: "u1"},
		{ID: "l2", Key: "K2", Status: domain.LicenseStatusActive, ExpiresAt: now.Add(48 * time.Hour), UserID: "u2"},
		{ID: "l3", Key: "K3", Status: domain.LicenseStatusInactive, ExpiresAt: now.Add(96 * time.Hour), UserID: "u3"},
	}
	for _, l := range licenses {
		if _, err := s.CreateLicense(ctx, l); err != nil {
			t.Fatalf("create license: %v", err)
		}
	}

	active, err := s.FindActiveLicense(ctx, now)
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active.Key != "K2" {
		t.Fatalf("expected K2, got %s", active.Key)
	}
}

func TestUpdateProductKeepsStoredStock(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedProduct(t, s, "p1", 10)

	updated, err := s.UpdateProduct(ctx, domain.Product{ID: "p1", Name: "Renomeado", Stock: 99})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Stock != 10 || updated.Name != "Renomeado" {
		t.Fatalf("expected name change with stock 10, got %+v", updated)
	}

	at := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	product, err := s.SetProductStock(ctx, "p1", 3, at)
	if err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if product.Stock != 3 || !product.UpdatedAt.Equal(at) {
		t.Fatalf("expected stock 3 at %s, got %+v", at, product)
	}
	if _, err := s.SetProductStock(ctx, "nope", 1, at); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
