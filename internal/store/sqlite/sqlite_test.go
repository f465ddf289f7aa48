package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/store"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open("file:"+t.Name()+"?mode=memory&cache=shared", opts...)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func seedCatalog(t *testing.T, s *Store, stock int) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	if _, err := s.CreateProduct(ctx, domain.Product{
		ID: "p1", Name: "Produto 1", Price: decimal.NewFromInt(100), Cost: decimal.NewFromInt(50),
		Stock: stock, MinStock: 10, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := s.CreateClient(ctx, domain.Client{
		ID: "c1", Name: "Cliente 1", Email: "cliente1@example.com", Phone: "123", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create client: %v", err)
	}
}

func insertSale(ctx context.Context, s *Store, id string, qty int) error {
	return s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertSale(ctx, domain.Sale{
			ID:        id,
			ClientID:  "c1",
			Total:     decimal.NewFromInt(int64(qty) * 100),
			Status:    domain.SaleStatusCompleted,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
			Items:     []domain.SaleItem{{ProductID: "p1", Quantity: qty, Price: decimal.NewFromInt(90)}},
		}); err != nil {
			return err
		}
		return tx.AdjustStock(ctx, "p1", -qty)
	})
}

func TestSaleCommitHydratesRelations(t *testing.T) {
	s := openTestStore(t)
	seedCatalog(t, s, 10)
	ctx := context.Background()

	if err := insertSale(ctx, s, "s1", 3); err != nil {
		t.Fatalf("insert sale: %v", err)
	}

	sale, err := s.GetSale(ctx, "s1")
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if sale.Client == nil || sale.Client.Email != "cliente1@example.com" {
		t.Fatalf("expected client to be loaded, got %+v", sale.Client)
	}
	if len(sale.Items) != 1 || sale.Items[0].Product == nil || sale.Items[0].Product.Stock != 7 {
		t.Fatalf("expected one item with stock 7, got %+v", sale.Items)
	}
	if !sale.Items[0].Price.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected stored item price 90, got %s", sale.Items[0].Price)
	}
	if sale.DepartmentID != nil || sale.Department != nil {
		t.Fatalf("expected no department, got %+v", sale.Department)
	}
}

func TestInTxRollsBackSaleOnError(t *testing.T) {
	s := openTestStore(t)
	seedCatalog(t, s, 10)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertSale(ctx, domain.Sale{
			ID: "s1", ClientID: "c1", Total: decimal.NewFromInt(100), Status: domain.SaleStatusCompleted,
			Items: []domain.SaleItem{{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(100)}},
		}); err != nil {
			return err
		}
		if err := tx.AdjustStock(ctx, "p1", -1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := s.GetSale(ctx, "s1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected sale to be rolled back, got %v", err)
	}
	product, err := s.GetProduct(ctx, "p1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 10 {
		t.Fatalf("expected stock 10, got %d", product.Stock)
	}
}

func TestUnguardedDecrementAllowsNegativeStock(t *testing.T) {
	s := openTestStore(t)
	seedCatalog(t, s, 2)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx store.Tx) error {
		return tx.AdjustStock(ctx, "p1", -5)
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	product, _ := s.GetProduct(ctx, "p1")
	if product.Stock != -3 {
		t.Fatalf("expected stock -3, got %d", product.Stock)
	}
}

func TestGuardedDecrementRefusesOversell(t *testing.T) {
	s := openTestStore(t, WithGuardedStock(true))
	seedCatalog(t, s, 2)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx store.Tx) error {
		return tx.AdjustStock(ctx, "p1", -3)
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	err = s.InTx(ctx, func(tx store.Tx) error {
		return tx.AdjustStock(ctx, "missing", -1)
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteSaleRemovesItems(t *testing.T) {
	s := openTestStore(t)
	seedCatalog(t, s, 10)
	ctx := context.Background()
	if err := insertSale(ctx, s, "s1", 2); err != nil {
		t.Fatalf("insert sale: %v", err)
	}

	if err := s.DeleteProduct(ctx, "p1"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict deleting sold product, got %v", err)
	}

	err := s.InTx(ctx, func(tx store.Tx) error {
		return tx.DeleteSale(ctx, "s1")
	})
	if err != nil {
		t.Fatalf("delete sale: %v", err)
	}
	if err := s.DeleteProduct(ctx, "p1"); err != nil {
		t.Fatalf("expected product delete after sale removal, got %v", err)
	}
}

func TestClientEmailIsUnique(t *testing.T) {
	s := openTestStore(t)
	seedCatalog(t, s, 1)

	_, err := s.CreateClient(context.Background(), domain.Client{
		ID: "c2", Name: "Outro", Email: "CLIENTE1@example.com", Phone: "9",
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateMissingProductIsNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.UpdateProduct(context.Background(), domain.Product{ID: "nope", Name: "x"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExpenseRequiresDepartment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateExpense(ctx, domain.Expense{
		ID: "e1", Description: "Aluguel", Amount: decimal.NewFromInt(10), Type: domain.ExpenseOperational,
		Date: time.Now().UTC(), DepartmentID: "d1",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := s.CreateDepartment(ctx, domain.Department{ID: "d1", Name: "Loja"}); err != nil {
		t.Fatalf("create department: %v", err)
	}
	expense, err := s.CreateExpense(ctx, domain.Expense{
		ID: "e1", Description: "Aluguel", Amount: decimal.NewFromInt(10), Type: domain.ExpenseOperational,
		Date: time.Now().UTC(), DepartmentID: "d1",
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if expense.Department == nil || expense.Department.Name != "Loja" {
		t.Fatalf("expected department to be loaded, got %+v", expense.Department)
	}
	if err := s.DeleteDepartment(ctx, "d1"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict deleting department with expenses, got %v", err)
	}
}

func TestRankingPositionsFollowPoints(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"u1", "u2"} {
		if _, err := s.CreateUser(ctx, domain.User{ID: id, Name: id, Email: id + "@example.com", Password: "hash", Role: domain.RoleUser}); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	if _, err := s.AddRankingPoints(ctx, "u1", 5); err != nil {
		t.Fatalf("add points: %v", err)
	}
	r2, err := s.AddRankingPoints(ctx, "u2", 8)
	if err != nil {
		t.Fatalf("add points: %v", err)
	}
	if r2.Position != 1 {
		t.Fatalf("expected u2 first, got position %d", r2.Position)
	}

	top, err := s.TopRankings(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "u2" || top[1].Position != 2 {
		t.Fatalf("unexpected ranking order: %+v", top)
	}
	if top[0].User == nil || top[0].User.Email != "u2@example.com" {
		t.Fatalf("expected user to be loaded, got %+v", top[0].User)
	}

	if _, err := s.AddRankingPoints(ctx, "ghost", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
}

func TestFindActiveLicensePicksLatestExpiry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for _, id := range []string{"u1", "u2"} {
		if _, err := s.CreateUser(ctx, domain.User{ID: id, Email: id + "@example.com", Password: "hash", Role: domain.RoleUser}); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	licenses := []domain.License{
		{ID: "l1", Key: "K1", Status: domain.LicenseStatusActive, ExpiresAt: now.Add(24 * time.Hour), UserID: "u1", CreatedAt: now},
		{ID: "l2", Key: "K2", Status: domain.LicenseStatusActive, ExpiresAt: now.Add(48 * time.Hour), UserID: "u2", CreatedAt: now},
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
	s := openTestStore(t)
	ctx := context.Background()
	seedCatalog(t, s, 10)

	updated, err := s.UpdateProduct(ctx, domain.Product{
		ID: "p1", Name: "Renomeado", Price: decimal.NewFromInt(120), Cost: decimal.NewFromInt(60),
		Stock: 99, MinStock: 2, UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Stock != 10 || updated.Name != "Renomeado" || updated.MinStock != 2 {
		t.Fatalf("expected catalog change with stock 10, got %+v", updated)
	}

	product, err := s.SetProductStock(ctx, "p1", 4, time.Now().UTC())
	if err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if product.Stock != 4 {
		t.Fatalf("expected stock 4, got %d", product.Stock)
	}
	if _, err := s.SetProductStock(ctx, "nope", 1, time.Now().UTC()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
