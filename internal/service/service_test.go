package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/export"
	"backoffice/backend/internal/mailer"
	"backoffice/backend/internal/policy"
	"backoffice/backend/internal/store"
	"backoffice/backend/internal/store/memory"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts Options) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	opts.BcryptCost = bcrypt.MinCost
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	return New(repo, opts), repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin})
}

func userCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: "user-1", Email: "user@example.com", Role: domain.RoleUser})
}

func mustProduct(t *testing.T, svc *Service, name string, price int64, stock int) domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name:     name,
		Price:    decimal.NewFromInt(price),
		Cost:     decimal.NewFromInt(price / 2),
		Stock:    stock,
		MinStock: 1,
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return product
}

func mustClient(t *testing.T, svc *Service, email string) domain.Client {
	t.Helper()
	client, err := svc.CreateClient(adminCtx(), domain.ClientCreateRequest{
		Name:  "Cliente",
		Email: email,
		Phone: "11999999999",
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func stockOf(t *testing.T, svc *Service, id string) int {
	t.Helper()
	product, err := svc.GetProduct(adminCtx(), id)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	return product.Stock
}

func saleOf(clientID string, items ...domain.SaleItemRequest) domain.SaleCreateRequest {
	return domain.SaleCreateRequest{ClientID: clientID, Items: items}
}

func item(productID string, qty int, price int64) domain.SaleItemRequest {
	return domain.SaleItemRequest{ProductID: productID, Quantity: qty, Price: decimal.NewFromInt(price)}
}

func TestSaleLifecycleAdjustsStock(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := adminCtx()
	product := mustProduct(t, svc, "Caneca", 20, 10)
	client := mustClient(t, svc, "c1@example.com")

	_, err := svc.CreateSale(ctx, saleOf(client.ID, item(product.ID, 12, 20)))
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if !strings.Contains(err.Error(), "Caneca") {
		t.Fatalf("expected product name in error, got %q", err.Error())
	}
	if got := stockOf(t, svc, product.ID); got != 10 {
		t.Fatalf("expected stock 10 after failed sale, got %d", got)
	}

	sale, err := svc.CreateSale(ctx, saleOf(client.ID, item(product.ID, 5, 20)))
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.Status != domain.SaleStatusCompleted {
		t.Fatalf("expected default status COMPLETED, got %s", sale.Status)
	}
	if got := stockOf(t, svc, product.ID); got != 5 {
		t.Fatalf("expected stock 5, got %d", got)
	}

	if err := svc.DeleteSale(ctx, sale.ID); err != nil {
		t.Fatalf("delete sale: %v", err)
	}
	if got := stockOf(t, svc, product.ID); got != 10 {
		t.Fatalf("expected stock restored to 10, got %d", got)
	}
	if _, err := svc.GetSale(ctx, sale.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected deleted sale to be gone, got %v", err)
	}
}

func TestSaleTotalUsesCatalogPrice(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	a := mustProduct(t, svc, "A", 100, 10)
	b := mustProduct(t, svc, "B", 30, 10)
	client := mustClient(t, svc, "c1@example.com")

	sale, err := svc.CreateSale(adminCtx(), saleOf(client.ID, item(a.ID, 2, 90), item(b.ID, 1, 1)))
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if !sale.Total.Equal(decimal.NewFromInt(230)) {
		t.Fatalf("expected total 230 from catalog prices, got %s", sale.Total)
	}
	if !sale.Items[0].Price.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected item to keep submitted price 90, got %s", sale.Items[0].Price)
	}
	if sale.Client == nil || sale.Items[0].Product == nil {
		t.Fatalf("expected sale to be returned with relations")
	}
	if got := stockOf(t, svc, a.ID); got != 8 {
		t.Fatalf("expected stock 8 for A, got %d", got)
	}
	if got := stockOf(t, svc, b.ID); got != 9 {
		t.Fatalf("expected stock 9 for B, got %d", got)
	}
}

func TestSaleUnknownClientPersistsNothing(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	product := mustProduct(t, svc, "A", 10, 10)

	_, err := svc.CreateSale(adminCtx(), saleOf("missing", item(product.ID, 1, 10)))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err.Error() != "client not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	sales, err := svc.ListSales(adminCtx())
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no sales, got %d", len(sales))
	}
	if got := stockOf(t, svc, product.ID); got != 10 {
		t.Fatalf("expected untouched stock, got %d", got)
	}
}

func TestSequentialSalesLeaveRemainder(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	product := mustProduct(t, svc, "A", 10, 10)
	client := mustClient(t, svc, "c1@example.com")

	for _, qty := range []int{3, 4} {
		if _, err := svc.CreateSale(adminCtx(), saleOf(client.ID, item(product.ID, qty, 10))); err != nil {
			t.Fatalf("sale of %d: %v", qty, err)
		}
	}
	if got := stockOf(t, svc, product.ID); got != 3 {
		t.Fatalf("expected stock 3, got %d", got)
	}
}

func TestSaleWithOneShortItemChangesNothing(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	a := mustProduct(t, svc, "A", 10, 10)
	b := mustProduct(t, svc, "B", 10, 2)
	client := mustClient(t, svc, "c1@example.com")

	_, err := svc.CreateSale(adminCtx(), saleOf(client.ID, item(a.ID, 4, 10), item(b.ID, 3, 10)))
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := stockOf(t, svc, a.ID); got != 10 {
		t.Fatalf("expected A untouched, got %d", got)
	}
	if got := stockOf(t, svc, b.ID); got != 2 {
		t.Fatalf("expected B untouched, got %d", got)
	}
}

func TestSaleRepeatedProductCheckedCumulatively(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	product := mustProduct(t, svc, "A", 10, 5)
	client := mustClient(t, svc, "c1@example.com")

	_, err := svc.CreateSale(adminCtx(), saleOf(client.ID, item(product.ID, 3, 10), item(product.ID, 3, 10)))
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock for repeated product, got %v", err)
	}
}

func TestSaleQuantitiesCannotOverflowStockCheck(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	product := mustProduct(t, svc, "A", 20, 10)
	client := mustClient(t, svc, "c1@example.com")

	_, err := svc.CreateSale(adminCtx(), saleOf(client.ID, item(product.ID, 5, 20), item(product.ID, math.MaxInt-2, 20)))
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected quantity above the column range to be invalid, got %v", err)
	}

	_, err = svc.CreateSale(adminCtx(), saleOf(client.ID, item(product.ID, 5, 20), item(product.ID, math.MaxInt32, 20)))
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if got := stockOf(t, svc, product.ID); got != 10 {
		t.Fatalf("expected stock to stay at 10, got %d", got)
	}
}

func TestSaleRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	product := mustProduct(t, svc, "A", 10, 5)
	client := mustClient(t, svc, "c1@example.com")

	req := saleOf(client.ID, item(product.ID, 1, 10))
	req.Status = "shipped"
	if _, err := svc.CreateSale(adminCtx(), req); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	req.Status = "pending"
	sale, err := svc.CreateSale(adminCtx(), req)
	if err != nil {
		t.Fatalf("create pending sale: %v", err)
	}
	updated, err := svc.UpdateSaleStatus(adminCtx(), domain.SaleStatusRequest{ID: sale.ID, Status: "cancelled"})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != domain.SaleStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", updated.Status)
	}
	if got := stockOf(t, svc, product.ID); got != 4 {
		t.Fatalf("status change must not touch stock, got %d", got)
	}
}

// interleavingRepo runs beforeUpdate once, between the service's read of a
// product and its write, the way a concurrent request would.
type interleavingRepo struct {
	store.Repository
	beforeUpdate func()
}

func (r *interleavingRepo) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if hook := r.beforeUpdate; hook != nil {
		r.beforeUpdate = nil
		hook()
	}
	return r.Repository.UpdateProduct(ctx, product)
}

func TestProductEditKeepsConcurrentSaleDecrement(t *testing.T) {
	repo := &interleavingRepo{Repository: memory.New()}
	svc := New(repo, Options{BcryptCost: bcrypt.MinCost, Now: func() time.Time { return testNow }})
	product := mustProduct(t, svc, "A", 10, 10)
	client := mustClient(t, svc, "c1@example.com")

	repo.beforeUpdate = func() {
		if _, err := svc.CreateSale(adminCtx(), saleOf(client.ID, item(product.ID, 4, 10))); err != nil {
			t.Errorf("concurrent sale: %v", err)
		}
	}
	name := "A renomeado"
	updated, err := svc.UpdateProduct(adminCtx(), domain.ProductUpdateRequest{ID: product.ID, Name: &name})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Name != name || updated.Stock != 6 {
		t.Fatalf("expected renamed product with stock 6, got %+v", updated)
	}

	stock := 3
	updated, err = svc.UpdateProduct(adminCtx(), domain.ProductUpdateRequest{ID: product.ID, Stock: &stock})
	if err != nil {
		t.Fatalf("update stock: %v", err)
	}
	if updated.Stock != 3 || stockOf(t, svc, product.ID) != 3 {
		t.Fatalf("expected explicit stock 3, got %d", updated.Stock)
	}
}

func TestDepartmentSummaryProfitAndMargin(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := adminCtx()
	product := mustProduct(t, svc, "A", 100, 10)
	client := mustClient(t, svc, "c1@example.com")

	sold, err := svc.CreateDepartment(ctx, domain.DepartmentCreateRequest{Name: "Vendas"})
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	idle, err := svc.CreateDepartment(ctx, domain.DepartmentCreateRequest{Name: "RH"})
	if err != nil {
		t.Fatalf("create department: %v", err)
	}

	req := saleOf(client.ID, item(product.ID, 2, 100))
	req.DepartmentID = &sold.ID
	if _, err := svc.CreateSale(ctx, req); err != nil {
		t.Fatalf("create sale: %v", err)
	}
	for _, dept := range []string{sold.ID, idle.ID} {
		_, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{
			Description:  "Aluguel",
			Amount:       decimal.NewFromInt(50),
			Type:         domain.ExpenseOperational,
			DepartmentID: dept,
		})
		if err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}

	summaries, err := svc.ListDepartments(ctx)
	if err != nil {
		t.Fatalf("list departments: %v", err)
	}
	byID := make(map[string]domain.DepartmentSummary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}
	if got := byID[sold.ID]; !got.Profit.Equal(decimal.NewFromInt(150)) || !got.Margin.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("unexpected summary for sold department: profit %s margin %s", got.Profit, got.Margin)
	}
	if got := byID[idle.ID]; !got.Profit.Equal(decimal.NewFromInt(-50)) || !got.Margin.IsZero() {
		t.Fatalf("unexpected summary for idle department: profit %s margin %s", got.Profit, got.Margin)
	}
}

func TestExpenseNeedsKnownDepartment(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	_, err := svc.CreateExpense(adminCtx(), domain.ExpenseCreateRequest{
		Description:  "Luz",
		Amount:       decimal.NewFromInt(10),
		Type:         domain.ExpenseOperational,
		DepartmentID: "missing",
	})
	if !errors.Is(err, store.ErrNotFound) || err.Error() != "department not found" {
		t.Fatalf("expected department not found, got %v", err)
	}

	_, err = svc.CreateExpense(adminCtx(), domain.ExpenseCreateRequest{
		Description:  "Luz",
		Amount:       decimal.Zero,
		Type:         domain.ExpenseOperational,
		DepartmentID: "missing",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestAuthorization(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	if _, err := svc.ListSales(context.Background()); !errors.Is(err, policy.ErrUnauthorized) {
		t.Fatalf("expected unauthorized without actor, got %v", err)
	}
	if _, err := svc.CreateDepartment(userCtx(), domain.DepartmentCreateRequest{Name: "X"}); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("expected forbidden for USER department create, got %v", err)
	}
	if _, err := svc.ListUsers(userCtx()); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("expected forbidden for USER listing users, got %v", err)
	}
	if _, err := svc.ListDepartments(userCtx()); err != nil {
		t.Fatalf("USER should list departments: %v", err)
	}
	if err := svc.DeleteUser(adminCtx(), "admin-1"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict deleting self, got %v", err)
	}
}

func TestClientEmailUnique(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	mustClient(t, svc, "dup@example.com")

	_, err := svc.CreateClient(adminCtx(), domain.ClientCreateRequest{
		Name:  "Outro",
		Email: "DUP@example.com",
		Phone: "1",
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	_, err = svc.CreateClient(adminCtx(), domain.ClientCreateRequest{Name: "Sem telefone", Email: "x@example.com"})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected phone to be required, got %v", err)
	}
}

func TestAuthenticateChecksLicense(t *testing.T) {
	svc, repo := newTestService(t, Options{})
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.RegisterRequest{Name: "Ana", Email: "Ana@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected registered role USER, got %s", user.Role)
	}

	if _, err := svc.Authenticate(ctx, "ana@example.com", "wrong"); !errors.Is(err, policy.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ANA@example.com", "secret1"); err != nil {
		t.Fatalf("login without license should pass: %v", err)
	}

	_, err = repo.CreateLicense(ctx, domain.License{
		ID:        "lic-1",
		Key:       "KEY-1",
		Status:    domain.LicenseStatusActive,
		ExpiresAt: testNow.Add(-time.Hour),
		UserID:    user.ID,
		CreatedAt: testNow.AddDate(-1, 0, 0),
	})
	if err != nil {
		t.Fatalf("create license: %v", err)
	}
	_, err = svc.Authenticate(ctx, "ana@example.com", "secret1")
	if !errors.Is(err, ErrLicenseInactive) || !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("expected expired license to block login, got %v", err)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.Seed(ctx, "admin123"); err != nil {
			t.Fatalf("seed run %d: %v", i, err)
		}
	}

	admin, err := svc.Authenticate(ctx, SeedAdminEmail, "admin123")
	if err != nil {
		t.Fatalf("seeded admin login: %v", err)
	}
	if admin.Role != domain.RoleAdmin {
		t.Fatalf("expected ADMIN, got %s", admin.Role)
	}
	products, err := svc.ListProducts(adminCtx())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 1 || products[0].Stock != 100 {
		t.Fatalf("expected one seeded product with stock 100, got %+v", products)
	}
	license, err := svc.ActiveLicense(adminCtx())
	if err != nil {
		t.Fatalf("active license: %v", err)
	}
	if license.Key != SeedLicenseKey {
		t.Fatalf("expected seeded license key, got %s", license.Key)
	}
}

func TestRankingPoints(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	a, err := svc.Register(ctx, domain.RegisterRequest{Name: "A", Email: "a@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	b, err := svc.Register(ctx, domain.RegisterRequest{Name: "B", Email: "b@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.AddRankingPoints(userCtx(), domain.RankingPointsRequest{UserID: a.ID, Points: 5}); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("expected USER to be forbidden, got %v", err)
	}
	for _, req := range []domain.RankingPointsRequest{{UserID: a.ID, Points: 5}, {UserID: b.ID, Points: 8}} {
		if _, err := svc.AddRankingPoints(adminCtx(), req); err != nil {
			t.Fatalf("add points: %v", err)
		}
	}

	top, err := svc.TopRanking(userCtx())
	if err != nil {
		t.Fatalf("top ranking: %v", err)
	}
	if len(top) != 2 || top[0].UserID != b.ID || top[0].Position != 1 {
		t.Fatalf("expected B first, got %+v", top)
	}
}

type memoryCache struct {
	mu            sync.Mutex
	entries       map[string]domain.DREReport
	sets          int
	invalidations int
}

func cacheEntry(gen int64, key string) string {
	return strconv.FormatInt(gen, 10) + ":" + key
}

func (c *memoryCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(c.invalidations), nil
}

func (c *memoryCache) Get(_ context.Context, gen int64, key string) (*domain.DREReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	report, ok := c.entries[cacheEntry(gen, key)]
	if !ok {
		return nil, false, nil
	}
	return &report, true, nil
}

func (c *memoryCache) Set(_ context.Context, gen int64, key string, value *domain.DREReport, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]domain.DREReport)
	}
	c.entries[cacheEntry(gen, key)] = *value
	c.sets++
	return nil
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	return nil
}

func TestDREIsCachedUntilSalesChange(t *testing.T) {
	reports := &memoryCache{}
	svc, _ := newTestService(t, Options{Cache: reports})
	ctx := adminCtx()
	product := mustProduct(t, svc, "A", 100, 10)
	client := mustClient(t, svc, "c1@example.com")

	period, err := svc.ResolvePeriod(nil, nil, 7)
	if err != nil {
		t.Fatalf("resolve period: %v", err)
	}
	first, err := svc.DRE(ctx, period)
	if err != nil {
		t.Fatalf("dre: %v", err)
	}
	if !first.Summary.TotalSales.IsZero() {
		t.Fatalf("expected empty report, got %s", first.Summary.TotalSales)
	}
	if _, err := svc.DRE(ctx, period); err != nil {
		t.Fatalf("dre: %v", err)
	}
	if reports.sets != 1 {
		t.Fatalf("expected second read to hit the cache, sets=%d", reports.sets)
	}

	before := reports.invalidations
	if _, err := svc.CreateSale(ctx, saleOf(client.ID, item(product.ID, 2, 100))); err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if reports.invalidations != before+1 {
		t.Fatalf("expected sale to invalidate reports, got %d", reports.invalidations)
	}
	fresh, err := svc.DRE(ctx, period)
	if err != nil {
		t.Fatalf("dre: %v", err)
	}
	if !fresh.Summary.TotalSales.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected 200 in sales, got %s", fresh.Summary.TotalSales)
	}
}

// salesReadRepo runs afterListSales once, after the sales for a report were
// read and before the report is built.
type salesReadRepo struct {
	store.Repository
	afterListSales func()
}

func (r *salesReadRepo) ListSales(ctx context.Context) ([]domain.Sale, error) {
	sales, err := r.Repository.ListSales(ctx)
	if hook := r.afterListSales; hook != nil {
		r.afterListSales = nil
		hook()
	}
	return sales, err
}

func TestDREBuiltBeforeInvalidationIsNotServed(t *testing.T) {
	reports := &memoryCache{}
	repo := &salesReadRepo{Repository: memory.New()}
	svc := New(repo, Options{Cache: reports, BcryptCost: bcrypt.MinCost, Now: func() time.Time { return testNow }})
	ctx := adminCtx()
	product := mustProduct(t, svc, "A", 100, 10)
	client := mustClient(t, svc, "c1@example.com")

	period, err := svc.ResolvePeriod(nil, nil, 7)
	if err != nil {
		t.Fatalf("resolve period: %v", err)
	}
	repo.afterListSales = func() {
		if _, err := svc.CreateSale(ctx, saleOf(client.ID, item(product.ID, 2, 100))); err != nil {
			t.Errorf("concurrent sale: %v", err)
		}
	}
	stale, err := svc.DRE(ctx, period)
	if err != nil {
		t.Fatalf("dre: %v", err)
	}
	if !stale.Summary.TotalSales.IsZero() {
		t.Fatalf("expected report built from the earlier read, got %s", stale.Summary.TotalSales)
	}

	fresh, err := svc.DRE(ctx, period)
	if err != nil {
		t.Fatalf("dre: %v", err)
	}
	if !fresh.Summary.TotalSales.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected the report to include the new sale, got %s", fresh.Summary.TotalSales)
	}
}

func TestResolvePeriodRejectsInvertedRange(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	from := testNow
	to := testNow.AddDate(0, 0, -3)
	if _, err := svc.ResolvePeriod(&from, &to, 0); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

type capturingMailer struct {
	sent []mailer.Message
}

func (m *capturingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func TestSendDRE(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	err := svc.SendDRE(adminCtx(), domain.ReportSendRequest{Email: "boss@example.com"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable without smtp, got %v", err)
	}

	outbox := &capturingMailer{}
	svc, _ = newTestService(t, Options{Mailer: outbox})
	if err := svc.SendDRE(adminCtx(), domain.ReportSendRequest{Email: "Boss@Example.com"}); err != nil {
		t.Fatalf("send dre: %v", err)
	}
	if len(outbox.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(outbox.sent))
	}
	msg := outbox.sent[0]
	if msg.To != "boss@example.com" || !strings.Contains(msg.HTML, "Relatório Financeiro") {
		t.Fatalf("unexpected message %+v", msg)
	}
	if len(msg.Attachments) != 1 || !strings.HasSuffix(msg.Attachments[0].Name, ".pdf") {
		t.Fatalf("expected pdf attachment, got %+v", msg.Attachments)
	}
	if !strings.HasPrefix(string(msg.Attachments[0].Data), "%PDF") {
		t.Fatalf("attachment is not a pdf")
	}
}

func TestExportDRE(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	period, err := svc.ResolvePeriod(nil, nil, 3)
	if err != nil {
		t.Fatalf("resolve period: %v", err)
	}
	data, report, err := svc.ExportDRE(adminCtx(), period, export.FormatCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(report.Daily) != 3 {
		t.Fatalf("expected 3 daily rows, got %d", len(report.Daily))
	}
	if len(data) == 0 {
		t.Fatalf("expected csv payload")
	}
	if _, _, err := svc.ExportDRE(context.Background(), period, export.FormatCSV); !errors.Is(err, policy.ErrUnauthorized) {
		t.Fatalf("expected unauthorized export, got %v", err)
	}
}
