package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/store"
	"backoffice/backend/internal/xid"
)

type state struct {
	products    map[string]domain.Product
	clients     map[string]domain.Client
	sales       map[string]domain.Sale
	departments map[string]domain.Department
	expenses    map[string]domain.Expense
	users       map[string]domain.User
	licenses    map[string]domain.License
	rankings    map[string]domain.Ranking
}

func newState() *state {
	return &state{
		products:    make(map[string]domain.Product),
		clients:     make(map[string]domain.Client),
		sales:       make(map[string]domain.Sale),
		departments: make(map[string]domain.Department),
		expenses:    make(map[string]domain.Expense),
		users:       make(map[string]domain.User),
		licenses:    make(map[string]domain.License),
		rankings:    make(map[string]domain.Ranking),
	}
}

// clone copies every map. Sale item slices are shared because nothing
// mutates them in place; a changed sale is always stored as a new value.
func (d *state) clone() *state {
	return &state{
		products:    maps.Clone(d.products),
		clients:     maps.Clone(d.clients),
		sales:       maps.Clone(d.sales),
		departments: maps.Clone(d.departments),
		expenses:    maps.Clone(d.expenses),
		users:       maps.Clone(d.users),
		licenses:    maps.Clone(d.licenses),
		rankings:    maps.Clone(d.rankings),
	}
}

type Store struct {
	mu      sync.RWMutex
	data    *state
	guarded bool
}

type Option func(*Store)

// WithGuardedStock makes AdjustStock refuse to drive a stock below zero.
func WithGuardedStock(enabled bool) Option {
	return func(s *Store) {
		s.guarded = enabled
	}
}

func New(opts ...Option) *Store {
	s := &Store{data: newState()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return nil
}

// InTx runs fn against a private copy of the data and swaps it in on
// success. The write lock is held for the whole call, so transactions are
// serialized.
func (s *Store) InTx(_ context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	if err := fn(&memTx{data: working, guarded: s.guarded}); err != nil {
		return err
	}
	s.data = working
	return nil
}

type memTx struct {
	data    *state
	guarded bool
}

func (t *memTx) GetClient(_ context.Context, id string) (*domain.Client, error) {
	client, ok := t.data.clients[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &client, nil
}

func (t *memTx) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	product, ok := t.data.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (t *memTx) GetDepartment(_ context.Context, id string) (*domain.Department, error) {
	department, ok := t.data.departments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &department, nil
}

func (t *memTx) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	sale, ok := t.data.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	hydrated := t.data.hydrateSale(sale)
	return &hydrated, nil
}

func (t *memTx) InsertSale(_ context.Context, sale domain.Sale) error {
	if sale.ID == "" || len(sale.Items) == 0 {
		return store.ErrInvalidInput
	}
	if _, exists := t.data.sales[sale.ID]; exists {
		return fmt.Errorf("%w: sale %s already exists", store.ErrConflict, sale.ID)
	}
	if _, ok := t.data.clients[sale.ClientID]; !ok {
		return fmt.Errorf("%w: client %s", store.ErrNotFound, sale.ClientID)
	}
	items := make([]domain.SaleItem, 0, len(sale.Items))
	for _, item := range sale.Items {
		if _, ok := t.data.products[item.ProductID]; !ok {
			return fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
		}
		if item.ID == "" {
			item.ID = xid.New("")
		}
		item.SaleID = sale.ID
		item.Product = nil
		items = append(items, item)
	}
	sale.Items = items
	sale.Client = nil
	sale.Department = nil
	t.data.sales[sale.ID] = sale
	return nil
}

func (t *memTx) DeleteSale(_ context.Context, id string) error {
	if _, ok := t.data.sales[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.data.sales, id)
	return nil
}

func (t *memTx) AdjustStock(_ context.Context, productID string, delta int) error {
	product, ok := t.data.products[productID]
	if !ok {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
	}
	if t.guarded && product.Stock+delta < 0 {
		return fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
	}
	product.Stock += delta
	t.data.products[productID] = product
	return nil
}

func (d *state) hydrateSale(sale domain.Sale) domain.Sale {
	if client, ok := d.clients[sale.ClientID]; ok {
		sale.Client = &client
	}
	if sale.DepartmentID != nil {
		if department, ok := d.departments[*sale.DepartmentID]; ok {
			sale.Department = &department
		}
	}
	items := make([]domain.SaleItem, len(sale.Items))
	for i, item := range sale.Items {
		if product, ok := d.products[item.ProductID]; ok {
			item.Product = &product
		}
		items[i] = item
	}
	sale.Items = items
	return sale
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.data.products))
	for _, p := range s.data.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name == products[j].Name {
			return products[i].ID < products[j].ID
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.data.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" {
		return nil, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.products[product.ID]; exists {
		return nil, fmt.Errorf("%w: product %s already exists", store.ErrConflict, product.ID)
	}
	s.data.products[product.ID] = product
	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	product.Stock = existing.Stock
	product.CreatedAt = existing.CreatedAt
	s.data.products[product.ID] = product
	return &product, nil
}

func (s *Store) SetProductStock(_ context.Context, id string, stock int, at time.Time) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.data.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	product.Stock = stock
	product.UpdatedAt = at
	s.data.products[id] = product
	return &product, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.products[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.data.sales {
		for _, item := range sale.Items {
			if item.ProductID == id {
				return fmt.Errorf("%w: product is referenced by sales", store.ErrConflict)
			}
		}
	}
	delete(s.data.products, id)
	return nil
}

func (s *Store) ListClients(_ context.Context) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]domain.Client, 0, len(s.data.clients))
	for _, c := range s.data.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		if clients[i].Name == clients[j].Name {
			return clients[i].ID < clients[j].ID
		}
		return clients[i].Name < clients[j].Name
	})
	return clients, nil
}

func (s *Store) GetClient(_ context.Context, id string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.data.clients[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &client, nil
}

func (s *Store) CreateClient(_ context.Context, client domain.Client) (*domain.Client, error) {
	if client.ID == "" || client.Email == "" {
		return nil, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clientEmailTaken(client.Email, "") {
		return nil, fmt.Errorf("%w: email already registered", store.ErrConflict)
	}
	s.data.clients[client.ID] = client
	return &client, nil
}

func (s *Store) UpdateClient(_ context.Context, client domain.Client) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.clients[client.ID]; !ok {
		return nil, store.ErrNotFound
	}
	if s.clientEmailTaken(client.Email, client.ID) {
		return nil, fmt.Errorf("%w: email already registered", store.ErrConflict)
	}
	s.data.clients[client.ID] = client
	return &client, nil
}

func (s *Store) DeleteClient(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.clients[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.data.sales {
		if sale.ClientID == id {
			return fmt.Errorf("%w: client is referenced by sales", store.ErrConflict)
		}
	}
	delete(s.data.clients, id)
	return nil
}

func (s *Store) clientEmailTaken(email string, exceptID string) bool {
	for _, c := range s.data.clients {
		if c.ID != exceptID && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.data.sales))
	for _, sale := range s.data.sales {
		sales = append(sales, s.data.hydrateSale(sale))
	}
	sort.Slice(sales, func(i, j int) bool {
		if sales[i].CreatedAt.Equal(sales[j].CreatedAt) {
			return sales[i].ID > sales[j].ID
		}
		return sales[i].CreatedAt.After(sales[j].CreatedAt)
	})
	return sales, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.data.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	hydrated := s.data.hydrateSale(sale)
	return &hydrated, nil
}

func (s *Store) UpdateSaleStatus(_ context.Context, id string, status string, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.data.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	sale.Status = status
	sale.UpdatedAt = at
	s.data.sales[id] = sale
	hydrated := s.data.hydrateSale(sale)
	return &hydrated, nil
}

func (s *Store) ListDepartments(_ context.Context) ([]domain.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	departments := make([]domain.Department, 0, len(s.data.departments))
	for _, d := range s.data.departments {
		departments = append(departments, d)
	}
	sort.Slice(departments, func(i, j int) bool {
		if departments[i].Name == departments[j].Name {
			return departments[i].ID < departments[j].ID
		}
		return departments[i].Name < departments[j].Name
	})
	return departments, nil
}

func (s *Store) GetDepartment(_ context.Context, id string) (*domain.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	department, ok := s.data.departments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &department, nil
}

func (s *Store) CreateDepartment(_ context.Context, department domain.Department) (*domain.Department, error) {
	if department.ID == "" || department.Name == "" {
		return nil, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.departments[department.ID]; exists {
		return nil, fmt.Errorf("%w: department %s already exists", store.ErrConflict, department.ID)
	}
	s.data.departments[department.ID] = department
	return &department, nil
}

func (s *Store) UpdateDepartment(_ context.Context, department domain.Department) (*domain.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.departments[department.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.data.departments[department.ID] = department
	return &department, nil
}

func (s *Store) DeleteDepartment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.departments[id]; !ok {
		return store.ErrNotFound
	}
	for _, e := range s.data.expenses {
		if e.DepartmentID == id {
			return fmt.Errorf("%w: department has expenses", store.ErrConflict)
		}
	}
	for _, sale := range s.data.sales {
		if sale.DepartmentID != nil && *sale.DepartmentID == id {
			return fmt.Errorf("%w: department has sales", store.ErrConflict)
		}
	}
	delete(s.data.departments, id)
	return nil
}

func (s *Store) ListExpenses(_ context.Context) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, 0, len(s.data.expenses))
	for _, e := range s.data.expenses {
		expenses = append(expenses, s.data.hydrateExpense(e))
	}
	sort.Slice(expenses, func(i, j int) bool {
		if expenses[i].Date.Equal(expenses[j].Date) {
			return expenses[i].ID > expenses[j].ID
		}
		return expenses[i].Date.After(expenses[j].Date)
	})
	return expenses, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expense, ok := s.data.expenses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	hydrated := s.data.hydrateExpense(expense)
	return &hydrated, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.ID == "" {
		return nil, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.departments[expense.DepartmentID]; !ok {
		return nil, fmt.Errorf("%w: department %s", store.ErrNotFound, expense.DepartmentID)
	}
	expense.Department = nil
	s.data.expenses[expense.ID] = expense
	hydrated := s.data.hydrateExpense(expense)
	return &hydrated, nil
}

func (s *Store) UpdateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.expenses[expense.ID]; !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.data.departments[expense.DepartmentID]; !ok {
		return nil, fmt.Errorf("%w: department %s", store.ErrNotFound, expense.DepartmentID)
	}
	expense.Department = nil
	s.data.expenses[expense.ID] = expense
	hydrated := s.data.hydrateExpense(expense)
	return &hydrated, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.expenses[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.expenses, id)
	return nil
}

func (d *state) hydrateExpense(expense domain.Expense) domain.Expense {
	if department, ok := d.departments[expense.DepartmentID]; ok {
		expense.Department = &department
	}
	return expense
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.data.users))
	for _, u := range s.data.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Email < users[j].Email
	})
	return users, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.data.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.data.users {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	if user.ID == "" || user.Email == "" || user.Password == "" {
		return nil, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userEmailTaken(user.Email, "") {
		return nil, fmt.Errorf("%w: email already registered", store.ErrConflict)
	}
	s.data.users[user.ID] = user
	return &user, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.users[user.ID]; !ok {
		return nil, store.ErrNotFound
	}
	if s.userEmailTaken(user.Email, user.ID) {
		return nil, fmt.Errorf("%w: email already registered", store.ErrConflict)
	}
	s.data.users[user.ID] = user
	return &user, nil
}

// DeleteUser removes the user together with its license and ranking.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.users, id)
	for key, license := range s.data.licenses {
		if license.UserID == id {
			delete(s.data.licenses, key)
		}
	}
	if _, ok := s.data.rankings[id]; ok {
		delete(s.data.rankings, id)
		s.recomputePositions()
	}
	return nil
}

func (s *Store) userEmailTaken(email string, exceptID string) bool {
	for _, u := range s.data.users {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (s *Store) CreateLicense(_ context.Context, license domain.License) (*domain.License, error) {
	if license.ID == "" || license.Key == "" {
		return nil, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.users[license.UserID]; !ok {
		return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, license.UserID)
	}
	for _, existing := range s.data.licenses {
		if existing.Key == license.Key {
			return nil, fmt.Errorf("%w: license key already exists", store.ErrConflict)
		}
		if existing.UserID == license.UserID {
			return nil, fmt.Errorf("%w: user already has a license", store.ErrConflict)
		}
	}
	s.data.licenses[license.ID] = license
	return &license, nil
}

func (s *Store) GetLicenseByUser(_ context.Context, userID string) (*domain.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, license := range s.data.licenses {
		if license.UserID == userID {
			l := license
			return &l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindActiveLicense(_ context.Context, at time.Time) (*domain.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.License
	for _, license := range s.data.licenses {
		if !license.Usable(at) {
			continue
		}
		if best == nil || license.ExpiresAt.After(best.ExpiresAt) {
			l := license
			best = &l
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return best, nil
}

func (s *Store) AddRankingPoints(_ context.Context, userID string, points int) (*domain.Ranking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.users[userID]; !ok {
		return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, userID)
	}
	ranking, ok := s.data.rankings[userID]
	if !ok {
		ranking = domain.Ranking{ID: xid.New(""), UserID: userID}
	}
	ranking.Points += points
	s.data.rankings[userID] = ranking
	s.recomputePositions()

	result := s.data.rankings[userID]
	return &result, nil
}

func (s *Store) recomputePositions() {
	ordered := s.sortedRankings()
	for i, ranking := range ordered {
		ranking.Position = i + 1
		s.data.rankings[ranking.UserID] = ranking
	}
}

func (s *Store) sortedRankings() []domain.Ranking {
	ordered := make([]domain.Ranking, 0, len(s.data.rankings))
	for _, r := range s.data.rankings {
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Points == ordered[j].Points {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Points > ordered[j].Points
	})
	return ordered
}

func (s *Store) TopRankings(_ context.Context, limit int) ([]domain.Ranking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := s.sortedRankings()
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	for i := range ordered {
		if user, ok := s.data.users[ordered[i].UserID]; ok {
			ordered[i].User = &domain.RankingUser{Name: user.Name, Email: user.Email}
		}
	}
	return ordered, nil
}
