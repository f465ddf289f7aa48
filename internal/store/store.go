package store

import (
	"context"
	"errors"
	"time"

	"backoffice/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
)

// Tx is the unit of work used by the sale flow. Every call made through a Tx
// commits or rolls back together.
type Tx interface {
	GetClient(ctx context.Context, id string) (*domain.Client, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetDepartment(ctx context.Context, id string) (*domain.Department, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	InsertSale(ctx context.Context, sale domain.Sale) error
	DeleteSale(ctx context.Context, id string) error
	// AdjustStock adds delta to the product stock. Negative deltas that would
	// drive the stock below zero fail with ErrInsufficientStock only when the
	// store runs with the guarded decrement enabled.
	AdjustStock(ctx context.Context, productID string, delta int) error
}

type Repository interface {
	// InTx runs fn inside a transaction. A non-nil error from fn rolls back
	// every change made through the Tx.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	// UpdateProduct writes the catalog fields of product. Stock is left as
	// stored; it only moves through Tx.AdjustStock or SetProductStock.
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	SetProductStock(ctx context.Context, id string, stock int, at time.Time) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListClients(ctx context.Context) ([]domain.Client, error)
	GetClient(ctx context.Context, id string) (*domain.Client, error)
	CreateClient(ctx context.Context, client domain.Client) (*domain.Client, error)
	UpdateClient(ctx context.Context, client domain.Client) (*domain.Client, error)
	DeleteClient(ctx context.Context, id string) error

	// ListSales returns sales newest first with client, department and
	// items (with product) populated.
	ListSales(ctx context.Context) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	UpdateSaleStatus(ctx context.Context, id string, status string, at time.Time) (*domain.Sale, error)

	ListDepartments(ctx context.Context) ([]domain.Department, error)
	GetDepartment(ctx context.Context, id string) (*domain.Department, error)
	CreateDepartment(ctx context.Context, department domain.Department) (*domain.Department, error)
	UpdateDepartment(ctx context.Context, department domain.Department) (*domain.Department, error)
	DeleteDepartment(ctx context.Context, id string) error

	// ListExpenses returns expenses newest first with department populated.
	ListExpenses(ctx context.Context) ([]domain.Expense, error)
	GetExpense(ctx context.Context, id string) (*domain.Expense, error)
	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	UpdateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateLicense(ctx context.Context, license domain.License) (*domain.License, error)
	GetLicenseByUser(ctx context.Context, userID string) (*domain.License, error)
	// FindActiveLicense returns the ACTIVE license expiring last after at.
	FindActiveLicense(ctx context.Context, at time.Time) (*domain.License, error)

	// AddRankingPoints upserts the user's ranking and recomputes every
	// position by points descending.
	AddRankingPoints(ctx context.Context, userID string, points int) (*domain.Ranking, error)
	TopRankings(ctx context.Context, limit int) ([]domain.Ranking, error)
}
