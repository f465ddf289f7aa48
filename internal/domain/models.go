package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

const (
	SaleStatusPending   = "PENDING"
	SaleStatusCompleted = "COMPLETED"
	SaleStatusCancelled = "CANCELLED"
)

const (
	LicenseStatusActive   = "ACTIVE"
	LicenseStatusInactive = "INACTIVE"
	LicenseStatusExpired  = "EXPIRED"
)

type ExpenseType string

const (
	ExpenseOperational    ExpenseType = "Operational"
	ExpenseAdministrative ExpenseType = "Administrative"
	ExpenseFinancial      ExpenseType = "Financial"
	ExpenseOther          ExpenseType = "Other"
)

func (t ExpenseType) Valid() bool {
	switch t {
	case ExpenseOperational, ExpenseAdministrative, ExpenseFinancial, ExpenseOther:
		return true
	}
	return false
}

func ValidSaleStatus(status string) bool {
	switch status {
	case SaleStatusPending, SaleStatusCompleted, SaleStatusCancelled:
		return true
	}
	return false
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"minStock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Sale.Total is computed from the catalog price at creation time while each
// SaleItem keeps the price the caller submitted. The two can diverge.
type Sale struct {
	ID           string          `json:"id"`
	ClientID     string          `json:"clientId"`
	Client       *Client         `json:"client,omitempty"`
	DepartmentID *string         `json:"departmentId"`
	Department   *Department     `json:"department,omitempty"`
	Total        decimal.Decimal `json:"total"`
	Status       string          `json:"status"`
	Items        []SaleItem      `json:"items"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type SaleItem struct {
	ID        string          `json:"id"`
	SaleID    string          `json:"saleId"`
	ProductID string          `json:"productId"`
	Product   *Product        `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Expense struct {
	ID           string          `json:"id"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Type         ExpenseType     `json:"type"`
	Date         time.Time       `json:"date"`
	DepartmentID string          `json:"departmentId"`
	Department   *Department     `json:"department,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type License struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Usable reports whether the license lets its owner log in at the given time.
func (l License) Usable(at time.Time) bool {
	return l.Status == LicenseStatusActive && l.ExpiresAt.After(at)
}

type Ranking struct {
	ID       string       `json:"id"`
	UserID   string       `json:"userId"`
	Points   int          `json:"points"`
	Position int          `json:"position"`
	User     *RankingUser `json:"user,omitempty"`
}

type RankingUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Actor is the authenticated principal carried through request contexts.
type Actor struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}
