package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	ExpiresAt   string `json:"expiresAt"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type ProductCreateRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Stock       int             `json:"stock" validate:"gte=0,max=2147483647"`
	MinStock    int             `json:"minStock" validate:"gte=0"`
}

type ProductUpdateRequest struct {
	ID          string           `json:"id" validate:"required"`
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Cost        *decimal.Decimal `json:"cost,omitempty"`
	Stock       *int             `json:"stock,omitempty" validate:"omitempty,gte=0,max=2147483647"`
	MinStock    *int             `json:"minStock,omitempty" validate:"omitempty,gte=0"`
}

type ClientCreateRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,max=40"`
	Address string `json:"address" validate:"max=400"`
}

type ClientUpdateRequest struct {
	ID      string  `json:"id" validate:"required"`
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,min=1,max=40"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=400"`
}

type SaleItemRequest struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0,max=2147483647"`
	Price     decimal.Decimal `json:"price"`
}

type SaleCreateRequest struct {
	ClientID     string            `json:"clientId" validate:"required"`
	DepartmentID *string           `json:"departmentId,omitempty"`
	Status       string            `json:"status,omitempty"`
	Items        []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

type SaleStatusRequest struct {
	ID     string `json:"id" validate:"required"`
	Status string `json:"status" validate:"required"`
}

type DepartmentCreateRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type DepartmentUpdateRequest struct {
	ID          string  `json:"id" validate:"required"`
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type ExpenseCreateRequest struct {
	Description  string          `json:"description" validate:"required,max=500"`
	Amount       decimal.Decimal `json:"amount"`
	Type         ExpenseType     `json:"type" validate:"required"`
	Date         *time.Time      `json:"date,omitempty"`
	DepartmentID string          `json:"departmentId" validate:"required"`
}

type ExpenseUpdateRequest struct {
	ID           string           `json:"id" validate:"required"`
	Description  *string          `json:"description,omitempty" validate:"omitempty,min=1,max=500"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Type         *ExpenseType     `json:"type,omitempty"`
	Date         *time.Time       `json:"date,omitempty"`
	DepartmentID *string          `json:"departmentId,omitempty" validate:"omitempty,min=1"`
}

type UserCreateRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=ADMIN USER"`
}

type UserUpdateRequest struct {
	ID       string  `json:"id" validate:"required"`
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6,max=72"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=ADMIN USER"`
}

type RankingPointsRequest struct {
	UserID string `json:"userId" validate:"required"`
	Points int    `json:"points" validate:"ne=0"`
}

type ReportSendRequest struct {
	Email string     `json:"email" validate:"required,email"`
	From  *time.Time `json:"from,omitempty"`
	To    *time.Time `json:"to,omitempty"`
}

type ActiveLicense struct {
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}
