package sqlite

import (
	"time"

	"github.com/shopspring/decimal"

	"backoffice/backend/internal/domain"
)

type productRow struct {
	ID          string          `gorm:"primaryKey;size:64"`
	Name        string          `gorm:"not null"`
	Description string          `gorm:"not null;default:''"`
	Price       decimal.Decimal `gorm:"type:numeric;not null"`
	Cost        decimal.Decimal `gorm:"type:numeric;not null"`
	Stock       int             `gorm:"not null;default:0"`
	MinStock    int             `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (productRow) TableName() string { return "products" }

type clientRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null;uniqueIndex"`
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (clientRow) TableName() string { return "clients" }

type departmentRow struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"not null"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (departmentRow) TableName() string { return "departments" }

type saleRow struct {
	ID           string          `gorm:"primaryKey;size:64"`
	ClientID     string          `gorm:"not null;index"`
	Client       clientRow       `gorm:"foreignKey:ClientID"`
	DepartmentID *string         `gorm:"index"`
	Department   *departmentRow  `gorm:"foreignKey:DepartmentID"`
	Total        decimal.Decimal `gorm:"type:numeric;not null"`
	Status       string          `gorm:"not null"`
	Items        []saleItemRow   `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time       `gorm:"index"`
	UpdatedAt    time.Time
}

func (saleRow) TableName() string { return "sales" }

type saleItemRow struct {
	ID        string          `gorm:"primaryKey;size:64"`
	SaleID    string          `gorm:"not null;index"`
	ProductID string          `gorm:"not null;index"`
	Product   productRow      `gorm:"foreignKey:ProductID"`
	Position  int             `gorm:"not null;default:0"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:numeric;not null"`
}

func (saleItemRow) TableName() string { return "sale_items" }

type expenseRow struct {
	ID           string          `gorm:"primaryKey;size:64"`
	Description  string          `gorm:"not null"`
	Amount       decimal.Decimal `gorm:"type:numeric;not null"`
	Type         string          `gorm:"not null"`
	Date         time.Time       `gorm:"index"`
	DepartmentID string          `gorm:"not null;index"`
	Department   departmentRow   `gorm:"foreignKey:DepartmentID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (expenseRow) TableName() string { return "expenses" }

type userRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string
	Email     string `gorm:"not null;uniqueIndex"`
	Password  string `gorm:"not null"`
	Role      string `gorm:"not null;default:USER"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRow) TableName() string { return "users" }

type licenseRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Key       string    `gorm:"not null;uniqueIndex"`
	Status    string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	UserID    string    `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

func (licenseRow) TableName() string { return "licenses" }

type rankingRow struct {
	ID       string  `gorm:"primaryKey;size:64"`
	UserID   string  `gorm:"not null;uniqueIndex"`
	User     userRow `gorm:"foreignKey:UserID"`
	Points   int     `gorm:"not null;default:0"`
	Position int     `gorm:"not null;default:0"`
}

func (rankingRow) TableName() string { return "rankings" }

func allModels() []any {
	return []any{
		&userRow{}, &licenseRow{}, &rankingRow{}, &productRow{}, &clientRow{},
		&departmentRow{}, &saleRow{}, &saleItemRow{}, &expenseRow{},
	}
}

func productFromRow(r productRow) domain.Product {
	return domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Cost:        r.Cost,
		Stock:       r.Stock,
		MinStock:    r.MinStock,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func productToRow(p domain.Product) productRow {
	return productRow{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Cost:        p.Cost,
		Stock:       p.Stock,
		MinStock:    p.MinStock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func clientFromRow(r clientRow) domain.Client {
	return domain.Client{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func clientToRow(c domain.Client) clientRow {
	return clientRow{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func departmentFromRow(r departmentRow) domain.Department {
	return domain.Department{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func departmentToRow(d domain.Department) departmentRow {
	return departmentRow{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func saleFromRow(r saleRow) domain.Sale {
	client := clientFromRow(r.Client)
	sale := domain.Sale{
		ID:           r.ID,
		ClientID:     r.ClientID,
		Client:       &client,
		DepartmentID: r.DepartmentID,
		Total:        r.Total,
		Status:       r.Status,
		Items:        make([]domain.SaleItem, 0, len(r.Items)),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Department != nil {
		department := departmentFromRow(*r.Department)
		sale.Department = &department
	}
	for _, item := range r.Items {
		product := productFromRow(item.Product)
		sale.Items = append(sale.Items, domain.SaleItem{
			ID:        item.ID,
			SaleID:    item.SaleID,
			ProductID: item.ProductID,
			Product:   &product,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return sale
}

func expenseFromRow(r expenseRow) domain.Expense {
	department := departmentFromRow(r.Department)
	return domain.Expense{
		ID:           r.ID,
		Description:  r.Description,
		Amount:       r.Amount,
		Type:         domain.ExpenseType(r.Type),
		Date:         r.Date,
		DepartmentID: r.DepartmentID,
		Department:   &department,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func expenseToRow(e domain.Expense) expenseRow {
	return expenseRow{
		ID:           e.ID,
		Description:  e.Description,
		Amount:       e.Amount,
		Type:         string(e.Type),
		Date:         e.Date,
		DepartmentID: e.DepartmentID,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func userFromRow(r userRow) domain.User {
	return domain.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Password:  r.Password,
		Role:      r.Role,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func userToRow(u domain.User) userRow {
	return userRow{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.Password,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func licenseFromRow(r licenseRow) domain.License {
	return domain.License{
		ID:        r.ID,
		Key:       r.Key,
		Status:    r.Status,
		ExpiresAt: r.ExpiresAt,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
	}
}
