package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/store"
)

const productColumns = `id, name, description, price, cost, stock, min_stock, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Cost, &p.Stock, &p.MinStock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func getProduct(ctx context.Context, q querier, id string) (*domain.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return getProduct(ctx, s.db, id)
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, cost, stock, min_stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, product.ID, product.Name, product.Description, product.Price, product.Cost, product.Stock, product.MinStock, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return nil, mapWriteError(err, "product already exists", "product")
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, cost = $5, min_stock = $6, updated_at = $7
		WHERE id = $1
	`, product.ID, product.Name, product.Description, product.Price, product.Cost, product.MinStock, product.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return getProduct(ctx, s.db, product.ID)
}

func (s *Store) SetProductStock(ctx context.Context, id string, stock int, at time.Time) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE products SET stock = $2, updated_at = $3 WHERE id = $1`, id, stock, at)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return getProduct(ctx, s.db, id)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapDeleteError(err, "product is referenced by sales")
	}
	return requireAffected(res)
}

const clientColumns = `id, name, email, phone, address, created_at, updated_at`

func scanClient(row rowScanner) (domain.Client, error) {
	var c domain.Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func getClient(ctx context.Context, q querier, id string) (*domain.Client, error) {
	c, err := scanClient(q.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]domain.Client, 0, 64)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clients, nil
}

func (s *Store) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	return getClient(ctx, s.db, id)
}

func (s *Store) CreateClient(ctx context.Context, client domain.Client) (*domain.Client, error) {
	if client.ID == "" || client.Email == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, email, phone, address, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, client.ID, client.Name, client.Email, client.Phone, client.Address, client.CreatedAt, client.UpdatedAt)
	if err != nil {
		return nil, mapWriteError(err, "email already registered", "client")
	}
	return &client, nil
}

func (s *Store) UpdateClient(ctx context.Context, client domain.Client) (*domain.Client, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE clients
		SET name = $2, email = $3, phone = $4, address = $5, updated_at = $6
		WHERE id = $1
	`, client.ID, client.Name, client.Email, client.Phone, client.Address, client.UpdatedAt)
	if err != nil {
		return nil, mapWriteError(err, "email already registered", "client")
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *Store) DeleteClient(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return mapDeleteError(err, "client is referenced by sales")
	}
	return requireAffected(res)
}

const departmentColumns = `id, name, description, created_at, updated_at`

func scanDepartment(row rowScanner) (domain.Department, error) {
	var d domain.Department
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func getDepartment(ctx context.Context, q querier, id string) (*domain.Department, error) {
	d, err := scanDepartment(q.QueryRowContext(ctx, `SELECT `+departmentColumns+` FROM departments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+departmentColumns+` FROM departments ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	departments := make([]domain.Department, 0, 16)
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return departments, nil
}

func (s *Store) GetDepartment(ctx context.Context, id string) (*domain.Department, error) {
	return getDepartment(ctx, s.db, id)
}

func (s *Store) CreateDepartment(ctx context.Context, department domain.Department) (*domain.Department, error) {
	if department.ID == "" || department.Name == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO departments (id, name, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, department.ID, department.Name, department.Description, department.CreatedAt, department.UpdatedAt)
	if err != nil {
		return nil, mapWriteError(err, "department already exists", "department")
	}
	return &department, nil
}

func (s *Store) UpdateDepartment(ctx context.Context, department domain.Department) (*domain.Department, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE departments SET name = $2, description = $3, updated_at = $4 WHERE id = $1
	`, department.ID, department.Name, department.Description, department.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return &department, nil
}

func (s *Store) DeleteDepartment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return mapDeleteError(err, "department has sales or expenses")
	}
	return requireAffected(res)
}

const expenseSelect = `
	SELECT e.id, e.description, e.amount, e.type, e.date, e.department_id, e.created_at, e.updated_at,
		d.id, d.name, d.description, d.created_at, d.updated_at
	FROM expenses e
	JOIN departments d ON d.id = e.department_id
`

func scanExpense(row rowScanner) (domain.Expense, error) {
	var e domain.Expense
	var d domain.Department
	err := row.Scan(&e.ID, &e.Description, &e.Amount, &e.Type, &e.Date, &e.DepartmentID, &e.CreatedAt, &e.UpdatedAt,
		&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return e, err
	}
	e.Department = &d
	return e, nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, expenseSelect+` ORDER BY e.date DESC, e.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 64)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	e, err := scanExpense(s.db.QueryRowContext(ctx, expenseSelect+` WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.ID == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, description, amount, type, date, department_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, expense.ID, expense.Description, expense.Amount, string(expense.Type), expense.Date, expense.DepartmentID, expense.CreatedAt, expense.UpdatedAt)
	if err != nil {
		return nil, mapWriteError(err, "expense already exists", fmt.Sprintf("department %s", expense.DepartmentID))
	}
	return s.GetExpense(ctx, expense.ID)
}

func (s *Store) UpdateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses
		SET description = $2, amount = $3, type = $4, date = $5, department_id = $6, updated_at = $7
		WHERE id = $1
	`, expense.ID, expense.Description, expense.Amount, string(expense.Type), expense.Date, expense.DepartmentID, expense.UpdatedAt)
	if err != nil {
		return nil, mapWriteError(err, "expense already exists", fmt.Sprintf("department %s", expense.DepartmentID))
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetExpense(ctx, expense.ID)
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
