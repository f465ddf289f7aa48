package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/store"
	"backoffice/backend/internal/xid"
)

const saleSelect = `
	SELECT s.id, s.client_id, s.department_id, s.total, s.status, s.created_at, s.updated_at,
		c.id, c.name, c.email, c.phone, c.address, c.created_at, c.updated_at,
		d.id, d.name, d.description, d.created_at, d.updated_at
	FROM sales s
	JOIN clients c ON c.id = s.client_id
	LEFT JOIN departments d ON d.id = s.department_id
`

func scanSale(row rowScanner) (domain.Sale, error) {
	var sale domain.Sale
	var client domain.Client
	var departmentID sql.NullString
	var deptID, deptName, deptDescription sql.NullString
	var deptCreated, deptUpdated sql.NullTime

	err := row.Scan(&sale.ID, &sale.ClientID, &departmentID, &sale.Total, &sale.Status, &sale.CreatedAt, &sale.UpdatedAt,
		&client.ID, &client.Name, &client.Email, &client.Phone, &client.Address, &client.CreatedAt, &client.UpdatedAt,
		&deptID, &deptName, &deptDescription, &deptCreated, &deptUpdated)
	if err != nil {
		return sale, err
	}
	sale.Client = &client
	if departmentID.Valid {
		id := departmentID.String
		sale.DepartmentID = &id
	}
	if deptID.Valid {
		sale.Department = &domain.Department{
			ID:          deptID.String,
			Name:        deptName.String,
			Description: deptDescription.String,
			CreatedAt:   deptCreated.Time,
			UpdatedAt:   deptUpdated.Time,
		}
	}
	sale.Items = []domain.SaleItem{}
	return sale, nil
}

// loadItems fills the items of every sale in place, keeping line order.
func loadItems(ctx context.Context, q querier, sales []domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sales))
	index := make(map[string]int, len(sales))
	for i, sale := range sales {
		ids = append(ids, sale.ID)
		index[sale.ID] = i
	}

	rows, err := q.QueryContext(ctx, `
		SELECT si.id, si.sale_id, si.product_id, si.quantity, si.price,
			p.id, p.name, p.description, p.price, p.cost, p.stock, p.min_stock, p.created_at, p.updated_at
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = ANY($1)
		ORDER BY si.sale_id, si.position
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.SaleItem
		var p domain.Product
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.Price,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Cost, &p.Stock, &p.MinStock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		item.Product = &p
		i := index[item.SaleID]
		sales[i].Items = append(sales[i].Items, item)
	}
	return rows.Err()
}

func getSale(ctx context.Context, q querier, id string) (*domain.Sale, error) {
	sale, err := scanSale(q.QueryRowContext(ctx, saleSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sales := []domain.Sale{sale}
	if err := loadItems(ctx, q, sales); err != nil {
		return nil, err
	}
	return &sales[0], nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, saleSelect+` ORDER BY s.created_at DESC, s.id DESC`)
	if err != nil {
		return nil, err
	}
	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if err := loadItems(ctx, s.db, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return getSale(ctx, s.db, id)
}

func (s *Store) UpdateSaleStatus(ctx context.Context, id string, status string, at time.Time) (*domain.Sale, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE sales SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return getSale(ctx, s.db, id)
}

func (t *pgTx) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	return getClient(ctx, t.tx, id)
}

func (t *pgTx) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return getProduct(ctx, t.tx, id)
}

func (t *pgTx) GetDepartment(ctx context.Context, id string) (*domain.Department, error) {
	return getDepartment(ctx, t.tx, id)
}

func (t *pgTx) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return getSale(ctx, t.tx, id)
}

func (t *pgTx) InsertSale(ctx context.Context, sale domain.Sale) error {
	if sale.ID == "" || len(sale.Items) == 0 {
		return store.ErrInvalidInput
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO sales (id, client_id, department_id, total, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sale.ID, sale.ClientID, nullIfEmpty(sale.DepartmentID), sale.Total, sale.Status, sale.CreatedAt, sale.UpdatedAt)
	if err != nil {
		return mapWriteError(err, "sale already exists", "client or department")
	}

	for i, item := range sale.Items {
		itemID := item.ID
		if itemID == "" {
			itemID = xid.New("")
		}
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, position, quantity, price)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, itemID, sale.ID, item.ProductID, i, item.Quantity, item.Price)
		if err != nil {
			return mapWriteError(err, "sale item already exists", fmt.Sprintf("product %s", item.ProductID))
		}
	}
	return nil
}

func (t *pgTx) DeleteSale(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (t *pgTx) AdjustStock(ctx context.Context, productID string, delta int) error {
	query := `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`
	if t.guarded && delta < 0 {
		query += ` AND stock + $2 >= 0`
	}
	res, err := t.tx.ExecContext(ctx, query, productID, delta)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	product, err := getProduct(ctx, t.tx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
		}
		return err
	}
	return fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
}
