package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/store"
	"backoffice/backend/internal/xid"
)

// Store is the embedded single-file backend. It keeps one open connection,
// which serializes writers the same way sqlite does.
type Store struct {
	db      *gorm.DB
	guarded bool
}

type Option func(*Store)

// WithGuardedStock turns every stock decrement into a conditional update
// that fails instead of going below zero.
func WithGuardedStock(enabled bool) Option {
	return func(s *Store) {
		s.guarded = enabled
	}
}

// Open connects to the sqlite database at dsn and migrates the schema.
// dsn accepts anything the driver does, e.g. "backoffice.db" or
// "file:test?mode=memory&cache=shared".
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := db.AutoMigrate(allModels()...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&gormTx{db: gtx, guarded: s.guarded})
	})
}

type gormTx struct {
	db      *gorm.DB
	guarded bool
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func conflictOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", store.ErrConflict, msg)
	}
	return err
}

func exists(db *gorm.DB, model any, query string, args ...any) (bool, error) {
	var count int64
	if err := db.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// updateAll writes every column except created_at and the omitted ones, and
// reports ErrNotFound when no row matches. Associations are never written
// through.
func updateAll(db *gorm.DB, model any, id string, omit ...string) error {
	omit = append([]string{"created_at", clause.Associations}, omit...)
	res := db.Model(model).Where("id = ?", id).Select("*").Omit(omit...).Updates(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func getProduct(db *gorm.DB, id string) (*domain.Product, error) {
	var row productRow
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	p := productFromRow(row)
	return &p, nil
}

func getClient(db *gorm.DB, id string) (*domain.Client, error) {
	var row clientRow
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	c := clientFromRow(row)
	return &c, nil
}

func getDepartment(db *gorm.DB, id string) (*domain.Department, error) {
	var row departmentRow
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	d := departmentFromRow(row)
	return &d, nil
}

func saleQuery(db *gorm.DB) *gorm.DB {
	return db.Preload("Client").
		Preload("Department").
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("position") }).
		Preload("Items.Product")
}

func getSale(db *gorm.DB, id string) (*domain.Sale, error) {
	var row saleRow
	if err := saleQuery(db).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	sale := saleFromRow(row)
	return &sale, nil
}

func (t *gormTx) GetClient(_ context.Context, id string) (*domain.Client, error) {
	return getClient(t.db, id)
}

func (t *gormTx) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	return getProduct(t.db, id)
}

func (t *gormTx) GetDepartment(_ context.Context, id string) (*domain.Department, error) {
	return getDepartment(t.db, id)
}

func (t *gormTx) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	return getSale(t.db, id)
}

func (t *gormTx) InsertSale(_ context.Context, sale domain.Sale) error {
	if sale.ID == "" || len(sale.Items) == 0 {
		return store.ErrInvalidInput
	}
	row := saleRow{
		ID:           sale.ID,
		ClientID:     sale.ClientID,
		DepartmentID: sale.DepartmentID,
		Total:        sale.Total,
		Status:       sale.Status,
		CreatedAt:    sale.CreatedAt,
		UpdatedAt:    sale.UpdatedAt,
	}
	if err := t.db.Omit(clause.Associations).Create(&row).Error; err != nil {
		return conflictOr(err, "sale already exists")
	}

	items := make([]saleItemRow, 0, len(sale.Items))
	for i, item := range sale.Items {
		id := item.ID
		if id == "" {
			id = xid.New("")
		}
		items = append(items, saleItemRow{
			ID:        id,
			SaleID:    sale.ID,
			ProductID: item.ProductID,
			Position:  i,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	if err := t.db.Omit(clause.Associations).Create(&items).Error; err != nil {
		return conflictOr(err, "sale item already exists")
	}
	return nil
}

func (t *gormTx) DeleteSale(_ context.Context, id string) error {
	if err := t.db.Where("sale_id = ?", id).Delete(&saleItemRow{}).Error; err != nil {
		return err
	}
	res := t.db.Where("id = ?", id).Delete(&saleRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *gormTx) AdjustStock(_ context.Context, productID string, delta int) error {
	q := t.db.Model(&productRow{}).Where("id = ?", productID)
	if t.guarded && delta < 0 {
		q = q.Where("stock + ? >= 0", delta)
	}
	res := q.Updates(map[string]any{
		"stock":      gorm.Expr("stock + ?", delta),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	product, err := getProduct(t.db, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
		}
		return err
	}
	return fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := s.db.WithContext(ctx).Order("name, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, productFromRow(row))
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return getProduct(s.db.WithContext(ctx), id)
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" {
		return nil, store.ErrInvalidInput
	}
	row := productToRow(product)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, conflictOr(err, "product already exists")
	}
	p := productFromRow(row)
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	row := productToRow(product)
	if err := updateAll(s.db.WithContext(ctx), &row, product.ID, "stock"); err != nil {
		return nil, err
	}
	return getProduct(s.db.WithContext(ctx), product.ID)
}

func (s *Store) SetProductStock(ctx context.Context, id string, stock int, at time.Time) (*domain.Product, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&productRow{}).Where("id = ?", id).Updates(map[string]any{
		"stock":      stock,
		"updated_at": at,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return getProduct(db, id)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	db := s.db.WithContext(ctx)
	referenced, err := exists(db, &saleItemRow{}, "product_id = ?", id)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("%w: product is referenced by sales", store.ErrConflict)
	}
	res := db.Where("id = ?", id).Delete(&productRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	var rows []clientRow
	if err := s.db.WithContext(ctx).Order("name, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	clients := make([]domain.Client, 0, len(rows))
	for _, row := range rows {
		clients = append(clients, clientFromRow(row))
	}
	return clients, nil
}

func (s *Store) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	return getClient(s.db.WithContext(ctx), id)
}

func (s *Store) CreateClient(ctx context.Context, client domain.Client) (*domain.Client, error) {
	if client.ID == "" || client.Email == "" {
		return nil, store.ErrInvalidInput
	}
	db := s.db.WithContext(ctx)
	taken, err := exists(db, &clientRow{}, "lower(email) = lower(?)", client.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: email already registered", store.ErrConflict)
	}
	row := clientToRow(client)
	if err := db.Create(&row).Error; err != nil {
		return nil, conflictOr(err, "email already registered")
	}
	c := clientFromRow(row)
	return &c, nil
}

func (s *Store) UpdateClient(ctx context.Context, client domain.Client) (*domain.Client, error) {
	db := s.db.WithContext(ctx)
	taken, err := exists(db, &clientRow{}, "lower(email) = lower(?) AND id <> ?", client.Email, client.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: email already registered", store.ErrConflict)
	}
	row := clientToRow(client)
	if err := updateAll(db, &row, client.ID); err != nil {
		return nil, conflictOr(err, "email already registered")
	}
	return getClient(db, client.ID)
}

func (s *Store) DeleteClient(ctx context.Context, id string) error {
	db := s.db.WithContext(ctx)
	referenced, err := exists(db, &saleRow{}, "client_id = ?", id)
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("%w: client is referenced by sales", store.ErrConflict)
	}
	res := db.Where("id = ?", id).Delete(&clientRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	var rows []saleRow
	if err := saleQuery(s.db.WithContext(ctx)).Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	sales := make([]domain.Sale, 0, len(rows))
	for _, row := range rows {
		sales = append(sales, saleFromRow(row))
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return getSale(s.db.WithContext(ctx), id)
}

func (s *Store) UpdateSaleStatus(ctx context.Context, id string, status string, at time.Time) (*domain.Sale, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&saleRow{}).Where("id = ?", id).Updates(map[string]any{"status": status, "updated_at": at})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return getSale(db, id)
}

func (s *Store) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	var rows []departmentRow
	if err := s.db.WithContext(ctx).Order("name, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	departments := make([]domain.Department, 0, len(rows))
	for _, row := range rows {
		departments = append(departments, departmentFromRow(row))
	}
	return departments, nil
}

func (s *Store) GetDepartment(ctx context.Context, id string) (*domain.Department, error) {
	return getDepartment(s.db.WithContext(ctx), id)
}

func (s *Store) CreateDepartment(ctx context.Context, department domain.Department) (*domain.Department, error) {
	if department.ID == "" || department.Name == "" {
		return nil, store.ErrInvalidInput
	}
	row := departmentToRow(department)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, conflictOr(err, "department already exists")
	}
	d := departmentFromRow(row)
	return &d, nil
}

func (s *Store) UpdateDepartment(ctx context.Context, department domain.Department) (*domain.Department, error) {
	db := s.db.WithContext(ctx)
	row := departmentToRow(department)
	if err := updateAll(db, &row, department.ID); err != nil {
		return nil, err
	}
	return getDepartment(db, department.ID)
}

func (s *Store) DeleteDepartment(ctx context.Context, id string) error {
	db := s.db.WithContext(ctx)
	hasExpenses, err := exists(db, &expenseRow{}, "department_id = ?", id)
	if err != nil {
		return err
	}
	hasSales, err := exists(db, &saleRow{}, "department_id = ?", id)
	if err != nil {
		return err
	}
	if hasExpenses || hasSales {
		return fmt.Errorf("%w: department has sales or expenses", store.ErrConflict)
	}
	res := db.Where("id = ?", id).Delete(&departmentRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	var rows []expenseRow
	if err := s.db.WithContext(ctx).Preload("Department").Order("date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	expenses := make([]domain.Expense, 0, len(rows))
	for _, row := range rows {
		expenses = append(expenses, expenseFromRow(row))
	}
	return expenses, nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	var row expenseRow
	if err := s.db.WithContext(ctx).Preload("Department").First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	e := expenseFromRow(row)
	return &e, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.ID == "" {
		return nil, store.ErrInvalidInput
	}
	db := s.db.WithContext(ctx)
	if _, err := getDepartment(db, expense.DepartmentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: department %s", store.ErrNotFound, expense.DepartmentID)
		}
		return nil, err
	}
	row := expenseToRow(expense)
	if err := db.Omit(clause.Associations).Create(&row).Error; err != nil {
		return nil, conflictOr(err, "expense already exists")
	}
	return s.GetExpense(ctx, expense.ID)
}

func (s *Store) UpdateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	db := s.db.WithContext(ctx)
	if _, err := getDepartment(db, expense.DepartmentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: department %s", store.ErrNotFound, expense.DepartmentID)
		}
		return nil, err
	}
	row := expenseToRow(expense)
	if err := updateAll(db, &row, expense.ID); err != nil {
		return nil, err
	}
	return s.GetExpense(ctx, expense.ID)
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&expenseRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Order("email").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, userFromRow(row))
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	u := userFromRow(row)
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "lower(email) = lower(?)", email).Error; err != nil {
		return nil, notFound(err)
	}
	u := userFromRow(row)
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.ID == "" || user.Email == "" || user.Password == "" {
		return nil, store.ErrInvalidInput
	}
	db := s.db.WithContext(ctx)
	taken, err := exists(db, &userRow{}, "lower(email) = lower(?)", user.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: email already registered", store.ErrConflict)
	}
	row := userToRow(user)
	if err := db.Create(&row).Error; err != nil {
		return nil, conflictOr(err, "email already registered")
	}
	u := userFromRow(row)
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	db := s.db.WithContext(ctx)
	taken, err := exists(db, &userRow{}, "lower(email) = lower(?) AND id <> ?", user.Email, user.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: email already registered", store.ErrConflict)
	}
	row := userToRow(user)
	if err := updateAll(db, &row, user.ID); err != nil {
		return nil, conflictOr(err, "email already registered")
	}
	return s.GetUser(ctx, user.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&licenseRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&rankingRow{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&userRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return recomputePositions(tx)
	})
}

func (s *Store) CreateLicense(ctx context.Context, license domain.License) (*domain.License, error) {
	if license.ID == "" || license.Key == "" {
		return nil, store.ErrInvalidInput
	}
	db := s.db.WithContext(ctx)
	owner, err := exists(db, &userRow{}, "id = ?", license.UserID)
	if err != nil {
		return nil, err
	}
	if !owner {
		return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, license.UserID)
	}
	row := licenseRow{
		ID:        license.ID,
		Key:       license.Key,
		Status:    license.Status,
		ExpiresAt: license.ExpiresAt,
		UserID:    license.UserID,
		CreatedAt: license.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, conflictOr(err, "license key or owner already exists")
	}
	l := licenseFromRow(row)
	return &l, nil
}

func (s *Store) GetLicenseByUser(ctx context.Context, userID string) (*domain.License, error) {
	var row licenseRow
	if err := s.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err)
	}
	l := licenseFromRow(row)
	return &l, nil
}

func (s *Store) FindActiveLicense(ctx context.Context, at time.Time) (*domain.License, error) {
	var row licenseRow
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at > ?", domain.LicenseStatusActive, at).
		Order("expires_at DESC").
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	l := licenseFromRow(row)
	return &l, nil
}

func (s *Store) AddRankingPoints(ctx context.Context, userID string, points int) (*domain.Ranking, error) {
	var result domain.Ranking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := exists(tx, &userRow{}, "id = ?", userID)
		if err != nil {
			return err
		}
		if !owner {
			return fmt.Errorf("%w: user %s", store.ErrNotFound, userID)
		}

		var row rankingRow
		err = tx.First(&row, "user_id = ?", userID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = rankingRow{ID: xid.New(""), UserID: userID, Points: points}
			if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&rankingRow{}).Where("id = ?", row.ID).
				Update("points", gorm.Expr("points + ?", points)).Error; err != nil {
				return err
			}
		}

		if err := recomputePositions(tx); err != nil {
			return err
		}
		if err := tx.First(&row, "user_id = ?", userID).Error; err != nil {
			return err
		}
		result = domain.Ranking{ID: row.ID, UserID: row.UserID, Points: row.Points, Position: row.Position}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func recomputePositions(tx *gorm.DB) error {
	var rows []rankingRow
	if err := tx.Order("points DESC, id ASC").Find(&rows).Error; err != nil {
		return err
	}
	for i, row := range rows {
		if row.Position == i+1 {
			continue
		}
		if err := tx.Model(&rankingRow{}).Where("id = ?", row.ID).Update("position", i+1).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) TopRankings(ctx context.Context, limit int) ([]domain.Ranking, error) {
	if limit < 1 {
		limit = 10
	}
	var rows []rankingRow
	if err := s.db.WithContext(ctx).Preload("User").Order("points DESC, id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	rankings := make([]domain.Ranking, 0, len(rows))
	for _, row := range rows {
		rankings = append(rankings, domain.Ranking{
			ID:       row.ID,
			UserID:   row.UserID,
			Points:   row.Points,
			Position: row.Position,
			User:     &domain.RankingUser{Name: row.User.Name, Email: row.User.Email},
		})
	}
	return rankings, nil
}
