package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"backoffice/backend/internal/store"
)

// querier is satisfied by both *sql.DB and *sql.Tx so lookups can be shared
// between plain reads and the sale transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db      *sql.DB
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

func New(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InTx uses the default READ COMMITTED isolation and takes no row locks, so
// two concurrent sales can both pass the stock check for the same product.
// WithGuardedStock closes that gap at the decrement.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&pgTx{tx: sqlTx, guarded: s.guarded}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type pgTx struct {
	tx      *sql.Tx
	guarded bool
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// mapWriteError converts constraint violations into store sentinels.
// missing is used when an insert or update references a row that does not
// exist.
func mapWriteError(err error, duplicate string, missing string) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %s", store.ErrConflict, duplicate)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %s", store.ErrNotFound, missing)
	}
	return err
}

func mapDeleteError(err error, referenced string) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: %s", store.ErrConflict, referenced)
	}
	return err
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullIfEmpty(val *string) any {
	if val == nil || *val == "" {
		return nil
	}
	return *val
}
