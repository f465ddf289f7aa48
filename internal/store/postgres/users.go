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

const userColumns = `id, name, email, password, role, created_at, updated_at`

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Store) findUser(ctx context.Context, column string, value string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, 16)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, "id", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, "lower(email)", email)
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.ID == "" || user.Email == "" || user.Password == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password, role, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, user.ID, user.Name, user.Email, user.Password, user.Role, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, mapWriteError(err, "email already registered", "user")
	}
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, email = $3, password = $4, role = $5, updated_at = $6
		WHERE id = $1
	`, user.ID, user.Name, user.Email, user.Password, user.Role, user.UpdatedAt)
	if err != nil {
		return nil, mapWriteError(err, "email already registered", "user")
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser relies on ON DELETE CASCADE for the license and ranking rows.
// Positions of the remaining rankings are recomputed in the same transaction.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = sqlTx.Rollback() }()

	res, err := sqlTx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if err := recomputePositions(ctx, sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

const licenseColumns = `id, key, status, expires_at, user_id, created_at`

func scanLicense(row rowScanner) (*domain.License, error) {
	var l domain.License
	if err := row.Scan(&l.ID, &l.Key, &l.Status, &l.ExpiresAt, &l.UserID, &l.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (s *Store) CreateLicense(ctx context.Context, license domain.License) (*domain.License, error) {
	if license.ID == "" || license.Key == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO licenses (id, key, status, expires_at, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, license.ID, license.Key, license.Status, license.ExpiresAt, license.UserID, license.CreatedAt)
	if err != nil {
		return nil, mapWriteError(err, "license key or owner already exists", fmt.Sprintf("user %s", license.UserID))
	}
	return &license, nil
}

func (s *Store) GetLicenseByUser(ctx context.Context, userID string) (*domain.License, error) {
	return scanLicense(s.db.QueryRowContext(ctx, `SELECT `+licenseColumns+` FROM licenses WHERE user_id = $1`, userID))
}

func (s *Store) FindActiveLicense(ctx context.Context, at time.Time) (*domain.License, error) {
	return scanLicense(s.db.QueryRowContext(ctx, `
		SELECT `+licenseColumns+`
		FROM licenses
		WHERE status = $1 AND expires_at > $2
		ORDER BY expires_at DESC
		LIMIT 1
	`, domain.LicenseStatusActive, at))
}

func (s *Store) AddRankingPoints(ctx context.Context, userID string, points int) (*domain.Ranking, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sqlTx.Rollback() }()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO rankings (id, user_id, points, position)
		VALUES ($1,$2,$3,0)
		ON CONFLICT (user_id)
		DO UPDATE SET points = rankings.points + EXCLUDED.points
	`, xid.New(""), userID, points)
	if err != nil {
		return nil, mapWriteError(err, "ranking already exists", fmt.Sprintf("user %s", userID))
	}
	if err := recomputePositions(ctx, sqlTx); err != nil {
		return nil, err
	}

	var r domain.Ranking
	err = sqlTx.QueryRowContext(ctx, `
		SELECT id, user_id, points, position FROM rankings WHERE user_id = $1
	`, userID).Scan(&r.ID, &r.UserID, &r.Points, &r.Position)
	if err != nil {
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, err
	}
	return &r, nil
}

func recomputePositions(ctx context.Context, q querier) error {
	_, err := q.ExecContext(ctx, `
		UPDATE rankings r
		SET position = ordered.pos
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY points DESC, id ASC) AS pos
			FROM rankings
		) ordered
		WHERE r.id = ordered.id
	`)
	return err
}

func (s *Store) TopRankings(ctx context.Context, limit int) ([]domain.Ranking, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.user_id, r.points, r.position, u.name, u.email
		FROM rankings r
		JOIN users u ON u.id = r.user_id
		ORDER BY r.points DESC, r.id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rankings := make([]domain.Ranking, 0, limit)
	for rows.Next() {
		var r domain.Ranking
		var u domain.RankingUser
		if err := rows.Scan(&r.ID, &r.UserID, &r.Points, &r.Position, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		r.User = &u
		rankings = append(rankings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankings, nil
}
