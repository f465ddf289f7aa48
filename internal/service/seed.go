package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/store"
	"backoffice/backend/internal/xid"
)

const (
	SeedAdminEmail  = "admin@example.com"
	SeedLicenseKey  = "LICENSE-ADMIN-123"
	SeedClientEmail = "cliente1@example.com"
)

// Seed loads the demo data set: an admin with a one-year license, one
// product and one client. Rows that already exist are left alone, so it is
// safe to run on every start.
func (s *Service) Seed(ctx context.Context, adminPassword string) error {
	now := s.now()

	admin, err := s.repo.GetUserByEmail(ctx, SeedAdminEmail)
	switch {
	case errors.Is(err, store.ErrNotFound):
		hashed, err := s.hashPassword(adminPassword)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		admin, err = s.repo.CreateUser(ctx, domain.User{
			ID:        xid.New(""),
			Name:      "Admin",
			Email:     SeedAdminEmail,
			Password:  hashed,
			Role:      domain.RoleAdmin,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	case err != nil:
		return err
	}

	if _, err := s.repo.GetLicenseByUser(ctx, admin.ID); errors.Is(err, store.ErrNotFound) {
		_, err = s.repo.CreateLicense(ctx, domain.License{
			ID:        xid.New("lic"),
			Key:       SeedLicenseKey,
			Status:    domain.LicenseStatusActive,
			ExpiresAt: now.AddDate(1, 0, 0),
			UserID:    admin.ID,
			CreatedAt: now,
		})
		if err != nil && !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("seed license: %w", err)
		}
	} else if err != nil {
		return err
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		_, err = s.repo.CreateProduct(ctx, domain.Product{
			ID:          xid.New(""),
			Name:        "Produto 1",
			Description: "Descrição do produto 1",
			Price:       decimal.NewFromInt(100),
			Cost:        decimal.NewFromInt(50),
			Stock:       100,
			MinStock:    10,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("seed product: %w", err)
		}
	}

	_, err = s.repo.CreateClient(ctx, domain.Client{
		ID:        xid.New(""),
		Name:      "Cliente 1",
		Email:     SeedClientEmail,
		Phone:     "11999999999",
		Address:   "Rua Exemplo, 123",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil && !errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("seed client: %w", err)
	}

	s.logger.Info("demo data ready", zap.String("admin_id", admin.ID), zap.String("admin_email", admin.Email))
	return nil
}
