package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/policy"
	"backoffice/backend/internal/reporting"
	"backoffice/backend/internal/xid"
)

// ListProducts returns every product with its lifetime sales figures.
func (s *Service) ListProducts(ctx context.Context) ([]domain.ProductSummary, error) {
	if _, err := s.authorize(ctx, policy.ResourceProduct, policy.ActionView); err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	return reporting.ProductSummaries(products, sales), nil
}

func (s *Service) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	if _, err := s.authorize(ctx, policy.ResourceProduct, policy.ActionView); err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return reporting.LowStock(products), nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if _, err := s.authorize(ctx, policy.ResourceProduct, policy.ActionView); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, notFoundAs(err, "product not found")
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if _, err := s.authorize(ctx, policy.ResourceProduct, policy.ActionCreate); err != nil {
		return domain.Product{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Product{}, err
	}
	if req.Price.IsNegative() || req.Cost.IsNegative() {
		return domain.Product{}, invalid("price and cost must not be negative")
	}

	now := s.now()
	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:          xid.New(""),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Cost:        req.Cost,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateReports(ctx)
	s.logAudit(ctx, "product_create", "product", created.ID,
		zap.String("name", created.Name), zap.Int("stock", created.Stock))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, req domain.ProductUpdateRequest) (domain.Product, error) {
	if _, err := s.authorize(ctx, policy.ResourceProduct, policy.ActionUpdate); err != nil {
		return domain.Product{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, req.ID)
	if err != nil {
		return domain.Product{}, notFoundAs(err, "product not found")
	}

	updated := *existing
	if name := trimmed(req.Name); name != nil {
		if *name == "" {
			return domain.Product{}, invalid("name must not be empty")
		}
		updated.Name = *name
	}
	if desc := trimmed(req.Description); desc != nil {
		updated.Description = *desc
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return domain.Product{}, invalid("price must not be negative")
		}
		updated.Price = *req.Price
	}
	if req.Cost != nil {
		if req.Cost.IsNegative() {
			return domain.Product{}, invalid("cost must not be negative")
		}
		updated.Cost = *req.Cost
	}
	if req.MinStock != nil {
		updated.MinStock = *req.MinStock
	}
	updated.UpdatedAt = s.now()

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, notFoundAs(err, "product not found")
	}
	// Stock is only written when asked for, so an edit never replays a stale
	// count over a sale committed since the read above.
	if req.Stock != nil {
		saved, err = s.repo.SetProductStock(ctx, req.ID, *req.Stock, updated.UpdatedAt)
		if err != nil {
			return domain.Product{}, notFoundAs(err, "product not found")
		}
	}

	s.invalidateReports(ctx)
	s.logAudit(ctx, "product_update", "product", saved.ID,
		zap.String("price", saved.Price.String()), zap.Int("stock", saved.Stock))
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, policy.ResourceProduct, policy.ActionDelete); err != nil {
		return err
	}
	if id == "" {
		return invalid("id is required")
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return notFoundAs(err, "product not found")
	}
	s.invalidateReports(ctx)
	s.logAudit(ctx, "product_delete", "product", id)
	return nil
}
