package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/policy"
	"backoffice/backend/internal/store"
	"backoffice/backend/internal/xid"
)

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	if _, err := s.authorize(ctx, policy.ResourceSale, policy.ActionView); err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx)
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	if _, err := s.authorize(ctx, policy.ResourceSale, policy.ActionView); err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, notFoundAs(err, "sale not found")
	}
	return *sale, nil
}

// CreateSale records a sale and takes its quantities out of stock in one
// transaction.
//
// Products are resolved and checked in item order; a product listed twice
// is checked against the sum of its quantities. The sale total is priced
// from the catalog, while every item keeps the price the caller sent.
// Stock is decremented per item, in list order, after the sale row exists.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	if _, err := s.authorize(ctx, policy.ResourceSale, policy.ActionCreate); err != nil {
		return domain.Sale{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Sale{}, err
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status == "" {
		status = domain.SaleStatusCompleted
	}
	if !domain.ValidSaleStatus(status) {
		return domain.Sale{}, invalid("unknown sale status %q", req.Status)
	}
	for _, item := range req.Items {
		if item.Price.IsNegative() {
			return domain.Sale{}, invalid("price of product %s must not be negative", item.ProductID)
		}
	}
	var departmentID *string
	if req.DepartmentID != nil && strings.TrimSpace(*req.DepartmentID) != "" {
		id := strings.TrimSpace(*req.DepartmentID)
		departmentID = &id
	}

	now := s.now()
	saleID := xid.New("")
	var created *domain.Sale

	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetClient(ctx, req.ClientID); err != nil {
			return notFoundAs(err, "client not found")
		}
		if departmentID != nil {
			if _, err := tx.GetDepartment(ctx, *departmentID); err != nil {
				return notFoundAs(err, "department not found")
			}
		}

		requested := make(map[string]int, len(req.Items))
		total := decimal.Zero
		items := make([]domain.SaleItem, 0, len(req.Items))
		for _, item := range req.Items {
			product, err := tx.GetProduct(ctx, item.ProductID)
			if err != nil {
				return notFoundAs(err, fmt.Sprintf("product %s not found", item.ProductID))
			}
			// Compare against what is left so repeated lines cannot overflow the sum.
			if item.Quantity > product.Stock-requested[product.ID] {
				return &detailError{
					kind: store.ErrInsufficientStock,
					msg:  fmt.Sprintf("insufficient stock for product %s", product.Name),
				}
			}
			requested[product.ID] += item.Quantity
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			items = append(items, domain.SaleItem{
				ID:        xid.New(""),
				SaleID:    saleID,
				ProductID: product.ID,
				Quantity:  item.Quantity,
				Price:     item.Price,
			})
		}

		if err := tx.InsertSale(ctx, domain.Sale{
			ID:           saleID,
			ClientID:     req.ClientID,
			DepartmentID: departmentID,
			Total:        total,
			Status:       status,
			Items:        items,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return err
		}

		for _, item := range items {
			if err := tx.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
				return err
			}
		}

		sale, err := tx.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		created = sale
		return nil
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.invalidateReports(ctx)
	s.logAudit(ctx, "sale_create", "sale", created.ID,
		zap.String("client_id", created.ClientID),
		zap.String("total", created.Total.String()),
		zap.Int("items", len(created.Items)))
	return *created, nil
}

// UpdateSaleStatus changes only the status; stock is left untouched.
func (s *Service) UpdateSaleStatus(ctx context.Context, req domain.SaleStatusRequest) (domain.Sale, error) {
	if _, err := s.authorize(ctx, policy.ResourceSale, policy.ActionUpdate); err != nil {
		return domain.Sale{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Sale{}, err
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if !domain.ValidSaleStatus(status) {
		return domain.Sale{}, invalid("unknown sale status %q", req.Status)
	}

	sale, err := s.repo.UpdateSaleStatus(ctx, req.ID, status, s.now())
	if err != nil {
		return domain.Sale{}, notFoundAs(err, "sale not found")
	}
	s.invalidateReports(ctx)
	s.logAudit(ctx, "sale_status", "sale", sale.ID, zap.String("status", status))
	return *sale, nil
}

// DeleteSale puts every item's quantity back into stock and removes the
// sale with its items, all in one transaction.
func (s *Service) DeleteSale(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, policy.ResourceSale, policy.ActionDelete); err != nil {
		return err
	}
	if id == "" {
		return invalid("id is required")
	}

	var restored int
	err := s.repo.InTx(ctx, func(tx store.Tx) error {
		sale, err := tx.GetSale(ctx, id)
		if err != nil {
			return notFoundAs(err, "sale not found")
		}
		for _, item := range sale.Items {
			if err := tx.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			restored += item.Quantity
		}
		return tx.DeleteSale(ctx, id)
	})
	if err != nil {
		return err
	}

	s.invalidateReports(ctx)
	s.logAudit(ctx, "sale_delete", "sale", id, zap.Int("units_restored", restored))
	return nil
}
