package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/policy"
	"backoffice/backend/internal/xid"
)

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	if _, err := s.authorize(ctx, policy.ResourceExpense, policy.ActionView); err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx)
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	if _, err := s.authorize(ctx, policy.ResourceExpense, policy.ActionCreate); err != nil {
		return domain.Expense{}, err
	}
	req.Description = strings.TrimSpace(req.Description)
	if err := s.check(req); err != nil {
		return domain.Expense{}, err
	}
	if !req.Amount.IsPositive() {
		return domain.Expense{}, invalid("amount must be greater than zero")
	}
	if !req.Type.Valid() {
		return domain.Expense{}, invalid("unknown expense type %q", req.Type)
	}

	now := s.now()
	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}
	created, err := s.repo.CreateExpense(ctx, domain.Expense{
		ID:           xid.New(""),
		Description:  req.Description,
		Amount:       req.Amount,
		Type:         req.Type,
		Date:         date,
		DepartmentID: req.DepartmentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return domain.Expense{}, notFoundAs(err, "department not found")
	}

	s.invalidateReports(ctx)
	s.logAudit(ctx, "expense_create", "expense", created.ID,
		zap.String("amount", created.Amount.String()), zap.String("type", string(created.Type)))
	return *created, nil
}

func (s *Service) UpdateExpense(ctx context.Context, req domain.ExpenseUpdateRequest) (domain.Expense, error) {
	if _, err := s.authorize(ctx, policy.ResourceExpense, policy.ActionUpdate); err != nil {
		return domain.Expense{}, err
	}
	req.Description = trimmed(req.Description)
	if err := s.check(req); err != nil {
		return domain.Expense{}, err
	}

	existing, err := s.repo.GetExpense(ctx, req.ID)
	if err != nil {
		return domain.Expense{}, notFoundAs(err, "expense not found")
	}
	updated := *existing
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return domain.Expense{}, invalid("amount must be greater than zero")
		}
		updated.Amount = *req.Amount
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return domain.Expense{}, invalid("unknown expense type %q", *req.Type)
		}
		updated.Type = *req.Type
	}
	if req.Date != nil {
		updated.Date = req.Date.UTC()
	}
	if req.DepartmentID != nil {
		updated.DepartmentID = *req.DepartmentID
		updated.Department = nil
	}
	updated.UpdatedAt = s.now()

	saved, err := s.repo.UpdateExpense(ctx, updated)
	if err != nil {
		return domain.Expense{}, err
	}
	s.invalidateReports(ctx)
	s.logAudit(ctx, "expense_update", "expense", saved.ID)
	return *saved, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, policy.ResourceExpense, policy.ActionDelete); err != nil {
		return err
	}
	if id == "" {
		return invalid("id is required")
	}
	if err := s.repo.DeleteExpense(ctx, id); err != nil {
		return notFoundAs(err, "expense not found")
	}
	s.invalidateReports(ctx)
	s.logAudit(ctx, "expense_delete", "expense", id)
	return nil
}
