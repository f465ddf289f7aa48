package service

import (
	"context"
	"strings"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/policy"
	"backoffice/backend/internal/reporting"
	"backoffice/backend/internal/xid"
)

// ListDepartments returns each department with revenue, expenses and profit
// derived from its sales and expenses.
func (s *Service) ListDepartments(ctx context.Context) ([]domain.DepartmentSummary, error) {
	if _, err := s.authorize(ctx, policy.ResourceDepartment, policy.ActionView); err != nil {
		return nil, err
	}
	departments, err := s.repo.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return reporting.DepartmentSummaries(departments, sales, expenses), nil
}

func (s *Service) CreateDepartment(ctx context.Context, req domain.DepartmentCreateRequest) (domain.Department, error) {
	if _, err := s.authorize(ctx, policy.ResourceDepartment, policy.ActionCreate); err != nil {
		return domain.Department{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.check(req); err != nil {
		return domain.Department{}, err
	}

	now := s.now()
	created, err := s.repo.CreateDepartment(ctx, domain.Department{
		ID:          xid.New(""),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return domain.Department{}, err
	}
	s.invalidateReports(ctx)
	s.logAudit(ctx, "department_create", "department", created.ID)
	return *created, nil
}

func (s *Service) UpdateDepartment(ctx context.Context, req domain.DepartmentUpdateRequest) (domain.Department, error) {
	if _, err := s.authorize(ctx, policy.ResourceDepartment, policy.ActionUpdate); err != nil {
		return domain.Department{}, err
	}
	req.Name = trimmed(req.Name)
	if err := s.check(req); err != nil {
		return domain.Department{}, err
	}

	existing, err := s.repo.GetDepartment(ctx, req.ID)
	if err != nil {
		return domain.Department{}, notFoundAs(err, "department not found")
	}
	updated := *existing
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if desc := trimmed(req.Description); desc != nil {
		updated.Description = *desc
	}
	updated.UpdatedAt = s.now()

	saved, err := s.repo.UpdateDepartment(ctx, updated)
	if err != nil {
		return domain.Department{}, notFoundAs(err, "department not found")
	}
	s.invalidateReports(ctx)
	s.logAudit(ctx, "department_update", "department", saved.ID)
	return *saved, nil
}

func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, policy.ResourceDepartment, policy.ActionDelete); err != nil {
		return err
	}
	if id == "" {
		return invalid("id is required")
	}
	if err := s.repo.DeleteDepartment(ctx, id); err != nil {
		return notFoundAs(err, "department not found")
	}
	s.invalidateReports(ctx)
	s.logAudit(ctx, "department_delete", "department", id)
	return nil
}
