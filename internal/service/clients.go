package service

import (
	"context"
	"strings"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/policy"
	"backoffice/backend/internal/xid"
)

func (s *Service) ListClients(ctx context.Context) ([]domain.Client, error) {
	if _, err := s.authorize(ctx, policy.ResourceClient, policy.ActionView); err != nil {
		return nil, err
	}
	return s.repo.ListClients(ctx)
}

func (s *Service) CreateClient(ctx context.Context, req domain.ClientCreateRequest) (domain.Client, error) {
	if _, err := s.authorize(ctx, policy.ResourceClient, policy.ActionCreate); err != nil {
		return domain.Client{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := s.check(req); err != nil {
		return domain.Client{}, err
	}

	now := s.now()
	created, err := s.repo.CreateClient(ctx, domain.Client{
		ID:        xid.New(""),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.Client{}, err
	}
	s.logAudit(ctx, "client_create", "client", created.ID)
	return *created, nil
}

func (s *Service) UpdateClient(ctx context.Context, req domain.ClientUpdateRequest) (domain.Client, error) {
	if _, err := s.authorize(ctx, policy.ResourceClient, policy.ActionUpdate); err != nil {
		return domain.Client{}, err
	}
	req.Name = trimmed(req.Name)
	req.Phone = trimmed(req.Phone)
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email = &email
	}
	if err := s.check(req); err != nil {
		return domain.Client{}, err
	}

	existing, err := s.repo.GetClient(ctx, req.ID)
	if err != nil {
		return domain.Client{}, notFoundAs(err, "client not found")
	}
	updated := *existing
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Email != nil {
		updated.Email = *req.Email
	}
	if req.Phone != nil {
		updated.Phone = *req.Phone
	}
	if address := trimmed(req.Address); address != nil {
		updated.Address = *address
	}
	updated.UpdatedAt = s.now()

	saved, err := s.repo.UpdateClient(ctx, updated)
	if err != nil {
		return domain.Client{}, notFoundAs(err, "client not found")
	}
	s.logAudit(ctx, "client_update", "client", saved.ID)
	return *saved, nil
}

func (s *Service) DeleteClient(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, policy.ResourceClient, policy.ActionDelete); err != nil {
		return err
	}
	if id == "" {
		return invalid("id is required")
	}
	if err := s.repo.DeleteClient(ctx, id); err != nil {
		return notFoundAs(err, "client not found")
	}
	s.logAudit(ctx, "client_delete", "client", id)
	return nil
}
