package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/policy"
	"backoffice/backend/internal/store"
	"backoffice/backend/internal/xid"
)

// Login and session failures. They match policy sentinels through errors.Is
// so the transport maps them without knowing about login.
var (
	ErrInvalidCredentials error = &detailError{kind: policy.ErrUnauthorized, msg: "invalid credentials"}
	ErrLicenseInactive    error = &detailError{kind: policy.ErrForbidden, msg: "license is inactive or expired"}
	ErrSessionRevoked     error = &detailError{kind: policy.ErrUnauthorized, msg: "session user no longer exists"}
)

// Authenticate checks an email and password pair. A user whose license
// exists but is not usable is refused; users without a license may log in.
func (s *Service) Authenticate(ctx context.Context, email string, password string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	license, err := s.repo.GetLicenseByUser(ctx, user.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return domain.User{}, err
	case !license.Usable(s.now()):
		return domain.User{}, ErrLicenseInactive
	}

	s.logAudit(WithActor(ctx, domain.Actor{UserID: user.ID, Email: user.Email, Role: user.Role}),
		"login", "user", user.ID)
	return *user, nil
}

// ResolveActor reloads the user behind a session, so a role change or a
// deletion takes effect on the next request instead of at token expiry.
func (s *Service) ResolveActor(ctx context.Context, userID string) (domain.Actor, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Actor{}, ErrSessionRevoked
		}
		return domain.Actor{}, err
	}

	license, err := s.repo.GetLicenseByUser(ctx, user.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return domain.Actor{}, err
	case !license.Usable(s.now()):
		return domain.Actor{}, ErrLicenseInactive
	}
	return domain.Actor{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// Register creates a USER account. It needs no session.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	return s.createUser(ctx, domain.UserCreateRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.RoleUser,
	})
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	if _, err := s.authorize(ctx, policy.ResourceUser, policy.ActionView); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	if _, err := s.authorize(ctx, policy.ResourceUser, policy.ActionCreate); err != nil {
		return domain.User{}, err
	}
	return s.createUser(ctx, req)
}

func (s *Service) createUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if req.Role == "" {
		req.Role = domain.RoleUser
	}
	if err := s.check(req); err != nil {
		return domain.User{}, err
	}

	hashed, err := s.hashPassword(req.Password)
	if err != nil {
		return domain.User{}, err
	}
	now := s.now()
	created, err := s.repo.CreateUser(ctx, domain.User{
		ID:        xid.New(""),
		Name:      req.Name,
		Email:     req.Email,
		Password:  hashed,
		Role:      req.Role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logAudit(ctx, "user_create", "user", created.ID, zap.String("role", created.Role))
	return *created, nil
}

func (s *Service) UpdateUser(ctx context.Context, req domain.UserUpdateRequest) (domain.User, error) {
	if _, err := s.authorize(ctx, policy.ResourceUser, policy.ActionUpdate); err != nil {
		return domain.User{}, err
	}
	req.Name = trimmed(req.Name)
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email = &email
	}
	if err := s.check(req); err != nil {
		return domain.User{}, err
	}

	existing, err := s.repo.GetUser(ctx, req.ID)
	if err != nil {
		return domain.User{}, notFoundAs(err, "user not found")
	}
	updated := *existing
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Email != nil {
		updated.Email = *req.Email
	}
	if req.Role != nil {
		updated.Role = *req.Role
	}
	if req.Password != nil {
		hashed, err := s.hashPassword(*req.Password)
		if err != nil {
			return domain.User{}, err
		}
		updated.Password = hashed
	}
	updated.UpdatedAt = s.now()

	saved, err := s.repo.UpdateUser(ctx, updated)
	if err != nil {
		return domain.User{}, notFoundAs(err, "user not found")
	}
	s.logAudit(ctx, "user_update", "user", saved.ID, zap.String("role", saved.Role))
	return *saved, nil
}

// DeleteUser removes the account together with its license and ranking.
// Admins cannot delete their own account.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	actor, err := s.authorize(ctx, policy.ResourceUser, policy.ActionDelete)
	if err != nil {
		return err
	}
	if id == "" {
		return invalid("id is required")
	}
	if id == actor.UserID {
		return &detailError{kind: store.ErrConflict, msg: "cannot delete the signed-in user"}
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return notFoundAs(err, "user not found")
	}
	s.logAudit(ctx, "user_delete", "user", id)
	return nil
}

// ActiveLicense returns the ACTIVE license that expires last.
func (s *Service) ActiveLicense(ctx context.Context) (domain.ActiveLicense, error) {
	if _, err := s.authorize(ctx, policy.ResourceLicense, policy.ActionView); err != nil {
		return domain.ActiveLicense{}, err
	}
	license, err := s.repo.FindActiveLicense(ctx, s.now())
	if err != nil {
		return domain.ActiveLicense{}, notFoundAs(err, "no active license")
	}
	return domain.ActiveLicense{Key: license.Key, ExpiresAt: license.ExpiresAt}, nil
}

func (s *Service) TopRanking(ctx context.Context) ([]domain.Ranking, error) {
	if _, err := s.authorize(ctx, policy.ResourceRanking, policy.ActionView); err != nil {
		return nil, err
	}
	return s.repo.TopRankings(ctx, 10)
}

func (s *Service) AddRankingPoints(ctx context.Context, req domain.RankingPointsRequest) (domain.Ranking, error) {
	if _, err := s.authorize(ctx, policy.ResourceRanking, policy.ActionUpdate); err != nil {
		return domain.Ranking{}, err
	}
	if err := s.check(req); err != nil {
		return domain.Ranking{}, err
	}
	ranking, err := s.repo.AddRankingPoints(ctx, req.UserID, req.Points)
	if err != nil {
		return domain.Ranking{}, notFoundAs(err, "user not found")
	}
	s.logAudit(ctx, "ranking_points", "ranking", ranking.ID,
		zap.String("user_id", req.UserID), zap.Int("points", req.Points))
	return *ranking, nil
}
