package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"backoffice/backend/internal/cache"
	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/mailer"
	"backoffice/backend/internal/policy"
	"backoffice/backend/internal/reporting"
	"backoffice/backend/internal/store"
)

// ErrUnavailable marks operations that depend on an optional integration
// that is not configured, such as SMTP.
var ErrUnavailable = errors.New("service unavailable")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	Cache      cache.ReportCache
	CacheTTL   time.Duration
	Mailer     mailer.Mailer
	Logger     *zap.Logger
	Rates      reporting.Rates
	BcryptCost int
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

type Service struct {
	repo       store.Repository
	policy     *policy.Policy
	cache      cache.ReportCache
	cacheTTL   time.Duration
	mailer     mailer.Mailer
	logger     *zap.Logger
	audit      *zap.Logger
	rates      reporting.Rates
	bcryptCost int
	validate   *validator.Validate
	now        func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NoopReportCache{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.Mailer == nil {
		opts.Mailer = mailer.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rates == (reporting.Rates{}) {
		opts.Rates = reporting.DefaultRates()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 12
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		repo:       repo,
		policy:     policy.Default(),
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		mailer:     opts.Mailer,
		logger:     opts.Logger,
		audit:      opts.Logger.Named("audit"),
		rates:      opts.Rates,
		bcryptCost: opts.BcryptCost,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        opts.Now,
	}
}

// authorize resolves the caller from ctx and checks it against the policy.
func (s *Service) authorize(ctx context.Context, resource policy.Resource, action policy.Action) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	var subject *domain.Actor
	if ok {
		subject = &actor
	}
	if err := s.policy.Authorize(subject, resource, action); err != nil {
		return domain.Actor{}, err
	}
	return actor, nil
}

// check runs the struct's validate tags and reports failures as
// store.ErrInvalidInput naming each offending field.
func (s *Service) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", lowerFirst(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", store.ErrInvalidInput, strings.Join(msgs, ", "))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// detailError carries a caller-facing message while still matching its
// sentinel through errors.Is.
type detailError struct {
	kind error
	msg  string
}

func (e *detailError) Error() string { return e.msg }
func (e *detailError) Unwrap() error { return e.kind }

// notFoundAs replaces a store ErrNotFound with msg, e.g. "client not found".
func notFoundAs(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return &detailError{kind: store.ErrNotFound, msg: msg}
	}
	return err
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, fields ...zap.Field) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{UserID: "system", Role: "system"}
	}
	s.audit.Info(action, append([]zap.Field{
		zap.String("actor_id", actor.UserID),
		zap.String("actor_role", actor.Role),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
	}, fields...)...)
}

// invalidateReports drops cached reports after any change that feeds the DRE.
// A failure only costs freshness for the TTL, so it is logged.
func (s *Service) invalidateReports(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
