package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backoffice/backend/internal/policy"
	"backoffice/backend/internal/service"
	"backoffice/backend/internal/store"
)

const maxBodyBytes = 1 << 20

type API struct {
	service       *service.Service
	auth          *AuthManager
	logger        *zap.Logger
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		auth:          auth,
		logger:        logger,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

// Allow records an attempt for key and reports whether it fits in the
// sliding window.
func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

// clientKey uses the socket address only; forwarded headers are not trusted
// for rate limiting.
func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(a.accessLog())
	r.Use(cors.New(a.corsConfig()))
	r.Use(securityHeaders())

	r.GET("/healthz", a.handleHealth)

	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", a.handleLogin)
	v1.POST("/auth/register", a.handleRegister)

	authed := v1.Group("", a.requireAuth())
	authed.GET("/licenses/active", a.handleActiveLicense)

	authed.GET("/products", a.handleListProducts)
	authed.GET("/products/low-stock", a.handleLowStock)
	authed.POST("/products", a.handleCreateProduct)
	authed.PUT("/products", a.handleUpdateProduct)
	authed.DELETE("/products", a.handleDeleteProduct)

	authed.GET("/clients", a.handleListClients)
	authed.POST("/clients", a.handleCreateClient)
	authed.PUT("/clients", a.handleUpdateClient)
	authed.DELETE("/clients", a.handleDeleteClient)

	authed.GET("/sales", a.handleListSales)
	authed.POST("/sales", a.handleCreateSale)
	authed.PUT("/sales", a.handleUpdateSale)
	authed.DELETE("/sales", a.handleDeleteSale)

	authed.GET("/departments", a.handleListDepartments)
	authed.POST("/departments", a.handleCreateDepartment)
	authed.PUT("/departments", a.handleUpdateDepartment)
	authed.DELETE("/departments", a.handleDeleteDepartment)

	authed.GET("/expenses", a.handleListExpenses)
	authed.POST("/expenses", a.handleCreateExpense)
	authed.PUT("/expenses", a.handleUpdateExpense)
	authed.DELETE("/expenses", a.handleDeleteExpense)

	authed.GET("/users", a.handleListUsers)
	authed.POST("/users", a.handleCreateUser)
	authed.PUT("/users", a.handleUpdateUser)
	authed.DELETE("/users", a.handleDeleteUser)

	authed.GET("/ranking", a.handleRanking)
	authed.POST("/ranking", a.handleRankingPoints)

	authed.GET("/reports/dre", a.handleDRE)
	authed.GET("/reports/dre/export", a.handleDREExport)
	authed.POST("/reports/dre/send", a.handleDRESend)

	return r
}

func (a *API) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	if a.allowedOrigin == "" || a.allowedOrigin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{a.allowedOrigin}
	}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Content-Type", "Authorization"}
	cfg.ExposeHeaders = []string{"Content-Disposition"}
	return cfg
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		}
		c.Next()
	}
}

func (a *API) accessLog() gin.HandlerFunc {
	logger := a.logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", clientKey(c.Request)))
	}
}

func (a *API) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// bind decodes the request body into dest, answering 400 on failure.
func (a *API) bind(c *gin.Context, dest any) bool {
	if err := decodeJSON(c.Request, dest); err != nil {
		a.writeError(c, http.StatusBadRequest, err)
		return false
	}
	return true
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// statusFor maps service and store errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, policy.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, policy.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(c *gin.Context, err error) {
	a.writeError(c, statusFor(err), err)
}

func (a *API) writeError(c *gin.Context, status int, err error) {
	// 5xx bodies stay generic; the detail only goes to the log.
	msg := err.Error()
	if status >= 500 && status != http.StatusServiceUnavailable {
		a.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func writeJSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}
