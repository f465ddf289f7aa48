package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"backoffice/backend/internal/reporting"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	SQLitePath            string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	ReportCacheTTLSeconds int
	AuthSecret            string
	AccessTokenTTLMinutes int
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	SMTPFrom              string
	SeedDemoData          bool
	SeedAdminPassword     string
	StrictStockGuard      bool
	LogLevel              string
	Rates                 reporting.Rates
}

// LoadEnvFile loads variables from path into the process environment.
// An empty path means ".env"; a missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed loading env file %s: %w", path, err)
	}
	return nil
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("REPORT_CACHE_TTL_SECONDS", "30"))
	if err != nil || ttl < 1 {
		ttl = 30
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil || smtpPort < 1 {
		smtpPort = 587
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		SQLitePath:            os.Getenv("SQLITE_PATH"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		ReportCacheTTLSeconds: ttl,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		SMTPHost:              os.Getenv("SMTP_HOST"),
		SMTPPort:              smtpPort,
		SMTPUsername:          os.Getenv("SMTP_USERNAME"),
		SMTPPassword:          os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:              os.Getenv("SMTP_FROM"),
		SeedDemoData:          getBool("SEED_DEMO_DATA", false),
		SeedAdminPassword:     getEnv("SEED_ADMIN_PASSWORD", "admin123"),
		StrictStockGuard:      getBool("STRICT_STOCK_GUARD", false),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		Rates:                 loadRates(),
	}

	return cfg
}

func loadRates() reporting.Rates {
	r := reporting.DefaultRates()
	r.ICMS = getDecimal("REPORT_ICMS_RATE", r.ICMS)
	r.PISCOFINS = getDecimal("REPORT_PIS_COFINS_RATE", r.PISCOFINS)
	r.IncomeTax = getDecimal("REPORT_INCOME_TAX_RATE", r.IncomeTax)
	r.Depreciation = getDecimal("REPORT_DEPRECIATION_RATE", r.Depreciation)
	r.Amortization = getDecimal("REPORT_AMORTIZATION_RATE", r.Amortization)
	r.OtherRevenue = getDecimal("REPORT_OTHER_REVENUE_RATE", r.OtherRevenue)
	r.FinancialRevenue = getDecimal("REPORT_FINANCIAL_REVENUE_RATE", r.FinancialRevenue)
	r.ServiceRevenue = getDecimal("REPORT_SERVICE_REVENUE_RATE", r.ServiceRevenue)
	r.EquityShare = getDecimal("REPORT_EQUITY_SHARE", r.EquityShare)
	r.DebtShare = getDecimal("REPORT_DEBT_SHARE", r.DebtShare)
	return r
}

// Validate rejects configurations the server must not start with.
func (c Config) Validate() error {
	if len(c.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if c.DatabaseURL != "" && c.SQLitePath != "" {
		return fmt.Errorf("DATABASE_URL and SQLITE_PATH are mutually exclusive")
	}
	if err := c.Rates.Validate(); err != nil {
		return fmt.Errorf("report rates: %w", err)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getBool(key string, fallback bool) bool {
	val, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return val
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	val, err := decimal.NewFromString(raw)
	if err != nil {
		return fallback
	}
	return val
}
