package reporting

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rates are the fixed percentages behind the estimated tax and revenue
// lines of the income statement. Every rate is a fraction in [0, 1].
type Rates struct {
	ICMS             decimal.Decimal
	PISCOFINS        decimal.Decimal
	IncomeTax        decimal.Decimal
	Depreciation     decimal.Decimal
	Amortization     decimal.Decimal
	OtherRevenue     decimal.Decimal
	FinancialRevenue decimal.Decimal
	ServiceRevenue   decimal.Decimal
	EquityShare      decimal.Decimal
	DebtShare        decimal.Decimal
}

func DefaultRates() Rates {
	return Rates{
		ICMS:             decimal.RequireFromString("0.17"),
		PISCOFINS:        decimal.RequireFromString("0.0925"),
		IncomeTax:        decimal.RequireFromString("0.15"),
		Depreciation:     decimal.RequireFromString("0.05"),
		Amortization:     decimal.RequireFromString("0.03"),
		OtherRevenue:     decimal.RequireFromString("0.05"),
		FinancialRevenue: decimal.RequireFromString("0.02"),
		ServiceRevenue:   decimal.RequireFromString("0.03"),
		EquityShare:      decimal.RequireFromString("0.7"),
		DebtShare:        decimal.RequireFromString("0.3"),
	}
}

func (r Rates) Validate() error {
	named := []struct {
		name string
		v    decimal.Decimal
	}{
		{"icms", r.ICMS},
		{"pis/cofins", r.PISCOFINS},
		{"income tax", r.IncomeTax},
		{"depreciation", r.Depreciation},
		{"amortization", r.Amortization},
		{"other revenue", r.OtherRevenue},
		{"financial revenue", r.FinancialRevenue},
		{"service revenue", r.ServiceRevenue},
		{"equity share", r.EquityShare},
		{"debt share", r.DebtShare},
	}
	one := decimal.NewFromInt(1)
	for _, n := range named {
		if n.v.IsNegative() || n.v.GreaterThan(one) {
			return fmt.Errorf("%s rate must be between 0 and 1, got %s", n.name, n.v)
		}
	}
	if r.EquityShare.IsZero() {
		return fmt.Errorf("equity share rate must be greater than 0")
	}
	return nil
}
