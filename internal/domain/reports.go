package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductSummary struct {
	Product
	UnitsSold int             `json:"unitsSold"`
	Sales     decimal.Decimal `json:"sales"`
	TotalCost decimal.Decimal `json:"totalCost"`
	Profit    decimal.Decimal `json:"profit"`
}

type DepartmentSummary struct {
	Department
	Expenses decimal.Decimal `json:"expenses"`
	Revenue  decimal.Decimal `json:"revenue"`
	Profit   decimal.Decimal `json:"profit"`
	Margin   decimal.Decimal `json:"margin"`
}

// DailyEntry is one day of the income statement. Tax and revenue lines are
// heuristic estimates derived from Sales and Expenses.
type DailyEntry struct {
	Date                   string          `json:"date"`
	Sales                  decimal.Decimal `json:"sales"`
	SalesCount             int             `json:"salesCount"`
	Expenses               decimal.Decimal `json:"expenses"`
	OperationalExpenses    decimal.Decimal `json:"operationalExpenses"`
	AdministrativeExpenses decimal.Decimal `json:"administrativeExpenses"`
	FinancialExpenses      decimal.Decimal `json:"financialExpenses"`
	OtherExpenses          decimal.Decimal `json:"otherExpenses"`
	Profit                 decimal.Decimal `json:"profit"`
	ICMS                   decimal.Decimal `json:"icms"`
	PISCOFINS              decimal.Decimal `json:"pisCofins"`
	IncomeTax              decimal.Decimal `json:"incomeTax"`
	Depreciation           decimal.Decimal `json:"depreciation"`
	Amortization           decimal.Decimal `json:"amortization"`
	OtherRevenues          decimal.Decimal `json:"otherRevenues"`
	FinancialRevenues      decimal.Decimal `json:"financialRevenues"`
	ServiceRevenues        decimal.Decimal `json:"serviceRevenues"`
}

type DRESummary struct {
	SalesCount             int             `json:"salesCount"`
	TotalSales             decimal.Decimal `json:"totalSales"`
	TotalExpenses          decimal.Decimal `json:"totalExpenses"`
	OperationalExpenses    decimal.Decimal `json:"operationalExpenses"`
	AdministrativeExpenses decimal.Decimal `json:"administrativeExpenses"`
	FinancialExpenses      decimal.Decimal `json:"financialExpenses"`
	OtherExpenses          decimal.Decimal `json:"otherExpenses"`
	Profit                 decimal.Decimal `json:"profit"`
	ProfitMargin           decimal.Decimal `json:"profitMargin"`
	OtherRevenues          decimal.Decimal `json:"otherRevenues"`
	FinancialRevenues      decimal.Decimal `json:"financialRevenues"`
	ServiceRevenues        decimal.Decimal `json:"serviceRevenues"`
	TotalRevenues          decimal.Decimal `json:"totalRevenues"`
	ICMS                   decimal.Decimal `json:"icms"`
	PISCOFINS              decimal.Decimal `json:"pisCofins"`
	IncomeTax              decimal.Decimal `json:"incomeTax"`
	Depreciation           decimal.Decimal `json:"depreciation"`
	Amortization           decimal.Decimal `json:"amortization"`
	EBITDA                 decimal.Decimal `json:"ebitda"`
	EBITDAMargin           decimal.Decimal `json:"ebitdaMargin"`
	NetMargin              decimal.Decimal `json:"netMargin"`
	OperationalMargin      decimal.Decimal `json:"operationalMargin"`
	ROI                    decimal.Decimal `json:"roi"`
	ROE                    decimal.Decimal `json:"roe"`
	AssetTurnover          decimal.Decimal `json:"assetTurnover"`
	DebtRatio              decimal.Decimal `json:"debtRatio"`
}

type PeriodComparison struct {
	Sales    decimal.Decimal `json:"sales"`
	Expenses decimal.Decimal `json:"expenses"`
	Profit   decimal.Decimal `json:"profit"`
}

type Goals struct {
	Sales  decimal.Decimal `json:"sales"`
	Profit decimal.Decimal `json:"profit"`
	EBITDA decimal.Decimal `json:"ebitda"`
}

type Projection struct {
	Month    int             `json:"month"`
	Sales    decimal.Decimal `json:"sales"`
	Expenses decimal.Decimal `json:"expenses"`
	Profit   decimal.Decimal `json:"profit"`
}

type DREReport struct {
	From           string              `json:"from"`
	To             string              `json:"to"`
	GeneratedAt    time.Time           `json:"generatedAt"`
	Summary        DRESummary          `json:"summary"`
	Daily          []DailyEntry        `json:"daily"`
	PreviousPeriod PeriodComparison    `json:"previousPeriod"`
	Goals          Goals               `json:"goals"`
	Projections    []Projection        `json:"projections"`
	Departments    []DepartmentSummary `json:"departments"`
	Products       []ProductSummary    `json:"products"`
}
