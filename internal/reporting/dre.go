package reporting

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"backoffice/backend/internal/domain"
)

const (
	dayLayout = "2006-01-02"
	// MaxDays bounds the number of daily rows in one report.
	MaxDays = 366
	// DefaultDays is the window used when the caller gives no range.
	DefaultDays = 30
)

var ErrInvalidPeriod = errors.New("invalid report period")

// Period is an inclusive range of UTC calendar days.
type Period struct {
	From time.Time
	To   time.Time
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func NewPeriod(from, to time.Time) (Period, error) {
	p := Period{From: truncateDay(from), To: truncateDay(to)}
	if p.To.Before(p.From) {
		return Period{}, fmt.Errorf("%w: from is after to", ErrInvalidPeriod)
	}
	if p.Days() > MaxDays {
		return Period{}, fmt.Errorf("%w: at most %d days", ErrInvalidPeriod, MaxDays)
	}
	return p, nil
}

// LastDays returns the period of n days ending on the day of now.
func LastDays(now time.Time, n int) (Period, error) {
	if n < 1 {
		return Period{}, fmt.Errorf("%w: days must be positive", ErrInvalidPeriod)
	}
	to := truncateDay(now)
	return NewPeriod(to.AddDate(0, 0, -(n - 1)), to)
}

func (p Period) Days() int {
	return int(p.To.Sub(p.From).Hours()/24) + 1
}

func (p Period) Contains(t time.Time) bool {
	day := truncateDay(t)
	return !day.Before(p.From) && !day.After(p.To)
}

// Input is everything BuildDRE reads. Sales and expenses outside the period
// are ignored.
type Input struct {
	Period      Period
	Sales       []domain.Sale
	Expenses    []domain.Expense
	Departments []domain.Department
	Products    []domain.Product
}

type dayTotals struct {
	sales      decimal.Decimal
	salesCount int
	byType     map[domain.ExpenseType]decimal.Decimal
}

// BuildDRE computes the income statement for the period: one row per day,
// totals and indicators, comparison figures and a twelve month projection.
func BuildDRE(in Input, rates Rates, generatedAt time.Time) domain.DREReport {
	days := make(map[string]*dayTotals, in.Period.Days())
	for d := in.Period.From; !d.After(in.Period.To); d = d.AddDate(0, 0, 1) {
		days[d.Format(dayLayout)] = &dayTotals{byType: map[domain.ExpenseType]decimal.Decimal{}}
	}

	periodSales := make([]domain.Sale, 0, len(in.Sales))
	for _, sale := range in.Sales {
		bucket, ok := days[sale.CreatedAt.UTC().Format(dayLayout)]
		if !ok {
			continue
		}
		bucket.sales = bucket.sales.Add(sale.Total)
		bucket.salesCount++
		periodSales = append(periodSales, sale)
	}
	periodExpenses := make([]domain.Expense, 0, len(in.Expenses))
	for _, expense := range in.Expenses {
		bucket, ok := days[expense.Date.UTC().Format(dayLayout)]
		if !ok {
			continue
		}
		bucket.byType[expense.Type] = bucket.byType[expense.Type].Add(expense.Amount)
		periodExpenses = append(periodExpenses, expense)
	}

	var sum domain.DRESummary
	daily := make([]domain.DailyEntry, 0, len(days))
	for d := in.Period.From; !d.After(in.Period.To); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		entry := dailyEntry(key, days[key], rates)
		daily = append(daily, entry)

		sum.SalesCount += entry.SalesCount
		sum.TotalSales = sum.TotalSales.Add(entry.Sales)
		sum.TotalExpenses = sum.TotalExpenses.Add(entry.Expenses)
		sum.OperationalExpenses = sum.OperationalExpenses.Add(entry.OperationalExpenses)
		sum.AdministrativeExpenses = sum.AdministrativeExpenses.Add(entry.AdministrativeExpenses)
		sum.FinancialExpenses = sum.FinancialExpenses.Add(entry.FinancialExpenses)
		sum.OtherExpenses = sum.OtherExpenses.Add(entry.OtherExpenses)
		sum.OtherRevenues = sum.OtherRevenues.Add(entry.OtherRevenues)
		sum.FinancialRevenues = sum.FinancialRevenues.Add(entry.FinancialRevenues)
		sum.ServiceRevenues = sum.ServiceRevenues.Add(entry.ServiceRevenues)
		sum.ICMS = sum.ICMS.Add(entry.ICMS)
		sum.PISCOFINS = sum.PISCOFINS.Add(entry.PISCOFINS)
		sum.IncomeTax = sum.IncomeTax.Add(entry.IncomeTax)
		sum.Depreciation = sum.Depreciation.Add(entry.Depreciation)
		sum.Amortization = sum.Amortization.Add(entry.Amortization)
	}
	finishSummary(&sum, rates)

	report := domain.DREReport{
		From:        in.Period.From.Format(dayLayout),
		To:          in.Period.To.Format(dayLayout),
		GeneratedAt: generatedAt.UTC(),
		Daily:       roundDaily(daily),
		PreviousPeriod: domain.PeriodComparison{
			Sales:    money(sum.TotalSales.Mul(decimal.RequireFromString("0.9"))),
			Expenses: money(sum.TotalExpenses.Mul(decimal.RequireFromString("0.9"))),
			Profit:   money(sum.Profit.Mul(decimal.RequireFromString("0.9"))),
		},
		Goals: domain.Goals{
			Sales:  money(sum.TotalSales.Mul(decimal.RequireFromString("1.1"))),
			Profit: money(sum.Profit.Mul(decimal.RequireFromString("1.1"))),
			EBITDA: money(sum.EBITDA.Mul(decimal.RequireFromString("1.1"))),
		},
		Projections: project(sum),
		Departments: DepartmentSummaries(in.Departments, periodSales, periodExpenses),
		Products:    ProductSummaries(in.Products, periodSales),
	}
	report.Summary = roundSummary(sum)
	return report
}

func dailyEntry(date string, t *dayTotals, rates Rates) domain.DailyEntry {
	entry := domain.DailyEntry{
		Date:                   date,
		Sales:                  t.sales,
		SalesCount:             t.salesCount,
		OperationalExpenses:    t.byType[domain.ExpenseOperational],
		AdministrativeExpenses: t.byType[domain.ExpenseAdministrative],
		FinancialExpenses:      t.byType[domain.ExpenseFinancial],
		OtherExpenses:          t.byType[domain.ExpenseOther],
	}
	entry.Expenses = entry.OperationalExpenses.
		Add(entry.AdministrativeExpenses).
		Add(entry.FinancialExpenses).
		Add(entry.OtherExpenses)
	entry.Profit = entry.Sales.Sub(entry.Expenses)

	entry.ICMS = entry.Sales.Mul(rates.ICMS)
	entry.PISCOFINS = entry.Sales.Mul(rates.PISCOFINS)
	entry.IncomeTax = entry.Profit.Mul(rates.IncomeTax)
	entry.Depreciation = entry.Expenses.Mul(rates.Depreciation)
	entry.Amortization = entry.Expenses.Mul(rates.Amortization)
	entry.OtherRevenues = entry.Sales.Mul(rates.OtherRevenue)
	entry.FinancialRevenues = entry.Sales.Mul(rates.FinancialRevenue)
	entry.ServiceRevenues = entry.Sales.Mul(rates.ServiceRevenue)
	return entry
}

func finishSummary(sum *domain.DRESummary, rates Rates) {
	sum.Profit = sum.TotalSales.Sub(sum.TotalExpenses)
	sum.ProfitMargin = percentOf(sum.Profit, sum.TotalSales)
	sum.TotalRevenues = sum.TotalSales.Add(sum.OtherRevenues).Add(sum.FinancialRevenues).Add(sum.ServiceRevenues)

	sum.EBITDA = sum.Profit.Add(sum.Depreciation).Add(sum.Amortization)
	sum.EBITDAMargin = percentOf(sum.EBITDA, sum.TotalRevenues)
	sum.NetMargin = percentOf(sum.Profit, sum.TotalRevenues)
	sum.OperationalMargin = percentOf(sum.TotalRevenues.Sub(sum.OperationalExpenses), sum.TotalRevenues)

	sum.ROI = percentOf(sum.Profit, sum.TotalExpenses)
	sum.ROE = percentOf(sum.Profit, sum.TotalExpenses.Mul(rates.EquityShare))
	sum.AssetTurnover = decimal.Zero
	sum.DebtRatio = decimal.Zero
	if sum.TotalExpenses.IsPositive() {
		sum.AssetTurnover = sum.TotalRevenues.Div(sum.TotalExpenses)
		sum.DebtRatio = rates.DebtShare.Mul(hundred)
	}
}

func project(sum domain.DRESummary) []domain.Projection {
	salesStep := decimal.RequireFromString("0.05")
	expenseStep := decimal.RequireFromString("0.03")
	profitStep := decimal.RequireFromString("0.07")
	one := decimal.NewFromInt(1)

	out := make([]domain.Projection, 0, 12)
	for i := 1; i <= 12; i++ {
		n := decimal.NewFromInt(int64(i))
		out = append(out, domain.Projection{
			Month:    i,
			Sales:    money(sum.TotalSales.Mul(one.Add(salesStep.Mul(n)))),
			Expenses: money(sum.TotalExpenses.Mul(one.Add(expenseStep.Mul(n)))),
			Profit:   money(sum.Profit.Mul(one.Add(profitStep.Mul(n)))),
		})
	}
	return out
}

func roundDaily(entries []domain.DailyEntry) []domain.DailyEntry {
	for i := range entries {
		e := &entries[i]
		for _, v := range []*decimal.Decimal{
			&e.Sales, &e.Expenses, &e.OperationalExpenses, &e.AdministrativeExpenses,
			&e.FinancialExpenses, &e.OtherExpenses, &e.Profit, &e.ICMS, &e.PISCOFINS,
			&e.IncomeTax, &e.Depreciation, &e.Amortization, &e.OtherRevenues,
			&e.FinancialRevenues, &e.ServiceRevenues,
		} {
			*v = money(*v)
		}
	}
	return entries
}

func roundSummary(s domain.DRESummary) domain.DRESummary {
	for _, v := range []*decimal.Decimal{
		&s.TotalSales, &s.TotalExpenses, &s.OperationalExpenses, &s.AdministrativeExpenses,
		&s.FinancialExpenses, &s.OtherExpenses, &s.Profit, &s.ProfitMargin, &s.OtherRevenues,
		&s.FinancialRevenues, &s.ServiceRevenues, &s.TotalRevenues, &s.ICMS, &s.PISCOFINS,
		&s.IncomeTax, &s.Depreciation, &s.Amortization, &s.EBITDA, &s.EBITDAMargin,
		&s.NetMargin, &s.OperationalMargin, &s.ROI, &s.ROE, &s.AssetTurnover, &s.DebtRatio,
	} {
		*v = money(*v)
	}
	return s
}
