// Package reporting computes financial summaries from sales, expenses and
// the catalog. Every function is pure: callers load the records and pass
// them in.
package reporting

import (
	"github.com/shopspring/decimal"

	"backoffice/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// percentOf returns part / whole x 100, or zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

func money(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// ProductSummaries attaches sales figures to every product. Revenue uses the
// price stored on each sale item and cost uses the product's current cost.
func ProductSummaries(products []domain.Product, sales []domain.Sale) []domain.ProductSummary {
	type totals struct {
		units   int
		revenue decimal.Decimal
	}
	byProduct := make(map[string]*totals, len(products))
	for _, sale := range sales {
		for _, item := range sale.Items {
			t, ok := byProduct[item.ProductID]
			if !ok {
				t = &totals{}
				byProduct[item.ProductID] = t
			}
			t.units += item.Quantity
			t.revenue = t.revenue.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}

	out := make([]domain.ProductSummary, 0, len(products))
	for _, product := range products {
		summary := domain.ProductSummary{
			Product:   product,
			Sales:     decimal.Zero,
			TotalCost: decimal.Zero,
			Profit:    decimal.Zero,
		}
		if t, ok := byProduct[product.ID]; ok {
			cost := product.Cost.Mul(decimal.NewFromInt(int64(t.units)))
			summary.UnitsSold = t.units
			summary.Sales = money(t.revenue)
			summary.TotalCost = money(cost)
			summary.Profit = money(t.revenue.Sub(cost))
		}
		out = append(out, summary)
	}
	return out
}

// LowStock returns the products at or below their minimum stock.
func LowStock(products []domain.Product) []domain.Product {
	out := make([]domain.Product, 0)
	for _, product := range products {
		if product.Stock <= product.MinStock {
			out = append(out, product)
		}
	}
	return out
}

// DepartmentSummaries computes revenue from sale totals and expenses from
// expense amounts per department. Margin is zero when revenue is zero.
func DepartmentSummaries(departments []domain.Department, sales []domain.Sale, expenses []domain.Expense) []domain.DepartmentSummary {
	revenue := make(map[string]decimal.Decimal, len(departments))
	for _, sale := range sales {
		if sale.DepartmentID == nil {
			continue
		}
		revenue[*sale.DepartmentID] = revenue[*sale.DepartmentID].Add(sale.Total)
	}
	spent := make(map[string]decimal.Decimal, len(departments))
	for _, expense := range expenses {
		spent[expense.DepartmentID] = spent[expense.DepartmentID].Add(expense.Amount)
	}

	out := make([]domain.DepartmentSummary, 0, len(departments))
	for _, department := range departments {
		r := revenue[department.ID]
		e := spent[department.ID]
		profit := r.Sub(e)
		out = append(out, domain.DepartmentSummary{
			Department: department,
			Revenue:    money(r),
			Expenses:   money(e),
			Profit:     money(profit),
			Margin:     money(percentOf(profit, r)),
		})
	}
	return out
}
