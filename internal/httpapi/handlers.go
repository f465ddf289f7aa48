package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/export"
	"backoffice/backend/internal/reporting"
	"backoffice/backend/internal/store"
)

func deleted(c *gin.Context, what string) {
	writeJSON(c, http.StatusOK, gin.H{"message": what + " deleted"})
}

func (a *API) handleActiveLicense(c *gin.Context) {
	license, err := a.service.ActiveLicense(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, license)
}

func (a *API) handleListProducts(c *gin.Context) {
	products, err := a.service.ListProducts(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, products)
}

func (a *API) handleLowStock(c *gin.Context) {
	products, err := a.service.LowStockProducts(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, products)
}

func (a *API) handleCreateProduct(c *gin.Context) {
	var req domain.ProductCreateRequest
	if !a.bind(c, &req) {
		return
	}
	product, err := a.service.CreateProduct(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, product)
}

func (a *API) handleUpdateProduct(c *gin.Context) {
	var req domain.ProductUpdateRequest
	if !a.bind(c, &req) {
		return
	}
	product, err := a.service.UpdateProduct(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, product)
}

func (a *API) handleDeleteProduct(c *gin.Context) {
	if err := a.service.DeleteProduct(c.Request.Context(), c.Query("id")); err != nil {
		a.fail(c, err)
		return
	}
	deleted(c, "product")
}

func (a *API) handleListClients(c *gin.Context) {
	clients, err := a.service.ListClients(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, clients)
}

func (a *API) handleCreateClient(c *gin.Context) {
	var req domain.ClientCreateRequest
	if !a.bind(c, &req) {
		return
	}
	client, err := a.service.CreateClient(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, client)
}

func (a *API) handleUpdateClient(c *gin.Context) {
	var req domain.ClientUpdateRequest
	if !a.bind(c, &req) {
		return
	}
	client, err := a.service.UpdateClient(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, client)
}

func (a *API) handleDeleteClient(c *gin.Context) {
	if err := a.service.DeleteClient(c.Request.Context(), c.Query("id")); err != nil {
		a.fail(c, err)
		return
	}
	deleted(c, "client")
}

func (a *API) handleListSales(c *gin.Context) {
	sales, err := a.service.ListSales(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sales)
}

func (a *API) handleCreateSale(c *gin.Context) {
	var req domain.SaleCreateRequest
	if !a.bind(c, &req) {
		return
	}
	sale, err := a.service.CreateSale(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, sale)
}

func (a *API) handleUpdateSale(c *gin.Context) {
	var req domain.SaleStatusRequest
	if !a.bind(c, &req) {
		return
	}
	sale, err := a.service.UpdateSaleStatus(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sale)
}

func (a *API) handleDeleteSale(c *gin.Context) {
	if err := a.service.DeleteSale(c.Request.Context(), c.Query("id")); err != nil {
		a.fail(c, err)
		return
	}
	deleted(c, "sale")
}

func (a *API) handleListDepartments(c *gin.Context) {
	departments, err := a.service.ListDepartments(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, departments)
}

func (a *API) handleCreateDepartment(c *gin.Context) {
	var req domain.DepartmentCreateRequest
	if !a.bind(c, &req) {
		return
	}
	department, err := a.service.CreateDepartment(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, department)
}

func (a *API) handleUpdateDepartment(c *gin.Context) {
	var req domain.DepartmentUpdateRequest
	if !a.bind(c, &req) {
		return
	}
	department, err := a.service.UpdateDepartment(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, department)
}

func (a *API) handleDeleteDepartment(c *gin.Context) {
	if err := a.service.DeleteDepartment(c.Request.Context(), c.Query("id")); err != nil {
		a.fail(c, err)
		return
	}
	deleted(c, "department")
}

func (a *API) handleListExpenses(c *gin.Context) {
	expenses, err := a.service.ListExpenses(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, expenses)
}

func (a *API) handleCreateExpense(c *gin.Context) {
	var req domain.ExpenseCreateRequest
	if !a.bind(c, &req) {
		return
	}
	expense, err := a.service.CreateExpense(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, expense)
}

func (a *API) handleUpdateExpense(c *gin.Context) {
	var req domain.ExpenseUpdateRequest
	if !a.bind(c, &req) {
		return
	}
	expense, err := a.service.UpdateExpense(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, expense)
}

func (a *API) handleDeleteExpense(c *gin.Context) {
	if err := a.service.DeleteExpense(c.Request.Context(), c.Query("id")); err != nil {
		a.fail(c, err)
		return
	}
	deleted(c, "expense")
}

func (a *API) handleListUsers(c *gin.Context) {
	users, err := a.service.ListUsers(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, users)
}

func (a *API) handleCreateUser(c *gin.Context) {
	var req domain.UserCreateRequest
	if !a.bind(c, &req) {
		return
	}
	user, err := a.service.CreateUser(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, user)
}

func (a *API) handleUpdateUser(c *gin.Context) {
	var req domain.UserUpdateRequest
	if !a.bind(c, &req) {
		return
	}
	user, err := a.service.UpdateUser(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, user)
}

func (a *API) handleDeleteUser(c *gin.Context) {
	if err := a.service.DeleteUser(c.Request.Context(), c.Query("id")); err != nil {
		a.fail(c, err)
		return
	}
	deleted(c, "user")
}

func (a *API) handleRanking(c *gin.Context) {
	rankings, err := a.service.TopRanking(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rankings)
}

func (a *API) handleRankingPoints(c *gin.Context) {
	var req domain.RankingPointsRequest
	if !a.bind(c, &req) {
		return
	}
	ranking, err := a.service.AddRankingPoints(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, ranking)
}

// parseDay accepts a calendar date or a full RFC 3339 timestamp.
func parseDay(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot parse date %q", store.ErrInvalidInput, raw)
}

func (a *API) reportPeriod(c *gin.Context) (reporting.Period, error) {
	from, err := parseDay(c.Query("from"))
	if err != nil {
		return reporting.Period{}, err
	}
	to, err := parseDay(c.Query("to"))
	if err != nil {
		return reporting.Period{}, err
	}
	days := parsePositiveLimit(c.Query("days"), reporting.DefaultDays, reporting.MaxDays)
	return a.service.ResolvePeriod(from, to, days)
}

func (a *API) handleDRE(c *gin.Context) {
	period, err := a.reportPeriod(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	report, err := a.service.DRE(c.Request.Context(), period)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, report)
}

func (a *API) handleDREExport(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		a.writeError(c, http.StatusBadRequest, err)
		return
	}
	period, err := a.reportPeriod(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	data, report, err := a.service.ExportDRE(c.Request.Context(), period, format)
	if err != nil {
		a.fail(c, err)
		return
	}

	disposition := "attachment"
	if format == export.FormatHTML {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, format.Filename(report)))
	c.DataFromReader(http.StatusOK, int64(len(data)), format.ContentType(), bytes.NewReader(data), nil)
}

func (a *API) handleDRESend(c *gin.Context) {
	var req domain.ReportSendRequest
	if !a.bind(c, &req) {
		return
	}
	if err := a.service.SendDRE(c.Request.Context(), req); err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": "report sent"})
}
