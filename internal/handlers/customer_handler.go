package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/models"
	"github.com/AurifyAE/Mac-and-Ro/internal/review"
)

// CustomerHandler serves customers, operational logs and swapped forms
type CustomerHandler struct {
	logger *zap.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(logger *zap.Logger) *CustomerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerHandler{logger: logger}
}

// CustomerQuery filters the customer list
type CustomerQuery struct {
	Search string `form:"q"`
	Status string `form:"status"`
}

// filterCustomers keeps customers whose name, username, email or phone
// contains the search term and whose KYC status matches
func filterCustomers(customers []models.Customer, q CustomerQuery) []models.Customer {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.Customer, 0, len(customers))
	for _, c := range customers {
		if q.Status != "" && q.Status != review.All && string(c.KYCStatus) != q.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.CustomerName), needle) &&
			!strings.Contains(strings.ToLower(c.UserName), needle) &&
			!strings.Contains(strings.ToLower(c.CustomerEmail), needle) &&
			!strings.Contains(c.CustomerPhone, needle) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ListCustomers returns customers matching the optional q and status filters
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	var q CustomerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter"})
		return
	}

	customers, err := client.ListCustomers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	counts := make(map[models.Status]int)
	for _, cu := range customers {
		counts[cu.KYCStatus]++
	}
	c.JSON(http.StatusOK, gin.H{
		"customers": filterCustomers(customers, q),
		"total":     len(customers),
		"byStatus":  counts,
	})
}

// SearchCustomers runs the backend's customer search
func (h *CustomerHandler) SearchCustomers(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A search term is required", "field": "q"})
		return
	}

	customers, err := client.SearchCustomers(c.Request.Context(), term)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

// GetCustomer returns one customer
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	customer, err := client.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer, "totalGold": customer.TotalGold()})
}

// Page selects a slice of a list
type Page struct {
	Page    int `form:"page"`
	PerPage int `form:"perPage"`
}

// PageResult is one page of a list
type PageResult[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func paginate[T any](items []T, p Page) PageResult[T] {
	if p.PerPage <= 0 {
		p.PerPage = 5
	}
	if p.PerPage > 100 {
		p.PerPage = 100
	}
	totalPages := (len(items) + p.PerPage - 1) / p.PerPage
	if p.Page < 1 {
		p.Page = 1
	}

	start := (p.Page - 1) * p.PerPage
	if start > len(items) {
		start = len(items)
	}
	end := start + p.PerPage
	if end > len(items) {
		end = len(items)
	}
	return PageResult[T]{
		Items:      append([]T{}, items[start:end]...),
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      len(items),
		TotalPages: totalPages,
	}
}

// ListLogs returns a page of operational logs, newest first
func (h *CustomerHandler) ListLogs(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	var p Page
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}

	logs, err := client.ListLogs(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].CreatedAt.After(logs[j].CreatedAt) })
	c.JSON(http.StatusOK, paginate(logs, p))
}

// ListSwapped returns swapped forms filtered by status, customer and a free-text search
func (h *CustomerHandler) ListSwapped(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	var criteria review.Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter"})
		return
	}

	forms, err := client.ListSwapped(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	byID := make(map[string]models.ReqForm, len(forms))
	entities := make([]models.ReviewableEntity, 0, len(forms))
	for _, f := range forms {
		byID[f.ID] = f
		entities = append(entities, f.Reviewable())
	}

	visible := review.Project(entities, criteria)
	out := make([]models.ReqForm, 0, len(visible))
	for _, e := range visible {
		out = append(out, byID[e.ID])
	}
	c.JSON(http.StatusOK, gin.H{"forms": out, "counts": review.Count(entities)})
}
