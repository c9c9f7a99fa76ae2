package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/review"
)

// DashboardHandler summarises the operator's screens
type DashboardHandler struct {
	logger *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{logger: logger}
}

// Summary is the dashboard payload. Branch and customer totals are omitted
// when the backend cannot provide them.
type Summary struct {
	KYC       review.Counts `json:"kyc"`
	Requests  review.Counts `json:"requests"`
	Branches  *int          `json:"branches,omitempty"`
	Customers *int          `json:"customers,omitempty"`
	Live      bool          `json:"live"`
}

// Summary returns per-status counts and totals
func (h *DashboardHandler) Summary(c *gin.Context) {
	w, ok := workspace(c)
	if !ok {
		return
	}

	s := Summary{
		KYC:      review.Count(w.KYC.Snapshot()),
		Requests: review.Count(w.Requests.Snapshot()),
		Live:     w.Connected(),
	}

	ctx := c.Request.Context()
	if branches, err := w.Client.ListBranches(ctx); err == nil {
		n := len(branches)
		s.Branches = &n
	} else {
		h.logger.Warn("dashboard: failed to count branches", zap.Error(err))
	}
	if customers, err := w.Client.ListCustomers(ctx); err == nil {
		n := len(customers)
		s.Customers = &n
	} else {
		h.logger.Warn("dashboard: failed to count customers", zap.Error(err))
	}

	c.JSON(http.StatusOK, s)
}
