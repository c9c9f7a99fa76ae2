package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/models"
	"github.com/AurifyAE/Mac-and-Ro/internal/review"
)

// ReviewHandler serves one review screen (KYC forms or request forms)
type ReviewHandler struct {
	kind   models.EntityKind
	logger *zap.Logger
}

// NewReviewHandler creates a handler for the given entity kind
func NewReviewHandler(kind models.EntityKind, logger *zap.Logger) *ReviewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewHandler{kind: kind, logger: logger}
}

// ApproveRequest carries the approval parameter. KYC approvals send it as
// spreadValue.
type ApproveRequest struct {
	SpreadValue      *decimal.Decimal `json:"spreadValue"`
	NumericParameter *decimal.Decimal `json:"numericParameter"`
}

func (r ApproveRequest) value() decimal.Decimal {
	switch {
	case r.SpreadValue != nil:
		return *r.SpreadValue
	case r.NumericParameter != nil:
		return *r.NumericParameter
	}
	return decimal.Zero
}

// RejectRequest carries the rejection reason, either as one text or as lines
type RejectRequest struct {
	Reason  string   `json:"reason"`
	Reasons []string `json:"reasons"`
	Remarks string   `json:"remarks"`
}

func (r RejectRequest) text() string {
	switch {
	case strings.TrimSpace(r.Reason) != "":
		return r.Reason
	case strings.TrimSpace(r.Remarks) != "":
		return r.Remarks
	}
	return strings.Join(r.Reasons, "\n")
}

func (h *ReviewHandler) controller(c *gin.Context) (*review.Controller, bool) {
	w, ok := workspace(c)
	if !ok {
		return nil, false
	}
	ctrl, ok := w.Controller(h.kind)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown review screen"})
		return nil, false
	}
	return ctrl, true
}

// List returns the visible rows for the query's status, type, free-text and
// customer criteria
func (h *ReviewHandler) List(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var criteria review.Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter"})
		return
	}
	c.JSON(http.StatusOK, ctrl.View(criteria))
}

// Get returns one entity from the current snapshot with its offered actions
func (h *ReviewHandler) Get(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	for _, row := range ctrl.View(review.Criteria{}).Rows {
		if row.Entity.ID == c.Param("id") {
			c.JSON(http.StatusOK, row)
			return
		}
	}
	respondError(c, h.logger, review.ErrUnknownEntity)
}

// Load fetches the collection again, optionally narrowed on the backend by
// status or customer
func (h *ReviewHandler) Load(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	filter := ctrl.Filter()
	if err := c.ShouldBindJSON(&filter); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter"})
		return
	}
	if filter.Status != "" && filter.Status != review.All && !filter.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status", "field": "status"})
		return
	}

	if err := ctrl.Load(c.Request.Context(), filter); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.View(review.Criteria{}))
}

// Approve approves a pending entity
func (h *ReviewHandler) Approve(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := ctrl.RequestApprove(c.Request.Context(), c.Param("id"), req.value()); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.View(review.Criteria{}))
}

// Reject rejects a pending entity with a reason
func (h *ReviewHandler) Reject(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := ctrl.RequestReject(c.Request.Context(), c.Param("id"), req.text()); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.View(review.Criteria{}))
}

// Reverse sends a recently decided entity back to pending
func (h *ReviewHandler) Reverse(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	if err := ctrl.RequestReverse(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.View(review.Criteria{}))
}
