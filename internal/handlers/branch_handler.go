package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/models"
)

// BranchHandler manages branches, their charge tables and branch admins
type BranchHandler struct {
	logger *zap.Logger
}

// NewBranchHandler creates a new branch handler
func NewBranchHandler(logger *zap.Logger) *BranchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BranchHandler{logger: logger}
}

// ListBranches returns every branch
func (h *BranchHandler) ListBranches(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	branches, err := client.ListBranches(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, branches)
}

// GetBranch returns one branch
func (h *BranchHandler) GetBranch(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	branch, err := client.GetBranch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, branch)
}

func validBranch(b models.Branch) (string, bool) {
	switch {
	case strings.TrimSpace(b.BranchName) == "":
		return "branchName", false
	case strings.TrimSpace(b.BranchAddress) == "":
		return "branchAddress", false
	}
	return "", true
}

// CreateBranch creates a branch
func (h *BranchHandler) CreateBranch(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	var b models.Branch
	if err := c.ShouldBindJSON(&b); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if field, ok := validBranch(b); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " is required", "field": field})
		return
	}

	created, err := client.CreateBranch(c.Request.Context(), b)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateBranch updates a branch
func (h *BranchHandler) UpdateBranch(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	var b models.Branch
	if err := c.ShouldBindJSON(&b); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if field, ok := validBranch(b); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " is required", "field": field})
		return
	}

	updated, err := client.UpdateBranch(c.Request.Context(), c.Param("id"), b)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteBranch removes a branch
func (h *BranchHandler) DeleteBranch(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	if err := client.DeleteBranch(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetCharges returns the charge table of a branch towards every other branch
func (h *BranchHandler) GetCharges(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	all, err := client.ListBranches(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	for _, b := range all {
		if b.ID == c.Param("id") {
			c.JSON(http.StatusOK, gin.H{"branch": b.ID, "branchName": b.BranchName, "charges": b.ChargeTable(all)})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Branch not found"})
}

// UpdateCharges replaces the charge table of a branch
func (h *BranchHandler) UpdateCharges(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	var req struct {
		ChargeTo []models.ChargeTo `json:"chargeTo"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	id := c.Param("id")
	if err := models.ValidateCharges(id, req.ChargeTo); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := client.UpdateBranchCharges(c.Request.Context(), id, req.ChargeTo); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Charges updated successfully"})
}

// ListAdmins returns every branch admin
func (h *BranchHandler) ListAdmins(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	admins, err := client.ListBranchAdmins(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	for i := range admins {
		admins[i].Password = ""
	}
	c.JSON(http.StatusOK, admins)
}

// GetAdmin returns one branch admin
func (h *BranchHandler) GetAdmin(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	admin, err := client.GetBranchAdmin(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	admin.Password = ""
	c.JSON(http.StatusOK, admin)
}

// CreateAdmin creates a branch admin
func (h *BranchHandler) CreateAdmin(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	var a models.BranchAdmin
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if a.Username == "" || a.Password == "" || a.BranchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, password and branchId are required"})
		return
	}

	created, err := client.CreateBranchAdmin(c.Request.Context(), a)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	created.Password = ""
	c.JSON(http.StatusCreated, created)
}

// UpdateAdmin updates a branch admin. An empty password keeps the current one.
func (h *BranchHandler) UpdateAdmin(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	var a models.BranchAdmin
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	updated, err := client.UpdateBranchAdmin(c.Request.Context(), c.Param("id"), a)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	updated.Password = ""
	c.JSON(http.StatusOK, updated)
}

// DeleteAdmin removes a branch admin
func (h *BranchHandler) DeleteAdmin(c *gin.Context) {
	client, ok := upstreamClient(c)
	if !ok {
		return
	}

	if err := client.DeleteBranchAdmin(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
