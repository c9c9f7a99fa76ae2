package upstream

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/AurifyAE/Mac-and-Ro/internal/models"
)

// ListKYC returns every KYC form
func (c *Client) ListKYC(ctx context.Context) ([]models.KYCForm, error) {
	return getList[models.KYCForm](ctx, c, "list kyc forms", "/kyc", nil, "kycForms")
}

// AcceptKYC approves a KYC form with the customer's spread value
func (c *Client) AcceptKYC(ctx context.Context, id string, spread decimal.Decimal, branchAdminID, approvedBy, comments string) error {
	body := models.AcceptKYCRequest{
		SpreadValue:   spread.InexactFloat64(),
		BranchAdminID: branchAdminID,
		ApprovedBy:    approvedBy,
		Comments:      comments,
	}
	return c.doJSON(ctx, "accept kyc", http.MethodPost, "/kyc/accept/"+escape(id), nil, body, nil)
}

// RejectKYC rejects a KYC form
func (c *Client) RejectKYC(ctx context.Context, id string, reasons []string, rejectedBy string) error {
	body := models.RejectKYCRequest{Reasons: reasons, RejectedBy: rejectedBy}
	return c.doJSON(ctx, "reject kyc", http.MethodPost, "/kyc/reject/"+escape(id), nil, body, nil)
}

// ReverseKYC sends a decided KYC form back to pending
func (c *Client) ReverseKYC(ctx context.Context, id string) error {
	return c.doJSON(ctx, "reverse kyc", http.MethodPut, "/kyc/reverse/"+escape(id), nil, nil, nil)
}
