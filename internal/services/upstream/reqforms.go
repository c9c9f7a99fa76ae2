package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/AurifyAE/Mac-and-Ro/internal/models"
)

// ListRequestsByStatus returns request forms in a status; "" or "all" returns every form
func (c *Client) ListRequestsByStatus(ctx context.Context, status string) ([]models.ReqForm, error) {
	if status == "" {
		status = "all"
	}
	return getList[models.ReqForm](ctx, c, "list request forms", "/reqform/status", url.Values{"status": {status}}, "reqForms")
}

// ListCustomerRequests returns the request forms of one customer
func (c *Client) ListCustomerRequests(ctx context.Context, customerID string) ([]models.ReqForm, error) {
	return getList[models.ReqForm](ctx, c, "list customer request forms", "/reqform/customer/"+escape(customerID), nil, "reqForms")
}

// GetRequest returns one request form
func (c *Client) GetRequest(ctx context.Context, id string) (models.ReqForm, error) {
	return getItem[models.ReqForm](ctx, c, "get request form", "/reqform/"+escape(id), "reqForm")
}

// ApproveRequest approves a request form
func (c *Client) ApproveRequest(ctx context.Context, id string) error {
	return c.doJSON(ctx, "approve request form", http.MethodPut, "/reqform/approve/"+escape(id), nil, nil, nil)
}

// RejectRequest rejects a request form with remarks
func (c *Client) RejectRequest(ctx context.Context, id, remarks string) error {
	body := models.RejectRequestBody{Remarks: remarks}
	return c.doJSON(ctx, "reject request form", http.MethodPut, "/reqform/reject/"+escape(id), nil, body, nil)
}

// ReverseRequest sends a decided request form back to pending
func (c *Client) ReverseRequest(ctx context.Context, id string) error {
	return c.doJSON(ctx, "reverse request form", http.MethodPut, "/reqform/reverse/"+escape(id), nil, nil, nil)
}

// ListSwapped returns the completed inter-branch swaps
func (c *Client) ListSwapped(ctx context.Context) ([]models.ReqForm, error) {
	return getList[models.ReqForm](ctx, c, "list swapped forms", "/reqform/swapped", nil, "swappedProducts")
}
