package upstream

import (
	"context"
	"net/url"

	"github.com/AurifyAE/Mac-and-Ro/internal/models"
)

// ListCustomers returns every customer
func (c *Client) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return getList[models.Customer](ctx, c, "list customers", "/customers", nil, "customers")
}

// GetCustomer returns one customer
func (c *Client) GetCustomer(ctx context.Context, id string) (models.Customer, error) {
	return getItem[models.Customer](ctx, c, "get customer", "/customers/"+escape(id), "customer")
}

// SearchCustomers runs the backend's customer search
func (c *Client) SearchCustomers(ctx context.Context, q string) ([]models.Customer, error) {
	return getList[models.Customer](ctx, c, "search customers", "/customers/search", url.Values{"q": {q}}, "customers")
}

// ListLogs returns the operational log
func (c *Client) ListLogs(ctx context.Context) ([]models.LogEntry, error) {
	return getList[models.LogEntry](ctx, c, "list logs", "/logs", nil, "logs")
}
