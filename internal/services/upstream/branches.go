package upstream

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gosimple/slug"

	"github.com/AurifyAE/Mac-and-Ro/internal/models"
)

// BranchCode derives a branch code from its name, e.g. "Gold Souk Deira" -> "GOLD-SOUK-DEIRA"
func BranchCode(name string) string {
	return strings.ToUpper(slug.Make(name))
}

// ListBranches returns every branch
func (c *Client) ListBranches(ctx context.Context) ([]models.Branch, error) {
	return getList[models.Branch](ctx, c, "list branches", "/branch", nil, "branches")
}

// GetBranch returns one branch
func (c *Client) GetBranch(ctx context.Context, id string) (models.Branch, error) {
	return getItem[models.Branch](ctx, c, "get branch", "/branch/"+escape(id), "branch")
}

// CreateBranch creates a branch, deriving its code from the name when missing
func (c *Client) CreateBranch(ctx context.Context, b models.Branch) (models.Branch, error) {
	if strings.TrimSpace(b.BranchCode) == "" {
		b.BranchCode = BranchCode(b.BranchName)
	}
	var created models.Branch
	if err := c.doJSON(ctx, "create branch", http.MethodPost, "/branch", nil, b, &created); err != nil {
		return models.Branch{}, err
	}
	if created.ID == "" {
		return b, nil
	}
	return created, nil
}

// UpdateBranch replaces a branch's details
func (c *Client) UpdateBranch(ctx context.Context, id string, b models.Branch) (models.Branch, error) {
	var updated models.Branch
	if err := c.doJSON(ctx, "update branch", http.MethodPut, "/branch/"+escape(id), nil, b, &updated); err != nil {
		return models.Branch{}, err
	}
	return updated, nil
}

// DeleteBranch removes a branch
func (c *Client) DeleteBranch(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete branch", http.MethodDelete, "/branch/"+escape(id), nil, nil, nil)
}

// UpdateBranchCharges replaces the charge table of a branch
func (c *Client) UpdateBranchCharges(ctx context.Context, id string, charges []models.ChargeTo) error {
	if err := models.ValidateCharges(id, charges); err != nil {
		return err
	}
	body := struct {
		ChargeTo []models.ChargeTo `json:"chargeTo"`
	}{ChargeTo: charges}
	return c.doJSON(ctx, "update branch charges", http.MethodPut, "/branch/"+escape(id)+"/charge", nil, body, nil)
}

// ListBranchAdmins returns every branch admin account
func (c *Client) ListBranchAdmins(ctx context.Context) ([]models.BranchAdmin, error) {
	return getList[models.BranchAdmin](ctx, c, "list branch admins", "/branch-admin", nil, "branchAdmins", "admins")
}

// GetBranchAdmin returns one branch admin
func (c *Client) GetBranchAdmin(ctx context.Context, id string) (models.BranchAdmin, error) {
	return getItem[models.BranchAdmin](ctx, c, "get branch admin", "/branch-admin/"+escape(id), "branchAdmin", "admin")
}

// CreateBranchAdmin creates a branch admin. The backend takes multipart form data.
func (c *Client) CreateBranchAdmin(ctx context.Context, a models.BranchAdmin) (models.BranchAdmin, error) {
	return c.sendBranchAdmin(ctx, "create branch admin", http.MethodPost, "/branch-admin", a)
}

// UpdateBranchAdmin updates a branch admin. An empty password leaves it unchanged.
func (c *Client) UpdateBranchAdmin(ctx context.Context, id string, a models.BranchAdmin) (models.BranchAdmin, error) {
	return c.sendBranchAdmin(ctx, "update branch admin", http.MethodPut, "/branch-admin/"+escape(id), a)
}

// DeleteBranchAdmin removes a branch admin
func (c *Client) DeleteBranchAdmin(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete branch admin", http.MethodDelete, "/branch-admin/"+escape(id), nil, nil, nil)
}

func (c *Client) sendBranchAdmin(ctx context.Context, op, method, path string, a models.BranchAdmin) (models.BranchAdmin, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := []struct{ name, value string }{
		{"username", a.Username},
		{"email", a.Email},
		{"password", a.Password},
		{"branchId", a.BranchID},
		{"branchName", a.BranchName},
		{"address", a.Address},
		{"phone", a.Phone},
		{"userId", a.UserID},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return models.BranchAdmin{}, fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return models.BranchAdmin{}, fmt.Errorf("failed to encode form: %w", err)
	}

	raw, err := c.send(ctx, op, method, c.endpoint(path, nil), &buf, w.FormDataContentType())
	if err != nil {
		return models.BranchAdmin{}, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return a, nil
	}
	return decodeItem[models.BranchAdmin](op, raw, "branchAdmin", "admin")
}
