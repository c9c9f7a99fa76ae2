package upstream

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/session"
)

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	Admin   struct {
		ID       string `json:"id"`
		UserID   string `json:"userId"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Branch   string `json:"branch"`
		Username string `json:"username"`
	} `json:"admin"`
}

// LoginSuperAdmin logs in with super-admin credentials
func (c *Client) LoginSuperAdmin(ctx context.Context, username, password string) (session.Identity, error) {
	body := map[string]string{"username": username, "password": password}
	var resp loginResponse
	if err := c.doJSON(ctx, "super admin login", http.MethodPost, "/login", nil, body, &resp); err != nil {
		return session.Identity{}, err
	}
	return session.Identity{
		Token:    resp.Token,
		Role:     session.RoleSuperAdmin,
		UserType: session.RoleSuperAdmin,
		UserID:   resp.Admin.ID,
	}, nil
}

// LoginBranchAdmin logs in with branch-admin credentials
func (c *Client) LoginBranchAdmin(ctx context.Context, userID, password string) (session.Identity, error) {
	body := map[string]string{"userId": userID, "password": password, "role": session.RoleAdmin}
	var resp loginResponse
	if err := c.doJSON(ctx, "branch admin login", http.MethodPost, "/branch-admin-login", nil, body, &resp); err != nil {
		return session.Identity{}, err
	}
	id := resp.Admin.UserID
	if id == "" {
		id = resp.Admin.ID
	}
	return session.Identity{
		Token:    resp.Token,
		Role:     session.RoleAdmin,
		UserType: session.RoleAdmin,
		UserID:   id,
	}, nil
}

// Authenticate tries super-admin login first and falls back to branch-admin
// login when the backend rejects the credentials.
func (c *Client) Authenticate(ctx context.Context, username, password string) (session.Identity, error) {
	id, err := c.LoginSuperAdmin(ctx, username, password)
	if err == nil {
		return id, nil
	}
	var re *RemoteError
	if !errors.As(err, &re) || re.StatusCode < 400 || re.StatusCode >= 500 {
		return session.Identity{}, err
	}

	c.logger.Debug("super admin login rejected, trying branch admin", zap.String("username", username))
	return c.LoginBranchAdmin(ctx, username, password)
}
