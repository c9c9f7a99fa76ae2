package session

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// Claims are the parts of an upstream token the console cares about. The
// signature belongs to the exchange backend and is not verified here.
type Claims struct {
	Subject   string
	Role      string
	UserType  string
	ExpiresAt time.Time
}

// ParseClaims reads the payload of an upstream token without verifying it
func ParseClaims(token string) (Claims, error) {
	var parser jwt.Parser
	mc := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("failed to parse token: %w", err)
	}

	c := Claims{
		Subject:  firstString(mc, "sub", "id", "userId", "_id"),
		Role:     firstString(mc, "role"),
		UserType: firstString(mc, "userType", "type"),
	}
	switch exp := mc["exp"].(type) {
	case float64:
		c.ExpiresAt = time.Unix(int64(exp), 0)
	case int64:
		c.ExpiresAt = time.Unix(exp, 0)
	}
	return c, nil
}

func firstString(mc jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if s, ok := mc[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
