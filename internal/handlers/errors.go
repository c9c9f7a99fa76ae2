// Package handlers serves the console's HTTP API.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AurifyAE/Mac-and-Ro/internal/console"
	"github.com/AurifyAE/Mac-and-Ro/internal/middleware"
	"github.com/AurifyAE/Mac-and-Ro/internal/review"
	"github.com/AurifyAE/Mac-and-Ro/internal/services/upstream"
	"github.com/AurifyAE/Mac-and-Ro/internal/session"
)

// statusFor maps an error onto the HTTP status the console answers with
func statusFor(err error) int {
	var ve *review.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, review.ErrUnknownEntity), upstream.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, review.ErrInFlight), errors.Is(err, review.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, review.ErrReversalWindowClosed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNotAuthenticated), errors.Is(err, session.ErrInvalidOTP), upstream.IsUnauthorized(err):
		return http.StatusUnauthorized
	case errors.Is(err, review.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	var re *upstream.RemoteError
	if errors.As(err, &re) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}. Backend messages are passed
// through, internal errors are not.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var ve *review.ValidationError
	var re *upstream.RemoteError
	switch {
	case errors.As(err, &ve):
		body = gin.H{"error": ve.Message, "field": ve.Field}
	case errors.As(err, &re):
		msg := re.Message
		if msg == "" {
			msg = "The exchange backend could not complete the request"
		}
		body = gin.H{"error": msg}
	case status == http.StatusInternalServerError:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		body = gin.H{"error": "Internal server error"}
	}
	c.JSON(status, body)
}

// workspace fetches the operator's workspace or answers 401
func workspace(c *gin.Context) (*console.Workspace, bool) {
	w, ok := middleware.CurrentWorkspace(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	return w, true
}

// upstreamClient returns the session-bound backend client
func upstreamClient(c *gin.Context) (*upstream.Client, bool) {
	w, ok := workspace(c)
	if !ok {
		return nil, false
	}
	return w.Client, true
}
