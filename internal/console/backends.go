package console

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/AurifyAE/Mac-and-Ro/internal/models"
	"github.com/AurifyAE/Mac-and-Ro/internal/review"
	"github.com/AurifyAE/Mac-and-Ro/internal/services/upstream"
	"github.com/AurifyAE/Mac-and-Ro/internal/session"
)

// KYCBackend serves KYC forms to a review controller
type KYCBackend struct {
	client  *upstream.Client
	session session.Session
}

// NewKYCBackend binds the upstream client to the acting operator
func NewKYCBackend(client *upstream.Client, s session.Session) *KYCBackend {
	return &KYCBackend{client: client, session: s}
}

func (b *KYCBackend) List(ctx context.Context, f review.Filter) ([]models.ReviewableEntity, error) {
	forms, err := b.client.ListKYC(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ReviewableEntity, 0, len(forms))
	for _, form := range forms {
		e := form.Reviewable()
		if !matchesFilter(e, f) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *KYCBackend) Approve(ctx context.Context, id string, spread decimal.Decimal) error {
	return b.client.AcceptKYC(ctx, id, spread, b.session.UserID, b.session.Actor(), "")
}

func (b *KYCBackend) Reject(ctx context.Context, id string, reason string) error {
	return b.client.RejectKYC(ctx, id, splitReasons(reason), b.session.Actor())
}

func (b *KYCBackend) Reverse(ctx context.Context, id string) error {
	return b.client.ReverseKYC(ctx, id)
}

// RequestBackend serves request forms to a review controller
type RequestBackend struct {
	client *upstream.Client
}

// NewRequestBackend wraps an upstream client
func NewRequestBackend(client *upstream.Client) *RequestBackend {
	return &RequestBackend{client: client}
}

func (b *RequestBackend) List(ctx context.Context, f review.Filter) ([]models.ReviewableEntity, error) {
	var (
		forms []models.ReqForm
		err   error
	)
	if f.CustomerID != "" {
		forms, err = b.client.ListCustomerRequests(ctx, f.CustomerID)
	} else {
		forms, err = b.client.ListRequestsByStatus(ctx, string(f.Status))
	}
	if err != nil {
		return nil, err
	}

	out := make([]models.ReviewableEntity, 0, len(forms))
	for _, form := range forms {
		e := form.Reviewable()
		if !matchesFilter(e, f) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *RequestBackend) Approve(ctx context.Context, id string, _ decimal.Decimal) error {
	return b.client.ApproveRequest(ctx, id)
}

func (b *RequestBackend) Reject(ctx context.Context, id string, reason string) error {
	return b.client.RejectRequest(ctx, id, strings.TrimSpace(reason))
}

func (b *RequestBackend) Reverse(ctx context.Context, id string) error {
	return b.client.ReverseRequest(ctx, id)
}

func matchesFilter(e models.ReviewableEntity, f review.Filter) bool {
	if f.Status != "" && string(f.Status) != review.All && e.Status != f.Status {
		return false
	}
	if f.CustomerID != "" && e.SubjectID != f.CustomerID && e.SubjectAltID != f.CustomerID {
		return false
	}
	return true
}

// splitReasons turns a free-text rejection into the backend's reasons list,
// one reason per line.
func splitReasons(reason string) []string {
	var out []string
	for _, line := range strings.Split(reason, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// BackendFor returns the backend serving kind on behalf of s
func BackendFor(kind models.EntityKind, client *upstream.Client, s session.Session) (review.Backend, bool) {
	switch kind {
	case models.KindKYC:
		return NewKYCBackend(client, s), true
	case models.KindRequest:
		return NewRequestBackend(client), true
	}
	return nil, false
}
