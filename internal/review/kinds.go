package review

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/AurifyAE/Mac-and-Ro/internal/eventstream"
	"github.com/AurifyAE/Mac-and-Ro/internal/models"
)

// Kind holds the rules that differ between KYC forms and request forms
type Kind struct {
	Entity models.EntityKind
	// Title starts operator messages, Noun is used mid-sentence
	Title  string
	Noun   string
	Plural string

	// NumericField is validated on approval when set
	NumericField string
	ReasonField  string

	// ReloadOn lists push events that trigger a reload; NotifyOn the subset
	// that also raises a notification.
	ReloadOn []eventstream.EventType
	NotifyOn map[eventstream.EventType]string
}

var (
	KYC = Kind{
		Entity:       models.KindKYC,
		Title:        "KYC",
		Noun:         "KYC",
		Plural:       "KYC forms",
		NumericField: "spreadValue",
		ReasonField:  "reasons",
		ReloadOn: []eventstream.EventType{
			eventstream.KYCSubmitted,
			eventstream.KYCStatusChanged,
			eventstream.ConnectionEstablished,
		},
		NotifyOn: map[eventstream.EventType]string{
			eventstream.KYCSubmitted: "New KYC form submitted",
		},
	}

	Requests = Kind{
		Entity:      models.KindRequest,
		Title:       "Request",
		Noun:        "request",
		Plural:      "requests",
		ReasonField: "remarks",
		ReloadOn: []eventstream.EventType{
			eventstream.RequestSubmitted,
			eventstream.RequestStatusChanged,
			eventstream.ConnectionEstablished,
		},
		NotifyOn: map[eventstream.EventType]string{
			eventstream.RequestSubmitted: "New request submitted",
		},
	}
)

// KindFor returns the rules for an entity kind
func KindFor(k models.EntityKind) (Kind, bool) {
	switch k {
	case models.KindKYC:
		return KYC, true
	case models.KindRequest:
		return Requests, true
	}
	return Kind{}, false
}

func (k Kind) validateApprove(numeric decimal.Decimal) error {
	if k.NumericField == "" {
		return nil
	}
	if !numeric.IsPositive() {
		return &ValidationError{Field: k.NumericField, Message: "must be greater than zero"}
	}
	return nil
}

func (k Kind) validateReject(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return &ValidationError{Field: k.ReasonField, Message: "a reason is required to reject"}
	}
	return nil
}

func (k Kind) successMessage(op Operation, name string) string {
	return fmt.Sprintf("%s for %s %s successfully!", k.Title, name, op.pastTense())
}

func (k Kind) failureMessage(op Operation, name string) string {
	return fmt.Sprintf("Failed to %s %s for %s.", op, k.Noun, name)
}

func (k Kind) eventMessage(ev eventstream.Event) (string, bool) {
	fallback, ok := k.NotifyOn[ev.Type]
	if !ok {
		return "", false
	}
	if ev.Message != "" {
		return ev.Message, true
	}
	return fallback, true
}

// Operation is an operator decision
type Operation string

const (
	OpApprove Operation = "approve"
	OpReject  Operation = "reject"
	OpReverse Operation = "reverse"
)

func (o Operation) pastTense() string {
	switch o {
	case OpApprove:
		return "approved"
	case OpReject:
		return "rejected"
	case OpReverse:
		return "reversed to pending"
	}
	return string(o)
}
