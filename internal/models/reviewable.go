package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityKind distinguishes the two reviewable document families
type EntityKind string

const (
	KindKYC     EntityKind = "kyc"
	KindRequest EntityKind = "request"
)

// ReviewableEntity is the common shape of a KYC form or request form as far as
// the review workflow is concerned. It is a read-through copy of server state.
type ReviewableEntity struct {
	ID               string              `json:"id"`
	Kind             EntityKind          `json:"kind"`
	Status           Status              `json:"status"`
	Type             string              `json:"type,omitempty"`
	SubjectID        string              `json:"subjectId,omitempty"`
	SubjectAltID     string              `json:"subjectAltId,omitempty"`
	SubjectName      string              `json:"subjectName,omitempty"`
	SubjectEmail     string              `json:"subjectEmail,omitempty"`
	BranchID         string              `json:"branchId,omitempty"`
	BranchName       string              `json:"branchName,omitempty"`
	ActionTimestamp  *time.Time          `json:"actionTimestamp,omitempty"`
	Reason           string              `json:"reason,omitempty"`
	NumericParameter decimal.NullDecimal `json:"numericParameter"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// DisplayName is the subject name used in operator messages
func (e ReviewableEntity) DisplayName() string {
	if e.SubjectName == "" {
		return "N/A"
	}
	return e.SubjectName
}
