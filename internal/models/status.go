package models

// Status is the review status of a KYC form or request form
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusClosed     Status = "closed"
	StatusRegistered Status = "registered"
)

// Decided reports whether the status is the outcome of an operator decision
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusClosed, StatusRegistered:
		return true
	}
	return false
}
