package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KYCForm is a customer's KYC application as returned by the backend
type KYCForm struct {
	ID                string           `json:"_id"`
	CustID            string           `json:"custId"`
	CustomerName      string           `json:"customerName"`
	CustomerEmail     string           `json:"customerEmail"`
	Nationality       string           `json:"nationality"`
	KYCStatus         Status           `json:"kycStatus"`
	IDNumber          string           `json:"idNumber"`
	Residence         string           `json:"residence"`
	SourceOfIncome    string           `json:"sourceOfIncome"`
	BankAccountNumber string           `json:"bankAccountNumber"`
	DateOfBirth       string           `json:"dateOfBirth,omitempty"`
	Document          *FileRef         `json:"document,omitempty"`
	Image             *FileRef         `json:"image,omitempty"`
	Branch            string           `json:"branch"`
	BranchName        string           `json:"branchName,omitempty"`
	Type              string           `json:"type"`
	SpreadValue       *decimal.Decimal `json:"spreadValue,omitempty"`
	Remarks           string           `json:"remarks,omitempty"`
	ActionTimestamp   *time.Time       `json:"actionTimestamp,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// Reviewable converts the form into the shared review representation
func (k KYCForm) Reviewable() ReviewableEntity {
	e := ReviewableEntity{
		ID:              k.ID,
		Kind:            KindKYC,
		Status:          k.KYCStatus,
		Type:            k.Type,
		SubjectID:       k.CustID,
		SubjectName:     k.CustomerName,
		SubjectEmail:    k.CustomerEmail,
		BranchID:        k.Branch,
		BranchName:      k.BranchName,
		ActionTimestamp: k.ActionTimestamp,
		Reason:          k.Remarks,
		CreatedAt:       k.CreatedAt,
		UpdatedAt:       k.UpdatedAt,
	}
	if k.SpreadValue != nil {
		e.NumericParameter = decimal.NewNullDecimal(*k.SpreadValue)
	}
	return e
}

// AcceptKYCRequest is the body of a KYC approval
type AcceptKYCRequest struct {
	SpreadValue   float64 `json:"spreadValue"`
	BranchAdminID string  `json:"branchAdminId"`
	ApprovedBy    string  `json:"approvedBy,omitempty"`
	Comments      string  `json:"comments,omitempty"`
}

// RejectKYCRequest is the body of a KYC rejection
type RejectKYCRequest struct {
	Reasons    []string `json:"reasons"`
	RejectedBy string   `json:"rejectedBy,omitempty"`
}
