package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestType is the kind of operation a customer requested
type RequestType string

const (
	RequestDeposit  RequestType = "deposit"
	RequestWithdraw RequestType = "withdraw"
	RequestSwapping RequestType = "swapping"
	RequestBuy      RequestType = "buy"
	RequestSell     RequestType = "sell"
)

// AssetType is the asset a request moves
type AssetType string

const (
	AssetCash AssetType = "cash"
	AssetGold AssetType = "gold"
)

// RequestCustomer is the customer summary embedded in a request form
type RequestCustomer struct {
	ID            string          `json:"_id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	CustomerName  string          `json:"customerName,omitempty"`
	CustomerEmail string          `json:"customerEmail,omitempty"`
	IDNumber      string          `json:"idNumber,omitempty"`
	Cash          decimal.Decimal `json:"cash"`
	Gold          decimal.Decimal `json:"gold"`
}

// DisplayName prefers name over customerName, both are used by the backend
func (c RequestCustomer) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.CustomerName
}

// DisplayEmail prefers email over customerEmail
func (c RequestCustomer) DisplayEmail() string {
	if c.Email != "" {
		return c.Email
	}
	return c.CustomerEmail
}

// ReqForm is a deposit/withdraw/swap/buy/sell request awaiting an operator decision
type ReqForm struct {
	ID              string          `json:"_id"`
	Type            RequestType     `json:"type"`
	AssetType       AssetType       `json:"assetType,omitempty"`
	FromLocation    *Ref            `json:"fromLocation,omitempty"`
	ToLocation      *Ref            `json:"toLocation,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	Amount          decimal.Decimal `json:"amount"`
	BranchID        *Ref            `json:"branchId,omitempty"`
	Customer        RequestCustomer `json:"customer"`
	Status          Status          `json:"status"`
	Remarks         string          `json:"Remarks,omitempty"`
	ActionTimestamp *time.Time      `json:"actionTimestamp,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Reviewable converts the form into the shared review representation
func (r ReqForm) Reviewable() ReviewableEntity {
	e := ReviewableEntity{
		ID:              r.ID,
		Kind:            KindRequest,
		Status:          r.Status,
		Type:            string(r.Type),
		SubjectID:       r.Customer.ID,
		SubjectName:     r.Customer.DisplayName(),
		SubjectEmail:    r.Customer.DisplayEmail(),
		ActionTimestamp: r.ActionTimestamp,
		Reason:          r.Remarks,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.BranchID != nil {
		e.BranchID = r.BranchID.ID
		e.BranchName = r.BranchID.Name
	}
	if r.Customer.IDNumber != "" {
		e.SubjectAltID = r.Customer.IDNumber
	}
	return e
}

// RejectRequestBody is the body of a request form rejection
type RejectRequestBody struct {
	Remarks string `json:"remarks"`
}
