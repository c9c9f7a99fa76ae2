package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BranchHolding is the gold a customer holds at one branch
type BranchHolding struct {
	Branch string          `json:"branch"`
	Gold   decimal.Decimal `json:"gold"`
}

// Customer is an exchange customer account
type Customer struct {
	ID                string           `json:"_id"`
	CustomerName      string           `json:"customerName"`
	UserName          string           `json:"userName"`
	Nationality       string           `json:"nationality,omitempty"`
	Residence         string           `json:"residence,omitempty"`
	SourceOfIncome    string           `json:"sourceOfIncome,omitempty"`
	IDNumber          string           `json:"idNumber,omitempty"`
	CustomerEmail     string           `json:"customerEmail"`
	CustomerPhone     string           `json:"customerPhone"`
	BankAccountNumber string           `json:"bankAccountNumber,omitempty"`
	SpreadValue       *decimal.Decimal `json:"spreadValue,omitempty"`
	DateOfBirth       *time.Time       `json:"dateOfBirth,omitempty"`
	Cash              decimal.Decimal  `json:"cash"`
	Document          *FileRef         `json:"document,omitempty"`
	Image             *FileRef         `json:"image,omitempty"`
	DocumentFront     *FileRef         `json:"documentFront,omitempty"`
	Branch            []BranchHolding  `json:"branch"`
	KYCStatus         Status           `json:"kycStatus"`
	Type              string           `json:"type,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// TotalGold sums the customer's gold across branches
func (c Customer) TotalGold() decimal.Decimal {
	total := decimal.Zero
	for _, h := range c.Branch {
		total = total.Add(h.Gold)
	}
	return total
}
