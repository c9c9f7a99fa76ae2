package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ChargeTo is the fee charged when a transfer moves from the owning branch to Branch
type ChargeTo struct {
	Branch string          `json:"branch"`
	Amount decimal.Decimal `json:"amount"`
}

// Branch is a physical exchange branch
type Branch struct {
	ID            string     `json:"_id,omitempty"`
	BranchName    string     `json:"branchName"`
	BranchCode    string     `json:"branchCode,omitempty"`
	BranchAddress string     `json:"branchAddress"`
	BranchPhone   string     `json:"branchPhone"`
	BranchEmail   string     `json:"branchEmail"`
	ChargeTo      []ChargeTo `json:"chargeTo,omitempty"`
	CreatedAt     string     `json:"createdAt,omitempty"`
	UpdatedAt     string     `json:"updatedAt,omitempty"`
}

// ChargeFor returns the configured charge towards the given branch, or zero
func (b Branch) ChargeFor(branchID string) (decimal.Decimal, bool) {
	for _, c := range b.ChargeTo {
		if c.Branch == branchID {
			return c.Amount, true
		}
	}
	return decimal.Zero, false
}

// BranchAdmin is an operator account bound to one branch
type BranchAdmin struct {
	ID         string `json:"_id,omitempty"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password,omitempty"`
	BranchID   string `json:"branchId"`
	BranchName string `json:"branchName"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	UserID     string `json:"userId"`
}

// ChargeLine is one row of the charge editor: the fee towards another branch
type ChargeLine struct {
	Branch     string          `json:"branch"`
	BranchName string          `json:"branchName"`
	Amount     decimal.Decimal `json:"amount"`
}

// ChargeTable lists a charge towards every other branch, using the configured
// amount where one exists and zero otherwise.
func (b Branch) ChargeTable(all []Branch) []ChargeLine {
	lines := make([]ChargeLine, 0, len(all))
	for _, other := range all {
		if other.ID == b.ID {
			continue
		}
		amount, _ := b.ChargeFor(other.ID)
		lines = append(lines, ChargeLine{Branch: other.ID, BranchName: other.BranchName, Amount: amount})
	}
	return lines
}

// ValidateCharges checks a submitted charge table against the branch it belongs to
func ValidateCharges(owner string, charges []ChargeTo) error {
	seen := make(map[string]bool, len(charges))
	for _, c := range charges {
		if c.Branch == "" {
			return fmt.Errorf("charge is missing a target branch")
		}
		if c.Branch == owner {
			return fmt.Errorf("a branch cannot charge itself")
		}
		if seen[c.Branch] {
			return fmt.Errorf("duplicate charge for branch %s", c.Branch)
		}
		if c.Amount.IsNegative() {
			return fmt.Errorf("charge for branch %s must not be negative", c.Branch)
		}
		seen[c.Branch] = true
	}
	return nil
}
