package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleParent = "parent"
	RoleChild  = "child"
	RoleAdmin  = "admin"
)

const (
	FrequencyDaily    = "daily"
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
	FrequencyMonthly  = "monthly"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	ParentID     *string   `db:"parent_id" json:"parent_id,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PiggyBank is a sub-account owned by exactly one user.
type PiggyBank struct {
	ID             string          `db:"id" json:"id"`
	UserID         string          `db:"user_id" json:"user_id"`
	Name           string          `db:"name" json:"name"`
	CurrentBalance decimal.Decimal `db:"current_balance" json:"current_balance"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Deposit.Balance is the bank balance right after the deposit was made. It is
// never recomputed.
type Deposit struct {
	ID              string          `db:"id" json:"id"`
	BankID          string          `db:"bank_id" json:"bank_id"`
	AmountDeposited decimal.Decimal `db:"amount_deposited" json:"amount_deposited"`
	DateDeposited   time.Time       `db:"date_deposited" json:"date_deposited"`
	Balance         decimal.Decimal `db:"balance" json:"balance"`
	Source          string          `db:"source" json:"source"`
	SourceID        string          `db:"source_id" json:"source_id"`
	Description     string          `db:"description" json:"description"`
}

type Expense struct {
	ID            string          `db:"id" json:"id"`
	BankID        string          `db:"bank_id" json:"bank_id"`
	Name          string          `db:"name" json:"name"`
	Description   string          `db:"description" json:"description"`
	Price         decimal.Decimal `db:"price" json:"price"`
	Purchased     bool            `db:"purchased" json:"purchased"`
	DateAdded     time.Time       `db:"date_added" json:"date_added"`
	DatePurchased *time.Time      `db:"date_purchased" json:"date_purchased,omitempty"`
	PurchasedBy   *string         `db:"purchased_by" json:"purchased_by,omitempty"`
}

type Allowance struct {
	ID          string          `db:"id" json:"id"`
	BankID      string          `db:"bank_id" json:"bank_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Description string          `db:"description" json:"description"`
	Frequency   string          `db:"frequency" json:"frequency"`
	Payday      int             `db:"payday" json:"payday"`
	Active      bool            `db:"active" json:"active"`
}
