package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankAccount represents a bank account of the transfer system. Currency
// carries the joined currency name so callers never resolve it separately.
type BankAccount struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	Amount     decimal.Decimal `json:"amount"`
	CurrencyID string          `json:"-"`
	Currency   string          `json:"currency"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}
