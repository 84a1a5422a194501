package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer records one settled transfer. Amount is the amount actually
// credited to AccountTo, after any currency conversion and fee.
type Transfer struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user"`
	AccountFrom string          `json:"accountFrom"`
	AccountTo   string          `json:"accountTo"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TransferReportRow is the report feed: a transfer joined to the initiating
// user and to the owner of the destination account.
type TransferReportRow struct {
	TransferID  string
	UserID      string
	Email       string
	AccountTo   string
	DestOwnerID string
	CreatedAt   time.Time
}
