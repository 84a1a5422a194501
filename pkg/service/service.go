package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/shopspring/decimal"

	"github.com/SantiagoGigli/transfer-service/pkg/fx"
	"github.com/SantiagoGigli/transfer-service/pkg/repository"
)

var (
	// ErrMissingAccountFrom error fired when the source account id is absent
	ErrMissingAccountFrom = errors.New("Missing accountFrom")

	// ErrMissingAccountTo error fired when the destination account id is absent
	ErrMissingAccountTo = errors.New("Missing accountTo")

	// ErrMissingAmount error fired when the amount is absent or not positive
	ErrMissingAmount = errors.New("Missing amount")

	// ErrMissingDescription error fired when the description is absent
	ErrMissingDescription = errors.New("Missing description")

	// ErrSameAccount error fired when source and destination accounts match
	ErrSameAccount = errors.New("Cannot transfer to the same account")

	// ErrInsufficientFunds error fired when not enough money for transfer
	ErrInsufficientFunds = errors.New("Not enough funds")

	// ErrConversionFailed error fired when the currency conversion is
	// unavailable and fallback is disabled
	ErrConversionFailed = errors.New("Currency conversion failed")

	// ErrTransferFailed error fired when the store fails to settle the transfer
	ErrTransferFailed = errors.New("Transfer failed")
)

// feeDivisor: different-owner transfers pay a 1% fee on the credited amount.
var feeDivisor = decimal.NewFromInt(100)

// Service settles transfers between bank accounts and aggregates the weekly
// internal/external transfer report.
type Service interface {
	HealthCheck(context.Context) (bool, error)
	Transfer(ctx context.Context, accountFrom, accountTo string, amount decimal.Decimal, description string) (*repository.Transfer, error)
	Report(ctx context.Context, from, to *time.Time) (Report, error)
}

// Config carries the behavior switches of the transfer service.
type Config struct {
	// FallbackOnConversionError keeps the legacy behavior of settling with
	// the unconverted amount when the rate provider fails. Off by default:
	// settlement aborts with ErrConversionFailed.
	FallbackOnConversionError bool
}

// New returns a transfer Service with all of the expected middlewares wired in.
func New(repository repository.Repository, converter fx.Converter, cfg Config, logger log.Logger) Service {
	var svc Service
	{
		svc = NewTransferService(repository, converter, cfg, logger)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

// NewTransferService returns a naïve, stateless implementation of Service.
func NewTransferService(repository repository.Repository, converter fx.Converter, cfg Config, logger log.Logger) Service {
	return transferService{
		repository: repository,
		converter:  converter,
		cfg:        cfg,
		logger:     logger,
	}
}

type transferService struct {
	repository repository.Repository
	converter  fx.Converter
	cfg        Config
	logger     log.Logger
}

// HealthCheck implements Service.
func (ts transferService) HealthCheck(_ context.Context) (bool, error) {
	return true, nil
}

// Transfer implements Service. It validates the request, converts the amount
// when the account currencies differ, and settles debit, credit and transfer
// record as one repository transaction.
func (ts transferService) Transfer(ctx context.Context, accountFrom, accountTo string, amount decimal.Decimal, description string) (transferOut *repository.Transfer, err error) {
	switch {
	case accountFrom == "":
		return nil, ErrMissingAccountFrom
	case accountTo == "":
		return nil, ErrMissingAccountTo
	case amount.LessThanOrEqual(decimal.Zero):
		return nil, ErrMissingAmount
	case description == "":
		return nil, ErrMissingDescription
	}

	if accountFrom == accountTo {
		return nil, ErrSameAccount
	}

	txn, err := ts.repository.Begin(ctx)
	if err != nil { // failed to start txn
		return nil, ErrTransferFailed
	}
	defer func() {
		if err != nil {
			_ = txn.Rollback()
		}
	}()

	// lock rows in id order to avoid deadlock between concurrent settlements
	var fromAccount, toAccount *repository.BankAccount
	if accountFrom > accountTo {
		toAccount, fromAccount, err = ts.repository.GetAndLockTwoAccounts(ctx, txn, accountTo, accountFrom)
	} else {
		fromAccount, toAccount, err = ts.repository.GetAndLockTwoAccounts(ctx, txn, accountFrom, accountTo)
	}
	if err != nil { // record not found or failed to lock
		return nil, err
	}

	if fromAccount.Amount.LessThan(amount) { // check enough money for transfer
		return nil, ErrInsufficientFunds
	}

	fromOwner, err := ts.repository.FindAccountOwner(ctx, accountFrom)
	if err != nil {
		return nil, err
	}
	toOwner, err := ts.repository.FindAccountOwner(ctx, accountTo)
	if err != nil {
		return nil, err
	}
	isSameOwner := fromOwner.ID == toOwner.ID

	finalAmount := amount
	if fromAccount.Currency != toAccount.Currency {
		conversion, convErr := ts.converter.Convert(ctx, fromAccount.Currency, toAccount.Currency, amount)
		if convErr != nil {
			if !ts.cfg.FallbackOnConversionError {
				return nil, ErrConversionFailed
			}
			_ = level.Warn(ts.logger).Log("method", "Transfer", "msg", "conversion unavailable, settling with original amount", "err", convErr)
		} else {
			finalAmount = conversion.Result
		}
	}

	// fee stays in destination-currency units: 1% of the converted amount
	credited := finalAmount
	if !isSameOwner {
		credited = finalAmount.Sub(finalAmount.Div(feeDivisor))
	}

	err = ts.repository.UpdateBalance(ctx, txn, accountFrom, fromAccount.Amount.Sub(amount))
	if err != nil {
		return nil, ErrTransferFailed
	}

	err = ts.repository.UpdateBalance(ctx, txn, accountTo, toAccount.Amount.Add(credited))
	if err != nil {
		return nil, ErrTransferFailed
	}

	transferOut = &repository.Transfer{
		UserID:      fromOwner.ID,
		AccountFrom: accountFrom,
		AccountTo:   accountTo,
		Amount:      credited,
		Description: description,
	}
	err = ts.repository.InsertTransfer(ctx, txn, transferOut)
	if err != nil {
		return nil, ErrTransferFailed
	}

	err = txn.Commit()
	if err != nil {
		return nil, ErrTransferFailed
	}

	return transferOut, nil
}
