package inmem

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SantiagoGigli/transfer-service/pkg/repository"
)

// NewInmem returns an in-memory transfer Repository.
func NewInmem() repository.Repository {
	return &RepositoryInmem{
		Users:      make([]*repository.User, 0),
		Accounts:   make([]*repository.BankAccount, 0),
		Currencies: make([]*repository.Currency, 0),
		Transfers:  make([]*repository.Transfer, 0),
		acMutex:    new(sync.RWMutex),
		txMutex:    new(sync.RWMutex),
	}
}

type RepositoryInmem struct {
	Users      []*repository.User
	Accounts   []*repository.BankAccount
	Currencies []*repository.Currency
	Transfers  []*repository.Transfer
	acMutex    *sync.RWMutex
	txMutex    *sync.RWMutex
}

type fakeDBTransaction struct{}

func (fdbt fakeDBTransaction) Commit() error {
	return nil
}

func (fdbt fakeDBTransaction) Rollback() error {
	return nil
}

func (fdbt fakeDBTransaction) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (fdbt fakeDBTransaction) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

// Begin - start transaction
func (ir *RepositoryInmem) Begin(ctx context.Context) (repository.DBTransaction, error) {
	return fakeDBTransaction{}, nil
}

// GetAndLockTwoAccounts - get 2 accounts from the store with their currency
// names resolved. Returns snapshots so the store is never written under a
// read lock.
func (ir *RepositoryInmem) GetAndLockTwoAccounts(ctx context.Context, txn repository.DBTransaction, accountID1, accountID2 string) (acc1, acc2 *repository.BankAccount, err error) {
	acc1 = ir.snapshotAccount(accountID1)
	if acc1 == nil {
		return nil, nil, repository.ErrAccountNotFound
	}
	acc2 = ir.snapshotAccount(accountID2)
	if acc2 == nil {
		return nil, nil, repository.ErrAccountNotFound
	}
	return acc1, acc2, nil
}

func (ir *RepositoryInmem) snapshotAccount(accountID string) *repository.BankAccount {
	ir.acMutex.RLock()
	defer ir.acMutex.RUnlock()
	for _, acc := range ir.Accounts {
		if acc.ID == accountID {
			snapshot := *acc
			if snapshot.Currency == "" {
				snapshot.Currency = ir.currencyName(acc.CurrencyID)
			}
			return &snapshot
		}
	}
	return nil
}

func (ir *RepositoryInmem) getAccount(accountID string) *repository.BankAccount {
	ir.acMutex.RLock()
	defer ir.acMutex.RUnlock()
	for _, acc := range ir.Accounts {
		if acc.ID == accountID {
			return acc
		}
	}
	return nil
}

func (ir *RepositoryInmem) currencyName(currencyID string) string {
	for _, c := range ir.Currencies {
		if c.ID == currencyID {
			return c.Name
		}
	}
	return ""
}

// FindAccountOwner - find the user owning an account
func (ir *RepositoryInmem) FindAccountOwner(ctx context.Context, accountID string) (*repository.User, error) {
	account := ir.getAccount(accountID)
	if account == nil {
		return nil, repository.ErrAccountNotFound
	}
	ir.acMutex.RLock()
	defer ir.acMutex.RUnlock()
	for _, user := range ir.Users {
		if user.ID == account.UserID {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// UpdateBalance - set new balance for account
func (ir *RepositoryInmem) UpdateBalance(ctx context.Context, txn repository.DBTransaction, accountID string, balance decimal.Decimal) error {
	account := ir.getAccount(accountID)
	ir.acMutex.Lock()
	defer ir.acMutex.Unlock()
	if account != nil {
		account.Amount = balance
		account.UpdatedAt = time.Now().UTC()
		return nil
	}
	return sql.ErrNoRows
}

// InsertTransfer - append a settled transfer to the store
func (ir *RepositoryInmem) InsertTransfer(ctx context.Context, txn repository.DBTransaction, transfer *repository.Transfer) error {
	ir.txMutex.Lock()
	defer ir.txMutex.Unlock()
	now := time.Now().UTC()
	transfer.ID = uuid.NewString()
	transfer.CreatedAt = now
	transfer.UpdatedAt = now
	ir.Transfers = append(ir.Transfers, transfer)
	return nil
}

// FindTransfers - report rows for transfers inside the inclusive date window
func (ir *RepositoryInmem) FindTransfers(ctx context.Context, from, to *time.Time) ([]*repository.TransferReportRow, error) {
	ir.txMutex.RLock()
	defer ir.txMutex.RUnlock()
	rows := make([]*repository.TransferReportRow, 0)
	for _, transfer := range ir.Transfers {
		if from != nil && transfer.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && transfer.CreatedAt.After(*to) {
			continue
		}
		row := &repository.TransferReportRow{
			TransferID: transfer.ID,
			UserID:     transfer.UserID,
			AccountTo:  transfer.AccountTo,
			CreatedAt:  transfer.CreatedAt,
		}
		for _, user := range ir.Users {
			if user.ID == transfer.UserID {
				row.Email = user.Email
			}
		}
		if dest := ir.getAccount(transfer.AccountTo); dest != nil {
			row.DestOwnerID = dest.UserID
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FlushStore - reset store (flush/purge all data)
func (ir *RepositoryInmem) FlushStore() {
	ir.acMutex.Lock()
	ir.txMutex.Lock()
	defer func() {
		ir.acMutex.Unlock()
		ir.txMutex.Unlock()
	}()
	ir.Users = ir.Users[:0]
	ir.Accounts = ir.Accounts[:0]
	ir.Currencies = ir.Currencies[:0]
	ir.Transfers = ir.Transfers[:0]
}

// InsertUser - inserts user into store
func (ir *RepositoryInmem) InsertUser(user *repository.User) {
	ir.acMutex.Lock()
	defer ir.acMutex.Unlock()
	ir.Users = append(ir.Users, user)
}

// InsertAccount - inserts account into store
func (ir *RepositoryInmem) InsertAccount(account *repository.BankAccount) {
	ir.acMutex.Lock()
	defer ir.acMutex.Unlock()
	ir.Accounts = append(ir.Accounts, account)
}

// InsertCurrency - inserts currency into store
func (ir *RepositoryInmem) InsertCurrency(currency *repository.Currency) {
	ir.acMutex.Lock()
	defer ir.acMutex.Unlock()
	ir.Currencies = append(ir.Currencies, currency)
}
