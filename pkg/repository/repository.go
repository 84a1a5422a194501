package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// QueryLockAccount locks one account for update and joins its currency name.
	// NO KEY UPDATE keeps inserts referencing the row unblocked.
	QueryLockAccount = "SELECT ba.id, ba.user_id, ba.amount, ba.currency_id, c.name " +
		"FROM bank_account ba JOIN currency c ON c.id = ba.currency_id " +
		"WHERE ba.id = $1 FOR NO KEY UPDATE OF ba"

	// QueryAccountOwner resolves the user owning a bank account.
	QueryAccountOwner = "SELECT u.id, u.name, u.email, u.created_at, u.updated_at " +
		"FROM users u JOIN bank_account ba ON ba.user_id = u.id WHERE ba.id = $1"

	// QueryUpdateBalance sets a new balance on an account.
	QueryUpdateBalance = "UPDATE bank_account SET amount = $1, updated_at = $2 WHERE id = $3"

	// QueryInsertTransfer inserts one settled transfer.
	QueryInsertTransfer = "INSERT INTO transfer(id, user_id, account_from, account_to, amount, description, created_at, updated_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8)"

	// QueryTransfers is the report feed base query; date bounds are appended.
	QueryTransfers = "SELECT t.id, t.user_id, u.email, t.account_to, dest.user_id, t.created_at " +
		"FROM transfer t " +
		"JOIN users u ON u.id = t.user_id " +
		"JOIN bank_account dest ON dest.id = t.account_to"

	// ErrAccountNotFound error fired when one of the requested accounts does not exist
	ErrAccountNotFound = errors.New("Accounts not found")

	// ErrUserNotFound error fired when the owner of an account does not exist
	ErrUserNotFound = errors.New("User not found")
)

// DBTransaction abstracts a database transaction so that the settlement
// writes can be faked by the inmem repository.
type DBTransaction interface {
	Commit() error
	Rollback() error
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository provides access to users, bank accounts, currencies and
// transfers. The debit/credit/insert triple of a settlement runs inside one
// DBTransaction and commits or rolls back as a unit.
type Repository interface {
	Begin(ctx context.Context) (DBTransaction, error)
	GetAndLockTwoAccounts(ctx context.Context, txn DBTransaction, accountID1, accountID2 string) (*BankAccount, *BankAccount, error)
	FindAccountOwner(ctx context.Context, accountID string) (*User, error)
	UpdateBalance(ctx context.Context, txn DBTransaction, accountID string, balance decimal.Decimal) error
	InsertTransfer(ctx context.Context, txn DBTransaction, transfer *Transfer) error
	FindTransfers(ctx context.Context, from, to *time.Time) ([]*TransferReportRow, error)
}

// New returns a transfer Repository backed by Postgres.
func New(db *sql.DB, logger log.Logger) Repository {
	return repository{
		db:     db,
		logger: log.With(logger, "repository", "transfersdb"),
	}
}

type repository struct {
	db     *sql.DB
	logger log.Logger
}

// Begin starts a database transaction.
func (r repository) Begin(ctx context.Context) (DBTransaction, error) {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		_ = level.Error(r.logger).Log("method", "Begin", "err", err)
		return nil, err
	}
	return txn, nil
}

// GetAndLockTwoAccounts loads both accounts with their currency names and
// locks them in the order given. Callers pass ids in a deterministic order to
// avoid deadlocks between concurrent settlements.
func (r repository) GetAndLockTwoAccounts(ctx context.Context, txn DBTransaction, accountID1, accountID2 string) (acc1, acc2 *BankAccount, err error) {
	acc1, err = r.lockAccount(ctx, txn, accountID1)
	if err != nil {
		return nil, nil, err
	}
	acc2, err = r.lockAccount(ctx, txn, accountID2)
	if err != nil {
		return nil, nil, err
	}
	return acc1, acc2, nil
}

func (r repository) lockAccount(ctx context.Context, txn DBTransaction, accountID string) (*BankAccount, error) {
	account := &BankAccount{}
	row := txn.QueryRowContext(ctx, QueryLockAccount, accountID)
	err := row.Scan(&account.ID, &account.UserID, &account.Amount, &account.CurrencyID, &account.Currency)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		_ = level.Error(r.logger).Log("method", "lockAccount", "account", accountID, "err", err)
		return nil, err
	}
	return account, nil
}

// FindAccountOwner returns the user owning the given bank account.
func (r repository) FindAccountOwner(ctx context.Context, accountID string) (*User, error) {
	user := &User{}
	row := r.db.QueryRowContext(ctx, QueryAccountOwner, accountID)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		_ = level.Error(r.logger).Log("method", "FindAccountOwner", "account", accountID, "err", err)
		return nil, err
	}
	return user, nil
}

// UpdateBalance sets a new balance for an account inside the transaction.
func (r repository) UpdateBalance(ctx context.Context, txn DBTransaction, accountID string, balance decimal.Decimal) error {
	_, err := txn.ExecContext(ctx, QueryUpdateBalance, balance, time.Now().UTC(), accountID)
	if err != nil {
		_ = level.Error(r.logger).Log("method", "UpdateBalance", "account", accountID, "err", err)
	}
	return err
}

// InsertTransfer persists one settled transfer inside the transaction,
// assigning id and timestamps on the way in.
func (r repository) InsertTransfer(ctx context.Context, txn DBTransaction, transfer *Transfer) error {
	now := time.Now().UTC()
	transfer.ID = uuid.NewString()
	transfer.CreatedAt = now
	transfer.UpdatedAt = now
	_, err := txn.ExecContext(ctx, QueryInsertTransfer,
		transfer.ID, transfer.UserID, transfer.AccountFrom, transfer.AccountTo,
		transfer.Amount, transfer.Description, transfer.CreatedAt, transfer.UpdatedAt)
	if err != nil {
		_ = level.Error(r.logger).Log("method", "InsertTransfer", "err", err)
	}
	return err
}

// FindTransfers returns the report rows for transfers created inside the
// inclusive [from, to] window. Either bound may be nil.
func (r repository) FindTransfers(ctx context.Context, from, to *time.Time) ([]*TransferReportRow, error) {
	query := QueryTransfers
	args := make([]interface{}, 0, 2)
	conds := make([]string, 0, 2)
	if from != nil {
		args = append(args, *from)
		conds = append(conds, "t.created_at >= $"+strconv.Itoa(len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conds = append(conds, "t.created_at <= $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.created_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		_ = level.Error(r.logger).Log("method", "FindTransfers", "err", err)
		return nil, err
	}
	defer rows.Close()

	var transfers = make([]*TransferReportRow, 0)
	for rows.Next() {
		row := &TransferReportRow{}
		err := rows.Scan(&row.TransferID, &row.UserID, &row.Email, &row.AccountTo, &row.DestOwnerID, &row.CreatedAt)
		if err != nil {
			_ = level.Error(r.logger).Log("method", "FindTransfers", "err", err)
			return nil, err
		}
		transfers = append(transfers, row)
	}
	if err = rows.Err(); err != nil {
		_ = level.Error(r.logger).Log("method", "FindTransfers", "err", err)
		return nil, err
	}
	return transfers, nil
}
