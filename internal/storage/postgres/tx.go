package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/avstrong/hotel/internal/domain"
)

var (
	ErrTransactionNotFoundInCtx = errors.New("no transaction found in ctx")
	ErrUnknownIsolationLevel    = errors.New("unknown isolation level")
)

type contextKey string

const transactionKey contextKey = "postgresTransaction"

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isolationLevel(level string) (sql.IsolationLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "":
		return sql.LevelDefault, nil
	case "READ UNCOMMITTED":
		return sql.LevelReadUncommitted, nil
	case "READ COMMITTED":
		return sql.LevelReadCommitted, nil
	case "REPEATABLE READ":
		return sql.LevelRepeatableRead, nil
	case "SERIALIZABLE":
		return sql.LevelSerializable, nil
	default:
		return sql.LevelDefault, fmt.Errorf("%w: %q", ErrUnknownIsolationLevel, level)
	}
}

func (db *DB) BeginTransaction(ctx context.Context, level string) (context.Context, error) {
	isolation, err := isolationLevel(level)
	if err != nil {
		return ctx, err
	}

	//nolint:exhaustruct
	tx, err := db.db.BeginTx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return ctx, fmt.Errorf("begin postgres transaction: %w", err)
	}

	return context.WithValue(ctx, transactionKey, tx), nil
}

func (db *DB) CommitTransaction(ctx context.Context) error {
	tx, err := transaction(ctx)
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit postgres transaction: %w", err)
	}

	return nil
}

func (db *DB) RollbackTransaction(ctx context.Context) error {
	tx, err := transaction(ctx)
	if err != nil {
		return err
	}

	if err = tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback postgres transaction: %w", err)
	}

	db.l.LogDebug("Postgres transaction has been roll backed")

	return nil
}

func (db *DB) LockRoom(ctx context.Context, roomID string) error {
	return db.lockRow(ctx, `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`, roomID)
}

func (db *DB) LockBooking(ctx context.Context, bookingID string) error {
	return db.lockRow(ctx, `SELECT id FROM bookings WHERE id = $1 FOR UPDATE`, bookingID)
}

func (db *DB) LockPromo(ctx context.Context, code string) error {
	return db.lockRow(ctx, `SELECT code FROM promo_codes WHERE code = $1 FOR UPDATE`, domain.NormalizeCode(code))
}

// lockRow takes a row lock held until the transaction ends. A missing row is not
// an error here, the following read reports it.
func (db *DB) lockRow(ctx context.Context, query, key string) error {
	tx, err := transaction(ctx)
	if err != nil {
		return err
	}

	var id string

	err = tx.QueryRowContext(ctx, query, key).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lock row %s: %w", key, err)
	}

	return nil
}

func transaction(ctx context.Context) (*sql.Tx, error) {
	tx, ok := ctx.Value(transactionKey).(*sql.Tx)
	if !ok || tx == nil {
		return nil, ErrTransactionNotFoundInCtx
	}

	return tx, nil
}

// conn returns the transaction in ctx for reads that may run inside or outside one.
func (db *DB) conn(ctx context.Context) querier {
	if tx, err := transaction(ctx); err == nil {
		return tx
	}

	return db.db
}
