package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/avstrong/hotel/internal/domain"
)

var (
	ErrTransactionIDNotFoundInCtx = errors.New("no transaction id found in ctx")
	ErrTransactionNotFound        = errors.New("transaction not found")
)

type contextKey string

const transactionKey contextKey = "memoryTransactionID"

func withTransactionID(ctx context.Context, trxID string) context.Context {
	return context.WithValue(ctx, transactionKey, trxID)
}

func transactionIDFromContext(ctx context.Context) (string, bool) {
	trxID, ok := ctx.Value(transactionKey).(string)

	return trxID, ok
}

type transaction struct {
	id                    string
	roomModifications     map[string]*domain.Room
	accountModifications  map[string]*domain.Account
	bookingModifications  map[string]*domain.Booking
	promoModifications    map[string]*domain.PromoCode
	idempotencyKeyUpdates map[string]string
	locks                 map[string]chan struct{}
}

// BeginTransaction ignores the isolation level: locks taken with LockRoom and
// LockPromo are what serializes writers here.
func (db *DB) BeginTransaction(ctx context.Context, _ string) (context.Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	trxID := fmt.Sprintf("trx-%d", db.nextTrxID)
	db.nextTrxID++

	db.transactions[trxID] = &transaction{
		id:                    trxID,
		roomModifications:     make(map[string]*domain.Room),
		accountModifications:  make(map[string]*domain.Account),
		bookingModifications:  make(map[string]*domain.Booking),
		promoModifications:    make(map[string]*domain.PromoCode),
		idempotencyKeyUpdates: make(map[string]string),
		locks:                 make(map[string]chan struct{}),
	}

	return withTransactionID(ctx, trxID), nil
}

func (db *DB) CommitTransaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	for id, room := range trx.roomModifications {
		db.rooms[id] = room
	}

	for id, account := range trx.accountModifications {
		db.accounts[id] = account
	}

	for code, promo := range trx.promoModifications {
		db.promos[code] = promo
	}

	for id, b := range trx.bookingModifications {
		db.bookings[id] = b
	}

	for key, bookingID := range trx.idempotencyKeyUpdates {
		db.idempotencyKeys[key] = bookingID
	}

	db.finish(trx)

	return nil
}

func (db *DB) RollbackTransaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.transaction(ctx)
	if err != nil {
		return err
	}

	db.finish(trx)
	db.l.LogDebug("Transaction %s has been roll backed", trx.id)

	return nil
}

// finish releases the transaction's locks. Caller holds db.mu.
func (db *DB) finish(trx *transaction) {
	for _, sem := range trx.locks {
		<-sem
	}

	delete(db.transactions, trx.id)
}

func (db *DB) LockRoom(ctx context.Context, roomID string) error {
	return db.lock(ctx, "room:"+roomID)
}

func (db *DB) LockBooking(ctx context.Context, bookingID string) error {
	return db.lock(ctx, "booking:"+bookingID)
}

func (db *DB) LockPromo(ctx context.Context, code string) error {
	return db.lock(ctx, "promo:"+domain.NormalizeCode(code))
}

// lock blocks until the key is free or ctx is done. The lock belongs to the
// transaction in ctx and is released when it commits or rolls back.
func (db *DB) lock(ctx context.Context, key string) error {
	db.mu.Lock()

	trx, err := db.transaction(ctx)
	if err != nil {
		db.mu.Unlock()

		return err
	}

	if _, held := trx.locks[key]; held {
		db.mu.Unlock()

		return nil
	}

	sem, ok := db.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		db.locks[key] = sem
	}

	db.mu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
	}

	db.mu.Lock()
	trx.locks[key] = sem
	db.mu.Unlock()

	return nil
}

// transaction resolves the transaction carried by ctx. Caller holds db.mu.
func (db *DB) transaction(ctx context.Context) (*transaction, error) {
	trxID, ok := transactionIDFromContext(ctx)
	if !ok || trxID == "" {
		return nil, ErrTransactionIDNotFoundInCtx
	}

	trx, exists := db.transactions[trxID]
	if !exists {
		return nil, fmt.Errorf("transaction %s not found: %w", trxID, ErrTransactionNotFound)
	}

	return trx, nil
}

// optionalTransaction is transaction for read paths that also work outside one.
func (db *DB) optionalTransaction(ctx context.Context) *transaction {
	trx, err := db.transaction(ctx)
	if err != nil {
		return nil
	}

	return trx
}
