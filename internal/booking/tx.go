package booking

import (
	"context"
	"fmt"
)

// Row locks taken inside the transaction serialize the writers, so read committed is enough.
const isolationLevel = "READ COMMITTED"

// withinTransaction runs fn in a storage transaction carried by the context it
// passes on. The transaction is committed when fn succeeds and rolled back when
// it fails or panics.
func (m *Manager) withinTransaction(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	ctx, err = m.storage.BeginTransaction(ctx, isolationLevel)
	if err != nil {
		return fmt.Errorf("begin %s transaction: %w", name, err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := m.storage.RollbackTransaction(ctx); rbErr != nil {
				m.l.LogErrorf("Could not rollback %s transaction after panic %v: %v", name, p, rbErr)
			}

			m.l.LogInfo("Transaction %s has been roll backed after panic", name)

			panic(p)
		}

		if err != nil {
			if rbErr := m.storage.RollbackTransaction(ctx); rbErr != nil {
				m.l.LogErrorf("Could not rollback %s transaction after error %v: %v", name, err, rbErr)
			}

			m.l.LogDebug("Transaction %s has been roll backed after error: %v", name, err)

			return
		}

		if err = m.storage.CommitTransaction(ctx); err != nil {
			m.l.LogErrorf("Could not commit %s transaction, err %v", name, err.Error())

			err = fmt.Errorf("commit %s transaction: %w", name, err)

			return
		}

		m.l.LogDebug("Transaction %s has been committed", name)
	}()

	return fn(ctx)
}
