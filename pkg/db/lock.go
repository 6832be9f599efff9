package db

import (
	"context"

	"gorm.io/gorm"
)

// AdvisoryLock acquires a named, transaction-scoped advisory lock. Two
// transactions requesting the same key serialize: the second blocks until the
// first commits or rolls back. The lock releases automatically with the
// enclosing transaction.
//
// Only postgres provides the primitive. On sqlite the call is a no-op; test
// databases run on a single connection, which already serializes writers.
func AdvisoryLock(ctx context.Context, tx *gorm.DB, key string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}
