package repository

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"
)

const commitRetryMaxElapsed = 5 * time.Second

func newCommitRetryBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = commitRetryMaxElapsed
	return bo
}

// isWriteConflict reports whether an error is a transient commit conflict
// worth retrying: postgres serialization/deadlock failures and sqlite busy
// locks.
func isWriteConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "could not serialize access") {
		return true
	}
	if strings.Contains(errStr, "deadlock detected") {
		return true
	}
	if strings.Contains(errStr, "database is locked") {
		return true
	}
	if strings.Contains(errStr, "database table is locked") {
		return true
	}
	return false
}

// RunInTransaction executes fn inside a database transaction, retrying the
// whole transaction with exponential backoff when the commit loses a write
// conflict. Non-conflict errors stop the retry loop immediately. The caller
// sees either nil or the final error; exhaustion surfaces the last conflict.
func RunInTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	bo := newCommitRetryBackoff()
	return backoff.Retry(func() error {
		err := db.WithContext(ctx).Transaction(fn)
		if err != nil && isWriteConflict(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}
