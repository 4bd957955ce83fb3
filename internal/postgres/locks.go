package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/flexprice/invoicer/internal/types"
	"github.com/lib/pq"
)

// LockKey acquires a transaction scoped advisory lock on req.Key, released
// on commit or rollback. Must be called inside WithTx. Dialects without
// advisory locks (sqlite in tests) take no lock.
func (c *Client) LockKey(ctx context.Context, req types.LockRequest) error {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("LockKey must be called inside transaction")
	}
	if tx.Dialector.Name() != "postgres" {
		return nil
	}

	timeout := req.GetTimeout()
	if timeout <= 0 {
		ok, err := c.TryLockKey(ctx, req.Key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("lock already held (timeout: 0ms)")
		}
		return nil
	}

	// SET LOCAL does not take bind parameters
	if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = %d", timeout.Milliseconds())).Error; err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}

	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", req.Key).Error; err != nil {
		if isLockTimeoutError(err) {
			return fmt.Errorf("failed to acquire lock within %v: %w", timeout, err)
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	return nil
}

// TryLockKey tries to take the lock without waiting. ok is false when the
// lock is held elsewhere.
func (c *Client) TryLockKey(ctx context.Context, key string) (bool, error) {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return false, fmt.Errorf("TryLockKey must be called inside transaction")
	}
	if tx.Dialector.Name() != "postgres" {
		return true, nil
	}

	var ok bool
	if err := tx.Raw("SELECT pg_try_advisory_xact_lock(hashtext(?))", key).Scan(&ok).Error; err != nil {
		return false, err
	}
	return ok, nil
}

// 55P03 is lock_not_available, raised when lock_timeout expires
func isLockTimeoutError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "55P03"
	}
	return false
}
