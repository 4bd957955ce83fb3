package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/invoicer/internal/types"
	"gorm.io/gorm"
)

type mockTxKey struct{}

type mockTx struct {
	afterCommit []func()
}

// MockPostgresClient implements postgres.IClient for services backed by the
// in-memory stores. Transactions run fn directly and locks are recorded.
type MockPostgresClient struct {
	mu       sync.Mutex
	txCount  int
	lockKeys []string
}

func NewMockPostgresClient() *MockPostgresClient {
	return &MockPostgresClient{}
}

func (c *MockPostgresClient) DB(_ context.Context) *gorm.DB {
	return nil
}

func (c *MockPostgresClient) TxFromContext(_ context.Context) *gorm.DB {
	return nil
}

func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(mockTxKey{}).(*mockTx); ok {
		return fn(ctx)
	}

	c.mu.Lock()
	c.txCount++
	c.mu.Unlock()

	tx := &mockTx{}
	if err := fn(context.WithValue(ctx, mockTxKey{}, tx)); err != nil {
		return err
	}
	for _, hook := range tx.afterCommit {
		hook()
	}
	return nil
}

// AfterCommit runs fn once the surrounding transaction succeeds, or right
// away outside one. Hooks are dropped when fn returns an error.
func (c *MockPostgresClient) AfterCommit(ctx context.Context, fn func()) {
	tx, ok := ctx.Value(mockTxKey{}).(*mockTx)
	if !ok {
		fn()
		return
	}
	tx.afterCommit = append(tx.afterCommit, fn)
}

func (c *MockPostgresClient) LockKey(_ context.Context, req types.LockRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lockKeys = append(c.lockKeys, req.Key)
	return nil
}

// TxCount returns how many transactions were started
func (c *MockPostgresClient) TxCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txCount
}

func (c *MockPostgresClient) LockKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lockKeys...)
}
