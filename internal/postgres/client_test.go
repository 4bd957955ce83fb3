package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type counter struct {
	ID    string `gorm:"primaryKey"`
	Value int
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&counter{}))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return &Client{db: db, log: logger.NewNopLogger()}
}

func TestWithTx_CommitsAndRollsBack(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	err := c.WithTx(ctx, func(ctx context.Context) error {
		require.NotNil(t, c.TxFromContext(ctx))
		return c.DB(ctx).Create(&counter{ID: "a", Value: 1}).Error
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = c.WithTx(ctx, func(ctx context.Context) error {
		if err := c.DB(ctx).Create(&counter{ID: "b", Value: 2}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, c.DB(ctx).Model(&counter{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	err := c.WithTx(ctx, func(outer context.Context) error {
		return c.WithTx(outer, func(inner context.Context) error {
			assert.Same(t, c.TxFromContext(outer), c.TxFromContext(inner))
			return nil
		})
	})
	require.NoError(t, err)
}

func TestLockKey(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	assert.Error(t, c.LockKey(ctx, types.LockRequest{Key: "k"}))

	err := c.WithTx(ctx, func(ctx context.Context) error {
		return c.LockKey(ctx, types.LockRequest{Key: "k"})
	})
	assert.NoError(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.DB(ctx).Create(&counter{ID: "dup"}).Error)
	err := c.DB(ctx).Create(&counter{ID: "dup"}).Error
	assert.True(t, IsUniqueViolation(err))

	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(nil))
}
