package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/sealcard-backend/pkg/config"
	"github.com/angelmondragon/sealcard-backend/pkg/logger"
)

type widget struct {
	ID   int
	Code string `gorm:"uniqueIndex"`
}

func openSQLite(t *testing.T) *Client {
	t.Helper()
	cfg := config.DBConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	client, err := New(context.Background(), cfg, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&widget{}))
	return client
}

func countWidgets(t *testing.T, c *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, c.DB().Model(&widget{}).Count(&n).Error)
	return n
}

func TestNewOpensAndPings(t *testing.T) {
	client := openSQLite(t)
	require.NoError(t, client.Ping(context.Background()))
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: "sqlite"}, nil)
	require.Error(t, err)
}

func TestWithTxOutcomes(t *testing.T) {
	client := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&widget{Code: "kept"}).Error
	}))
	require.EqualValues(t, 1, countWidgets(t, client))

	rollback := errors.New("rollback")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&widget{Code: "dropped"}).Error)
		return rollback
	})
	require.ErrorIs(t, err, rollback)
	require.EqualValues(t, 1, countWidgets(t, client))

	require.Panics(t, func() {
		_ = client.WithTx(ctx, func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&widget{Code: "panicked"}).Error)
			panic("boom")
		})
	})
	require.EqualValues(t, 1, countWidgets(t, client))
}

func TestIsUniqueViolationOnSQLite(t *testing.T) {
	client := openSQLite(t)
	require.NoError(t, client.DB().Create(&widget{Code: "ABCD"}).Error)

	err := client.DB().Create(&widget{Code: "ABCD"}).Error
	require.True(t, IsUniqueViolation(err, ""))
	require.True(t, IsUniqueViolation(err, "widgets.code"))
	require.False(t, IsUniqueViolation(err, "widgets.id"))
	require.False(t, IsUniqueViolation(errors.New("boom"), ""))
	require.False(t, IsUniqueViolation(nil, ""))
}

func TestDialectorFor(t *testing.T) {
	cases := map[string]bool{
		"":         true,
		"postgres": true,
		"sqlite":   true,
		"mysql":    false,
	}
	for driver, ok := range cases {
		_, err := dialectorFor(config.DBConfig{Driver: driver, DSN: "file::memory:"})
		require.Equal(t, ok, err == nil, "driver %q", driver)
	}
}
