package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:dbclient_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testModel{}))
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	conn := newTestDB(t)
	client := NewFromConn(conn)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}))

	var count int64
	require.NoError(t, conn.Model(&testModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	require.NoError(t, conn.Model(&testModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	conn := newTestDB(t)
	client := NewFromConn(conn)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicked"}).Error; err != nil {
				return err
			}
			panic("ledger write exploded")
		})
	})

	var count int64
	require.NoError(t, conn.Model(&testModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIsUniqueViolation(t *testing.T) {
	conn := newTestDB(t)
	require.NoError(t, conn.Create(&testModel{Name: "dup"}).Error)
	err := conn.Create(&testModel{Name: "dup"}).Error
	require.Error(t, err)

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "test_models.name"))
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestPingAndDriver(t *testing.T) {
	client := NewFromConn(newTestDB(t))
	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "sqlite", client.Driver())
}
