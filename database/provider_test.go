package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/edusms/config"
	"github.com/tech-arch1tect/edusms/services/logging"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testRecord struct {
	ID    uint   `gorm:"primaryKey"`
	Email string `gorm:"uniqueIndex;size:255"`
}

func sqliteConfig() config.DatabaseConfig {
	return config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", AutoMigrate: true, LogLevel: "warn"}
}

func TestOpen(t *testing.T) {
	t.Run("sqlite in memory", func(t *testing.T) {
		db, err := Open(sqliteConfig(), nil)
		require.NoError(t, err)

		sqlDB, err := db.DB()
		require.NoError(t, err)
		defer sqlDB.Close()
		assert.NoError(t, sqlDB.Ping())
		assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	})

	t.Run("unsupported driver", func(t *testing.T) {
		db, err := Open(config.DatabaseConfig{Driver: "oracle"}, nil)
		assert.Nil(t, db)
		assert.ErrorContains(t, err, "unsupported database driver")
	})
}

func TestOpen_TranslatesDuplicateKeys(t *testing.T) {
	db, err := Open(sqliteConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(db, &testRecord{}))

	require.NoError(t, db.Create(&testRecord{Email: "dara@school.test"}).Error)
	err = db.Create(&testRecord{Email: "dara@school.test"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestProvideDatabase(t *testing.T) {
	var db *gorm.DB
	app := fxtest.New(t,
		Module,
		fx.Supply(&config.Config{Database: sqliteConfig()}),
		fx.Supply(WithModels(&testRecord{})),
		fx.Provide(func() *logging.Service { return logging.NewWithLogger(zap.NewNop()) }),
		fx.Populate(&db),
	)
	app.RequireStart()

	assert.True(t, db.Migrator().HasTable(&testRecord{}))
	app.RequireStop()

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}

func TestModelsOption(t *testing.T) {
	var nilOpt *ModelsOption
	assert.Empty(t, nilOpt.Models())
	assert.Len(t, WithModels(&testRecord{}, &testRecord{}).Models(), 2)
}

func TestGormLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := newGormLogger(logging.NewWithLogger(zap.New(core)), "warn", 10*time.Millisecond)
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	l.Trace(ctx, time.Now(), sql, nil)
	assert.Equal(t, 0, logs.Len())

	l.Trace(ctx, time.Now(), sql, assert.AnError)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "query failed", logs.All()[0].Message)

	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "slow query", logs.All()[1].Message)

	l.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), sql, assert.AnError)
	assert.Equal(t, 2, logs.Len())
}
