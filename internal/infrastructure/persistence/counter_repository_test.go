package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MonthlyUsageCounterModelSQLite is a SQLite-compatible version of MonthlyUsageCounterModel for testing
type MonthlyUsageCounterModelSQLite struct {
	ID            string    `gorm:"primaryKey"`
	OwnerID       string    `gorm:"not null;uniqueIndex:idx_counter_owner_period"`
	PeriodStart   time.Time `gorm:"not null;uniqueIndex:idx_counter_owner_period"`
	Imports       int64     `gorm:"not null;default:0"`
	Translations  int64     `gorm:"not null;default:0"`
	Optimizations int64     `gorm:"not null;default:0"`
	AIMessages    int64     `gorm:"column:ai_messages;not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (MonthlyUsageCounterModelSQLite) TableName() string {
	return "monthly_usage_counters"
}

func setupCounterTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Auto-migrate the SQLite-compatible model
	err = db.AutoMigrate(&MonthlyUsageCounterModelSQLite{})
	require.NoError(t, err)

	return db
}

func TestGormCounterRepository_GetOrCreate(t *testing.T) {
	db := setupCounterTestDB(t)
	repo := NewGormCounterRepository(db)
	ctx := context.Background()

	t.Run("creates counter on first use", func(t *testing.T) {
		ownerID := uuid.New()
		midMonth := time.Date(2024, 3, 17, 14, 22, 0, 0, time.UTC)

		counter, err := repo.GetOrCreate(ctx, ownerID, midMonth)
		require.NoError(t, err)
		assert.Equal(t, ownerID, counter.OwnerID)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), counter.PeriodStart)
		assert.Zero(t, counter.Imports)
		assert.Zero(t, counter.AIMessages)
	})

	t.Run("returns the same row on repeated calls", func(t *testing.T) {
		ownerID := uuid.New()
		when := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)

		first, err := repo.GetOrCreate(ctx, ownerID, when)
		require.NoError(t, err)

		second, err := repo.GetOrCreate(ctx, ownerID, when.AddDate(0, 0, 20))
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		var count int64
		require.NoError(t, db.Model(&MonthlyUsageCounterModelSQLite{}).Where("owner_id = ?", ownerID.String()).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("creates separate rows per month", func(t *testing.T) {
		ownerID := uuid.New()

		march, err := repo.GetOrCreate(ctx, ownerID, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		april, err := repo.GetOrCreate(ctx, ownerID, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		assert.NotEqual(t, march.ID, april.ID)
	})

	t.Run("rejects nil owner", func(t *testing.T) {
		_, err := repo.GetOrCreate(ctx, uuid.Nil, time.Now())
		assert.Error(t, err)
	})
}

func TestGormCounterRepository_FindByOwnerAndPeriod(t *testing.T) {
	db := setupCounterTestDB(t)
	repo := NewGormCounterRepository(db)
	ctx := context.Background()

	t.Run("normalizes the period to the month start", func(t *testing.T) {
		ownerID := uuid.New()
		_, err := repo.GetOrCreate(ctx, ownerID, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		found, err := repo.FindByOwnerAndPeriod(ctx, ownerID, time.Date(2024, 6, 28, 23, 59, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), found.PeriodStart)
	})

	t.Run("returns not found for missing period", func(t *testing.T) {
		_, err := repo.FindByOwnerAndPeriod(ctx, uuid.New(), time.Now())
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormCounterRepository_Increment(t *testing.T) {
	db := setupCounterTestDB(t)
	repo := NewGormCounterRepository(db)
	ctx := context.Background()

	t.Run("increments each kind independently", func(t *testing.T) {
		ownerID := uuid.New()
		counter, err := repo.GetOrCreate(ctx, ownerID, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		require.NoError(t, repo.Increment(ctx, counter.ID, usage.ActionKindImport, 2))
		require.NoError(t, repo.Increment(ctx, counter.ID, usage.ActionKindImport, 1))
		require.NoError(t, repo.Increment(ctx, counter.ID, usage.ActionKindTranslation, 4))
		require.NoError(t, repo.Increment(ctx, counter.ID, usage.ActionKindOptimization, 5))
		require.NoError(t, repo.Increment(ctx, counter.ID, usage.ActionKindAIMessage, 7))

		found, err := repo.FindByOwnerAndPeriod(ctx, ownerID, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, int64(3), found.Imports)
		assert.Equal(t, int64(4), found.Translations)
		assert.Equal(t, int64(5), found.Optimizations)
		assert.Equal(t, int64(7), found.AIMessages)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		err := repo.Increment(ctx, uuid.New(), usage.ActionKindImport, 0)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_QUANTITY", domainErr.Code)
	})

	t.Run("rejects unknown action kind", func(t *testing.T) {
		err := repo.Increment(ctx, uuid.New(), usage.ActionKind("unknown"), 1)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNKNOWN_ACTION", domainErr.Code)
	})

	t.Run("returns not found for missing counter", func(t *testing.T) {
		err := repo.Increment(ctx, uuid.New(), usage.ActionKindImport, 1)
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormCounterRepository_FindInRange(t *testing.T) {
	db := setupCounterTestDB(t)
	repo := NewGormCounterRepository(db)
	ctx := context.Background()

	ownerA := uuid.New()
	ownerB := uuid.New()
	months := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, month := range months {
		_, err := repo.GetOrCreate(ctx, ownerA, month)
		require.NoError(t, err)
	}
	_, err := repo.GetOrCreate(ctx, ownerB, months[1])
	require.NoError(t, err)

	t.Run("returns counters in range ordered by period", func(t *testing.T) {
		counters, err := repo.FindInRange(ctx,
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			nil)
		require.NoError(t, err)
		require.Len(t, counters, 3)
		assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), counters[0].PeriodStart)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), counters[2].PeriodStart)
	})

	t.Run("scopes to one owner", func(t *testing.T) {
		counters, err := repo.FindInRange(ctx,
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			&ownerB)
		require.NoError(t, err)
		require.Len(t, counters, 1)
		assert.Equal(t, ownerB, counters[0].OwnerID)
	})

	t.Run("returns empty slice outside the range", func(t *testing.T) {
		counters, err := repo.FindInRange(ctx,
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			nil)
		require.NoError(t, err)
		assert.Empty(t, counters)
	})
}
