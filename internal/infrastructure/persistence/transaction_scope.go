package persistence

import (
	"context"

	appusage "github.com/recipefy/backend/internal/application/usage"
	"github.com/recipefy/backend/internal/domain/usage"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// The consume gate runs its check-and-debit inside one scope so the profile
// row lock holds across the whole decision.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appusage.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to the quota repositories
// within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// ProfileRepo returns the quota profile repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ProfileRepo() usage.ProfileRepository {
	return NewGormProfileRepository(r.tx)
}

// CounterRepo returns the monthly counter repository scoped to the current transaction.
func (r *gormTransactionalRepositories) CounterRepo() usage.CounterRepository {
	return NewGormCounterRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appusage.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appusage.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
