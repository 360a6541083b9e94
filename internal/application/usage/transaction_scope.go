package usage

import (
	"context"

	"github.com/recipefy/backend/internal/domain/usage"
)

// TransactionScope provides transactional access to the quota repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically. The gate relies on this together with the profile row lock
// to serialize concurrent consumption for one owner.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the quota repositories within
// a transaction. All repositories returned share the same underlying database
// transaction.
type TransactionalRepositories interface {
	// ProfileRepo returns the quota profile repository scoped to the current transaction
	ProfileRepo() usage.ProfileRepository
	// CounterRepo returns the monthly counter repository scoped to the current transaction
	CounterRepo() usage.CounterRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for tests and for stores without transaction support.
type NoOpTransactionScope struct {
	profileRepo usage.ProfileRepository
	counterRepo usage.CounterRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	profileRepo usage.ProfileRepository,
	counterRepo usage.CounterRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		profileRepo: profileRepo,
		counterRepo: counterRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ProfileRepo returns the quota profile repository.
func (s *NoOpTransactionScope) ProfileRepo() usage.ProfileRepository {
	return s.profileRepo
}

// CounterRepo returns the monthly counter repository.
func (s *NoOpTransactionScope) CounterRepo() usage.CounterRepository {
	return s.counterRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
