package usage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]shared.DomainEvent, 0)}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockProfileRepository is a mock implementation of usage.ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*usage.QuotaProfile, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usage.QuotaProfile), args.Error(1)
}

func (m *MockProfileRepository) FindByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID) (*usage.QuotaProfile, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usage.QuotaProfile), args.Error(1)
}

func (m *MockProfileRepository) Save(ctx context.Context, profile *usage.QuotaProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) CountAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProfileRepository) CountByPlan(ctx context.Context) (map[usage.Plan]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[usage.Plan]int64), args.Error(1)
}

// MockCounterRepository is a mock implementation of usage.CounterRepository
type MockCounterRepository struct {
	mock.Mock
}

func (m *MockCounterRepository) GetOrCreate(ctx context.Context, ownerID uuid.UUID, periodStart time.Time) (*usage.MonthlyUsageCounter, error) {
	args := m.Called(ctx, ownerID, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usage.MonthlyUsageCounter), args.Error(1)
}

func (m *MockCounterRepository) FindByOwnerAndPeriod(ctx context.Context, ownerID uuid.UUID, periodStart time.Time) (*usage.MonthlyUsageCounter, error) {
	args := m.Called(ctx, ownerID, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usage.MonthlyUsageCounter), args.Error(1)
}

func (m *MockCounterRepository) Increment(ctx context.Context, counterID uuid.UUID, kind usage.ActionKind, quantity int64) error {
	args := m.Called(ctx, counterID, kind, quantity)
	return args.Error(0)
}

func (m *MockCounterRepository) FindInRange(ctx context.Context, start, end time.Time, ownerID *uuid.UUID) ([]usage.MonthlyUsageCounter, error) {
	args := m.Called(ctx, start, end, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usage.MonthlyUsageCounter), args.Error(1)
}

type gateFixture struct {
	service     *GateService
	profileRepo *MockProfileRepository
	counterRepo *MockCounterRepository
	publisher   *MockEventPublisher
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	profileRepo := new(MockProfileRepository)
	counterRepo := new(MockCounterRepository)
	publisher := NewMockEventPublisher()

	scope := NewNoOpTransactionScope(profileRepo, counterRepo)
	service := NewGateService(scope, profileRepo, counterRepo, zap.NewNop())
	service.SetEventPublisher(publisher)

	return &gateFixture{
		service:     service,
		profileRepo: profileRepo,
		counterRepo: counterRepo,
		publisher:   publisher,
	}
}

func premiumProfile(t *testing.T, ownerID uuid.UUID) *usage.QuotaProfile {
	t.Helper()
	profile, err := usage.NewQuotaProfile(ownerID, usage.PlanPremium)
	require.NoError(t, err)
	return profile
}

func counterWith(t *testing.T, ownerID uuid.UUID, now time.Time, kind usage.ActionKind, used int64) *usage.MonthlyUsageCounter {
	t.Helper()
	counter, err := usage.NewMonthlyUsageCounter(ownerID, now)
	require.NoError(t, err)
	if used > 0 {
		require.NoError(t, counter.Increment(kind, used))
	}
	return counter
}

var testNow = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

func TestGateService_ConsumeAction_Denials(t *testing.T) {
	ctx := context.Background()

	t.Run("fails closed without identity", func(t *testing.T) {
		f := newGateFixture(t)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: uuid.Nil, Kind: "import", Quantity: 1, Consume: true, Now: testNow,
		})

		require.NoError(t, err)
		assert.Equal(t, usage.Denied{Reason: usage.DenyNotAuthenticated}, decision)
		f.profileRepo.AssertNotCalled(t, "FindByOwnerForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("rejects non-positive quantity before touching storage", func(t *testing.T) {
		f := newGateFixture(t)

		for _, quantity := range []int64{0, -3} {
			decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
				OwnerID: uuid.New(), Kind: "import", Quantity: quantity, Consume: true, Now: testNow,
			})

			require.NoError(t, err)
			assert.Equal(t, usage.Denied{Reason: usage.DenyInvalidQuantity}, decision)
		}
		f.profileRepo.AssertNotCalled(t, "FindByOwnerForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("denies when profile is missing", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(nil, shared.ErrNotFound)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "import", Quantity: 1, Consume: true, Now: testNow,
		})

		require.NoError(t, err)
		assert.Equal(t, usage.Denied{Reason: usage.DenyProfileMissing}, decision)
	})

	t.Run("denies AI kinds when the kill switch is set", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		profile := premiumProfile(t, ownerID)
		profile.SetAIDisabled(true)
		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(profile, nil)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "translation", Quantity: 1, Consume: true, Now: testNow,
		})

		require.NoError(t, err)
		assert.Equal(t, usage.Denied{Reason: usage.DenyAIDisabled}, decision)
		f.counterRepo.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("imports pass the kill switch", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		profile := premiumProfile(t, ownerID)
		profile.SetAIDisabled(true)
		counter := counterWith(t, ownerID, testNow, usage.ActionKindImport, 0)

		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(profile, nil)
		f.profileRepo.On("Save", mock.Anything, profile).Return(nil)
		f.counterRepo.On("GetOrCreate", mock.Anything, ownerID, usage.PeriodStartFor(testNow)).Return(counter, nil)
		f.counterRepo.On("Increment", mock.Anything, counter.ID, usage.ActionKindImport, int64(1)).Return(nil)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "import", Quantity: 1, Consume: true, Now: testNow,
		})

		require.NoError(t, err)
		assert.Equal(t, usage.Consumed{UsedTrial: 0, UsedAddon: 0, UsedPlan: 1}, decision)
	})

	t.Run("denies unknown kinds after the profile loads", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(premiumProfile(t, ownerID), nil)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "export", Quantity: 1, Consume: true, Now: testNow,
		})

		require.NoError(t, err)
		assert.Equal(t, usage.Denied{Reason: usage.DenyUnknownAction}, decision)
	})

	t.Run("missing profile wins over unknown kind", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(nil, shared.ErrNotFound)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "export", Quantity: 1, Consume: true, Now: testNow,
		})

		require.NoError(t, err)
		assert.Equal(t, usage.Denied{Reason: usage.DenyProfileMissing}, decision)
	})
}

func TestGateService_ConsumeAction_LimitReached(t *testing.T) {
	ctx := context.Background()

	t.Run("premium import allotment is exhausted at 25", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		profile := premiumProfile(t, ownerID)
		counter := counterWith(t, ownerID, testNow, usage.ActionKindImport, 24)

		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(profile, nil)
		f.profileRepo.On("Save", mock.Anything, profile).Return(nil)
		f.counterRepo.On("GetOrCreate", mock.Anything, ownerID, usage.PeriodStartFor(testNow)).Return(counter, nil)
		f.counterRepo.On("Increment", mock.Anything, counter.ID, usage.ActionKindImport, int64(1)).Return(nil)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "import", Quantity: 1, Consume: true, Now: testNow,
		})
		require.NoError(t, err)
		assert.Equal(t, usage.Consumed{UsedPlan: 1}, decision)

		// The real counter now reads 25; the next attempt is denied with zero left
		require.NoError(t, counter.Increment(usage.ActionKindImport, 1))
		decision, err = f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "import", Quantity: 1, Consume: true, Now: testNow,
		})
		require.NoError(t, err)
		assert.Equal(t, usage.Denied{Reason: usage.DenyLimitReached, Available: 0}, decision)
	})

	t.Run("denial reports the remaining capacity", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		profile := premiumProfile(t, ownerID)
		counter := counterWith(t, ownerID, testNow, usage.ActionKindImport, 20)

		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(profile, nil)
		f.counterRepo.On("GetOrCreate", mock.Anything, ownerID, usage.PeriodStartFor(testNow)).Return(counter, nil)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "import", Quantity: 10, Consume: true, Now: testNow,
		})

		require.NoError(t, err)
		assert.Equal(t, usage.Denied{Reason: usage.DenyLimitReached, Available: 5}, decision)
	})

	t.Run("denial leaves profile and counter untouched", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		profile := premiumProfile(t, ownerID)
		profile.Buckets[usage.ActionKindImport] = usage.QuotaBucket{AddonRemaining: 2}
		counter := counterWith(t, ownerID, testNow, usage.ActionKindImport, 27)

		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(profile, nil)
		f.counterRepo.On("GetOrCreate", mock.Anything, ownerID, usage.PeriodStartFor(testNow)).Return(counter, nil)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "import", Quantity: 1, Consume: true, Now: testNow,
		})

		require.NoError(t, err)
		assert.Equal(t, usage.Denied{Reason: usage.DenyLimitReached, Available: 0}, decision)
		assert.Equal(t, int64(2), profile.Bucket(usage.ActionKindImport).AddonRemaining)
		f.profileRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.counterRepo.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publishes a limit event on denial", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		profile := premiumProfile(t, ownerID)
		counter := counterWith(t, ownerID, testNow, usage.ActionKindImport, 25)

		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(profile, nil)
		f.counterRepo.On("GetOrCreate", mock.Anything, ownerID, usage.PeriodStartFor(testNow)).Return(counter, nil)

		_, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "import", Quantity: 1, Consume: true, Now: testNow,
		})

		require.NoError(t, err)
		events := f.publisher.GetEventsByType(usage.EventTypeQuotaLimitReached)
		require.Len(t, events, 1)
		limitEvent := events[0].(*usage.QuotaLimitReachedEvent)
		assert.Equal(t, usage.ActionKindImport, limitEvent.Kind)
		assert.Equal(t, int64(1), limitEvent.Requested)
		assert.Equal(t, int64(0), limitEvent.Available)
		assert.Equal(t, ownerID, limitEvent.OwnerID())
	})
}

func TestGateService_ConsumeAction_DebitOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("trial then addon then plan", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()

		profile, err := usage.NewQuotaProfile(ownerID, usage.PlanBase)
		require.NoError(t, err)
		trialEnd := testNow.Add(48 * time.Hour)
		profile.TrialEndsAt = &trialEnd
		profile.Buckets[usage.ActionKindOptimization] = usage.QuotaBucket{
			TrialTotal: 5, TrialUsed: 3, AddonRemaining: 2,
		}
		counter := counterWith(t, ownerID, testNow, usage.ActionKindOptimization, 0)

		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(profile, nil)
		f.profileRepo.On("Save", mock.Anything, profile).Return(nil)
		f.counterRepo.On("GetOrCreate", mock.Anything, ownerID, usage.PeriodStartFor(testNow)).Return(counter, nil)
		f.counterRepo.On("Increment", mock.Anything, counter.ID, usage.ActionKindOptimization, int64(4)).Return(nil)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "optimization", Quantity: 4, Consume: true, Now: testNow,
		})

		require.NoError(t, err)
		assert.Equal(t, usage.Consumed{UsedTrial: 2, UsedAddon: 2, UsedPlan: 0}, decision)

		bucket := profile.Bucket(usage.ActionKindOptimization)
		assert.Equal(t, int64(5), bucket.TrialUsed)
		assert.Equal(t, int64(0), bucket.AddonRemaining)
	})

	t.Run("expired trial contributes nothing", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()

		profile := premiumProfile(t, ownerID)
		trialEnd := testNow.Add(-time.Hour)
		profile.TrialEndsAt = &trialEnd
		profile.Buckets[usage.ActionKindImport] = usage.QuotaBucket{TrialTotal: 3, AddonRemaining: 1}
		counter := counterWith(t, ownerID, testNow, usage.ActionKindImport, 0)

		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(profile, nil)
		f.profileRepo.On("Save", mock.Anything, profile).Return(nil)
		f.counterRepo.On("GetOrCreate", mock.Anything, ownerID, usage.PeriodStartFor(testNow)).Return(counter, nil)
		f.counterRepo.On("Increment", mock.Anything, counter.ID, usage.ActionKindImport, int64(2)).Return(nil)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "import", Quantity: 2, Consume: true, Now: testNow,
		})

		require.NoError(t, err)
		assert.Equal(t, usage.Consumed{UsedTrial: 0, UsedAddon: 1, UsedPlan: 1}, decision)
		assert.Equal(t, int64(0), profile.Bucket(usage.ActionKindImport).TrialUsed)
	})

	t.Run("debit parts always sum to the quantity", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()

		profile := premiumProfile(t, ownerID)
		trialEnd := testNow.Add(time.Hour)
		profile.TrialEndsAt = &trialEnd
		profile.Buckets[usage.ActionKindAIMessage] = usage.QuotaBucket{TrialTotal: 10, TrialUsed: 9, AddonRemaining: 3}
		counter := counterWith(t, ownerID, testNow, usage.ActionKindAIMessage, 0)

		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(profile, nil)
		f.profileRepo.On("Save", mock.Anything, profile).Return(nil)
		f.counterRepo.On("GetOrCreate", mock.Anything, ownerID, usage.PeriodStartFor(testNow)).Return(counter, nil)
		f.counterRepo.On("Increment", mock.Anything, counter.ID, usage.ActionKindAIMessage, int64(7)).Return(nil)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "aiMessage", Quantity: 7, Consume: true, Now: testNow,
		})

		require.NoError(t, err)
		consumed := decision.(usage.Consumed)
		assert.Equal(t, int64(7), consumed.UsedTrial+consumed.UsedAddon+consumed.UsedPlan)
		assert.Equal(t, int64(1), consumed.UsedTrial)
		assert.Equal(t, int64(3), consumed.UsedAddon)
		assert.Equal(t, int64(3), consumed.UsedPlan)
	})
}

func TestGateService_ConsumeAction_DryRun(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed dry run mutates nothing", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		profile := premiumProfile(t, ownerID)
		counter := counterWith(t, ownerID, testNow, usage.ActionKindImport, 10)

		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(profile, nil)
		f.counterRepo.On("GetOrCreate", mock.Anything, ownerID, usage.PeriodStartFor(testNow)).Return(counter, nil)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "import", Quantity: 1, Consume: false, Now: testNow,
		})

		require.NoError(t, err)
		assert.Equal(t, usage.Allowed{Available: 15}, decision)
		f.profileRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.counterRepo.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("dry run over the limit is still a denial", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		profile := premiumProfile(t, ownerID)
		counter := counterWith(t, ownerID, testNow, usage.ActionKindImport, 25)

		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(profile, nil)
		f.counterRepo.On("GetOrCreate", mock.Anything, ownerID, usage.PeriodStartFor(testNow)).Return(counter, nil)

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "import", Quantity: 1, Consume: false, Now: testNow,
		})

		require.NoError(t, err)
		assert.Equal(t, usage.Denied{Reason: usage.DenyLimitReached, Available: 0}, decision)
	})
}

func TestGateService_ConsumeAction_InfrastructureErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("store failures surface as errors, not decisions", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).
			Return(nil, errors.New("connection refused"))

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "import", Quantity: 1, Consume: true, Now: testNow,
		})

		require.Error(t, err)
		assert.Nil(t, decision)
	})

	t.Run("counter failure rolls the attempt back", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		f.profileRepo.On("FindByOwnerForUpdate", mock.Anything, ownerID).Return(premiumProfile(t, ownerID), nil)
		f.counterRepo.On("GetOrCreate", mock.Anything, ownerID, usage.PeriodStartFor(testNow)).
			Return(nil, errors.New("deadlock detected"))

		decision, err := f.service.ConsumeAction(ctx, ConsumeInput{
			OwnerID: ownerID, Kind: "import", Quantity: 1, Consume: true, Now: testNow,
		})

		require.Error(t, err)
		assert.Nil(t, decision)
		f.profileRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestGateService_GetQuotaStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("combines plan, trial, addon and period usage", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()

		profile := premiumProfile(t, ownerID)
		trialEnd := testNow.Add(24 * time.Hour)
		profile.TrialEndsAt = &trialEnd
		profile.Buckets[usage.ActionKindImport] = usage.QuotaBucket{TrialTotal: 3, TrialUsed: 1, AddonRemaining: 2}
		counter := counterWith(t, ownerID, testNow, usage.ActionKindImport, 4)

		f.profileRepo.On("FindByOwner", mock.Anything, ownerID).Return(profile, nil)
		f.counterRepo.On("FindByOwnerAndPeriod", mock.Anything, ownerID, usage.PeriodStartFor(testNow)).Return(counter, nil)

		status, err := f.service.GetQuotaStatus(ctx, ownerID, testNow)

		require.NoError(t, err)
		assert.Equal(t, "premium", status.Plan)
		assert.True(t, status.TrialActive)

		imports := status.Kinds["import"]
		assert.Equal(t, int64(25), imports.PlanLimit)
		assert.Equal(t, int64(2), imports.TrialRemaining)
		assert.Equal(t, int64(2), imports.AddonRemaining)
		assert.Equal(t, int64(4), imports.UsedThisPeriod)
		// 25 + 2 + 2 - 4
		assert.Equal(t, int64(25), imports.Available)
	})

	t.Run("missing counter means nothing consumed", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()

		f.profileRepo.On("FindByOwner", mock.Anything, ownerID).Return(premiumProfile(t, ownerID), nil)
		f.counterRepo.On("FindByOwnerAndPeriod", mock.Anything, ownerID, usage.PeriodStartFor(testNow)).
			Return(nil, shared.ErrNotFound)

		status, err := f.service.GetQuotaStatus(ctx, ownerID, testNow)

		require.NoError(t, err)
		assert.Equal(t, int64(0), status.Kinds["aiMessage"].UsedThisPeriod)
		assert.Equal(t, int64(200), status.Kinds["aiMessage"].Available)
	})

	t.Run("propagates a missing profile", func(t *testing.T) {
		f := newGateFixture(t)
		ownerID := uuid.New()
		f.profileRepo.On("FindByOwner", mock.Anything, ownerID).Return(nil, shared.ErrNotFound)

		_, err := f.service.GetQuotaStatus(ctx, ownerID, testNow)

		require.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("rejects the nil owner", func(t *testing.T) {
		f := newGateFixture(t)

		_, err := f.service.GetQuotaStatus(ctx, uuid.Nil, testNow)

		require.ErrorIs(t, err, shared.ErrUnauthorized)
	})
}
