package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campus-eats/internal/model"
	"campus-eats/internal/notify"
	"campus-eats/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderStore is a mock implementation of OrderStore.
type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderStore) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next model.Status, at time.Time) (*model.Order, error) {
	args := m.Called(ctx, id, expected, next, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockPublisher is a mock implementation of notify.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event notify.StatusChanged) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

var (
	staff   = model.Actor{ID: "staff-1", Role: model.RoleStaff}
	admin   = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
	student = model.Actor{ID: "stu-1", Role: model.RoleStudent}
)

func seedOrder(t *testing.T, repo *repository.MemoryOrderRepository, status model.Status, updatedAt time.Time) *model.Order {
	t.Helper()
	o := &model.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-" + uuid.NewString()[:8],
		UserID:      "stu-1",
		Items:       []model.LineItem{{MenuItemID: "M1", Quantity: 1, UnitPrice: decimal.NewFromInt(40)}},
		Total:       decimal.NewFromInt(40),
		Status:      status,
		CanteenID:   "north",
		CreatedAt:   updatedAt,
		UpdatedAt:   updatedAt,
	}
	o.QRCode = o.OrderNumber
	require.NoError(t, repo.Create(context.Background(), o))
	return o
}

func TestEngine_ApplyTransition_HappyPath(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	order := seedOrder(t, repo, model.StatusPending, created)

	clock := created.Add(time.Minute)
	engine := NewEngine(repo, DefaultPolicy(), zerolog.Nop(), WithClock(func() time.Time { return clock }))

	ctx := context.Background()
	current := order
	for _, next := range []model.Status{model.StatusPreparing, model.StatusReady, model.StatusCompleted} {
		prev := current.UpdatedAt
		updated, err := engine.ApplyTransition(ctx, current, next, staff)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
		assert.True(t, updated.UpdatedAt.After(prev), "updatedAt must strictly increase")
		current = updated
	}

	stored, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.Equal(t, BucketHistory, Classify(stored.Status))
}

func TestEngine_ApplyTransition_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		status  model.Status
		next    model.Status
		actor   model.Actor
		policy  Policy
		wantErr error
	}{
		{"Skip a stage", model.StatusPending, model.StatusReady, staff, DefaultPolicy(), model.ErrInvalidTransition},
		{"Self transition", model.StatusReady, model.StatusReady, staff, DefaultPolicy(), model.ErrInvalidTransition},
		{"Leave terminal", model.StatusCompleted, model.StatusCancelled, admin, DefaultPolicy(), model.ErrInvalidTransition},
		{"Backwards", model.StatusReady, model.StatusPreparing, staff, DefaultPolicy(), model.ErrInvalidTransition},
		{"Student cannot advance", model.StatusPending, model.StatusPreparing, student, DefaultPolicy(), model.ErrForbidden},
		{"Staff cannot cancel under strict policy", model.StatusPending, model.StatusCancelled, staff, Policy{}, model.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryOrderRepository()
			order := seedOrder(t, repo, tt.status, time.Now())
			engine := NewEngine(repo, tt.policy, zerolog.Nop())

			updated, err := engine.ApplyTransition(ctx, order, tt.next, tt.actor)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, updated)

			stored, err := repo.GetByID(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, stored.Status, "rejected transition must not write")
			assert.True(t, order.UpdatedAt.Equal(stored.UpdatedAt))
		})
	}
}

func TestEngine_ApplyTransition_InvalidCarriesStatuses(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	order := seedOrder(t, repo, model.StatusPending, time.Now())
	engine := NewEngine(repo, DefaultPolicy(), zerolog.Nop())

	_, err := engine.ApplyTransition(context.Background(), order, model.StatusCompleted, staff)

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.StatusPending, te.Current)
	assert.Equal(t, model.StatusCompleted, te.Attempted)
	assert.False(t, te.Stale)
	assert.NotErrorIs(t, err, model.ErrStatusConflict)
}

func TestEngine_ConcurrentCompletion_OneWins(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	order := seedOrder(t, repo, model.StatusReady, time.Now().Add(-time.Minute))
	engine := NewEngine(repo, DefaultPolicy(), zerolog.Nop())

	const sessions = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		errs     []error
		ctx      = context.Background()
		snapshot = *order
	)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := snapshot
			_, err := engine.ApplyTransition(ctx, &local, model.StatusCompleted, staff)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else {
				errs = append(errs, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	require.Len(t, errs, sessions-1)
	for _, err := range errs {
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
		assert.ErrorIs(t, err, model.ErrStatusConflict)

		var te *TransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, model.StatusCompleted, te.Current)
	}
}

func TestEngine_ApplyTransition_StoreErrors(t *testing.T) {
	ctx := context.Background()
	order := &model.Order{ID: uuid.New(), OrderNumber: "ORD-1", Status: model.StatusPreparing, UpdatedAt: time.Now()}

	t.Run("Repository failure is wrapped", func(t *testing.T) {
		store := new(MockOrderStore)
		store.On("UpdateStatus", ctx, order.ID, model.StatusPreparing, model.StatusReady, mock.AnythingOfType("time.Time")).
			Return(nil, errors.New("connection refused"))

		_, err := NewEngine(store, DefaultPolicy(), zerolog.Nop()).ApplyTransition(ctx, order, model.StatusReady, staff)
		assert.ErrorIs(t, err, model.ErrRepository)
		store.AssertExpectations(t)
	})

	t.Run("Order deleted underneath", func(t *testing.T) {
		store := new(MockOrderStore)
		store.On("UpdateStatus", ctx, order.ID, model.StatusPreparing, model.StatusReady, mock.Anything).Return(nil, nil)

		_, err := NewEngine(store, DefaultPolicy(), zerolog.Nop()).ApplyTransition(ctx, order, model.StatusReady, staff)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})

	t.Run("Conflict then gone", func(t *testing.T) {
		store := new(MockOrderStore)
		store.On("UpdateStatus", ctx, order.ID, model.StatusPreparing, model.StatusReady, mock.Anything).Return(nil, model.ErrStatusConflict)
		store.On("GetByID", ctx, order.ID).Return(nil, nil)

		_, err := NewEngine(store, DefaultPolicy(), zerolog.Nop()).ApplyTransition(ctx, order, model.StatusReady, staff)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
		store.AssertExpectations(t)
	})

	t.Run("Nil order", func(t *testing.T) {
		_, err := NewEngine(new(MockOrderStore), DefaultPolicy(), zerolog.Nop()).ApplyTransition(ctx, nil, model.StatusReady, staff)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})
}

func TestEngine_UpdatedAtBumpsPastSkewedClock(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	future := time.Now().Add(time.Hour).UTC()
	order := seedOrder(t, repo, model.StatusPending, future)

	// Clock behind the stored timestamp.
	engine := NewEngine(repo, DefaultPolicy(), zerolog.Nop(), WithClock(func() time.Time { return future.Add(-time.Minute) }))

	updated, err := engine.ApplyTransition(context.Background(), order, model.StatusPreparing, staff)
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(future))
}

func TestEngine_PublishesStatusChange(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	order := seedOrder(t, repo, model.StatusReady, time.Now().Add(-time.Minute))

	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev notify.StatusChanged) bool {
		return ev.OrderID == order.ID.String() &&
			ev.OldStatus == "ready" &&
			ev.NewStatus == "completed" &&
			ev.ChangedBy == staff.ID
	})).Return(errors.New("broker down"))

	engine := NewEngine(repo, DefaultPolicy(), zerolog.Nop(), WithPublisher(pub))

	// A publish failure does not undo the committed transition.
	updated, err := engine.ApplyTransition(context.Background(), order, model.StatusCompleted, staff)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	pub.AssertExpectations(t)
}

func TestEngine_Transition(t *testing.T) {
	ctx := context.Background()

	t.Run("Expected status matches", func(t *testing.T) {
		repo := repository.NewMemoryOrderRepository()
		order := seedOrder(t, repo, model.StatusPending, time.Now().Add(-time.Minute))
		expected := model.StatusPending

		updated, err := NewEngine(repo, DefaultPolicy(), zerolog.Nop()).Transition(ctx, order.ID, &expected, model.StatusPreparing, staff)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPreparing, updated.Status)
	})

	t.Run("Expected status is stale", func(t *testing.T) {
		repo := repository.NewMemoryOrderRepository()
		order := seedOrder(t, repo, model.StatusPreparing, time.Now())
		expected := model.StatusPending

		_, err := NewEngine(repo, DefaultPolicy(), zerolog.Nop()).Transition(ctx, order.ID, &expected, model.StatusPreparing, staff)
		var te *TransitionError
		require.ErrorAs(t, err, &te)
		assert.True(t, te.Stale)
		assert.Equal(t, model.StatusPreparing, te.Current)
	})

	t.Run("Unknown order", func(t *testing.T) {
		repo := repository.NewMemoryOrderRepository()
		_, err := NewEngine(repo, DefaultPolicy(), zerolog.Nop()).Transition(ctx, uuid.New(), nil, model.StatusPreparing, staff)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})

	t.Run("Read failure", func(t *testing.T) {
		store := new(MockOrderStore)
		id := uuid.New()
		store.On("GetByID", ctx, id).Return(nil, errors.New("timeout"))

		_, err := NewEngine(store, DefaultPolicy(), zerolog.Nop()).Transition(ctx, id, nil, model.StatusPreparing, staff)
		assert.ErrorIs(t, err, model.ErrRepository)
	})
}

func TestEngine_AvailableActions(t *testing.T) {
	engine := NewEngine(repository.NewMemoryOrderRepository(), DefaultPolicy(), zerolog.Nop())
	order := &model.Order{Status: model.StatusReady}

	assert.Equal(t, []model.Status{model.StatusCompleted, model.StatusCancelled}, engine.AvailableActions(order, staff))
	assert.Empty(t, engine.AvailableActions(order, student))
	assert.Equal(t, DefaultPolicy(), engine.Policy())
}
