package pickup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campus-eats/internal/lifecycle"
	"campus-eats/internal/model"
	"campus-eats/internal/qr"
	"campus-eats/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var staff = model.Actor{ID: "staff-1", Role: model.RoleStaff}

type fixture struct {
	repo    *repository.MemoryOrderRepository
	engine  *lifecycle.Engine
	service *Service
}

func newFixture() fixture {
	repo := repository.NewMemoryOrderRepository()
	engine := lifecycle.NewEngine(repo, lifecycle.DefaultPolicy(), zerolog.Nop())
	return fixture{
		repo:    repo,
		engine:  engine,
		service: NewService(repo, engine, zerolog.Nop()),
	}
}

func (f fixture) seed(t *testing.T, number string, status model.Status) *model.Order {
	t.Helper()
	created := time.Now().Add(-10 * time.Minute).UTC()
	o := &model.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		UserID:      "stu-7",
		Items:       []model.LineItem{{MenuItemID: "M1", Quantity: 2, UnitPrice: decimal.NewFromInt(25)}},
		Total:       decimal.NewFromInt(50),
		Status:      status,
		CanteenID:   "north",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	o.QRCode = qr.Encode(o.OrderNumber, o.UserID, o.CreatedAt)
	require.NoError(t, f.repo.Create(context.Background(), o))
	return o
}

func TestScan_ReadyOrderCompletes(t *testing.T) {
	f := newFixture()
	order := f.seed(t, "ORD-100", model.StatusReady)

	res, err := f.service.Scan(context.Background(), order.QRCode, staff)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	require.NotNil(t, res.Order)
	assert.Equal(t, model.StatusCompleted, res.Order.Status)
	assert.True(t, res.Order.UpdatedAt.After(order.UpdatedAt))
}

func TestScan_NotReadyLeavesOrderUntouched(t *testing.T) {
	for _, status := range []model.Status{model.StatusPending, model.StatusPreparing, model.StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			order := f.seed(t, "ORD-"+string(status), status)

			res, err := f.service.Scan(context.Background(), order.QRCode, staff)
			require.NoError(t, err)
			assert.Equal(t, OutcomeNotReady, res.Outcome)
			assert.Equal(t, status, res.CurrentStatus)
			require.NotNil(t, res.Order)

			stored, err := f.repo.GetByID(context.Background(), order.ID)
			require.NoError(t, err)
			assert.Equal(t, status, stored.Status)
			assert.True(t, order.UpdatedAt.Equal(stored.UpdatedAt))
		})
	}
}

func TestScan_SecondScanIsRejected(t *testing.T) {
	f := newFixture()
	order := f.seed(t, "ORD-200", model.StatusReady)
	ctx := context.Background()

	first, err := f.service.Scan(ctx, order.QRCode, staff)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, first.Outcome)

	second, err := f.service.Scan(ctx, order.QRCode, staff)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotReady, second.Outcome)
	assert.Equal(t, model.StatusCompleted, second.CurrentStatus)
}

func TestScan_LiteralOrderNumber(t *testing.T) {
	f := newFixture()
	f.seed(t, "ORD-2024-001", model.StatusReady)

	res, err := f.service.Scan(context.Background(), " ORD-2024-001 ", staff)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
}

func TestScan_TokenContentIsNotTrusted(t *testing.T) {
	f := newFixture()
	order := f.seed(t, "ORD-300", model.StatusReady)

	// A token naming the right order but a different user still resolves
	// through the stored order.
	forged := qr.Encode(order.OrderNumber, "someone-else", time.Now())
	res, err := f.service.Scan(context.Background(), forged, staff)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, "stu-7", res.Order.UserID)
}

func TestScan_NotFoundAndUnreadable(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name string
		raw  string
		want Outcome
	}{
		{"Unknown order", qr.Encode("ORD-404", "u1", time.Now()), OutcomeNotFound},
		{"Unknown literal", "ORD-404", OutcomeNotFound},
		{"Empty scan", "", OutcomeUnreadable},
		{"Broken token", `{"type":"order"`, OutcomeUnreadable},
		{"Noise", "not an order", OutcomeUnreadable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.service.Scan(context.Background(), tt.raw, staff)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Nil(t, res.Order)
		})
	}
}

func TestScan_ConcurrentScansCompleteOnce(t *testing.T) {
	f := newFixture()
	order := f.seed(t, "ORD-RACE", model.StatusReady)

	const scanners = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
		notReady  int
		raced     int
	)
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.service.Scan(context.Background(), order.QRCode, staff)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				assert.ErrorIs(t, err, model.ErrInvalidTransition)
				raced++
			case res.Outcome == OutcomeCompleted:
				completed++
			case res.Outcome == OutcomeNotReady:
				notReady++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, completed)
	assert.Equal(t, scanners-1, notReady+raced)
}

// MockOrderFinder is a mock implementation of OrderFinder.
type MockOrderFinder struct {
	mock.Mock
}

func (m *MockOrderFinder) GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func TestScan_RepositoryFailure(t *testing.T) {
	finder := new(MockOrderFinder)
	finder.On("GetByOrderNumber", mock.Anything, "ORD-1").Return(nil, errors.New("unavailable"))

	svc := NewService(finder, nil, zerolog.Nop())
	_, err := svc.Scan(context.Background(), "ORD-1", staff)
	assert.ErrorIs(t, err, model.ErrRepository)
	finder.AssertExpectations(t)
}

func TestEndToEnd_OrderLifecycleAndPickup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.seed(t, "ORD-A", model.StatusPending)

	preparing, err := f.engine.ApplyTransition(ctx, a, model.StatusPreparing, staff)
	require.NoError(t, err)

	ready, err := f.engine.ApplyTransition(ctx, preparing, model.StatusReady, staff)
	require.NoError(t, err)

	_, err = f.engine.ApplyTransition(ctx, ready, model.StatusPreparing, staff)
	var te *lifecycle.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.StatusReady, te.Current)
	assert.Equal(t, model.StatusPreparing, te.Attempted)

	res, err := f.service.Scan(ctx, qr.Encode(a.OrderNumber, a.UserID, a.CreatedAt), staff)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, model.StatusCompleted, res.Order.Status)
}
