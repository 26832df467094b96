package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"campus-eats/internal/canteen"
	"campus-eats/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMenuService is a mock implementation of MenuService.
type MockMenuService struct {
	mock.Mock
}

func (m *MockMenuService) ListMenu(ctx context.Context, canteenID string, limit, offset int) ([]model.MenuItem, error) {
	args := m.Called(ctx, canteenID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MenuItem), args.Error(1)
}

// MockCanteenValidator is a mock implementation of canteen.Validator.
type MockCanteenValidator struct {
	mock.Mock
}

func (m *MockCanteenValidator) Validate(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCanteenValidator) Canteens() []canteen.Canteen {
	return m.Called().Get(0).([]canteen.Canteen)
}

func (m *MockCanteenValidator) Close() error {
	return m.Called().Error(0)
}

func TestMenuHandler_List(t *testing.T) {
	logger := zerolog.Nop()

	items := []model.MenuItem{
		{ID: "M001", Name: "Masala Dosa", Category: "mains", CanteenID: "north", Price: decimal.RequireFromString("45.50"), Available: true},
	}

	tests := []struct {
		name           string
		query          string
		expectCanteen  string
		expectLimit    int
		expectOffset   int
		mockReturn     []model.MenuItem
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Defaults",
			query:          "",
			expectLimit:    50,
			mockReturn:     items,
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Canteen and paging",
			query:          "?canteenId=north&limit=5&offset=10",
			expectCanteen:  "north",
			expectLimit:    5,
			expectOffset:   10,
			mockReturn:     items,
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Invalid limit",
			query:          "?limit=abc",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid offset",
			query:          "?offset=xyz",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Service error",
			query:          "",
			expectLimit:    50,
			mockError:      fmt.Errorf("%w: %w", model.ErrRepository, errors.New("db down")),
			expectedStatus: http.StatusServiceUnavailable,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockMenuService)
			handler := NewMenuHandler(mockService, new(MockCanteenValidator), logger)

			if tt.expectService {
				mockService.On("ListMenu", mock.Anything, tt.expectCanteen, tt.expectLimit, tt.expectOffset).
					Return(tt.mockReturn, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/menu"+tt.query, nil)
			w := httptest.NewRecorder()
			handler.List(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var got []model.MenuItem
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				require.Len(t, got, 1)
				assert.True(t, got[0].Price.Equal(decimal.RequireFromString("45.50")))
			}

			if tt.expectService {
				mockService.AssertExpectations(t)
			}
		})
	}
}

func TestMenuHandler_Canteens(t *testing.T) {
	validator := new(MockCanteenValidator)
	validator.On("Canteens").Return([]canteen.Canteen{{ID: "north", Name: "North Block"}})
	handler := NewMenuHandler(new(MockMenuService), validator, zerolog.Nop())

	w := httptest.NewRecorder()
	handler.Canteens(w, httptest.NewRequest(http.MethodGet, "/api/canteens", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got []canteen.Canteen
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, []canteen.Canteen{{ID: "north", Name: "North Block"}}, got)
}
