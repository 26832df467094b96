package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}

	assert.NoError(t, p.Publish(context.Background(), StatusChanged{OrderNumber: "ORD-1"}))
	assert.NoError(t, p.Close())
}

func TestStatusChanged_JSON(t *testing.T) {
	event := StatusChanged{
		OrderID:     "0b6c1f7e-3f1d-4a52-9d7e-0f1a3c5b7d9e",
		OrderNumber: "ORD-1773480600123",
		UserID:      "student-1",
		CanteenID:   "north",
		OldStatus:   "preparing",
		NewStatus:   "ready",
		ChangedBy:   "kitchen-1",
		Timestamp:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}

	body, err := json.Marshal(event)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Equal(t, "ORD-1773480600123", fields["order_number"])
	assert.Equal(t, "preparing", fields["old_status"])
	assert.Equal(t, "ready", fields["new_status"])
	assert.Equal(t, "kitchen-1", fields["changed_by"])
	assert.Equal(t, "2026-03-14T09:30:00Z", fields["timestamp"])
}
