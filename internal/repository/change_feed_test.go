package repository

import (
	"context"
	"testing"
	"time"

	"campus-eats/internal/database"
	"campus-eats/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresChangeFeed_DeliversWrites(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewPostgresChangeFeed(pool, database.ChangeChannel, zerolog.Nop())
	events := make(chan ChangeEvent, 16)
	detach := feed.Listen(func(ev ChangeEvent) {
		select {
		case events <- ev:
		default:
		}
	})
	defer detach()

	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	repo := NewOrderRepository(pool, zerolog.Nop())
	order := newTestOrder("ORD-FEED", "u1", "north", model.StatusPending, time.Now())

	// The listener connection may not be up yet; keep writing until a
	// notification for this order arrives.
	require.Eventually(t, func() bool {
		if stored, _ := repo.GetByID(ctx, order.ID); stored == nil {
			_ = repo.Create(ctx, order)
		} else {
			next := model.StatusPreparing
			if stored.Status == next {
				next = model.StatusReady
			}
			_, _ = repo.UpdateStatus(ctx, order.ID, stored.Status, next, time.Now())
		}
		select {
		case ev := <-events:
			return ev.OrderID == order.ID
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 15*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("change feed did not stop after cancel")
	}
}

func TestPostgresChangeFeed_ReadyAfterListen(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewPostgresChangeFeed(pool, database.ChangeChannel, zerolog.Nop())
	events := make(chan ChangeEvent, 16)
	detach := feed.Listen(func(ev ChangeEvent) { events <- ev })
	defer detach()

	go func() { _ = feed.Run(ctx) }()

	select {
	case <-feed.Ready():
	case <-time.After(10 * time.Second):
		t.Fatal("change feed never became ready")
	}

	order := newTestOrder("ORD-READY", "u1", "north", model.StatusPending, time.Now())
	require.NoError(t, NewOrderRepository(pool, zerolog.Nop()).Create(ctx, order))

	select {
	case ev := <-events:
		assert.Equal(t, order.ID, ev.OrderID)
		assert.False(t, ev.Resync)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification after ready")
	}
}
