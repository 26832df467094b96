package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	minReconnectDelay = 500 * time.Millisecond
	maxReconnectDelay = 30 * time.Second
)

// PostgresChangeFeed turns NOTIFY payloads on a channel into ChangeEvents.
// It holds one dedicated connection while running.
type PostgresChangeFeed struct {
	pool    *pgxpool.Pool
	channel string
	logger  zerolog.Logger

	mu        sync.RWMutex
	listeners map[int]func(ChangeEvent)
	nextID    int

	ready     chan struct{}
	readyOnce sync.Once
}

var _ ChangeFeed = (*PostgresChangeFeed)(nil)

// NewPostgresChangeFeed creates a change feed for the given NOTIFY channel.
func NewPostgresChangeFeed(pool *pgxpool.Pool, channel string, logger zerolog.Logger) *PostgresChangeFeed {
	return &PostgresChangeFeed{
		pool:      pool,
		channel:   channel,
		logger:    logger.With().Str("component", "change_feed").Logger(),
		listeners: make(map[int]func(ChangeEvent)),
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the first LISTEN has succeeded. Writes made after
// that are guaranteed to be delivered.
func (f *PostgresChangeFeed) Ready() <-chan struct{} {
	return f.ready
}

// Listen registers fn for change notifications.
func (f *PostgresChangeFeed) Listen(fn func(ChangeEvent)) func() {
	f.mu.Lock()
	key := f.nextID
	f.nextID++
	f.listeners[key] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.listeners, key)
			f.mu.Unlock()
		})
	}
}

// Run listens until ctx is cancelled, reconnecting with exponential backoff.
// Listeners receive an Err event when the connection drops and a Resync
// event once it is re-established.
func (f *PostgresChangeFeed) Run(ctx context.Context) error {
	delay := minReconnectDelay
	connected := false

	for {
		err := f.listen(ctx, func() {
			if connected {
				f.broadcast(ChangeEvent{Resync: true})
			}
			connected = true
			delay = minReconnectDelay
			f.readyOnce.Do(func() { close(f.ready) })
		})
		if ctx.Err() != nil {
			return nil
		}

		f.logger.Warn().Err(err).Dur("retry_in", delay).Msg("change feed connection lost")
		f.broadcast(ChangeEvent{Err: fmt.Errorf("change feed unavailable: %w", err)})

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (f *PostgresChangeFeed) listen(ctx context.Context, onReady func()) error {
	pc, err := f.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	conn := pc.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.channel, err)
	}

	f.logger.Info().Str("channel", f.channel).Msg("change feed listening")
	onReady()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		id, err := uuid.Parse(n.Payload)
		if err != nil {
			f.logger.Warn().Str("payload", n.Payload).Msg("ignoring malformed change notification")
			continue
		}
		f.broadcast(ChangeEvent{OrderID: id})
	}
}

func (f *PostgresChangeFeed) broadcast(ev ChangeEvent) {
	f.mu.RLock()
	fns := make([]func(ChangeEvent), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
