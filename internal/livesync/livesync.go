// Package livesync turns change notifications from the order store into
// typed, self-refreshing order views for dashboards and tracking screens.
package livesync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"campus-eats/internal/model"
	"campus-eats/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const updateBuffer = 16

// OrderReader is the read side of the order repository used to recompute views.
type OrderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
}

// Update is a single emission of a subscription. Exactly one of Value or
// Err is meaningful: Err reports that the view may be stale until the next
// Value arrives.
type Update[T any] struct {
	Value T
	Err   error
}

// Hub creates subscriptions over one store and change feed. It holds no
// per-subscription state of its own; each Subscription owns its listener.
type Hub struct {
	store  OrderReader
	feed   repository.ChangeFeed
	logger zerolog.Logger
	active atomic.Int64
}

// NewHub creates a Hub reading from store and woken by feed.
func NewHub(store OrderReader, feed repository.ChangeFeed, logger zerolog.Logger) *Hub {
	return &Hub{
		store:  store,
		feed:   feed,
		logger: logger.With().Str("component", "livesync").Logger(),
	}
}

// Active returns the number of open subscriptions.
func (h *Hub) Active() int {
	return int(h.active.Load())
}

// SubscribeOrders opens a live view of the orders matching filter. The first
// update is the current state; each later update is the full recomputed list,
// newest first, emitted after a change that alters it.
func (h *Hub) SubscribeOrders(ctx context.Context, filter model.OrderFilter) (*Subscription[[]model.Order], error) {
	load := func(ctx context.Context) ([]model.Order, error) {
		return h.store.List(ctx, filter)
	}
	relevant := func(repository.ChangeEvent) bool { return true }

	log := h.logger.With().
		Str("view", "orders").
		Str("status", string(filter.Status)).
		Str("canteen_id", filter.CanteenID).
		Str("user_id", filter.UserID).
		Logger()

	return subscribe(ctx, h, load, relevant, sameOrders, log)
}

// SubscribeOrder opens a live view of one order. The value is nil while the
// order does not exist.
func (h *Hub) SubscribeOrder(ctx context.Context, id uuid.UUID) (*Subscription[*model.Order], error) {
	load := func(ctx context.Context) (*model.Order, error) {
		return h.store.GetByID(ctx, id)
	}
	relevant := func(ev repository.ChangeEvent) bool { return ev.OrderID == id }

	log := h.logger.With().Str("view", "order").Str("order_id", id.String()).Logger()

	return subscribe(ctx, h, load, relevant, sameOrder, log)
}

// Refilter replaces old with a subscription on filter. old is closed before
// the new one is opened, so no emission for the previous filter can follow
// one for the new filter.
func (h *Hub) Refilter(ctx context.Context, old *Subscription[[]model.Order], filter model.OrderFilter) (*Subscription[[]model.Order], error) {
	if old != nil {
		old.Unsubscribe()
	}
	return h.SubscribeOrders(ctx, filter)
}

// Subscription is a live view. Updates are delivered in the order they were
// computed on a single goroutine.
type Subscription[T any] struct {
	updates chan Update[T]
	kick    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	detach  func()
	once    sync.Once

	mu      sync.Mutex
	feedErr error
}

// Updates returns the channel of emissions. It is closed after Unsubscribe
// or when the subscribing context ends.
func (s *Subscription[T]) Updates() <-chan Update[T] {
	return s.updates
}

// Unsubscribe releases the feed listener and waits for the subscription to
// stop. No update is sent after it returns. Safe to call more than once.
func (s *Subscription[T]) Unsubscribe() {
	s.once.Do(func() {
		s.detach()
		close(s.stop)
	})
	<-s.done
}

// Done is closed once the subscription has stopped for any reason.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription[T]) notify(ev repository.ChangeEvent) {
	if ev.Err != nil {
		s.mu.Lock()
		s.feedErr = ev.Err
		s.mu.Unlock()
	}
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) takeFeedErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.feedErr
	s.feedErr = nil
	return err
}

func (s *Subscription[T]) send(ctx context.Context, u Update[T]) bool {
	select {
	case s.updates <- u:
		return true
	case <-s.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func subscribe[T any](
	ctx context.Context,
	h *Hub,
	load func(context.Context) (T, error),
	relevant func(repository.ChangeEvent) bool,
	equal func(a, b T) bool,
	log zerolog.Logger,
) (*Subscription[T], error) {
	s := &Subscription[T]{
		updates: make(chan Update[T], updateBuffer),
		kick:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	// Attach before the first read so a change landing in between still
	// triggers a refresh.
	s.detach = h.feed.Listen(func(ev repository.ChangeEvent) {
		if ev.Err != nil || ev.Resync || relevant(ev) {
			s.notify(ev)
		}
	})

	initial, err := load(ctx)
	if err != nil {
		s.detach()
		log.Error().Err(err).Msg("failed to load initial snapshot")
		return nil, fmt.Errorf("%w: failed to load initial snapshot: %w", model.ErrRepository, err)
	}
	s.updates <- Update[T]{Value: initial}

	h.active.Add(1)
	log.Debug().Msg("subscription opened")

	go func() {
		defer func() {
			s.once.Do(func() { s.detach() })
			close(s.updates)
			h.active.Add(-1)
			log.Debug().Msg("subscription closed")
			close(s.done)
		}()

		last, haveLast := initial, true
		for {
			select {
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			case <-s.kick:
			}

			if feedErr := s.takeFeedErr(); feedErr != nil {
				log.Warn().Err(feedErr).Msg("change feed interrupted")
				haveLast = false
				if !s.send(ctx, Update[T]{Err: fmt.Errorf("%w: %w", model.ErrRepository, feedErr)}) {
					return
				}
				continue
			}

			value, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Msg("failed to refresh view")
				haveLast = false
				if !s.send(ctx, Update[T]{Err: fmt.Errorf("%w: %w", model.ErrRepository, err)}) {
					return
				}
				continue
			}

			if haveLast && equal(last, value) {
				continue
			}
			if !s.send(ctx, Update[T]{Value: value}) {
				return
			}
			last, haveLast = value, true
		}
	}()

	return s, nil
}

// sameOrders compares views by identity, status and last update. Items and
// totals are immutable after creation.
func sameOrders(a, b []model.Order) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameOrder(&a[i], &b[i]) {
			return false
		}
	}
	return true
}

func sameOrder(a, b *model.Order) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.Status == b.Status && a.UpdatedAt.Equal(b.UpdatedAt)
}
