package hub

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/logtrap/logtrap/internal/model"
)

// Observer receives the full ordered log set on every change, and once
// immediately after subscribing. Deliveries carry the store's current
// state wholesale; there is no incremental reconciliation to get wrong.
type Observer func(records []model.LogRecord)

// Source is the read side of the persistent store the hub re-reads after
// every mutation. Satisfied by *store.Store.
type Source interface {
	ScanAll(ctx context.Context) ([]model.LogRecord, error)
}

// Hub keeps a dynamic set of observers synchronized with store contents.
// Observers never touch the store directly; they see whatever the latest
// re-read produced.
type Hub struct {
	source Source
	logger zerolog.Logger

	mu        sync.Mutex
	observers map[uuid.UUID]Observer
}

// New returns a Hub reading from source.
func New(source Source, logger zerolog.Logger) *Hub {
	return &Hub{
		source:    source,
		logger:    logger,
		observers: make(map[uuid.UUID]Observer),
	}
}

// Subscription is the unsubscribe handle returned by Subscribe.
type Subscription struct {
	id  uuid.UUID
	hub *Hub
}

// Unsubscribe removes the observer. Calling it again, or on an observer
// already removed, is a no-op.
func (s Subscription) Unsubscribe() {
	if s.hub == nil {
		return
	}
	s.hub.mu.Lock()
	delete(s.hub.observers, s.id)
	s.hub.mu.Unlock()
}

// Subscribe registers an observer and asynchronously delivers the current
// full log set to it, so a late subscriber is not starved until the next
// mutation. A failed initial read is logged and the observer simply waits
// for the next notification.
func (h *Hub) Subscribe(observer Observer) Subscription {
	id := uuid.New()
	h.mu.Lock()
	h.observers[id] = observer
	h.mu.Unlock()

	go func() {
		records, err := h.source.ScanAll(context.Background())
		if err != nil {
			h.logger.Error().Err(err).Msg("initial delivery: store read failed")
			return
		}
		// The observer may have unsubscribed while the read was in
		// flight; skip delivery in that case.
		h.mu.Lock()
		_, active := h.observers[id]
		h.mu.Unlock()
		if active {
			observer(records)
		}
	}()

	return Subscription{id: id, hub: h}
}

// NotifyAll performs a fresh full read and delivers the result to every
// registered observer. It is invoked after every successful insert or
// clear, but deliberately separate from the mutation: a failed re-read is
// returned to the caller to report and never invalidates the mutation
// that triggered it.
func (h *Hub) NotifyAll(ctx context.Context) error {
	records, err := h.source.ScanAll(ctx)
	if err != nil {
		return err
	}

	h.mu.Lock()
	observers := make([]Observer, 0, len(h.observers))
	for _, observer := range h.observers {
		observers = append(observers, observer)
	}
	h.mu.Unlock()

	for _, observer := range observers {
		observer(records)
	}
	return nil
}
