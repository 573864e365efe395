package share

import (
	"context"
	"sync"

	"serwer-udostepnien/internal/models"
)

type EventKind string

const (
	EventBeforeCreate    EventKind = "share.before_create"
	EventCreated         EventKind = "share.created"
	EventBeforeDelete    EventKind = "share.before_delete"
	EventDeleted         EventKind = "share.deleted"
	EventDeletedFromSelf EventKind = "share.deleted_from_self"
	EventRestored        EventKind = "share.restored"
	EventMoved           EventKind = "share.moved"
	EventUpdated         EventKind = "share.updated"
	EventPasswordUpdated EventKind = "share.password_updated"
)

type Event struct {
	Kind  EventKind     `json:"kind"`
	Share *models.Share `json:"share"`
}

// VetoFunc runs before a cancelable operation. A non-nil error halts the
// operation and is surfaced to the caller.
type VetoFunc func(ctx context.Context, share *models.Share) error

// ListenFunc observes a completed operation. It cannot influence it.
type ListenFunc func(ctx context.Context, ev Event)

// Dispatcher is an explicit, ordered listener list per event kind. Vetoers
// only exist for the "before" kinds; everything else is observation-only.
type Dispatcher struct {
	mu        sync.RWMutex
	vetoers   map[EventKind][]VetoFunc
	listeners map[EventKind][]ListenFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		vetoers:   make(map[EventKind][]VetoFunc),
		listeners: make(map[EventKind][]ListenFunc),
	}
}

func (d *Dispatcher) OnBefore(kind EventKind, fn VetoFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vetoers[kind] = append(d.vetoers[kind], fn)
}

func (d *Dispatcher) On(kind EventKind, fn ListenFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[kind] = append(d.listeners[kind], fn)
}

// veto runs all registered vetoers in registration order and returns the
// first rejection.
func (d *Dispatcher) veto(ctx context.Context, kind EventKind, share *models.Share) error {
	d.mu.RLock()
	fns := d.vetoers[kind]
	d.mu.RUnlock()

	for _, fn := range fns {
		if err := fn(ctx, share); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, kind EventKind, share *models.Share) {
	d.mu.RLock()
	fns := d.listeners[kind]
	d.mu.RUnlock()

	for _, fn := range fns {
		fn(ctx, Event{Kind: kind, Share: share})
	}
}
