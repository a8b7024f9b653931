package backend

import (
	"context"
	"sync"
	"sync/atomic"
)

type dispatchKey struct{}

// InDispatch reports whether ctx was handed to an AuthListener.
func InDispatch(ctx context.Context) bool {
	return ctx != nil && ctx.Value(dispatchKey{}) != nil
}

// CheckReentrant returns ErrReentrantCall when ctx belongs to a dispatch.
func CheckReentrant(ctx context.Context) error {
	if InDispatch(ctx) {
		return ErrReentrantCall
	}
	return nil
}

// Dispatcher fans auth events out to listeners in subscription order.
// Client implementations embed it; it is safe for concurrent use.
type Dispatcher struct {
	mu        sync.Mutex
	nextID    int
	listeners []listenerEntry
	active    atomic.Int32
}

type listenerEntry struct {
	id int
	fn AuthListener
}

type subscription struct {
	once sync.Once
	fn   func()
}

func (s *subscription) Unsubscribe() { s.once.Do(s.fn) }

// Subscribe registers fn and returns its subscription handle.
func (d *Dispatcher) Subscribe(fn AuthListener) Subscription {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.listeners = append(d.listeners, listenerEntry{id: id, fn: fn})
	d.mu.Unlock()

	return &subscription{fn: func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, l := range d.listeners {
			if l.id == id {
				d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
				return
			}
		}
	}}
}

// Emit delivers event to every listener registered at the time of the call.
func (d *Dispatcher) Emit(ctx context.Context, event Event, session *Session) {
	d.mu.Lock()
	ls := make([]listenerEntry, len(d.listeners))
	copy(ls, d.listeners)
	d.mu.Unlock()

	if len(ls) == 0 {
		return
	}

	dctx := context.WithValue(context.WithoutCancel(ctx), dispatchKey{}, event)
	d.active.Add(1)
	defer d.active.Add(-1)
	for _, l := range ls {
		var s *Session
		if session != nil {
			cp := *session
			s = &cp
		}
		l.fn(dctx, event, s)
	}
}

// Dispatching reports whether an Emit is in progress.
func (d *Dispatcher) Dispatching() bool {
	return d.active.Load() > 0
}

// Listeners returns the number of registered listeners.
func (d *Dispatcher) Listeners() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}
