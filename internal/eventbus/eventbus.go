// Package eventbus is a minimal typed in-process event dispatcher.
// Components publish plain event structs; observers subscribe by event
// type. The process installs one bus with Use; when none is installed,
// publishing is free and silent.
package eventbus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Handler processes events of type T.
type Handler[T any] func(context.Context, T)

// Bus dispatches events to handlers registered per concrete type.
type Bus struct {
	mu   sync.RWMutex
	subs map[reflect.Type][]any // wrapped handlers stored without type
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[reflect.Type][]any)}
}

func (b *Bus) attach(t reflect.Type, fn any) (detach func()) {
	b.mu.Lock()
	b.subs[t] = append(b.subs[t], fn)
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		hs := b.subs[t]
		for i, h := range hs {
			if reflect.ValueOf(h).Pointer() == reflect.ValueOf(fn).Pointer() {
				hs = append(hs[:i], hs[i+1:]...)
				break
			}
		}
		if len(hs) == 0 {
			delete(b.subs, t)
		} else {
			b.subs[t] = hs
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, e any) {
	if b == nil {
		return
	}
	t := reflect.TypeOf(e)
	b.mu.RLock()
	hs := b.subs[t]
	if len(hs) == 0 {
		b.mu.RUnlock()
		return
	}
	copied := append([]any(nil), hs...)
	b.mu.RUnlock()
	for _, fn := range copied {
		fn.(func(context.Context, any))(ctx, e)
	}
}

var active atomic.Pointer[Bus]

// Use installs b as the process bus. Passing nil disables publishing.
func Use(b *Bus) { active.Store(b) }

// Subscribe registers h for events of type T on the process bus and
// returns a func that removes the registration. Subscribing with no
// bus installed is a no-op.
func Subscribe[T any](h Handler[T]) (unsubscribe func()) {
	b := active.Load()
	if b == nil {
		return func() {}
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	return b.attach(t, func(ctx context.Context, v any) { h(ctx, v.(T)) })
}

// Publish sends e through the process bus, synchronously, to every
// handler registered for its type.
func Publish[T any](ctx context.Context, e T) {
	if b := active.Load(); b != nil {
		b.dispatch(ctx, e)
	}
}
