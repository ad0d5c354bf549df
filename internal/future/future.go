// Package future provides the one-shot pending value resolvers use to
// suspend. A resolver that cannot produce its value immediately returns
// a *Value; the goroutine that owns the value settles it later. Await
// parks only the calling goroutine, so sibling fields and other
// requests keep making progress. The primitive is explicit: nothing in
// queryrun patches ambient scheduling, callers choose where the
// settling work runs.
package future

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// Value is a pending result that can be settled exactly once.
// The zero value is not usable; construct with New, Go, Resolved or
// Failed.
type Value struct {
	done chan struct{}
	once sync.Once
	val  any
	err  error
}

// New returns an unsettled Value.
func New() *Value {
	return &Value{done: make(chan struct{})}
}

// Resolved returns a Value already settled with val.
func Resolved(val any) *Value {
	v := New()
	v.Complete(val)
	return v
}

// Failed returns a Value already settled with err.
func Failed(err error) *Value {
	v := New()
	v.Fail(err)
	return v
}

// Go runs fn in its own goroutine and settles the returned Value with
// its outcome. A panic inside fn settles the Value with a *PanicError
// carrying the goroutine stack.
func Go(fn func() (any, error)) *Value {
	v := New()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				v.Fail(&PanicError{Value: r, Stack: debug.Stack()})
			}
		}()
		val, err := fn()
		if err != nil {
			v.Fail(err)
			return
		}
		v.Complete(val)
	}()
	return v
}

// Complete settles v with val. Settling an already-settled Value is a
// no-op; the first settle wins.
func (v *Value) Complete(val any) { v.settle(val, nil) }

// Fail settles v with err.
func (v *Value) Fail(err error) {
	if err == nil {
		err = errors.New("future: failed with nil error")
	}
	v.settle(nil, err)
}

func (v *Value) settle(val any, err error) {
	v.once.Do(func() {
		v.val, v.err = val, err
		close(v.done)
	})
}

// Await blocks the calling goroutine until v settles or ctx is done.
func (v *Value) Await(ctx context.Context) (any, error) {
	select {
	case <-v.done:
		return v.val, v.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Settled reports whether v has been settled, without blocking.
func (v *Value) Settled() bool {
	select {
	case <-v.done:
		return true
	default:
		return false
	}
}

// PanicError wraps a panic recovered from a task function, preserving
// the stack of the failure site for diagnostics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }
