package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type pingEvent struct{ N int }
type otherEvent struct{}

func TestPublishDispatchesByType(t *testing.T) {
	Use(New())
	t.Cleanup(func() { Use(nil) })

	var pings []pingEvent
	var others int
	Subscribe(func(ctx context.Context, e pingEvent) { pings = append(pings, e) })
	Subscribe(func(ctx context.Context, e otherEvent) { others++ })

	Publish(context.Background(), pingEvent{N: 1})
	Publish(context.Background(), pingEvent{N: 2})

	require.Equal(t, []pingEvent{{N: 1}, {N: 2}}, pings)
	require.Zero(t, others)
}

func TestMultipleHandlersAllRun(t *testing.T) {
	Use(New())
	t.Cleanup(func() { Use(nil) })

	var a, b int
	Subscribe(func(ctx context.Context, e pingEvent) { a++ })
	Subscribe(func(ctx context.Context, e pingEvent) { b++ })

	Publish(context.Background(), pingEvent{})
	require.Equal(t, 1, a)
	require.Equal(t, 1, b)
}

func TestUnsubscribe(t *testing.T) {
	Use(New())
	t.Cleanup(func() { Use(nil) })

	var kept, dropped int
	Subscribe(func(ctx context.Context, e pingEvent) { kept++ })
	unsubscribe := Subscribe(func(ctx context.Context, e pingEvent) { dropped++ })

	Publish(context.Background(), pingEvent{})
	unsubscribe()
	Publish(context.Background(), pingEvent{})

	require.Equal(t, 2, kept)
	require.Equal(t, 1, dropped)
}

func TestSubscribeDuringDispatch(t *testing.T) {
	Use(New())
	t.Cleanup(func() { Use(nil) })

	// Dispatch iterates a snapshot, so a handler registering another
	// handler must not affect the in-flight delivery.
	var late int
	Subscribe(func(ctx context.Context, e pingEvent) {
		Subscribe(func(ctx context.Context, e pingEvent) { late++ })
	})

	Publish(context.Background(), pingEvent{})
	require.Zero(t, late)
	Publish(context.Background(), pingEvent{})
	require.Equal(t, 1, late)
}

func TestNoBusInstalled(t *testing.T) {
	Use(nil)

	// Both are silent no-ops without an installed bus.
	Subscribe(func(ctx context.Context, e pingEvent) { t.Fatal("should not run") })
	Publish(context.Background(), pingEvent{})
}
