package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	future "github.com/dohyun-p/queryrun/internal/future"
)

func TestFutures_SuspendedFields(t *testing.T) {
	t.Run("ScalarFuture", func(t *testing.T) {
		sch := testSchema(t)
		rt := NewMapRuntime(nil)
		rt.SetResolver("Query", "hello", func(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error) {
			return future.Go(func() (any, error) {
				time.Sleep(time.Millisecond)
				return "later", nil
			}), nil
		})
		exec := New(rt, sch)
		doc := mustParseQuery(t, `{ hello num }`)

		got := exec.ExecuteRequest(context.Background(), doc, "", nil, map[string]any{"num": 1})

		want := &ExecutionResult{Data: map[string]any{"hello": "later", "num": 1}}
		if diff := cmp.Diff(want, got, ignoreDiagnostics); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("NestedFutures", func(t *testing.T) {
		sch := testSchema(t)
		rt := NewMapRuntime(nil)
		rt.SetResolver("Query", "obj", func(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error) {
			return future.Go(func() (any, error) {
				return map[string]any{}, nil
			}), nil
		})
		rt.SetResolver("Obj", "a", func(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error) {
			return future.Go(func() (any, error) {
				return "deep", nil
			}), nil
		})
		rt.SetResolver("Obj", "b", func(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error) {
			return "sync", nil
		})
		exec := New(rt, sch)
		doc := mustParseQuery(t, `{ obj { a b } }`)

		got := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

		want := &ExecutionResult{
			Data: map[string]any{"obj": map[string]any{"a": "deep", "b": "sync"}},
		}
		if diff := cmp.Diff(want, got, ignoreDiagnostics); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("SiblingsRunWhileOneIsParked", func(t *testing.T) {
		sch := testSchema(t)
		rt := NewMapRuntime(nil)
		release := make(chan struct{})
		rt.SetResolver("Query", "hello", func(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error) {
			return future.Go(func() (any, error) {
				<-release
				return "late", nil
			}), nil
		})
		var numResolvedAt time.Time
		rt.SetResolver("Query", "num", func(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error) {
			numResolvedAt = time.Now()
			close(release)
			return 2, nil
		})
		exec := New(rt, sch)
		doc := mustParseQuery(t, `{ hello num }`)

		got := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

		if numResolvedAt.IsZero() {
			t.Fatal("sibling resolver never ran")
		}
		want := &ExecutionResult{Data: map[string]any{"hello": "late", "num": 2}}
		if diff := cmp.Diff(want, got, ignoreDiagnostics); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("FutureFailure", func(t *testing.T) {
		sch := testSchema(t)
		rt := NewMapRuntime(nil)
		rt.SetResolver("Query", "hello", func(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error) {
			return future.Failed(fmt.Errorf("boom")), nil
		})
		exec := New(rt, sch)
		doc := mustParseQuery(t, `{ hello }`)

		got := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

		want := &ExecutionResult{
			Data:   map[string]any{"hello": nil},
			Errors: []Error{{Message: "boom", Path: Path{"hello"}}},
		}
		if diff := cmp.Diff(want, got, ignoreDiagnostics); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("FutureNonNullPropagation", func(t *testing.T) {
		sch := testSchema(t)
		rt := NewMapRuntime(nil)
		rt.SetResolver("Query", "box", func(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error) {
			return map[string]any{}, nil
		})
		rt.SetResolver("Box", "must", func(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error) {
			return future.Failed(fmt.Errorf("gone")), nil
		})
		exec := New(rt, sch)
		doc := mustParseQuery(t, `{ box { must } }`)

		got := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

		if len(got.Errors) != 1 || got.Errors[0].Message != "gone" {
			t.Fatalf("unexpected errors: %v", got.Errors)
		}
		data := got.Data.(map[string]any)
		if data["box"] != nil {
			t.Fatalf("expected box to be nullified, got %v", data["box"])
		}
	})
}

func TestPanicRecovery(t *testing.T) {
	t.Run("SyncResolverPanic", func(t *testing.T) {
		sch := testSchema(t)
		rt := NewMapRuntime(nil)
		rt.SetResolver("Query", "hello", func(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error) {
			panic("kaboom")
		})
		exec := New(rt, sch)
		doc := mustParseQuery(t, `{ hello }`)

		got := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

		if len(got.Errors) != 1 {
			t.Fatalf("expected 1 error, got %v", got.Errors)
		}
		if got.Errors[0].Message != "panic: kaboom" {
			t.Fatalf("unexpected message: %q", got.Errors[0].Message)
		}
		if got.Errors[0].Stack == "" {
			t.Fatal("expected failure-site stack to be preserved")
		}
	})

	t.Run("FuturePanic", func(t *testing.T) {
		sch := testSchema(t)
		rt := NewMapRuntime(nil)
		rt.SetResolver("Query", "hello", func(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error) {
			return future.Go(func() (any, error) {
				panic("async kaboom")
			}), nil
		})
		exec := New(rt, sch)
		doc := mustParseQuery(t, `{ hello }`)

		got := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

		if len(got.Errors) != 1 {
			t.Fatalf("expected 1 error, got %v", got.Errors)
		}
		if got.Errors[0].Message != "panic: async kaboom" {
			t.Fatalf("unexpected message: %q", got.Errors[0].Message)
		}
		if got.Errors[0].Stack == "" {
			t.Fatal("expected failure-site stack to be preserved")
		}
	})
}
