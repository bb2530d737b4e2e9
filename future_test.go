package raypool

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestFuture_ResolveOnce(t *testing.T) {
	f := newFuture[int]()
	if f.Ready() {
		t.Fatal("new future is ready")
	}

	f.resolve(1)
	f.resolve(2)
	f.reject(errors.New("late"))

	v, err := f.Await(context.Background())
	if err != nil || v != 1 {
		t.Errorf("Await = %d, %v; want 1, nil", v, err)
	}
	select {
	case <-f.Done():
	default:
		t.Error("Done() not closed after resolve")
	}
}

func TestFuture_Reject(t *testing.T) {
	f := newFuture[string]()
	want := errors.New("nope")
	f.reject(want)
	f.resolve("ignored")

	if _, err := f.Await(context.Background()); !errors.Is(err, want) {
		t.Errorf("Await err = %v, want %v", err, want)
	}
}

func TestFuture_AwaitContext(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := f.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Await err = %v, want DeadlineExceeded", err)
	}
	// An abandoned wait does not settle the future.
	if f.Ready() {
		t.Error("future settled by cancelled Await")
	}
}

func TestThenFuture(t *testing.T) {
	t.Run("maps value", func(t *testing.T) {
		f := newFuture[int]()
		g := thenFuture(f, func(v int) (string, error) { return strconv.Itoa(v * 2), nil })
		f.resolve(21)
		if got, err := await(t, g); err != nil || got != "42" {
			t.Errorf("got %q, %v; want 42, nil", got, err)
		}
	})

	t.Run("propagates rejection", func(t *testing.T) {
		f := newFuture[int]()
		want := errors.New("upstream")
		g := thenFuture(f, func(int) (int, error) {
			t.Error("fn called for rejected future")
			return 0, nil
		})
		f.reject(want)
		if _, err := await(t, g); !errors.Is(err, want) {
			t.Errorf("err = %v, want %v", err, want)
		}
	})

	t.Run("fn error rejects", func(t *testing.T) {
		f := newFuture[int]()
		want := errors.New("mapping failed")
		g := thenFuture(f, func(int) (int, error) { return 0, want })
		f.resolve(1)
		if _, err := await(t, g); !errors.Is(err, want) {
			t.Errorf("err = %v, want %v", err, want)
		}
	})
}
