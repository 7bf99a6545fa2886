package shutdown

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestHandler_ReverseOrder(t *testing.T) {
	h := NewHandler(5 * time.Second)

	var order []string
	for _, name := range []string{"storage", "metrics", "http"} {
		h.OnShutdown(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := h.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	want := []string{"http", "metrics", "storage"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("hook order = %v, want %v", order, want)
	}
}

func TestHandler_AggregatesErrors(t *testing.T) {
	h := NewHandler(5 * time.Second)
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	var ran int
	h.OnClose("a", func() error { ran++; return errA })
	h.OnClose("ok", func() error { ran++; return nil })
	h.OnClose("b", func() error { ran++; return errB })

	err := h.Shutdown()
	if ran != 3 {
		t.Errorf("ran %d hooks, want 3", ran)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("Shutdown() error = %v, want both causes", err)
	}
	if !strings.Contains(err.Error(), "a: a failed") {
		t.Errorf("error %q does not name the hook", err)
	}
}

func TestHandler_ShutdownOnce(t *testing.T) {
	h := NewHandler(time.Second)
	calls := 0
	h.OnClose("x", func() error { calls++; return nil })

	_ = h.Shutdown()
	_ = h.Shutdown()

	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done() not closed after Shutdown")
	}
}

func TestHandler_HookSeesDeadline(t *testing.T) {
	h := NewHandler(50 * time.Millisecond)
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := h.Shutdown()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown() error = %v, want deadline exceeded", err)
	}
}

func TestHandler_NotifyContext(t *testing.T) {
	h := NewHandler(time.Second)
	parent, cancel := context.WithCancel(context.Background())

	ctx, stop := h.NotifyContext(parent)
	defer stop()
	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with its parent")
	}
}
