package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestShutdownRunsPhasesInOrder(t *testing.T) {
	c := NewCoordinator()

	var mu sync.Mutex
	var order []string
	record := func(name string) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	c.RegisterFunc("archive", PhaseStorage, record("archive"))
	c.RegisterFunc("consumer", PhaseConsumer, record("consumer"))
	c.RegisterFunc("watcher", PhaseWatcher, record("watcher"))

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	want := []string{"consumer", "watcher", "archive"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestShutdownRunsPhaseHandlersConcurrently(t *testing.T) {
	c := NewCoordinator()

	var inFlight, peak atomic.Int32
	slow := func(ctx context.Context) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	c.RegisterFunc("a", PhaseStorage, slow)
	c.RegisterFunc("b", PhaseStorage, slow)

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if peak.Load() < 2 {
		t.Errorf("peak concurrency = %d, want 2", peak.Load())
	}
}

func TestShutdownContinuesPastFailedHandler(t *testing.T) {
	c := NewCoordinator()

	var laterRan atomic.Bool
	c.RegisterFunc("broken", PhaseConsumer, func(ctx context.Context) error {
		return errors.New("stop failed")
	})
	c.RegisterFunc("later", PhaseStorage, func(ctx context.Context) error {
		laterRan.Store(true)
		return nil
	})

	err := c.Shutdown()
	if !errors.Is(err, ErrHandlerFailed) {
		t.Errorf("Shutdown = %v", err)
	}
	if !laterRan.Load() {
		t.Error("later phase did not run after failure")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	c := NewCoordinator()

	var calls atomic.Int32
	c.RegisterFunc("once", PhaseConsumer, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	if err := c.Shutdown(); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := c.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("handler ran %d times", calls.Load())
	}
}

func TestShutdownTimeout(t *testing.T) {
	c := NewCoordinator(WithTimeout(10 * time.Millisecond))

	c.RegisterFunc("stuck", PhaseConsumer, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	c.RegisterFunc("never", PhaseStorage, func(ctx context.Context) error {
		t.Error("phase after timeout still ran")
		return nil
	})

	err := c.Shutdown()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrHandlerFailed) {
		t.Errorf("Shutdown = %v", err)
	}
}

func TestTriggerInitiatesShutdown(t *testing.T) {
	c := NewCoordinator()

	var ran atomic.Bool
	c.RegisterFunc("consumer", PhaseConsumer, func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	c.HandleSignals()
	c.Trigger()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown never completed")
	}
	if !ran.Load() {
		t.Error("handler did not run")
	}
	if c.Err() != nil {
		t.Errorf("Err = %v", c.Err())
	}
}

func TestProgressCallback(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	c := NewCoordinator(WithProgress(func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, r.Name)
	}))

	c.RegisterFunc("consumer", PhaseConsumer, func(ctx context.Context) error { return nil })
	c.RegisterFunc("archive", PhaseStorage, func(ctx context.Context) error { return nil })

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("progress calls = %v", seen)
	}
}
