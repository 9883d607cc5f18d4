// Package shutdown coordinates graceful teardown of the oracle daemon.
//
// Components register in phases and phases stop in order: the poll loop
// first, so no new task work begins; then the event watcher; then storage
// and provider clients. Handlers within a phase stop concurrently. An
// in-flight task dispatch is given until the timeout to reach its terminal
// submit; the ledger's idempotent rejection covers the crash case where it
// does not.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

// Common errors.
var (
	// ErrTimeout indicates shutdown did not complete within the timeout.
	ErrTimeout = errors.New("shutdown timeout exceeded")

	// ErrHandlerFailed indicates one or more handlers failed.
	ErrHandlerFailed = errors.New("one or more shutdown handlers failed")
)

// Daemon phases, stopped in ascending order.
const (
	// PhaseConsumer stops the poll loop.
	PhaseConsumer = 10

	// PhaseWatcher stops the event watcher.
	PhaseWatcher = 20

	// PhaseStorage closes the archive and provider clients.
	PhaseStorage = 30
)

// DefaultTimeout bounds a full shutdown.
const DefaultTimeout = 30 * time.Second

// Handler is implemented by components that need graceful shutdown.
// The context is canceled when the timeout is reached.
type Handler interface {
	OnShutdown(ctx context.Context) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context) error

// OnShutdown implements Handler.
func (f HandlerFunc) OnShutdown(ctx context.Context) error {
	return f(ctx)
}

// registration holds a registered handler with its metadata.
type registration struct {
	name    string
	phase   int
	handler Handler
}

// Result reports one handler's teardown.
type Result struct {
	Name     string
	Phase    int
	Duration time.Duration
	Err      error
}

// Coordinator runs registered handlers phase by phase.
type Coordinator struct {
	timeout    time.Duration
	onProgress func(Result)

	mu       sync.Mutex
	handlers []registration

	once       sync.Once
	err        error
	done       chan struct{}
	signalChan chan os.Signal
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout overrides the default shutdown timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// WithProgress installs a callback invoked as each handler completes.
func WithProgress(fn func(Result)) Option {
	return func(c *Coordinator) {
		c.onProgress = fn
	}
}

// NewCoordinator creates a coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		timeout:    DefaultTimeout,
		done:       make(chan struct{}),
		signalChan: make(chan os.Signal, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a handler to a phase.
func (c *Coordinator) Register(name string, phase int, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, phase: phase, handler: h})
}

// RegisterFunc adds a function handler to a phase.
func (c *Coordinator) RegisterFunc(name string, phase int, fn func(ctx context.Context) error) {
	c.Register(name, phase, HandlerFunc(fn))
}

// HandleSignals triggers shutdown on SIGTERM or SIGINT.
func (c *Coordinator) HandleSignals() {
	signal.Notify(c.signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-c.signalChan
		c.Shutdown()
	}()
}

// Trigger initiates shutdown as if a signal had arrived.
func (c *Coordinator) Trigger() {
	select {
	case c.signalChan <- syscall.SIGTERM:
	default:
	}
}

// Shutdown runs all handlers once, phase by phase, within the timeout.
// Later calls return the first run's error.
func (c *Coordinator) Shutdown() error {
	c.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		c.err = c.run(ctx)
		close(c.done)
	})
	<-c.done
	return c.err
}

// Done is closed when shutdown has completed.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Err returns the shutdown error, valid once Done is closed.
func (c *Coordinator) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// run executes each phase in ascending order; handlers within a phase run
// concurrently. A failed handler never blocks the phases after it.
func (c *Coordinator) run(ctx context.Context) error {
	c.mu.Lock()
	handlers := make([]registration, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	var overallErr error
	for _, group := range groupByPhase(handlers) {
		select {
		case <-ctx.Done():
			return ErrTimeout
		default:
		}

		for _, res := range c.runPhase(ctx, group) {
			if res.Err != nil && overallErr == nil {
				overallErr = ErrHandlerFailed
			}
		}
	}
	return overallErr
}

// runPhase stops all handlers of one phase concurrently.
func (c *Coordinator) runPhase(ctx context.Context, group []registration) []Result {
	results := make([]Result, len(group))
	var wg sync.WaitGroup

	for i, reg := range group {
		wg.Add(1)
		go func(idx int, r registration) {
			defer wg.Done()

			start := time.Now()
			err := r.handler.OnShutdown(ctx)

			res := Result{
				Name:     r.name,
				Phase:    r.phase,
				Duration: time.Since(start),
				Err:      err,
			}
			results[idx] = res
			if c.onProgress != nil {
				c.onProgress(res)
			}
		}(i, reg)
	}

	wg.Wait()
	return results
}

// groupByPhase splits phase-sorted handlers into per-phase groups.
func groupByPhase(handlers []registration) [][]registration {
	var groups [][]registration
	var current []registration

	for _, h := range handlers {
		if len(current) > 0 && current[0].phase != h.phase {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, h)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
