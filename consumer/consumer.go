// Package consumer runs the poll-dispatch loop against the task ledger.
//
// Each cycle lists eligible tasks, routes them to registered handlers, and
// reports lifecycle transitions back through the gateway. A dispatch makes at
// most one terminal submission per attempt; the ledger's own rejection of a
// duplicate terminal transition is treated as another consumer having won the
// race, not as a failure. Faults are isolated per task: a handler error or
// panic never takes down the loop or the neighboring tasks in the same cycle.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	oraclerr "github.com/vinayprograms/oraclekit/errors"
	"github.com/vinayprograms/oraclekit/ledger"
	"github.com/vinayprograms/oraclekit/logging"
	"github.com/vinayprograms/oraclekit/tasks"
)

// Handler processes one task kind. Validate runs before any ledger
// transition and returns the start acknowledgment payload; Execute runs the
// actual work and returns the resolve payload. Both are invoked with a fresh
// snapshot of the task and must be safe for concurrent use.
type Handler interface {
	Name() string
	Validate(ctx context.Context, task tasks.Task) (string, error)
	Execute(ctx context.Context, task tasks.Task) (string, error)
}

const (
	defaultPollInterval = time.Second
	defaultExecTimeout  = 5 * time.Minute
)

// Config configures a Consumer.
type Config struct {
	// Gateway is the ledger access layer. Required.
	Gateway ledger.Gateway

	// Selectors maps lifecycle transitions to entry-function selectors.
	// Required.
	Selectors ledger.Selectors

	// Sender is the consumer's own account address. Required.
	Sender string

	// PollInterval is the idle wait between cycles. Default: 1 second.
	PollInterval time.Duration

	// ExecTimeout bounds one handler execution. Default: 5 minutes.
	ExecTimeout time.Duration

	// Watcher optionally wakes the loop early on ledger task events.
	Watcher *ledger.EventWatcher

	// Logger for loop and lifecycle events.
	Logger *logging.Logger
}

// Consumer polls the ledger and dispatches tasks to handlers.
type Consumer struct {
	gateway   ledger.Gateway
	selectors ledger.Selectors
	sender    string
	interval  time.Duration
	execLimit time.Duration
	watcher   *ledger.EventWatcher
	log       *logging.Logger

	mu       sync.Mutex
	handlers map[string]Handler

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a Consumer.
func New(cfg Config) (*Consumer, error) {
	if cfg.Gateway == nil {
		return nil, oraclerr.Config("ledger gateway is required")
	}
	if cfg.Sender == "" {
		return nil, oraclerr.Config("sender address is required")
	}
	if cfg.Selectors.Start == "" || cfg.Selectors.Resolve == "" || cfg.Selectors.Fail == "" {
		return nil, oraclerr.Config("transition selectors are required")
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	execLimit := cfg.ExecTimeout
	if execLimit <= 0 {
		execLimit = defaultExecTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	return &Consumer{
		gateway:   cfg.Gateway,
		selectors: cfg.Selectors,
		sender:    cfg.Sender,
		interval:  interval,
		execLimit: execLimit,
		watcher:   cfg.Watcher,
		log:       log.WithComponent("consumer"),
		handlers:  make(map[string]Handler),
		stopCh:    make(chan struct{}),
	}, nil
}

// Register adds a handler for its task name.
func (c *Consumer) Register(h Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := h.Name()
	if name == "" {
		return errors.New("handler has no task name")
	}
	if _, dup := c.handlers[name]; dup {
		return fmt.Errorf("handler already registered for %q", name)
	}
	c.handlers[name] = h
	return nil
}

// handlerFor matches a ledger task to a registered handler. Task names on
// the ledger may be fully qualified with the package address, so a suffix
// match is accepted.
func (c *Consumer) handlerFor(name string) Handler {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.handlers[name]; ok {
		return h
	}
	for registered, h := range c.handlers {
		if strings.HasSuffix(name, "::"+registered) || strings.HasSuffix(name, registered) {
			return h
		}
	}
	return nil
}

// Run blocks, polling until the context is canceled or Stop is called.
// The in-flight cycle always completes before Run returns.
func (c *Consumer) Run(ctx context.Context) error {
	if c.running.Swap(true) {
		return errors.New("consumer already running")
	}
	defer c.running.Store(false)

	if c.watcher != nil {
		c.watcher.Start()
		defer c.watcher.Stop()
	}

	var wake <-chan struct{}
	if c.watcher != nil {
		wake = c.watcher.Wake()
	}

	c.log.Info("consumer_started", map[string]interface{}{
		"interval": c.interval.String(),
	})

	for {
		c.cycle(ctx)

		select {
		case <-ctx.Done():
			c.log.Info("consumer_stopped", map[string]interface{}{"cause": "context"})
			return ctx.Err()
		case <-c.stopCh:
			c.log.Info("consumer_stopped", map[string]interface{}{"cause": "stop"})
			return nil
		case <-time.After(c.interval):
		case <-wake:
		}
	}
}

// Stop signals Run to exit after the current cycle. Safe to call more than
// once and before Run.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// cycle performs one list-and-dispatch pass.
func (c *Consumer) cycle(ctx context.Context) {
	log := c.log.WithTraceID(uuid.NewString()[:8])

	list, err := c.gateway.ListPending(ctx)
	if err != nil {
		log.PollError(err)
		return
	}

	for _, t := range list {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		default:
		}

		if err := t.Validate(); err != nil {
			log.Warn("task_skipped", map[string]interface{}{"error": err.Error()})
			continue
		}
		if !t.Status.Eligible() {
			continue
		}

		h := c.handlerFor(t.Name)
		if h == nil {
			log.Debug("no_handler", map[string]interface{}{
				"task": t.ID,
				"name": t.Name,
			})
			continue
		}

		log.TaskFound(t.ID, t.Name, int(t.Status))
		c.dispatch(ctx, log, t, h)
	}
}

// dispatch runs one task through validate, start, execute, and exactly one
// terminal submission.
func (c *Consumer) dispatch(ctx context.Context, log *logging.Logger, t tasks.Task, h Handler) {
	began := time.Now()

	startMsg, err := guard(func() (string, error) {
		return h.Validate(ctx, t)
	})
	if err != nil {
		c.finishFailed(ctx, log, t, err)
		return
	}

	// The start acknowledgment is best effort. A benign terminal rejection
	// means another consumer finished the task first; anything else is
	// logged and execution proceeds, since the result submit is what counts.
	if t.Status == tasks.StatusPending {
		switch err := c.submit(ctx, t.ID, tasks.TransitionStart, startMsg); {
		case err == nil:
			log.TaskStarted(t.ID)
			t.Status = tasks.StatusStarted
		case oraclerr.IsAlreadyTerminal(err):
			log.AlreadyTerminal(t.ID)
			return
		default:
			log.SubmitError(t.ID, c.selectors.Start, err)
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, c.execLimit)
	payload, err := guard(func() (string, error) {
		return h.Execute(execCtx, t)
	})
	cancel()

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			err = oraclerr.Wrap(oraclerr.ErrCodeTimeout,
				fmt.Sprintf("Failed to process webpage: execution exceeded %s", c.execLimit), err,
				oraclerr.WithTaskID(t.ID))
		}
		c.finishFailed(ctx, log, t, err)
		return
	}

	switch err := c.submit(ctx, t.ID, tasks.TransitionResolve, payload); {
	case err == nil:
		log.TaskResolved(t.ID, time.Since(began))
	case oraclerr.IsAlreadyTerminal(err):
		log.AlreadyTerminal(t.ID)
	default:
		log.SubmitError(t.ID, c.selectors.Resolve, err)
	}
}

// finishFailed reports a handler failure to the ledger when its category
// warrants it. Gateway faults are logged only; the task stays eligible and a
// later cycle retries it.
func (c *Consumer) finishFailed(ctx context.Context, log *logging.Logger, t tasks.Task, cause error) {
	if !oraclerr.CategoryOf(cause).FailsTask() {
		log.SubmitError(t.ID, "", cause)
		return
	}

	log.TaskFailed(t.ID, cause.Error())

	switch err := c.submit(ctx, t.ID, tasks.TransitionFail, cause.Error()); {
	case err == nil:
	case oraclerr.IsAlreadyTerminal(err):
		log.AlreadyTerminal(t.ID)
	default:
		log.SubmitError(t.ID, c.selectors.Fail, err)
	}
}

// submit sends one transition through the gateway.
func (c *Consumer) submit(ctx context.Context, taskID string, tr tasks.Transition, payload string) error {
	function, err := c.selectors.For(tr)
	if err != nil {
		return err
	}
	return c.gateway.SubmitTransition(ctx, ledger.Call{
		TaskID:   taskID,
		Sender:   c.sender,
		Function: function,
		Payload:  payload,
	})
}

// guard invokes a handler step and converts a panic into an execution error.
func guard(fn func() (string, error)) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oraclerr.Newf(oraclerr.ErrCodePanic, "Failed to process webpage: handler panic: %v", r)
		}
	}()
	return fn()
}
