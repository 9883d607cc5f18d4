package ledger

import (
	"context"
	"sync"

	oraclerr "github.com/vinayprograms/oraclekit/errors"
	"github.com/vinayprograms/oraclekit/tasks"
)

// MemoryGateway is an in-memory Gateway for tests and local dry runs.
// It enforces the same lifecycle rules the on-chain task module does,
// including the benign rejection of a duplicate terminal submit.
type MemoryGateway struct {
	mu        sync.Mutex
	selectors Selectors
	tasks     map[string]*tasks.Task
	order     []string
	calls     []Call

	listErr   error
	submitErr error
}

// NewMemoryGateway creates an empty in-memory gateway.
func NewMemoryGateway(selectors Selectors) *MemoryGateway {
	return &MemoryGateway{
		selectors: selectors,
		tasks:     make(map[string]*tasks.Task),
	}
}

// Seed adds a task to the ledger snapshot.
func (g *MemoryGateway) Seed(t tasks.Task) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.tasks[t.ID]; !exists {
		g.order = append(g.order, t.ID)
	}
	copied := t
	g.tasks[t.ID] = &copied
}

// SetListError makes the next ListPending calls fail.
func (g *MemoryGateway) SetListError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listErr = err
}

// SetSubmitError makes SubmitTransition calls fail with a gateway fault.
func (g *MemoryGateway) SetSubmitError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitErr = err
}

// ListPending implements Gateway.
func (g *MemoryGateway) ListPending(ctx context.Context) ([]tasks.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.listErr != nil {
		return nil, g.listErr
	}

	var out []tasks.Task
	for _, id := range g.order {
		t := g.tasks[id]
		if t.Status.Eligible() {
			out = append(out, *t)
		}
	}
	return out, nil
}

// SubmitTransition implements Gateway.
func (g *MemoryGateway) SubmitTransition(ctx context.Context, call Call) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, call)

	if g.submitErr != nil {
		return oraclerr.LedgerFault("submit transition", g.submitErr)
	}

	t, ok := g.tasks[call.TaskID]
	if !ok {
		return oraclerr.Newf(oraclerr.ErrCodeLedgerRejected, "unknown object %s", call.TaskID)
	}

	tr, err := g.transitionFor(call.Function)
	if err != nil {
		return err
	}

	if t.Status.IsTerminal() {
		return oraclerr.AlreadyTerminal(call.TaskID)
	}
	if err := t.Apply(tr); err != nil {
		return oraclerr.AlreadyTerminal(call.TaskID)
	}
	return nil
}

// transitionFor maps a selector back to its lifecycle transition.
func (g *MemoryGateway) transitionFor(function string) (tasks.Transition, error) {
	switch function {
	case g.selectors.Start:
		return tasks.TransitionStart, nil
	case g.selectors.Resolve:
		return tasks.TransitionResolve, nil
	case g.selectors.Fail:
		return tasks.TransitionFail, nil
	default:
		return 0, oraclerr.Newf(oraclerr.ErrCodeLedgerRejected, "unknown function %q", function)
	}
}

// Calls returns all submissions received, in order.
func (g *MemoryGateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// Task returns the current state of a seeded task.
func (g *MemoryGateway) Task(id string) (tasks.Task, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.tasks[id]
	if !ok {
		return tasks.Task{}, false
	}
	return *t, true
}
