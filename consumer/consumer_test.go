package consumer

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/vinayprograms/oraclekit/agent"
	oraclerr "github.com/vinayprograms/oraclekit/errors"
	"github.com/vinayprograms/oraclekit/ledger"
	"github.com/vinayprograms/oraclekit/safety"
	"github.com/vinayprograms/oraclekit/tasks"
	"github.com/vinayprograms/oraclekit/webpage"
)

var testSelectors = ledger.DefaultSelectors("0xdead")

// stubHandler scripts Validate/Execute for loop tests.
type stubHandler struct {
	name     string
	validate func(ctx context.Context, t tasks.Task) (string, error)
	execute  func(ctx context.Context, t tasks.Task) (string, error)
}

func (s *stubHandler) Name() string { return s.name }

func (s *stubHandler) Validate(ctx context.Context, t tasks.Task) (string, error) {
	if s.validate != nil {
		return s.validate(ctx, t)
	}
	return "Processing webpage: stub", nil
}

func (s *stubHandler) Execute(ctx context.Context, t tasks.Task) (string, error) {
	if s.execute != nil {
		return s.execute(ctx, t)
	}
	return "stub result", nil
}

func newTestConsumer(t *testing.T, gw ledger.Gateway, handlers ...Handler) *Consumer {
	t.Helper()
	c, err := New(Config{
		Gateway:   gw,
		Selectors: testSelectors,
		Sender:    "0xsender",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, h := range handlers {
		if err := c.Register(h); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return c
}

// newWebpageConsumer wires the real webpage handler over a mock backend.
func newWebpageConsumer(t *testing.T, gw ledger.Gateway) (*Consumer, *agent.MockBackend) {
	t.Helper()
	backend := agent.NewMockBackend()
	checker := safety.NewChecker(safety.WithLookup(
		func(ctx context.Context, host string) ([]netip.Addr, error) {
			return []netip.Addr{netip.MustParseAddr("93.184.216.34")}, nil
		}))
	h, err := webpage.NewHandler(webpage.Config{Checker: checker, Backend: backend})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return newTestConsumer(t, gw, h), backend
}

func pendingTask(id, arguments string) tasks.Task {
	return tasks.Task{
		ID:        id,
		Name:      webpage.TaskName,
		Status:    tasks.StatusPending,
		Arguments: arguments,
	}
}

func TestCycleResolvesPendingTask(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	gw.Seed(pendingTask("0xt1", `{"url": "https://example.com/a"}`))

	c, backend := newWebpageConsumer(t, gw)
	backend.SetResponse("the summary")

	c.cycle(context.Background())

	calls := gw.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected start+resolve, got %d calls: %+v", len(calls), calls)
	}
	if calls[0].Function != testSelectors.Start {
		t.Errorf("first call = %s", calls[0].Function)
	}
	if calls[0].Payload != "Processing webpage: https://example.com/a" {
		t.Errorf("start payload = %q", calls[0].Payload)
	}
	if calls[0].Sender != "0xsender" {
		t.Errorf("sender = %q", calls[0].Sender)
	}
	if calls[1].Function != testSelectors.Resolve {
		t.Errorf("second call = %s", calls[1].Function)
	}
	if calls[1].Payload != "the summary" {
		t.Errorf("resolve payload = %q", calls[1].Payload)
	}

	got, _ := gw.Task("0xt1")
	if got.Status != tasks.StatusResolved {
		t.Errorf("final status = %s", got.Status)
	}
}

func TestCycleFailsUnsafeURLWithoutStart(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	gw.Seed(pendingTask("0xt1", `{"url": "http://10.0.0.8/metadata"}`))

	c, backend := newWebpageConsumer(t, gw)
	c.cycle(context.Background())

	calls := gw.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected single fail call, got %+v", calls)
	}
	if calls[0].Function != testSelectors.Fail {
		t.Errorf("call = %s", calls[0].Function)
	}
	if !strings.HasPrefix(calls[0].Payload, "Security Error: ") {
		t.Errorf("fail payload = %q", calls[0].Payload)
	}
	if backend.CallCount() != 0 {
		t.Error("backend ran for an unsafe URL")
	}

	got, _ := gw.Task("0xt1")
	if got.Status != tasks.StatusFailed {
		t.Errorf("final status = %s", got.Status)
	}
}

func TestCycleFailsBadArgumentsWithoutStart(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	gw.Seed(pendingTask("0xt1", `not json`))

	c, backend := newWebpageConsumer(t, gw)
	c.cycle(context.Background())

	calls := gw.Calls()
	if len(calls) != 1 || calls[0].Function != testSelectors.Fail {
		t.Fatalf("expected single fail call, got %+v", calls)
	}
	if backend.CallCount() != 0 {
		t.Error("backend ran for bad arguments")
	}
}

func TestCycleFailsOnBackendError(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	gw.Seed(pendingTask("0xt1", `{"url": "https://example.com"}`))

	c, backend := newWebpageConsumer(t, gw)
	backend.SetError(errors.New("model down"))

	c.cycle(context.Background())

	calls := gw.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected start+fail, got %+v", calls)
	}
	if calls[1].Function != testSelectors.Fail {
		t.Errorf("second call = %s", calls[1].Function)
	}
	if !strings.HasPrefix(calls[1].Payload, "Failed to process webpage: ") {
		t.Errorf("fail payload = %q", calls[1].Payload)
	}
}

func TestCycleSkipsStartForStartedTask(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	task := pendingTask("0xt1", `{"url": "https://example.com"}`)
	task.Status = tasks.StatusStarted
	gw.Seed(task)

	c, backend := newWebpageConsumer(t, gw)
	backend.SetResponse("done")

	c.cycle(context.Background())

	calls := gw.Calls()
	if len(calls) != 1 || calls[0].Function != testSelectors.Resolve {
		t.Fatalf("expected resolve only, got %+v", calls)
	}
}

func TestCycleTreatsLostRaceAsBenign(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	task := pendingTask("0xt1", `{"url": "https://example.com"}`)
	task.Status = tasks.StatusStarted
	gw.Seed(task)

	h := &stubHandler{
		name: webpage.TaskName,
		execute: func(ctx context.Context, t tasks.Task) (string, error) {
			// Another consumer finishes the task mid-execution.
			raced := t
			raced.Status = tasks.StatusResolved
			gw.Seed(raced)
			return "late result", nil
		},
	}
	c := newTestConsumer(t, gw, h)
	c.cycle(context.Background())

	calls := gw.Calls()
	if len(calls) != 1 || calls[0].Function != testSelectors.Resolve {
		t.Fatalf("expected one resolve attempt, got %+v", calls)
	}
	got, _ := gw.Task("0xt1")
	if got.Status != tasks.StatusResolved {
		t.Errorf("final status = %s", got.Status)
	}
}

func TestCycleRecoversFromHandlerPanic(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	gw.Seed(pendingTask("0xt1", `{"url": "https://example.com"}`))
	gw.Seed(pendingTask("0xt2", `{"url": "https://example.com/b"}`))

	h := &stubHandler{
		name: webpage.TaskName,
		execute: func(ctx context.Context, task tasks.Task) (string, error) {
			if task.ID == "0xt1" {
				panic("boom")
			}
			return "ok", nil
		},
	}
	c := newTestConsumer(t, gw, h)
	c.cycle(context.Background())

	first, _ := gw.Task("0xt1")
	if first.Status != tasks.StatusFailed {
		t.Errorf("panicking task status = %s", first.Status)
	}
	second, _ := gw.Task("0xt2")
	if second.Status != tasks.StatusResolved {
		t.Errorf("neighbor task status = %s", second.Status)
	}
}

func TestCycleIsolatesFaultsPerTask(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	gw.Seed(pendingTask("0xbad", `broken`))
	gw.Seed(pendingTask("0xgood", `{"url": "https://example.com"}`))

	c, backend := newWebpageConsumer(t, gw)
	backend.SetResponse("fine")

	c.cycle(context.Background())

	bad, _ := gw.Task("0xbad")
	if bad.Status != tasks.StatusFailed {
		t.Errorf("bad task status = %s", bad.Status)
	}
	good, _ := gw.Task("0xgood")
	if good.Status != tasks.StatusResolved {
		t.Errorf("good task status = %s", good.Status)
	}
}

func TestCycleSkipsUnknownTaskNames(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	gw.Seed(tasks.Task{
		ID:        "0xother",
		Name:      "task::price_feed",
		Status:    tasks.StatusPending,
		Arguments: `{}`,
	})

	c, _ := newWebpageConsumer(t, gw)
	c.cycle(context.Background())

	if calls := gw.Calls(); len(calls) != 0 {
		t.Errorf("unexpected calls for foreign task: %+v", calls)
	}
}

func TestHandlerForMatchesQualifiedNames(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	c, _ := newWebpageConsumer(t, gw)

	if c.handlerFor(webpage.TaskName) == nil {
		t.Error("exact name did not match")
	}
	if c.handlerFor("0xdead::"+webpage.TaskName) == nil {
		t.Error("qualified name did not match")
	}
	if c.handlerFor("task::price_feed") != nil {
		t.Error("foreign name matched")
	}
}

func TestCycleSurvivesPollError(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	gw.SetListError(errors.New("node unreachable"))

	c, backend := newWebpageConsumer(t, gw)
	backend.SetResponse("summary")
	c.cycle(context.Background())

	gw.SetListError(nil)
	gw.Seed(pendingTask("0xt1", `{"url": "https://example.com"}`))
	c.cycle(context.Background())

	got, _ := gw.Task("0xt1")
	if got.Status != tasks.StatusResolved {
		t.Errorf("loop did not recover after poll error, status = %s", got.Status)
	}
}

func TestGatewayFaultLeavesTaskEligible(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	gw.Seed(pendingTask("0xt1", `{"url": "https://example.com"}`))
	gw.SetSubmitError(errors.New("rpc timeout"))

	c, backend := newWebpageConsumer(t, gw)
	backend.SetResponse("result")

	c.cycle(context.Background())

	got, _ := gw.Task("0xt1")
	if !got.Status.Eligible() {
		t.Errorf("task no longer eligible after gateway fault: %s", got.Status)
	}

	// Next cycle with a healthy gateway completes the task.
	gw.SetSubmitError(nil)
	c.cycle(context.Background())

	got, _ = gw.Task("0xt1")
	if got.Status != tasks.StatusResolved {
		t.Errorf("final status = %s", got.Status)
	}
}

func TestRunStopsGracefully(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	gw.Seed(pendingTask("0xt1", `{"url": "https://example.com"}`))

	c, backend := newWebpageConsumer(t, gw)
	backend.SetResponse("summary")
	c.interval = 5 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background())
	}()

	deadline := time.After(2 * time.Second)
	for {
		got, _ := gw.Task("0xt1")
		if got.Status == tasks.StatusResolved {
			break
		}
		select {
		case <-deadline:
			t.Fatal("task never resolved")
		case <-time.After(5 * time.Millisecond):
		}
	}

	c.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRunHonorsContextCancel(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	c, _ := newWebpageConsumer(t, gw)
	c.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewRejectsMissingConfig(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)

	if _, err := New(Config{Selectors: testSelectors, Sender: "0x1"}); !oraclerr.IsFatal(err) {
		t.Errorf("missing gateway: %v", err)
	}
	if _, err := New(Config{Gateway: gw, Selectors: testSelectors}); !oraclerr.IsFatal(err) {
		t.Errorf("missing sender: %v", err)
	}
	if _, err := New(Config{Gateway: gw, Sender: "0x1"}); !oraclerr.IsFatal(err) {
		t.Errorf("missing selectors: %v", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	gw := ledger.NewMemoryGateway(testSelectors)
	c := newTestConsumer(t, gw)

	h := &stubHandler{name: "task::webpage_summary"}
	if err := c.Register(h); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := c.Register(h); err == nil {
		t.Error("duplicate register accepted")
	}
	if err := c.Register(&stubHandler{name: ""}); err == nil {
		t.Error("empty name accepted")
	}
}
