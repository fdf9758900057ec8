package runtime

import (
	"context"
	"os/exec"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/warriorguo/jobflow/store"
	"github.com/warriorguo/jobflow/store/mem"
	"github.com/warriorguo/jobflow/types"
)

type fakeStatus struct {
	status types.StatusType
	found  bool
	err    error
}

type fakeYarn struct {
	mu       sync.Mutex
	statuses map[string]fakeStatus
	queried  []string
}

func newFakeYarn() *fakeYarn {
	return &fakeYarn{statuses: make(map[string]fakeStatus)}
}

func (y *fakeYarn) set(appID string, s fakeStatus) {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.statuses[appID] = s
}

func (y *fakeYarn) GetApplicationStatus(ctx context.Context, appID string) (types.StatusType, bool, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.queried = append(y.queried, appID)
	s := y.statuses[appID]
	return s.status, s.found, s.err
}

// stubCommand records the commands and runs "true" instead.
type stubCommand struct {
	mu    sync.Mutex
	calls [][]string
}

func (s *stubCommand) command(name string, args ...string) *exec.Cmd {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string{name}, args...))
	s.mu.Unlock()
	return exec.Command("true")
}

func (s *stubCommand) invoked() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.calls...)
}

func newTestEnv(t *testing.T) (*JobEnv, store.ExecutionStore, *fakeYarn, *stubCommand) {
	es := store.NewExecutionStore(mem.NewMemStore())
	y := newFakeYarn()
	stub := &stubCommand{}
	env := &JobEnv{
		Store:            es,
		Yarn:             y,
		Command:          stub.command,
		PollTimeout:      time.Second,
		LogFlushInterval: 10 * time.Millisecond,
	}
	return env, es, y, stub
}

func newTestProps(t *testing.T, params string) *types.JobProps {
	return &types.JobProps{
		WorkDir:   t.TempDir(),
		JobParams: params,
		NodeName:  "node1",
		ExecID:    7,
		JobAppID:  types.JobAppID("job", "node1"),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			assert.FailNow(t, "condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// fakeJob is driven by its fields, registered as a job kind in tests.
type fakeJob struct {
	baseJob

	beforeErr  error
	processErr error
	panicIn    string
	exitCode   int
	block      chan struct{}
	// IsCompleted turns true on this poll
	pollsNeeded int32
	polls       atomic.Int32

	afterCalled atomic.Bool
}

func (f *fakeJob) IsCompleted() bool {
	if f.pollsNeeded > 0 {
		return f.polls.Add(1) >= f.pollsNeeded
	}
	return f.baseJob.IsCompleted()
}

func (f *fakeJob) Before() error {
	if f.panicIn == "before" {
		panic("before")
	}
	return f.beforeErr
}

func (f *fakeJob) Process(ctx context.Context) error {
	f.started.Store(true)
	if f.panicIn == "process" {
		panic("process")
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			f.setExitCode(-1)
			return errors.Trace(ctx.Err())
		}
	}
	if f.processErr != nil {
		f.setExitCode(-1)
		return f.processErr
	}
	f.setExitCode(f.exitCode)
	return nil
}

func (f *fakeJob) After() error {
	f.afterCalled.Store(true)
	return nil
}

func (f *fakeJob) Cancel(killRemote bool) error {
	f.cancelled.Store(true)
	return nil
}
