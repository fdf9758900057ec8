package runtime

import (
	"context"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/jobflow/types"
	"github.com/warriorguo/jobflow/utils"
)

type runnerEntry struct {
	runner *NodeRunner
	cancel context.CancelFunc
}

// nodePool runs node runners on a worker pool, each node of an
// execution at most once at a time.
type nodePool struct {
	mu     sync.Mutex
	closed bool

	wp      *workerpool.WorkerPool
	gate    *ConcurrencyGate
	runners map[string]*runnerEntry

	newRunner func(jc *types.JobContext) *NodeRunner
}

func newNodePool(maxWorkers int, gate *ConcurrencyGate, newRunner func(jc *types.JobContext) *NodeRunner) *nodePool {
	return &nodePool{
		wp:        workerpool.New(maxWorkers),
		gate:      gate,
		runners:   make(map[string]*runnerEntry),
		newRunner: newRunner,
	}
}

func (p *nodePool) exists(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, exists := p.runners[key]
	return exists
}

func (p *nodePool) get(key string) *runnerEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.runners[key]
}

func (p *nodePool) remove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.runners, key)
}

func (p *nodePool) add(key string, e *runnerEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.MethodNotAllowedf("node pool stopped")
	}
	if _, exists := p.runners[key]; exists {
		return errors.AlreadyExistsf("node %s", key)
	}
	p.runners[key] = e
	return nil
}

/**
 * submit acquires a permit when the job context holds none, then queues
 * the node. The result channel receives exactly one result.
 */
func (p *nodePool) submit(ctx context.Context, jc *types.JobContext) (<-chan types.NodeResult, error) {
	if err := validateJobContext(jc); err != nil {
		return nil, errors.Trace(err)
	}
	if jc.Permit == nil {
		permit, err := p.gate.Acquire(ctx)
		if err != nil {
			return nil, errors.Trace(err)
		}
		jc.Permit = permit
	}

	key := utils.NodeKey(jc.ExecutionFlow.ID, jc.FlowNode.Name)
	runCtx, cancel := context.WithCancel(context.Background())
	entry := &runnerEntry{runner: p.newRunner(jc), cancel: cancel}
	if err := p.add(key, entry); err != nil {
		cancel()
		jc.Permit.Release()
		return nil, errors.Trace(err)
	}

	resultCh := make(chan types.NodeResult, 1)
	p.wp.Submit(func() {
		defer cancel()
		defer p.remove(key)

		success := entry.runner.Run(runCtx)
		resultCh <- entry.runner.Result(success)
		close(resultCh)
	})
	return resultCh, nil
}

func (p *nodePool) kill(key string) error {
	entry := p.get(key)
	if entry == nil {
		return errors.NotFoundf("node %s", key)
	}
	entry.cancel()
	entry.runner.Kill()
	return nil
}

// killFlow kills all the running nodes of an execution, it returns how
// many were killed.
func (p *nodePool) killFlow(execID int) int {
	p.mu.Lock()
	entries := make([]*runnerEntry, 0, len(p.runners))
	for _, e := range p.runners {
		if e.runner.jc.ExecutionFlow.ID == execID {
			entries = append(entries, e)
		}
	}
	p.mu.Unlock()

	for _, e := range entries {
		e.cancel()
		e.runner.Kill()
	}
	return len(entries)
}

func (p *nodePool) stopWait(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	entries := make([]*runnerEntry, 0, len(p.runners))
	for _, e := range p.runners {
		entries = append(entries, e)
	}
	p.mu.Unlock()

	for _, e := range entries {
		e.cancel()
		e.runner.Kill()
	}

	doneCh := make(chan struct{})
	go func() {
		p.wp.StopWait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		log.Warnf("node pool not stopped in time, %d nodes left", len(entries))
		return errors.Trace(ctx.Err())
	}
}

func validateJobContext(jc *types.JobContext) error {
	switch {
	case jc == nil:
		return types.NewSpecErrorf("job context is nil")
	case jc.ExecutionFlow == nil:
		return types.NewSpecErrorf("execution flow is nil")
	case jc.FlowNode == nil:
		return types.NewSpecErrorf("flow node is nil")
	case jc.FlowNode.Name == "":
		return types.NewSpecErrorf("flow node name is empty")
	}
	if jc.ExecutionNode == nil {
		jc.ExecutionNode = &types.ExecutionNode{ExecID: jc.ExecutionFlow.ID, Name: jc.FlowNode.Name}
	}
	return nil
}
