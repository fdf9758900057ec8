package runtime

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/jobflow/store"
	"github.com/warriorguo/jobflow/types"
	"github.com/warriorguo/jobflow/utils"
)

const (
	statusUpdateTimeout = 10 * time.Second
	defaultPollInterval = 5 * time.Second
)

type nodeRunnerConfig struct {
	execBaseDir  string
	envFile      string
	pollInterval time.Duration
}

// NodeRunner runs one node of a flow execution to its end.
type NodeRunner struct {
	jc      *types.JobContext
	factory *JobFactory
	store   store.ExecutionStore
	metrics *nodeMetrics
	config  nodeRunnerConfig
	jobID   string
	logger  log.FieldLogger

	mu     sync.Mutex
	job    Job
	killed atomic.Bool

	startTime time.Time
	endTime   time.Time
}

func NewNodeRunner(jc *types.JobContext, factory *JobFactory, store store.ExecutionStore, metrics *nodeMetrics, config nodeRunnerConfig) *NodeRunner {
	if config.pollInterval <= 0 {
		config.pollInterval = defaultPollInterval
	}
	if metrics == nil {
		metrics = newNodeMetrics(nil)
	}
	// the job context is not ours, a generated job id stays on the runner
	jobID := ""
	if jc.ExecutionNode != nil {
		jobID = jc.ExecutionNode.JobID
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}
	return &NodeRunner{
		jc:      jc,
		factory: factory,
		store:   store,
		metrics: metrics,
		config:  config,
		jobID:   jobID,
		logger: log.WithFields(log.Fields{
			"exec_id": jc.ExecutionFlow.ID,
			"node":    jc.FlowNode.Name,
			"type":    jc.FlowNode.Type,
			"job_id":  jobID,
		}),
	}
}

func (r *NodeRunner) JobID() string {
	return r.jobID
}

/**
 * Run builds the job of the node and drives it through
 * Before, Process, the completion polling and After.
 * It returns true only when the job exited with code 0.
 * The permit of the job context is always released.
 */
func (r *NodeRunner) Run(ctx context.Context) (success bool) {
	defer func() {
		if r.jc.Permit != nil {
			r.jc.Permit.Release()
		}
	}()

	r.startTime = time.Now()
	r.metrics.running.Inc()
	defer func() {
		if e := recover(); e != nil {
			r.logger.Errorf("node panic: %v\n%s", e, debug.Stack())
			r.cancelJob()
			success = false
		}
		r.endTime = time.Now()
		r.metrics.running.Dec()
		r.metrics.finished.WithLabelValues(string(r.jc.FlowNode.Type), resultLabel(success)).Inc()
		r.metrics.duration.WithLabelValues(string(r.jc.FlowNode.Type)).Observe(r.endTime.Sub(r.startTime).Seconds())

		r.updateStatus(r.finalStatus(success))
	}()

	err := r.run(ctx)
	if err != nil {
		r.logger.Errorf("run node failed: %v", errors.ErrorStack(err))
		r.cancelJob()
		return false
	}
	if code := r.exitCode(); code != 0 {
		r.logger.Warn(types.NewExecErrorf(code, "job of %s failed", r.jc.FlowNode.Name))
		r.cancelJob()
		return false
	}
	return true
}

func (r *NodeRunner) run(ctx context.Context) error {
	flow := r.jc.ExecutionFlow
	workDir := utils.ExecDir(r.config.execBaseDir, flow.ProjectID, flow.FlowID, flow.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return types.NewSpecError(errors.Annotatef(err, "create work dir %s", workDir))
	}

	props := r.buildProps(workDir)

	job, err := r.factory.NewJob(r.jc.FlowNode.Type, props, r.logger)
	if err != nil {
		return errors.Trace(err)
	}
	r.mu.Lock()
	r.job = job
	r.mu.Unlock()

	r.updateStatus(types.Running)
	if r.jc.FlowNode.Type == types.JobSparkStreaming {
		r.initStreamingResult()
	}

	if err := job.Before(); err != nil {
		return errors.Annotatef(err, "before")
	}
	runErr := r.process(ctx, job)
	if err := job.After(); err != nil {
		r.logger.Errorf("after failed: %v", err)
		if runErr == nil {
			runErr = errors.Annotatef(err, "after")
		}
	}
	return runErr
}

func (r *NodeRunner) process(ctx context.Context, job Job) error {
	if deadline := job.Props().Deadline(); !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	if err := job.Process(ctx); err != nil {
		return errors.Annotatef(err, "process")
	}
	// the local process was killed, the remote side may still run
	if err := ctx.Err(); err != nil {
		return types.NewCancelError(errors.Annotatef(err, "process"))
	}

	ticker := time.NewTicker(r.config.pollInterval)
	defer ticker.Stop()
	for !job.IsCompleted() {
		select {
		case <-ctx.Done():
			return types.NewCancelError(errors.Annotatef(ctx.Err(), "wait for completion"))
		case <-ticker.C:
		}
	}
	return nil
}

// buildProps merges the system params with the custom ones, the
// custom ones win on conflicts.
func (r *NodeRunner) buildProps(workDir string) *types.JobProps {
	flow := r.jc.ExecutionFlow
	return &types.JobProps{
		WorkDir:       workDir,
		JobParams:     r.jc.FlowNode.Parameter,
		DefinedParams: utils.MergeMaps(r.jc.SystemParams, r.jc.CustomParams),
		ProxyUser:     flow.ProxyUser,
		ProjectID:     flow.ProjectID,
		WorkflowID:    flow.FlowID,
		NodeName:      r.jc.FlowNode.Name,
		ExecID:        flow.ID,
		EnvFile:       r.config.envFile,
		Queue:         flow.Queue,
		FlowStartTime: flow.StartTime,
		FlowTimeout:   flow.Timeout,
		JobAppID:      types.JobAppID(r.jobID, r.jc.FlowNode.Name),
	}
}

// Kill cancels the job together with its remote applications.
// Nothing happens before the job started.
func (r *NodeRunner) Kill() {
	r.killed.Store(true)
	r.cancelJob()
}

func (r *NodeRunner) cancelJob() {
	r.mu.Lock()
	job := r.job
	r.mu.Unlock()

	if job == nil || !job.IsStarted() {
		return
	}
	if err := job.Cancel(true); err != nil {
		r.logger.Errorf("kill job failed: %v", err)
	}
}

func (r *NodeRunner) exitCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.job == nil {
		return -1
	}
	return r.job.ExitCode()
}

func (r *NodeRunner) finalStatus(success bool) types.StatusType {
	switch {
	case success:
		return types.Success
	case r.killed.Load():
		return types.Killed
	default:
		return types.Failed
	}
}

func (r *NodeRunner) Result(success bool) types.NodeResult {
	return types.NodeResult{
		ExecID:    r.jc.ExecutionFlow.ID,
		Node:      r.jc.FlowNode.Name,
		Success:   success,
		StartTime: r.startTime,
		EndTime:   r.endTime,
	}
}

// updateStatus reads the stored node before writing so the links
// recorded by the job are kept.
func (r *NodeRunner) updateStatus(status types.StatusType) {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), statusUpdateTimeout)
	defer cancel()

	if err := r.writeStatus(ctx, status); err != nil {
		r.logger.Errorf("update status to %v failed: %v", status, err)
	}
}

func (r *NodeRunner) writeStatus(ctx context.Context, status types.StatusType) error {
	node, err := r.store.QueryExecutionNode(ctx, r.jc.ExecutionFlow.ID, r.jc.FlowNode.Name)
	if err != nil {
		return errors.Trace(err)
	}
	if node == nil {
		node = &types.ExecutionNode{
			ExecID: r.jc.ExecutionFlow.ID,
			Name:   r.jc.FlowNode.Name,
		}
	}
	node.JobID = r.jobID
	node.Status = status
	node.StartTime = r.startTime
	if status.IsFinished() {
		node.EndTime = r.endTime
	}
	if err := r.store.UpdateExecutionNode(ctx, node); err != nil {
		return errors.Trace(err)
	}

	if r.jc.FlowNode.Type != types.JobSparkStreaming {
		return nil
	}
	result, err := r.store.QueryStreamingResult(ctx, r.jc.ExecutionFlow.ID)
	if err != nil || result == nil {
		return errors.Trace(err)
	}
	result.Status = status
	if status.IsFinished() {
		result.EndTime = r.endTime
	}
	return errors.Trace(r.store.UpdateStreamingResult(ctx, result))
}

func (r *NodeRunner) initStreamingResult() {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), statusUpdateTimeout)
	defer cancel()

	result, err := r.store.QueryStreamingResult(ctx, r.jc.ExecutionFlow.ID)
	if err != nil {
		r.logger.Errorf("query streaming result failed: %v", err)
		return
	}
	if result == nil {
		result = &types.StreamingResult{ExecID: r.jc.ExecutionFlow.ID}
	}
	result.Name = r.jc.FlowNode.Name
	result.JobID = r.jobID
	result.Status = types.Running
	result.StartTime = r.startTime
	if err := r.store.UpdateStreamingResult(ctx, result); err != nil {
		r.logger.Errorf("init streaming result failed: %v", err)
	}
}

func (r *NodeRunner) String() string {
	return fmt.Sprintf("node %s of execution %d", r.jc.FlowNode.Name, r.jc.ExecutionFlow.ID)
}
