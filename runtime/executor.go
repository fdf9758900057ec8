package runtime

import (
	"context"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/jobflow/sqlexec"
	"github.com/warriorguo/jobflow/store"
	"github.com/warriorguo/jobflow/types"
	"github.com/warriorguo/jobflow/utils"
	"github.com/warriorguo/jobflow/yarn"
)

var (
	_ types.FlowExecutor = &FlowExecutor{}
)

// Dependencies are the collaborators of a FlowExecutor.
type Dependencies struct {
	Store store.ExecutionStore
	Yarn  yarn.StatusClient
	Sql   *sqlexec.RunnerManager
	// optional, runs the local processes
	Command CommandFunc
}

type FlowExecutor struct {
	ctx    context.Context
	cancel context.CancelFunc

	gate    *ConcurrencyGate
	factory *JobFactory
	pool    *nodePool
	sql     *sqlexec.RunnerManager
	metrics *nodeMetrics
}

func NewFlowExecutor(deps Dependencies, opts *types.ExecOptions) *FlowExecutor {
	if opts == nil {
		opts = types.NewExecOptions()
	}
	parent := opts.Ctx
	if parent == nil {
		parent = context.Background()
	}

	f := &FlowExecutor{
		gate: NewConcurrencyGate(opts.MaxNodeConcurrency),
		sql:  deps.Sql,
		factory: NewJobFactory(JobEnv{
			Store:       deps.Store,
			Yarn:        deps.Yarn,
			Command:     deps.Command,
			PollTimeout: opts.YarnTimeout,
		}),
	}
	f.ctx, f.cancel = context.WithCancel(parent)

	f.metrics = newNodeMetrics(opts.Registerer)
	config := nodeRunnerConfig{
		execBaseDir:  opts.ExecBaseDir,
		envFile:      opts.EnvFile,
		pollInterval: opts.PollInterval,
	}
	f.pool = newNodePool(opts.MaxWorkers, f.gate, func(jc *types.JobContext) *NodeRunner {
		return NewNodeRunner(jc, f.factory, deps.Store, f.metrics, config)
	})
	return f
}

// RegisterJobType adds a job kind next to the builtin ones.
func (f *FlowExecutor) RegisterJobType(jobType types.JobType, creator JobCreator) error {
	return f.factory.Register(jobType, creator)
}

func (f *FlowExecutor) Gate() *ConcurrencyGate {
	return f.gate
}

func (f *FlowExecutor) RunNode(ctx context.Context, jc *types.JobContext) (<-chan types.NodeResult, error) {
	if f.ctx.Err() != nil {
		return nil, errors.MethodNotAllowedf("executor closed")
	}
	ch, err := f.pool.submit(ctx, jc)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ch, nil
}

func (f *FlowExecutor) KillNode(execID int, nodeName string) error {
	return errors.Trace(f.pool.kill(utils.NodeKey(execID, nodeName)))
}

func (f *FlowExecutor) KillFlow(execID int) int {
	killed := f.pool.killFlow(execID)
	log.Infof("killed %d nodes of execution %d", killed, execID)
	return killed
}

func (f *FlowExecutor) ExecuteEtlSql(jobID string, udfs []types.UdfInfo, sqls []string, stopTime time.Time) error {
	if f.sql == nil {
		return errors.NotSupportedf("sql execution")
	}
	return errors.Trace(f.sql.ExecuteEtl(jobID, udfs, sqls, stopTime))
}

func (f *FlowExecutor) ExecuteAdhocSql(jobID string, udfs []types.UdfInfo, sqls []string, stopTime time.Time, limit int) error {
	if f.sql == nil {
		return errors.NotSupportedf("sql execution")
	}
	return errors.Trace(f.sql.ExecuteAdhoc(jobID, udfs, sqls, stopTime, limit))
}

func (f *FlowExecutor) GetAdhocResult(jobID string) (*types.AdhocResult, error) {
	if f.sql == nil {
		return nil, errors.NotSupportedf("sql execution")
	}
	result, err := f.sql.GetAdhocResult(jobID)
	return result, errors.Trace(err)
}

func (f *FlowExecutor) CancelSql(jobID string) bool {
	if f.sql == nil {
		return false
	}
	return f.sql.CancelExecFlow(jobID)
}

func (f *FlowExecutor) Close(ctx context.Context) error {
	if f.ctx.Err() != nil {
		return nil
	}
	f.cancel()

	if f.sql != nil {
		f.sql.Close()
	}
	return errors.Trace(f.pool.stopWait(ctx))
}
