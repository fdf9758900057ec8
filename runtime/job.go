package runtime

import (
	"context"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/jobflow/types"
)

/**
 * Job is the execution of one node attempt.
 * The caller runs Before, Process, polls IsCompleted until it returns true,
 * then runs After. Cancel may be called at any time from another goroutine.
 */
type Job interface {
	Before() error
	Process(ctx context.Context) error
	After() error

	IsCompleted() bool
	/**
	 * Cancel is best effort, the returned error is only for logging.
	 * killRemote asks to terminate the remote resources of the job too.
	 */
	Cancel(killRemote bool) error

	IsStarted() bool
	IsCancelled() bool
	// ExitCode is valid once IsCompleted returned true
	ExitCode() int

	// LogProcess receives the output of the job in batches of lines
	LogProcess(lines []string)

	Props() *types.JobProps
}

type baseJob struct {
	props   *types.JobProps
	logger  log.FieldLogger
	longJob bool

	started   atomic.Bool
	cancelled atomic.Bool
	complete  atomic.Bool
	exitCode  atomic.Int32
}

func newBaseJob(props *types.JobProps, logger log.FieldLogger, longJob bool) baseJob {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return baseJob{props: props, logger: logger, longJob: longJob}
}

func (b *baseJob) Props() *types.JobProps {
	return b.props
}

func (b *baseJob) IsStarted() bool {
	return b.started.Load()
}

func (b *baseJob) IsCancelled() bool {
	return b.cancelled.Load()
}

func (b *baseJob) IsCompleted() bool {
	return b.complete.Load()
}

func (b *baseJob) ExitCode() int {
	return int(b.exitCode.Load())
}

func (b *baseJob) isLongJob() bool {
	return b.longJob
}

func (b *baseJob) setExitCode(code int) {
	b.exitCode.Store(int32(code))
	b.complete.Store(true)
}

func (b *baseJob) LogProcess(lines []string) {
	for _, line := range lines {
		b.logger.Info(line)
	}
}

// virtualJob does nothing, it joins branches of a DAG.
type virtualJob struct {
	baseJob
}

func newVirtualJob(props *types.JobProps, env *JobEnv) (Job, error) {
	return &virtualJob{baseJob: newBaseJob(props, env.Logger, false)}, nil
}

func (v *virtualJob) Before() error {
	return nil
}

func (v *virtualJob) Process(ctx context.Context) error {
	v.started.Store(true)
	v.setExitCode(0)
	return nil
}

func (v *virtualJob) After() error {
	return nil
}

func (v *virtualJob) Cancel(killRemote bool) error {
	v.cancelled.Store(true)
	return nil
}
