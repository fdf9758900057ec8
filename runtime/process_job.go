package runtime

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/juju/errors"
	"github.com/warriorguo/jobflow/types"
)

// prepareFunc materializes what the job runs, it is called by Before.
type prepareFunc func(props *types.JobProps) (*command, error)

// processJob runs a local process to its exit. The output is pumped
// into onLog, which defaults to the job's own LogProcess.
type processJob struct {
	baseJob

	prepare prepareFunc
	onLog   func(lines []string)

	newCommand       CommandFunc
	logBatchSize     int
	logFlushInterval time.Duration

	cmd *command

	mu      sync.Mutex
	process *exec.Cmd
}

func newProcessJob(props *types.JobProps, env *JobEnv, longJob bool, prepare prepareFunc) *processJob {
	p := &processJob{
		baseJob:          newBaseJob(props, env.Logger, longJob),
		prepare:          prepare,
		newCommand:       env.Command,
		logBatchSize:     env.LogBatchSize,
		logFlushInterval: env.LogFlushInterval,
	}
	if p.newCommand == nil {
		p.newCommand = defaultCommand
	}
	p.onLog = p.LogProcess
	return p
}

func (p *processJob) Before() error {
	if p.prepare == nil {
		return types.NewSpecErrorf("job %s has nothing to run", p.props.NodeName)
	}
	cmd, err := p.prepare(p.props)
	if err != nil {
		return errors.Trace(err)
	}
	p.cmd = cmd
	return nil
}

func (p *processJob) Process(ctx context.Context) error {
	if p.cmd == nil {
		return types.NewSpecErrorf("job %s is not prepared", p.props.NodeName)
	}
	if p.IsCancelled() {
		return types.NewCancelError(errors.Errorf("job %s cancelled before start", p.props.NodeName))
	}

	cmd := p.newCommand(p.cmd.name, p.cmd.args...)
	cmd.Dir = p.props.WorkDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Trace(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Trace(err)
	}

	p.logger.Infof("run command: %s", p.cmd)

	p.mu.Lock()
	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		return errors.Annotatef(err, "start %s", p.cmd)
	}
	p.process = cmd
	p.started.Store(true)
	p.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		p.logger.Warnf("context done, kill process: %v", ctx.Err())
		p.killProcess()
	})
	defer stop()

	pumpLogs([]io.Reader{stdout, stderr}, p.logBatchSize, p.logFlushInterval, p.onLog)

	waitErr := cmd.Wait()
	p.mu.Lock()
	p.process = nil
	p.mu.Unlock()

	exitCode := 0
	if err := waitErr; err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			p.setExitCode(-1)
			return errors.Annotatef(err, "wait %s", p.cmd)
		}
		exitCode = exitErr.ExitCode()
	}
	p.logger.Infof("process exit with code %d", exitCode)
	p.setExitCode(exitCode)
	return nil
}

func (p *processJob) After() error {
	return nil
}

func (p *processJob) Cancel(killRemote bool) error {
	p.cancelled.Store(true)
	return p.killProcess()
}

// killProcess kills the whole process group of the running process.
func (p *processJob) killProcess() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.process == nil || p.process.Process == nil {
		return nil
	}
	pid := p.process.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return types.NewCancelError(errors.Annotatef(err, "kill process group %d", pid))
	}
	return nil
}
