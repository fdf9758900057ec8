package sqlexec

import (
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/jobflow/types"
)

const (
	DefaultQueryLimit = 1000
)

type ManagerConfig struct {
	DefaultQueryLimit int
	RegistrySize      int
	RegistryTTL       time.Duration
}

type sqlJob struct {
	exec   *SqlExec
	doneCh chan struct{}
}

func (j *sqlJob) isDone() bool {
	select {
	case <-j.doneCh:
		return true
	default:
		return false
	}
}

/**
 * RunnerManager runs sql batches one after another on a single lane
 * and keeps them by job id, so their results can be fetched and they
 * can be cancelled.
 */
type RunnerManager struct {
	connector Connector
	config    ManagerConfig

	lane *workerpool.WorkerPool

	// serializes the check and insert of a job id
	mu     sync.Mutex
	closed bool
	jobs   *expirable.LRU[string, *sqlJob]
}

func NewRunnerManager(connector Connector, config ManagerConfig) *RunnerManager {
	if config.DefaultQueryLimit <= 0 {
		config.DefaultQueryLimit = DefaultQueryLimit
	}
	return &RunnerManager{
		connector: connector,
		config:    config,
		lane:      workerpool.New(1),
		jobs: expirable.NewLRU[string, *sqlJob](config.RegistrySize, func(jobID string, job *sqlJob) {
			if !job.isDone() {
				log.Warnf("sql job %s evicted while running", jobID)
			}
		}, config.RegistryTTL),
	}
}

// ExecuteEtl runs the statements without capturing any result.
func (m *RunnerManager) ExecuteEtl(jobID string, udfs []types.UdfInfo, sqls []string, stopTime time.Time) error {
	return errors.Trace(m.submit(newSqlExec(jobID, UdfCommands(udfs), sqls, false, 0, stopTime, m.connector)))
}

// ExecuteAdhoc captures at most limit rows of the query results.
func (m *RunnerManager) ExecuteAdhoc(jobID string, udfs []types.UdfInfo, sqls []string, stopTime time.Time, limit int) error {
	if limit <= 0 {
		limit = m.config.DefaultQueryLimit
	}
	return errors.Trace(m.submit(newSqlExec(jobID, UdfCommands(udfs), sqls, true, limit, stopTime, m.connector)))
}

func (m *RunnerManager) submit(exec *SqlExec) error {
	if exec.jobID == "" {
		return errors.BadRequestf("sql job id is empty")
	}
	if len(exec.sqls) == 0 {
		return errors.BadRequestf("sql job %s has no statement", exec.jobID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.MethodNotAllowedf("sql runner manager closed")
	}
	if job, exists := m.jobs.Peek(exec.jobID); exists && !job.isDone() {
		return errors.AlreadyExistsf("sql job %s", exec.jobID)
	}

	job := &sqlJob{exec: exec, doneCh: make(chan struct{})}
	m.jobs.Add(exec.jobID, job)
	m.lane.Submit(func() {
		defer close(job.doneCh)
		if err := exec.Run(); err != nil {
			log.Errorf("sql job %s failed: %v", exec.jobID, errors.ErrorStack(err))
		}
	})
	return nil
}

// GetAdhocResult never blocks, the result may still be filling.
func (m *RunnerManager) GetAdhocResult(jobID string) (*types.AdhocResult, error) {
	job, exists := m.jobs.Get(jobID)
	if !exists {
		log.Infof("sql job %s is end", jobID)
		return nil, errors.NotFoundf("sql job %s", jobID)
	}
	return job.exec.AdhocResult(), nil
}

// CancelExecFlow returns false when there is nothing left to cancel.
func (m *RunnerManager) CancelExecFlow(jobID string) bool {
	job, exists := m.jobs.Peek(jobID)
	if !exists || job.isDone() {
		log.Infof("sql job %s is end", jobID)
		return false
	}
	job.exec.Cancel()
	return true
}

// Wait blocks until the job is done or timeout passed.
func (m *RunnerManager) Wait(jobID string, timeout time.Duration) bool {
	job, exists := m.jobs.Peek(jobID)
	if !exists {
		return false
	}
	select {
	case <-job.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close cancels every live job and waits for the lane.
func (m *RunnerManager) Close() {
	m.mu.Lock()
	m.closed = true
	for _, job := range m.jobs.Values() {
		if !job.isDone() {
			job.exec.Cancel()
		}
	}
	m.mu.Unlock()

	m.lane.StopWait()
}
