package sqlexec

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/jobflow/types"
)

// SqlExec runs a batch of statements on one session. With a limit the
// result of every query statement is captured, the last one wins.
type SqlExec struct {
	jobID    string
	udfCmds  []string
	sqls     []string
	adhoc    bool
	limit    int
	stopTime time.Time

	connector Connector
	logger    log.FieldLogger

	cancelled atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	result *types.AdhocResult
}

func newSqlExec(jobID string, udfCmds, sqls []string, adhoc bool, limit int, stopTime time.Time, connector Connector) *SqlExec {
	return &SqlExec{
		jobID:     jobID,
		udfCmds:   udfCmds,
		sqls:      sqls,
		adhoc:     adhoc,
		limit:     limit,
		stopTime:  stopTime,
		connector: connector,
		logger:    log.WithField("sql_job_id", jobID),
		result:    &types.AdhocResult{Status: types.Init},
	}
}

func (e *SqlExec) JobID() string {
	return e.jobID
}

// Run returns once every statement ran, one failed, the deadline
// passed or the unit was cancelled.
func (e *SqlExec) Run() error {
	e.setStatus(types.Running, "")

	err := e.run()
	switch {
	case err == nil:
		e.setStatus(types.Success, "")
	case e.cancelled.Load():
		e.setStatus(types.Killed, err.Error())
	default:
		e.setStatus(types.Failed, err.Error())
	}
	if err != nil {
		e.logger.Errorf("execute sql failed: %v", err)
	}
	return err
}

func (e *SqlExec) run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !e.stopTime.IsZero() {
		var cancelDeadline context.CancelFunc
		ctx, cancelDeadline = context.WithDeadline(ctx, e.stopTime)
		defer cancelDeadline()
	}

	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	if e.cancelled.Load() {
		return types.NewCancelError(errors.Errorf("sql job %s cancelled", e.jobID))
	}

	session, err := e.connector.Connect(ctx)
	if err != nil {
		return errors.Annotatef(err, "connect")
	}
	defer func() {
		if err := session.Close(); err != nil {
			e.logger.Warnf("close session failed: %v", err)
		}
	}()

	for _, cmd := range e.udfCmds {
		if err := e.check(); err != nil {
			return err
		}
		if err := session.Exec(ctx, cmd); err != nil {
			return errors.Annotatef(err, "udf %q", cmd)
		}
	}

	for i, sql := range e.sqls {
		if err := e.check(); err != nil {
			return err
		}
		e.logger.Infof("execute statement %d: %s", i, sql)

		if !e.adhoc {
			if err := session.Exec(ctx, sql); err != nil {
				return errors.Annotatef(err, "statement %d", i)
			}
			continue
		}
		titles, values, err := session.Query(ctx, sql, e.limit)
		if err != nil {
			return errors.Annotatef(err, "statement %d", i)
		}
		e.setRows(titles, values)
	}
	return nil
}

func (e *SqlExec) check() error {
	if e.cancelled.Load() {
		return types.NewCancelError(errors.Errorf("sql job %s cancelled", e.jobID))
	}
	if !e.stopTime.IsZero() && !time.Now().Before(e.stopTime) {
		return types.NewCancelError(errors.Timeoutf("sql job %s passed stop time %v", e.jobID, e.stopTime))
	}
	return nil
}

// Cancel is cooperative, the running statement is interrupted through
// its context.
func (e *SqlExec) Cancel() {
	e.cancelled.Store(true)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *SqlExec) IsCancelled() bool {
	return e.cancelled.Load()
}

// AdhocResult returns a copy of the current result.
func (e *SqlExec) AdhocResult() *types.AdhocResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result.Clone()
}

func (e *SqlExec) setStatus(status types.StatusType, errMsg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.result.Status = status
	e.result.Error = errMsg
}

func (e *SqlExec) setRows(titles []string, values [][]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.result.Titles = titles
	e.result.Values = values
}
