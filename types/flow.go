package types

import (
	"context"
	"time"
)

type FlowExecutor interface {
	/**
	 * RunNode acquires a concurrency permit (blocking until ctx is done),
	 * then runs the node on the worker pool.
	 * The returned channel receives exactly one NodeResult.
	 */
	RunNode(ctx context.Context, jc *JobContext) (<-chan NodeResult, error)
	/**
	 * KillNode aborts a running node, cancel failures are only logged.
	 */
	KillNode(execID int, nodeName string) error
	KillFlow(execID int) int

	ExecuteEtlSql(jobID string, udfs []UdfInfo, sqls []string, stopTime time.Time) error
	/**
	 * limit <= 0 uses the configured default query limit.
	 */
	ExecuteAdhocSql(jobID string, udfs []UdfInfo, sqls []string, stopTime time.Time, limit int) error
	GetAdhocResult(jobID string) (*AdhocResult, error)
	CancelSql(jobID string) bool

	/**
	 * close kills all running nodes and sql jobs, and waits for the workers.
	 */
	Close(ctx context.Context) error
}

type NodeResult struct {
	ExecID    int
	Node      string
	Success   bool
	StartTime time.Time
	EndTime   time.Time
}
