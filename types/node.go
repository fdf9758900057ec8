package types

import "time"

type ExecutionFlow struct {
	ID        int
	ProjectID int
	FlowID    int
	ProxyUser string
	Queue     string
	StartTime time.Time
	// seconds
	Timeout int
}

type FlowNode struct {
	Name      string
	Type      JobType
	Parameter string
}

type ExecutionNode struct {
	ExecID    int
	Name      string
	JobID     string
	Status    StatusType
	StartTime time.Time `json:",omitempty"`
	EndTime   time.Time `json:",omitempty"`

	AppLinkList []string `json:",omitempty"`
	JobLinkList []string `json:",omitempty"`
}

// StreamingResult is the record of a long running job, keyed by execution id.
type StreamingResult struct {
	ExecID    int
	Name      string
	JobID     string
	Status    StatusType
	StartTime time.Time `json:",omitempty"`
	EndTime   time.Time `json:",omitempty"`

	AppLinkList []string `json:",omitempty"`
	JobLinkList []string `json:",omitempty"`
}

// Permit is one slot of a concurrency gate, Release is idempotent.
type Permit interface {
	Release()
}

// JobContext holds everything a node runner needs to run one node.
type JobContext struct {
	ExecutionFlow *ExecutionFlow
	ExecutionNode *ExecutionNode
	FlowNode      *FlowNode

	SystemParams map[string]string
	CustomParams map[string]string

	Permit Permit
}
