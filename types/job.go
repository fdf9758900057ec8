package types

import (
	"fmt"
	"time"

	"github.com/warriorguo/jobflow/utils"
)

// JobProps describes one job invocation, it is built once per node
// execution attempt and never changed afterwards.
type JobProps struct {
	WorkDir string
	// raw parameter text of the node, JSON
	JobParams     string
	DefinedParams map[string]string

	ProxyUser  string
	ProjectID  int
	WorkflowID int
	NodeName   string
	ExecID     int
	EnvFile    string
	Queue      string

	FlowStartTime time.Time
	// seconds, 0 means no timeout
	FlowTimeout int

	// JobAppID namespaces the generated scripts of the node
	JobAppID string
}

// JobAppID is "{jobID}_{first 8 hex chars of md5(nodeName)}"
func JobAppID(jobID, nodeName string) string {
	return fmt.Sprintf("%s_%s", jobID, utils.Md5Hex(nodeName)[:8])
}

// Deadline returns zero time when the flow has no timeout.
func (p *JobProps) Deadline() time.Time {
	if p.FlowTimeout <= 0 || p.FlowStartTime.IsZero() {
		return time.Time{}
	}
	return p.FlowStartTime.Add(time.Duration(p.FlowTimeout) * time.Second)
}

// Param returns a defined parameter.
func (p *JobProps) Param(name string) (string, bool) {
	v, exists := p.DefinedParams[name]
	return v, exists
}
