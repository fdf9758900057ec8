package types

import "strings"

type StatusType int32

const (
	None    StatusType = 0
	Init    StatusType = 1
	Running StatusType = 2
	Success StatusType = 3
	Killed  StatusType = 4
	Failed  StatusType = 5
)

func (s StatusType) String() string {
	switch s {
	case Init:
		return "INIT"
	case Running:
		return "RUNNING"
	case Success:
		return "SUCCESS"
	case Killed:
		return "KILLED"
	case Failed:
		return "FAILED"
	default:
		return "NONE"
	}
}

// IsFinished reports whether s is a terminal state.
func (s StatusType) IsFinished() bool {
	return s == Success || s == Killed || s == Failed
}

type JobType string

const (
	JobShell          JobType = "SHELL"
	JobHive           JobType = "HQL"
	JobSpark          JobType = "SPARK"
	JobMapReduce      JobType = "MR"
	JobSparkStreaming JobType = "SPARK_STREAMING"
	JobVirtual        JobType = "VIRTUAL"
)

// ParseJobType is case insensitive, unknown names are returned as is
// so a custom job kind can still be looked up.
func ParseJobType(s string) JobType {
	return JobType(strings.ToUpper(strings.TrimSpace(s)))
}
