package utils

import (
	"fmt"
	"path/filepath"
)

// ExecDir is the working directory of one flow execution:
// {base}/{projectID}/{flowID}/{execID}
func ExecDir(base string, projectID, flowID, execID int) string {
	return filepath.Join(base, fmt.Sprint(projectID), fmt.Sprint(flowID), fmt.Sprint(execID))
}

// NodeKey identifies a node inside one flow execution.
func NodeKey(execID int, nodeName string) string {
	return fmt.Sprintf("%d/%s", execID, nodeName)
}
