package sqlexec

import (
	"fmt"

	"github.com/warriorguo/jobflow/types"
	"github.com/warriorguo/jobflow/utils"
)

// UdfCommands returns the statements registering udfs: every jar once,
// then one temporary function per udf.
func UdfCommands(udfs []types.UdfInfo) []string {
	jars := utils.NewOrderedSet[string]()
	for _, udf := range udfs {
		for _, lib := range udf.Libs {
			if lib != "" {
				jars.Add(lib)
			}
		}
	}

	cmds := make([]string, 0, jars.Len()+len(udfs))
	for _, jar := range jars.Snapshot() {
		cmds = append(cmds, fmt.Sprintf("add jar %s", jar))
	}
	for _, udf := range udfs {
		cmds = append(cmds, fmt.Sprintf("create temporary function %s as '%s'", udf.Func, udf.ClassName))
	}
	return cmds
}
