package runtime

import (
	"fmt"
	"path/filepath"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/jobflow/types"
)

func killScriptPath(props *types.JobProps, appID string) string {
	return filepath.Join(props.WorkDir, fmt.Sprintf("%s_%s.kill", props.JobAppID, appID))
}

/**
 * cancelApplication kills a yarn application by a generated script,
 * {workDir}/{jobAppId}_{appId}.kill, which is written only once.
 * The script is started and not waited for: a failure is logged only.
 */
func cancelApplication(appID string, props *types.JobProps, newCommand CommandFunc, logger log.FieldLogger) error {
	if newCommand == nil {
		newCommand = defaultCommand
	}

	path := killScriptPath(props, appID)
	written, err := writeScript(path, buildScript(props.EnvFile, "yarn application -kill "+appID), true)
	if err != nil {
		return types.NewCancelError(errors.Annotatef(err, "kill script of %s", appID))
	}
	if !written {
		logger.Debugf("reuse kill script %s", path)
	}

	c := asUser(props.ProxyUser, &command{name: "sh", args: []string{path}})
	logger.Infof("kill cmd: %s", c)

	cmd := newCommand(c.name, c.args...)
	if err := cmd.Start(); err != nil {
		return types.NewCancelError(errors.Annotatef(err, "start %s", c))
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Errorf("kill application %s failed: %v", appID, err)
		}
	}()
	return nil
}
