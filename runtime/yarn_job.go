package runtime

import (
	"context"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/warriorguo/jobflow/store"
	"github.com/warriorguo/jobflow/types"
	"github.com/warriorguo/jobflow/utils"
	"github.com/warriorguo/jobflow/yarn"
)

var (
	applicationPattern = regexp.MustCompile(`application_\d+_\d+`)
	subJobPattern      = regexp.MustCompile(`job_\d+_\d+`)
)

const (
	defaultPollTimeout = 10 * time.Second
	persistTimeout     = 10 * time.Second

	remoteFailedExitCode = -1
)

// yarnJob is a process job whose real work runs as applications on YARN.
// The application and sub job ids are mined from the output, the last
// application is polled for completion and killed on cancel.
type yarnJob struct {
	*processJob

	store       store.ExecutionStore
	yarn        yarn.StatusClient
	pollTimeout time.Duration

	appLinks *utils.OrderedSet[string]
	jobLinks *utils.OrderedSet[string]

	remoteFailed atomic.Bool
}

func newYarnJob(props *types.JobProps, env *JobEnv, longJob bool, prepare prepareFunc) *yarnJob {
	y := &yarnJob{
		processJob:  newProcessJob(props, env, longJob, prepare),
		store:       env.Store,
		yarn:        env.Yarn,
		pollTimeout: env.PollTimeout,
		appLinks:    utils.NewOrderedSet[string](),
		jobLinks:    utils.NewOrderedSet[string](),
	}
	if y.pollTimeout <= 0 {
		y.pollTimeout = defaultPollTimeout
	}
	y.onLog = y.LogProcess
	return y
}

func (y *yarnJob) AppLinks() []string {
	return y.appLinks.Snapshot()
}

func (y *yarnJob) JobLinks() []string {
	return y.jobLinks.Snapshot()
}

// LogProcess records every new application and sub job id found in lines.
func (y *yarnJob) LogProcess(lines []string) {
	y.logger.Infof("(stdout, stderr) -> \n%s", strings.Join(lines, "\n"))

	captureAppLinks := false
	captureJobLinks := false
	for _, line := range lines {
		for _, appID := range applicationPattern.FindAllString(line, -1) {
			if y.appLinks.Add(appID) {
				captureAppLinks = true
			}
		}
		for _, jobID := range subJobPattern.FindAllString(line, -1) {
			if y.jobLinks.Add(jobID) {
				captureJobLinks = true
			}
		}
	}

	if captureAppLinks || captureJobLinks {
		if err := y.persistLinks(); err != nil {
			y.logger.Errorf("persist links failed: %v", errors.ErrorStack(err))
		}
	}

	// an application showed up after the job was cancelled
	if captureAppLinks && y.IsCancelled() {
		y.killApplication()
	}
}

func (y *yarnJob) persistLinks() error {
	if y.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	appLinks, jobLinks := y.appLinks.Snapshot(), y.jobLinks.Snapshot()
	if y.isLongJob() {
		result, err := y.store.QueryStreamingResult(ctx, y.props.ExecID)
		if err != nil {
			return errors.Trace(err)
		}
		if result == nil {
			return nil
		}
		result.AppLinkList = appLinks
		result.JobLinkList = jobLinks
		return errors.Trace(y.store.UpdateStreamingResult(ctx, result))
	}

	node, err := y.store.QueryExecutionNode(ctx, y.props.ExecID, y.props.NodeName)
	if err != nil {
		return errors.Trace(err)
	}
	if node == nil {
		return nil
	}
	node.AppLinkList = appLinks
	node.JobLinkList = jobLinks
	return errors.Trace(y.store.UpdateExecutionNode(ctx, node))
}

/**
 * IsCompleted asks the resource manager about the last application.
 * Not known yet: not completed. Finished or RUNNING: completed.
 * The query failed: completed, so a job never hangs on a broken poll.
 * Without any application it is up to the local process.
 */
func (y *yarnJob) IsCompleted() bool {
	appID, exists := y.appLinks.Last()
	if !exists || y.yarn == nil {
		return y.processJob.IsCompleted()
	}

	ctx, cancel := context.WithTimeout(context.Background(), y.pollTimeout)
	defer cancel()

	status, found, err := y.yarn.GetApplicationStatus(ctx, appID)
	if err != nil {
		y.logger.Errorf("request status of application %s failed: %v", appID, err)
		y.complete.Store(true)
		return true
	}
	if !found {
		y.complete.Store(false)
		return false
	}

	y.logger.Infof("current status of %s is: %v", appID, status)
	switch {
	case status.IsFinished():
		if status != types.Success {
			y.remoteFailed.Store(true)
		}
		y.complete.Store(true)
	case status == types.Running:
		y.complete.Store(true)
	default:
		y.complete.Store(false)
	}
	return y.complete.Load()
}

// ExitCode is non zero when the last application did not succeed,
// whatever the local process returned.
func (y *yarnJob) ExitCode() int {
	code := y.processJob.ExitCode()
	if code == 0 && y.remoteFailed.Load() {
		return remoteFailedExitCode
	}
	return code
}

func (y *yarnJob) Cancel(killRemote bool) error {
	y.logger.Infof("cancel yarn job, kill application: %v", killRemote)

	err := y.processJob.Cancel(killRemote)
	if killRemote {
		y.killApplication()
	}
	return err
}

func (y *yarnJob) killApplication() {
	appID, exists := y.appLinks.Last()
	if !exists {
		return
	}
	if err := cancelApplication(appID, y.props, y.newCommand, y.logger); err != nil {
		y.logger.Errorf("kill application %s failed: %v", appID, err)
	}
}
