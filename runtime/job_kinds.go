package runtime

import (
	"path/filepath"

	"github.com/google/shlex"
	"github.com/juju/errors"
	"github.com/warriorguo/jobflow/types"
)

func parseParams(props *types.JobProps) (types.Data, error) {
	params, err := types.ParseData(props.JobParams, props.DefinedParams)
	if err != nil {
		return nil, types.NewSpecError(err)
	}
	return params, nil
}

func splitArgs(params types.Data, key string) ([]string, error) {
	s, _ := params.GetString(key)
	args, err := shlex.Split(s)
	if err != nil {
		return nil, types.NewSpecError(errors.Annotatef(err, "parameter %q", key))
	}
	return args, nil
}

func newShellJob(props *types.JobProps, env *JobEnv) (Job, error) {
	return newProcessJob(props, env, false, prepareShell), nil
}

// prepareShell writes {workDir}/{jobAppId}.command from the "script" parameter.
func prepareShell(props *types.JobProps) (*command, error) {
	params, err := parseParams(props)
	if err != nil {
		return nil, err
	}
	script, err := params.MustString("script")
	if err != nil {
		return nil, err
	}

	path := filepath.Join(props.WorkDir, props.JobAppID+".command")
	if _, err := writeScript(path, buildScript(props.EnvFile, script), false); err != nil {
		return nil, errors.Trace(err)
	}
	return asUser(props.ProxyUser, &command{name: "sh", args: []string{path}}), nil
}

func newHiveJob(props *types.JobProps, env *JobEnv) (Job, error) {
	return newYarnJob(props, env, false, prepareHive), nil
}

// prepareHive writes the "sql" parameter to {workDir}/{jobAppId}.hql and runs it with the hive cli.
func prepareHive(props *types.JobProps) (*command, error) {
	params, err := parseParams(props)
	if err != nil {
		return nil, err
	}
	sql, err := params.MustString("sql")
	if err != nil {
		return nil, err
	}

	path := filepath.Join(props.WorkDir, props.JobAppID+".hql")
	if _, err := writeScript(path, sql+"\n", false); err != nil {
		return nil, errors.Trace(err)
	}

	args := []string{}
	if props.Queue != "" {
		args = append(args, "--hiveconf", "mapreduce.job.queuename="+props.Queue)
	}
	args = append(args, "-f", path)
	return asUser(props.ProxyUser, &command{name: "hive", args: args}), nil
}

func newSparkJob(props *types.JobProps, env *JobEnv) (Job, error) {
	return newYarnJob(props, env, false, prepareSpark(false)), nil
}

func newSparkStreamingJob(props *types.JobProps, env *JobEnv) (Job, error) {
	return newYarnJob(props, env, true, prepareSpark(true)), nil
}

var sparkOptions = []struct {
	param string
	flag  string
}{
	{"mainClass", "--class"},
	{"driverCores", "--driver-cores"},
	{"driverMemory", "--driver-memory"},
	{"numExecutors", "--num-executors"},
	{"executorCores", "--executor-cores"},
	{"executorMemory", "--executor-memory"},
}

// prepareSpark builds a spark-submit on yarn in cluster mode. A streaming
// job does not wait for the application to finish.
func prepareSpark(streaming bool) prepareFunc {
	return func(props *types.JobProps) (*command, error) {
		params, err := parseParams(props)
		if err != nil {
			return nil, err
		}
		mainJar, err := params.MustString("mainJar")
		if err != nil {
			return nil, err
		}

		args := []string{"--master", "yarn", "--deploy-mode", "cluster", "--name", props.JobAppID}
		if props.Queue != "" {
			args = append(args, "--queue", props.Queue)
		}
		for _, opt := range sparkOptions {
			if v, _ := params.GetString(opt.param); v != "" {
				args = append(args, opt.flag, v)
			}
		}
		if streaming {
			args = append(args, "--conf", "spark.yarn.submit.waitAppCompletion=false")
		}
		others, err := splitArgs(params, "others")
		if err != nil {
			return nil, err
		}
		args = append(args, others...)
		args = append(args, mainJar)

		appArgs, err := splitArgs(params, "args")
		if err != nil {
			return nil, err
		}
		args = append(args, appArgs...)
		return asUser(props.ProxyUser, &command{name: "spark-submit", args: args}), nil
	}
}

func newMapReduceJob(props *types.JobProps, env *JobEnv) (Job, error) {
	return newYarnJob(props, env, false, prepareMapReduce), nil
}

func prepareMapReduce(props *types.JobProps) (*command, error) {
	params, err := parseParams(props)
	if err != nil {
		return nil, err
	}
	mainJar, err := params.MustString("mainJar")
	if err != nil {
		return nil, err
	}

	args := []string{"jar", mainJar}
	if mainClass, _ := params.GetString("mainClass"); mainClass != "" {
		args = append(args, mainClass)
	}
	if props.Queue != "" {
		args = append(args, "-Dmapreduce.job.queuename="+props.Queue)
	}
	appArgs, err := splitArgs(params, "args")
	if err != nil {
		return nil, err
	}
	args = append(args, appArgs...)
	return asUser(props.ProxyUser, &command{name: "hadoop", args: args}), nil
}
