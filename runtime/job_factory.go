package runtime

import (
	"sync"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/jobflow/store"
	"github.com/warriorguo/jobflow/types"
	"github.com/warriorguo/jobflow/yarn"
)

// JobEnv is what a job kind may use besides its JobProps.
type JobEnv struct {
	Logger  log.FieldLogger
	Store   store.ExecutionStore
	Yarn    yarn.StatusClient
	Command CommandFunc

	PollTimeout      time.Duration
	LogBatchSize     int
	LogFlushInterval time.Duration
}

type JobCreator func(props *types.JobProps, env *JobEnv) (Job, error)

// JobFactory builds jobs by the type of their node.
type JobFactory struct {
	mu       sync.RWMutex
	creators map[types.JobType]JobCreator

	env JobEnv
}

// NewJobFactory returns a factory knowing all the builtin job kinds.
func NewJobFactory(env JobEnv) *JobFactory {
	f := &JobFactory{creators: make(map[types.JobType]JobCreator), env: env}
	f.mustRegister(types.JobShell, newShellJob)
	f.mustRegister(types.JobHive, newHiveJob)
	f.mustRegister(types.JobSpark, newSparkJob)
	f.mustRegister(types.JobMapReduce, newMapReduceJob)
	f.mustRegister(types.JobSparkStreaming, newSparkStreamingJob)
	f.mustRegister(types.JobVirtual, newVirtualJob)
	return f
}

func (f *JobFactory) mustRegister(jobType types.JobType, creator JobCreator) {
	if err := f.Register(jobType, creator); err != nil {
		panic(err)
	}
}

func (f *JobFactory) Register(jobType types.JobType, creator JobCreator) error {
	if creator == nil {
		return errors.BadRequestf("creator of %s is nil", jobType)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.creators[jobType]; exists {
		return errors.AlreadyExistsf("job type %s", jobType)
	}
	f.creators[jobType] = creator
	return nil
}

func (f *JobFactory) NewJob(jobType types.JobType, props *types.JobProps, logger log.FieldLogger) (Job, error) {
	f.mu.RLock()
	creator, exists := f.creators[jobType]
	f.mu.RUnlock()

	if !exists {
		return nil, types.NewSpecError(errors.NotSupportedf("job type %q", jobType))
	}

	env := f.env
	if logger != nil {
		env.Logger = logger
	}
	if env.Logger == nil {
		env.Logger = log.StandardLogger()
	}
	job, err := creator(props, &env)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return job, nil
}
