package jobflow

import (
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/jobflow/runtime"
	"github.com/warriorguo/jobflow/sqlexec"
	"github.com/warriorguo/jobflow/store"
	"github.com/warriorguo/jobflow/store/mem"
	"github.com/warriorguo/jobflow/store/postgres"
	"github.com/warriorguo/jobflow/types"
	"github.com/warriorguo/jobflow/yarn"
)

// NewFlowExecutor creates a new flow executor with the given options
func NewFlowExecutor(opts ...types.ExecOption) (types.FlowExecutor, error) {
	options := types.NewExecOptions()
	for _, opt := range opts {
		opt(options)
	}

	s, err := newStore(options)
	if err != nil {
		return nil, errors.Trace(err)
	}

	connector, err := newConnector(options)
	if err != nil {
		return nil, errors.Trace(err)
	}

	yarnConfig := yarn.NewConfig()
	yarnConfig.Address = options.YarnAddress
	yarnConfig.Timeout = options.YarnTimeout
	yarnConfig.QPS = options.YarnQPS

	deps := runtime.Dependencies{
		Store: store.NewExecutionStore(s),
		Yarn:  yarn.NewClient(yarnConfig),
	}
	if connector != nil {
		deps.Sql = sqlexec.NewRunnerManager(connector, sqlexec.ManagerConfig{
			DefaultQueryLimit: options.DefaultQueryLimit,
			RegistrySize:      options.SqlRegistrySize,
			RegistryTTL:       options.SqlRegistryTTL,
		})
	}
	return runtime.NewFlowExecutor(deps, options), nil
}

func newStore(options *types.ExecOptions) (store.Store, error) {
	// PostgresConfig takes precedence over MemStore
	if options.PostgresConfig != nil {
		pgConfig := &postgres.Config{
			Host:     options.PostgresConfig.Host,
			Port:     options.PostgresConfig.Port,
			User:     options.PostgresConfig.User,
			Password: options.PostgresConfig.Password,
			Database: options.PostgresConfig.Database,
			SSLMode:  options.PostgresConfig.SSLMode,
		}

		s, err := postgres.NewPostgresStore(pgConfig)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create PostgreSQL store")
		}
		return s, nil
	}
	if !options.MemStore {
		log.Warn("no store configured, execution records are kept in memory")
	}
	return mem.NewMemStore(), nil
}

// newConnector returns nil when no sql data source is configured.
func newConnector(options *types.ExecOptions) (sqlexec.Connector, error) {
	if options.SqlSession != nil {
		connector, ok := options.SqlSession.(sqlexec.Connector)
		if !ok {
			return nil, errors.NotValidf("sql session %T", options.SqlSession)
		}
		return connector, nil
	}
	if options.SqlDSN == "" {
		return nil, nil
	}
	connector, err := sqlexec.Open(options.SqlDriver, options.SqlDSN)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to open sql data source")
	}
	return connector, nil
}
