package types

import (
	"context"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/prometheus/client_golang/prometheus"
)

func NewExecOptions() *ExecOptions {
	opts := &ExecOptions{Ctx: context.Background()}
	defaults.SetDefaults(opts)
	return opts
}

type ExecOptions struct {
	Ctx context.Context
	/**
	 * default: 16
	 * at most this many nodes are running at the same time.
	 */
	MaxNodeConcurrency int `default:"16"`
	/**
	 * default: 32
	 * size of the worker pool running the node runners, a runner only
	 * occupies a worker after its permit has been acquired.
	 */
	MaxWorkers int `default:"32"`
	/**
	 * default: 5s
	 * how often the completion of a remote job is checked.
	 */
	PollInterval time.Duration `default:"5s"`
	/**
	 * root of the working directories, a node runs in
	 * {ExecBaseDir}/{projectId}/{flowId}/{execId}
	 */
	ExecBaseDir string `default:"/tmp/jobflow/exec"`
	/**
	 * shell environment sourced by the generated scripts, optional.
	 */
	EnvFile string
	/**
	 * address of the YARN resource manager, e.g. http://rm:8088
	 */
	YarnAddress string `default:"http://localhost:8088"`
	YarnTimeout time.Duration `default:"10s"`
	/**
	 * max requests per second to the resource manager, 0 means unlimited.
	 */
	YarnQPS float64 `default:"20"`

	DefaultQueryLimit int `default:"1000"`
	/**
	 * the sql job registry keeps at most SqlRegistrySize entries,
	 * each for at most SqlRegistryTTL.
	 */
	SqlRegistrySize int           `default:"10000"`
	SqlRegistryTTL  time.Duration `default:"24h"`
	SqlDriver       string        `default:"postgres"`
	SqlDSN          string
	/**
	 * a sqlexec.Connector, if set SqlDriver and SqlDSN are ignored.
	 */
	SqlSession any

	/**
	 * default: false, only set it to true when doing testing or developing.
	 */
	MemStore bool `default:"false"`

	// PostgreSQL store configuration
	// If both MemStore and PostgresConfig are set, PostgresConfig takes precedence
	PostgresConfig *PostgresConfig

	Registerer prometheus.Registerer
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
}

type ExecOption func(*ExecOptions)

func WithContext(ctx context.Context) ExecOption {
	return func(opts *ExecOptions) {
		opts.Ctx = ctx
	}
}

func SetMaxNodeConcurrency(concurrency int) ExecOption {
	return func(opts *ExecOptions) {
		opts.MaxNodeConcurrency = concurrency
	}
}

func SetMaxWorkers(workers int) ExecOption {
	return func(opts *ExecOptions) {
		opts.MaxWorkers = workers
	}
}

func WithPollInterval(interval time.Duration) ExecOption {
	return func(opts *ExecOptions) {
		opts.PollInterval = interval
	}
}

func WithExecBaseDir(dir string) ExecOption {
	return func(opts *ExecOptions) {
		opts.ExecBaseDir = dir
	}
}

func WithEnvFile(envFile string) ExecOption {
	return func(opts *ExecOptions) {
		opts.EnvFile = envFile
	}
}

func WithYarnAddress(address string) ExecOption {
	return func(opts *ExecOptions) {
		opts.YarnAddress = address
	}
}

func SetDefaultQueryLimit(limit int) ExecOption {
	return func(opts *ExecOptions) {
		opts.DefaultQueryLimit = limit
	}
}

func WithSqlRegistry(size int, ttl time.Duration) ExecOption {
	return func(opts *ExecOptions) {
		opts.SqlRegistrySize = size
		opts.SqlRegistryTTL = ttl
	}
}

// WithSqlDataSource sets the database/sql driver and DSN of the sql session.
func WithSqlDataSource(driver, dsn string) ExecOption {
	return func(opts *ExecOptions) {
		opts.SqlDriver = driver
		opts.SqlDSN = dsn
	}
}

// WithSqlSession injects a sqlexec.Connector.
func WithSqlSession(session any) ExecOption {
	return func(opts *ExecOptions) {
		opts.SqlSession = session
	}
}

func EnableMemStore() ExecOption {
	return func(opts *ExecOptions) {
		opts.MemStore = true
	}
}

// WithPostgresConfig configures the executor to use PostgreSQL store
func WithPostgresConfig(config *PostgresConfig) ExecOption {
	return func(opts *ExecOptions) {
		opts.PostgresConfig = config
	}
}

func WithMetricsRegisterer(reg prometheus.Registerer) ExecOption {
	return func(opts *ExecOptions) {
		opts.Registerer = reg
	}
}
