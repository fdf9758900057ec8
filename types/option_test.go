package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	opts := NewExecOptions()

	assert.Equal(t, 16, opts.MaxNodeConcurrency)
	assert.Equal(t, 32, opts.MaxWorkers)
	assert.Equal(t, 5*time.Second, opts.PollInterval)
	assert.Equal(t, 1000, opts.DefaultQueryLimit)
	assert.Equal(t, 24*time.Hour, opts.SqlRegistryTTL)
	assert.Equal(t, "postgres", opts.SqlDriver)
	assert.False(t, opts.MemStore)
	assert.Nil(t, opts.PostgresConfig)
}

func TestWithPostgresConfig(t *testing.T) {
	config := &PostgresConfig{
		Host:     "dbhost",
		Port:     5433,
		User:     "user",
		Password: "pass",
		Database: "db",
		SSLMode:  "require",
	}

	opts := NewExecOptions()
	opt := WithPostgresConfig(config)
	opt(opts)

	assert.NotNil(t, opts.PostgresConfig)
	assert.Equal(t, "dbhost", opts.PostgresConfig.Host)
	assert.Equal(t, 5433, opts.PostgresConfig.Port)
	assert.Equal(t, "require", opts.PostgresConfig.SSLMode)
}

func TestMultipleOptions(t *testing.T) {
	opts := NewExecOptions()

	SetMaxNodeConcurrency(4)(opts)
	WithPollInterval(time.Millisecond * 10)(opts)
	WithYarnAddress("http://rm:8088")(opts)
	WithSqlRegistry(10, time.Minute)(opts)
	SetDefaultQueryLimit(50)(opts)
	EnableMemStore()(opts)

	assert.Equal(t, 4, opts.MaxNodeConcurrency)
	assert.Equal(t, 10*time.Millisecond, opts.PollInterval)
	assert.Equal(t, "http://rm:8088", opts.YarnAddress)
	assert.Equal(t, 10, opts.SqlRegistrySize)
	assert.Equal(t, time.Minute, opts.SqlRegistryTTL)
	assert.Equal(t, 50, opts.DefaultQueryLimit)
	assert.True(t, opts.MemStore)
}

func TestStatusType(t *testing.T) {
	assert.True(t, Success.IsFinished())
	assert.True(t, Failed.IsFinished())
	assert.True(t, Killed.IsFinished())
	assert.False(t, Running.IsFinished())
	assert.False(t, Init.IsFinished())
	assert.Equal(t, "RUNNING", Running.String())
	assert.Equal(t, JobHive, ParseJobType(" hql "))
}

func TestJobPropsDeadline(t *testing.T) {
	start := time.Date(2017, 5, 23, 18, 0, 0, 0, time.UTC)
	p := &JobProps{FlowStartTime: start}
	assert.True(t, p.Deadline().IsZero())

	p.FlowTimeout = 60
	assert.Equal(t, start.Add(time.Minute), p.Deadline())
}
