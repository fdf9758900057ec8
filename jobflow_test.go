package jobflow

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/warriorguo/jobflow/sqlexec"
	"github.com/warriorguo/jobflow/types"
)

func TestShellNode(t *testing.T) {
	executor, err := NewFlowExecutor(
		types.EnableMemStore(),
		types.WithExecBaseDir(t.TempDir()),
		types.WithPollInterval(10*time.Millisecond),
		types.WithMetricsRegisterer(prometheus.NewRegistry()),
	)
	assert.Nil(t, err)
	defer executor.Close(context.Background())

	flow := &types.ExecutionFlow{ID: 1, ProjectID: 1, FlowID: 1, StartTime: time.Now(), Timeout: 60}
	run := func(name, script string) types.NodeResult {
		ch, err := executor.RunNode(context.Background(), &types.JobContext{
			ExecutionFlow: flow,
			FlowNode:      &types.FlowNode{Name: name, Type: types.JobShell, Parameter: `{"script":"` + script + `"}`},
			SystemParams:  map[string]string{"code": "0"},
		})
		assert.Nil(t, err)
		return <-ch
	}

	assert.True(t, run("ok", "exit ${code}").Success)
	assert.False(t, run("failed", "exit 1").Success)
}

func TestAdhocSql(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.Nil(t, err)
	defer db.Close()

	mock.ExpectQuery("select 1").WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))

	executor, err := NewFlowExecutor(
		types.EnableMemStore(),
		types.WithSqlSession(sqlexec.NewConnector(sqlx.NewDb(db, "sqlmock"))),
	)
	assert.Nil(t, err)
	defer executor.Close(context.Background())

	assert.Nil(t, executor.ExecuteAdhocSql("adhoc", nil, []string{"select 1"}, time.Now().Add(time.Minute), 0))

	var result *types.AdhocResult
	assert.Eventually(t, func() bool {
		result, err = executor.GetAdhocResult("adhoc")
		return err == nil && result.Status.IsFinished()
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, types.Success, result.Status)
	assert.Equal(t, []string{"one"}, result.Titles)
	assert.Equal(t, [][]string{{"1"}}, result.Values)
	assert.False(t, executor.CancelSql("adhoc"))
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestInvalidSqlSession(t *testing.T) {
	_, err := NewFlowExecutor(types.EnableMemStore(), types.WithSqlSession("not a connector"))
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestWithoutSqlDataSource(t *testing.T) {
	executor, err := NewFlowExecutor()
	assert.Nil(t, err)
	defer executor.Close(context.Background())

	err = executor.ExecuteEtlSql("etl", nil, []string{"insert"}, time.Time{})
	assert.True(t, errors.Is(err, errors.NotSupported))
}
