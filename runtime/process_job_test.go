package runtime

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warriorguo/jobflow/types"
)

func newShellTestJob(t *testing.T, script string) *processJob {
	props := newTestProps(t, `{"script":"`+script+`"}`)
	env := &JobEnv{LogFlushInterval: 10 * time.Millisecond}
	job, err := newShellJob(props, env)
	assert.Nil(t, err)
	return job.(*processJob)
}

func TestShellJob(t *testing.T) {
	job := newShellTestJob(t, "echo hello; echo world 1>&2")

	lines := []string{}
	mu := sync.Mutex{}
	job.onLog = func(batch []string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, batch...)
	}

	assert.Nil(t, job.Before())
	_, err := os.Stat(filepath.Join(job.props.WorkDir, job.props.JobAppID+".command"))
	assert.Nil(t, err)

	assert.Nil(t, job.Process(context.Background()))
	assert.True(t, job.IsStarted())
	assert.True(t, job.IsCompleted())
	assert.Equal(t, 0, job.ExitCode())
	assert.Nil(t, job.After())

	assert.ElementsMatch(t, []string{"hello", "world"}, lines)
}

func TestShellJobExitCode(t *testing.T) {
	job := newShellTestJob(t, "exit 3")
	assert.Nil(t, job.Before())
	assert.Nil(t, job.Process(context.Background()))
	assert.Equal(t, 3, job.ExitCode())
}

func TestShellJobNotPrepared(t *testing.T) {
	job := newShellTestJob(t, "true")
	assert.True(t, types.IsSpecError(job.Process(context.Background())))

	job = newShellTestJob(t, "true")
	job.props.JobParams = "{}"
	assert.True(t, types.IsSpecError(job.Before()))
}

func TestShellJobCancel(t *testing.T) {
	job := newShellTestJob(t, "sleep 30")
	assert.Nil(t, job.Before())

	doneCh := make(chan error)
	go func() {
		doneCh <- job.Process(context.Background())
	}()
	waitFor(t, job.IsStarted)

	start := time.Now()
	assert.Nil(t, job.Cancel(true))
	assert.Nil(t, <-doneCh)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.True(t, job.IsCancelled())
	assert.NotEqual(t, 0, job.ExitCode())
}

func TestShellJobContextDone(t *testing.T) {
	job := newShellTestJob(t, "sleep 30")
	assert.Nil(t, job.Before())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Nil(t, job.Process(ctx))
	assert.NotEqual(t, 0, job.ExitCode())

	// cancelled before start
	job = newShellTestJob(t, "true")
	assert.Nil(t, job.Before())
	assert.Nil(t, job.Cancel(false))
	assert.NotNil(t, job.Process(context.Background()))
	assert.False(t, job.IsStarted())
}

func TestPumpLogs(t *testing.T) {
	r1 := strings.NewReader("a\nb\nc\n")
	pr, pw := io.Pipe()

	batches := [][]string{}
	go func() {
		pw.Write([]byte("x\n"))
		time.Sleep(50 * time.Millisecond)
		pw.Write([]byte("y"))
		pw.Close()
	}()
	pumpLogs([]io.Reader{r1, pr}, 2, 10*time.Millisecond, func(lines []string) {
		assert.LessOrEqual(t, len(lines), 2)
		batches = append(batches, lines)
	})

	all := []string{}
	for _, b := range batches {
		all = append(all, b...)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c", "x", "y"}, all)
	assert.Greater(t, len(batches), 2)
}
