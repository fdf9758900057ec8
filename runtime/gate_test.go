package runtime

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConcurrencyGate(t *testing.T) {
	gate := NewConcurrencyGate(2)
	assert.Equal(t, 2, gate.Size())

	p1, err := gate.Acquire(context.Background())
	assert.Nil(t, err)
	p2, ok := gate.TryAcquire()
	assert.True(t, ok)
	assert.Equal(t, 2, gate.InUse())
	assert.Equal(t, 0, gate.Available())

	_, ok = gate.TryAcquire()
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = gate.Acquire(ctx)
	assert.NotNil(t, err)

	p1.Release()
	// only the first release counts
	p1.Release()
	assert.Equal(t, 1, gate.InUse())

	p2.Release()
	assert.Equal(t, 0, gate.InUse())
	assert.Equal(t, 2, gate.Available())

	assert.Equal(t, 1, NewConcurrencyGate(0).Size())
}

func TestConcurrencyGateBound(t *testing.T) {
	const size = 3
	gate := NewConcurrencyGate(size)

	var running, maxRunning atomic.Int32
	wg := sync.WaitGroup{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() {
				recover()
			}()
			permit, err := gate.Acquire(context.Background())
			if !assert.Nil(t, err) {
				return
			}
			defer permit.Release()

			n := running.Add(1)
			for {
				m := maxRunning.Load()
				if n <= m || maxRunning.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			if i%2 == 0 {
				panic("failing task")
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, maxRunning.Load(), int32(size))
	assert.Equal(t, 0, gate.InUse())
}
