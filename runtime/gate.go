package runtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/juju/errors"
	"github.com/warriorguo/jobflow/types"
	"golang.org/x/sync/semaphore"
)

var (
	_ types.Permit = &permit{}
)

// ConcurrencyGate bounds how many nodes run at the same time.
type ConcurrencyGate struct {
	size  int64
	sem   *semaphore.Weighted
	inUse atomic.Int64
}

func NewConcurrencyGate(size int) *ConcurrencyGate {
	if size <= 0 {
		size = 1
	}
	return &ConcurrencyGate{size: int64(size), sem: semaphore.NewWeighted(int64(size))}
}

// Acquire blocks until a permit is free or ctx is done.
func (g *ConcurrencyGate) Acquire(ctx context.Context) (types.Permit, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Annotatef(err, "acquire permit")
	}
	return g.newPermit(), nil
}

func (g *ConcurrencyGate) TryAcquire() (types.Permit, bool) {
	if !g.sem.TryAcquire(1) {
		return nil, false
	}
	return g.newPermit(), true
}

func (g *ConcurrencyGate) newPermit() *permit {
	g.inUse.Add(1)
	return &permit{gate: g}
}

func (g *ConcurrencyGate) Size() int {
	return int(g.size)
}

func (g *ConcurrencyGate) InUse() int {
	return int(g.inUse.Load())
}

func (g *ConcurrencyGate) Available() int {
	return int(g.size - g.inUse.Load())
}

type permit struct {
	once sync.Once
	gate *ConcurrencyGate
}

// Release gives the permit back, only the first call counts.
func (p *permit) Release() {
	p.once.Do(func() {
		p.gate.inUse.Add(-1)
		p.gate.sem.Release(1)
	})
}
