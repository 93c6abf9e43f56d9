package doc2pdf

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one conversion can run.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent conversions; the office suite and
	// wkhtmltopdf are heavyweight native processes.
	MaxPoolSize = 4

	// cpuDivisor leaves headroom for the engines' own child processes.
	cpuDivisor = 2
)

// Pool bounds the number of conversions in flight. The transport layer
// acquires a slot before spawning a background conversion so a burst of
// uploads cannot fan out into unbounded engine spawns.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool creates a pool admitting at most n concurrent conversions.
func NewPool(n int) *Pool {
	if n < MinPoolSize {
		n = MinPoolSize
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(n)),
		size: n,
	}
}

// Acquire blocks until a conversion slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// TryAcquire grabs a slot without blocking, reporting whether it succeeded.
// Lets the transport reject instead of queue when saturated.
func (p *Pool) TryAcquire() bool {
	return p.sem.TryAcquire(1)
}

// Release returns a slot to the pool.
func (p *Pool) Release() {
	p.sem.Release(1)
}

// Size returns the pool capacity.
func (p *Pool) Size() int {
	return p.size
}

// ResolvePoolSize determines the admission bound.
// Priority: explicit workers > GOMAXPROCS-based calculation (adjusted by
// automaxprocs in container environments).
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
