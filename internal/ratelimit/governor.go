// Package ratelimit provides per-credential admission control: a bound on
// simultaneous in-flight requests plus an optional requests-per-minute ceiling
// enforced over a trailing 60-second sliding window.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const window = time.Minute

type Config struct {
	// ConcurrencyLimit bounds simultaneously outstanding admissions.
	// Values below 1 are treated as 1.
	ConcurrencyLimit int
	// RPMLimit bounds admissions granted within any trailing 60 seconds.
	// 0 disables the check.
	RPMLimit int
}

// Governor grants admissions. One Governor guards one credential.
type Governor struct {
	sem *semaphore.Weighted
	rpm int

	mu     sync.Mutex
	grants []time.Time

	now func() time.Time
}

func New(cfg Config) *Governor {
	limit := cfg.ConcurrencyLimit
	if limit < 1 {
		limit = 1
	}
	return &Governor{
		sem: semaphore.NewWeighted(int64(limit)),
		rpm: cfg.RPMLimit,
		now: time.Now,
	}
}

// Admission is a granted permit for one in-flight request. Release must run on
// every exit path; it is safe to call more than once.
type Admission struct {
	g    *Governor
	once sync.Once
}

func (a *Admission) Release() {
	a.once.Do(func() { a.g.sem.Release(1) })
}

// Admit blocks until both the concurrency bound and, if enabled, the RPM window
// have capacity. Cancelling ctx during either wait returns ctx's error with
// nothing left acquired.
func (g *Governor) Admit(ctx context.Context) (*Admission, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := g.waitForWindow(ctx); err != nil {
		g.sem.Release(1)
		return nil, err
	}
	return &Admission{g: g}, nil
}

func (g *Governor) waitForWindow(ctx context.Context) error {
	if g.rpm <= 0 {
		return nil
	}
	for {
		g.mu.Lock()
		now := g.now()
		g.prune(now)
		if len(g.grants) < g.rpm {
			g.grants = append(g.grants, now)
			g.mu.Unlock()
			return nil
		}
		// Window is full: wait until the oldest grant ages out, then
		// re-evaluate. The sleep happens outside the lock.
		wait := window - now.Sub(g.grants[0])
		g.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// prune drops grants older than the trailing window. Caller holds g.mu.
func (g *Governor) prune(now time.Time) {
	cut := 0
	for cut < len(g.grants) && now.Sub(g.grants[cut]) >= window {
		cut++
	}
	if cut > 0 {
		g.grants = append(g.grants[:0], g.grants[cut:]...)
	}
}
