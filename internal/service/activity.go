package service

import (
	"context"
	"sync"
	"time"

	"harfzaar/internal/middleware"
	"harfzaar/internal/observability"
	"harfzaar/internal/repository"
)

// ActivityReaper periodically marks users inactive once their last activity
// is older than the idle window.
type ActivityReaper struct {
	users     repository.UserRepository
	interval  time.Duration
	idleAfter time.Duration
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewActivityReaper returns a stopped reaper. Non-positive durations fall back to 5m.
func NewActivityReaper(users repository.UserRepository, interval, idleAfter time.Duration) *ActivityReaper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if idleAfter <= 0 {
		idleAfter = 5 * time.Minute
	}
	return &ActivityReaper{users: users, interval: interval, idleAfter: idleAfter, now: time.Now}
}

// Start launches the sweep loop. Calling Start twice is a no-op.
func (r *ActivityReaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
}

// Stop ends the loop and waits for an in-flight sweep.
func (r *ActivityReaper) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *ActivityReaper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				observability.LogAsyncOperationError(ctx, "activity_sweep", err, nil)
			}
		}
	}
}

// Sweep runs one pass and returns how many users went idle.
func (r *ActivityReaper) Sweep(ctx context.Context) (int64, error) {
	cutoff := r.now().UTC().Add(-r.idleAfter)
	n, err := r.users.MarkIdle(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		observability.UsersMarkedIdle.Add(float64(n))
		middleware.Logger.InfoContext(ctx, "marked users inactive", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
