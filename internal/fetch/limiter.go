package fetch

import (
	"context"
	"sync"
	"time"
)

// domainLimiter enforces the courtesy delay between successive requests to
// the same domain. State lives for the lifetime of the Fetcher and is reset
// only at process start.
type domainLimiter struct {
	mu    sync.Mutex
	delay time.Duration
	next  map[string]time.Time
}

func newDomainLimiter(delay time.Duration) *domainLimiter {
	return &domainLimiter{delay: delay, next: make(map[string]time.Time)}
}

// wait blocks until the domain's next slot arrives or ctx is done. The slot
// is reserved before sleeping, so concurrent callers for one domain queue up
// instead of firing together.
func (l *domainLimiter) wait(ctx context.Context, domain string) error {
	if l.delay <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := time.Now()
	at := l.next[domain]
	if at.Before(now) {
		at = now
	}
	l.next[domain] = at.Add(l.delay)
	l.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
