package db

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/angelmondragon/herovault-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/herovault-backend/pkg/errors"
)

// ErrStaleWrite signals that a compare-and-set update matched no row because
// another unit of work changed it first. Retry re-runs the whole unit of work.
var ErrStaleWrite = errors.New("stale write: row version changed")

// RetryObserver receives conflict notifications, typically metrics.
type RetryObserver interface {
	ObserveConflict(operation string)
	ObserveRetriesExhausted(operation string)
}

// RetryPolicy bounds how often a unit of work is re-run after a stale write.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Observer    RetryObserver
}

func RetryPolicyFromConfig(cfg config.EconomyConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.UOWMaxAttempts,
		BaseDelay:   cfg.UOWRetryBaseDelay,
		MaxDelay:    cfg.UOWRetryMaxDelay,
	}
}

// WithObserver returns a copy of the policy reporting to obs.
func (p RetryPolicy) WithObserver(obs RetryObserver) RetryPolicy {
	p.Observer = obs
	return p
}

var (
	jitterMu     sync.Mutex
	jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Retry runs fn until it succeeds, fails with anything other than
// ErrStaleWrite, or the attempt budget runs out. Exhaustion is reported as
// CodeConflict.
func Retry(ctx context.Context, policy RetryPolicy, operation string, fn func() error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, ErrStaleWrite) {
			return err
		}
		if policy.Observer != nil {
			policy.Observer.ObserveConflict(operation)
		}
		if attempt >= attempts {
			if policy.Observer != nil {
				policy.Observer.ObserveRetriesExhausted(operation)
			}
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, operation+": concurrent update retries exhausted")
		}

		timer := time.NewTimer(policy.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	jitterMu.Lock()
	jitter := time.Duration(jitterSource.Int63n(int64(d)/2 + 1))
	jitterMu.Unlock()
	return d/2 + jitter
}
