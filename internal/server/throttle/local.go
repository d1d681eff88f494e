package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/gophwallet/internal/common"
)

// LocalThrottle is an in-process token bucket per key, used when no Redis
// address is configured. Counts are not shared between instances.
type LocalThrottle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

// NewLocalThrottle allows limit requests per window with a burst of limit.
func NewLocalThrottle(limit int, window time.Duration) *LocalThrottle {
	return &LocalThrottle{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(window / time.Duration(max(limit, 1))),
		burst:    limit,
	}
}

func (t *LocalThrottle) limiter(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[key]
	if !ok {
		l = rate.NewLimiter(t.every, t.burst)
		t.limiters[key] = l
	}
	return l
}

func (t *LocalThrottle) Allow(_ context.Context, key string) error {
	if !t.limiter(key).Allow() {
		return common.EnhanceYourCalm("too many requests.")
	}
	return nil
}
