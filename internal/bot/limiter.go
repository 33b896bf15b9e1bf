package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sweepInterval is how often idle buckets are dropped.
const sweepInterval = time.Minute

type chatBucket struct {
	lim    *rate.Limiter
	warned bool
}

// chatLimiter keeps one token bucket per chat. Buckets that have refilled
// completely are dropped on a periodic sweep; a fresh bucket is identical.
type chatLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	buckets   map[int64]*chatBucket
	now       func() time.Time
	lastSweep time.Time
}

func newChatLimiter(perSecond float64, burst int) *chatLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 5
	}
	return &chatLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: map[int64]*chatBucket{},
		now:     time.Now,
	}
}

// Allow takes a token for chatID. warn is true only for the first rejected
// update after a run of allowed ones, so a flood gets a single notice.
func (l *chatLimiter) Allow(chatID int64) (ok, warn bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now)
	b, exists := l.buckets[chatID]
	if !exists {
		b = &chatBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[chatID] = b
	}
	if b.lim.AllowN(now, 1) {
		b.warned = false
		return true, false
	}
	warn = !b.warned
	b.warned = true
	return false, warn
}

func (l *chatLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	full := float64(l.burst)
	for id, b := range l.buckets {
		if b.lim.TokensAt(now) >= full {
			delete(l.buckets, id)
		}
	}
}
