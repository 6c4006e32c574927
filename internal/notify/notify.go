// Package notify throttles and publishes operational events raised by the
// background housekeeping jobs.
package notify

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tillpoint/backend/internal/ws"
)

// Broadcaster is the fan-out sink for throttled events. *ws.Hub satisfies it.
type Broadcaster interface {
	Broadcast(event ws.Event)
}

// Notifier publishes events at most once per cooldown window per event key,
// so a sweep that keeps finding the same stuck order does not ping every
// terminal on each pass.
type Notifier struct {
	sink     Broadcaster
	cooldown time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(sink Broadcaster, cooldown time.Duration) *Notifier {
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Notifier{
		sink:     sink,
		cooldown: cooldown,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Emit publishes the event unless the same key already fired within the
// cooldown window. It reports whether the event went out.
func (n *Notifier) Emit(key string, event ws.Event) bool {
	if n == nil || n.sink == nil {
		return false
	}
	if !n.limiter(key).Allow() {
		return false
	}
	n.sink.Broadcast(event)
	return true
}

func (n *Notifier) limiter(key string) *rate.Limiter {
	n.mu.Lock()
	defer n.mu.Unlock()

	if limiter, ok := n.limiters[key]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Every(n.cooldown), 1)
	n.limiters[key] = limiter
	return limiter
}
