package marketdata

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"simtrade/internal/replay"
)

// DayHandler consumes a confirmed day transition. By the time it runs the
// caches have already been invalidated, so reads made inside it see fresh
// data for the new date.
type DayHandler func(date string)

// Notifier turns raw day observations from either driver (live push feed
// or replay poll loop) into exactly one invalidate+handler pass per
// distinct date.
type Notifier struct {
	logger     *zap.Logger
	invalidate func()
	handler    DayHandler

	mu       sync.Mutex
	lastDate string
}

func NewNotifier(logger *zap.Logger, invalidate func(), handler DayHandler) *Notifier {
	return &Notifier{logger: logger, invalidate: invalidate, handler: handler}
}

// Observe reports the current simulation date. Repeats of the last seen
// date are dropped; a new date clears the caches first, then runs the
// handler. Calls are serialized, so one transition completes before the
// next is processed.
func (n *Notifier) Observe(date string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if date == "" || date == n.lastDate {
		return
	}
	n.lastDate = date

	n.logger.Info("simulation day advanced", zap.String("date", date))
	if n.invalidate != nil {
		n.invalidate()
	}
	if n.handler != nil {
		n.handler(date)
	}
}

// RunPolling drives the notifier off the replay clock, checking every
// interval until ctx is cancelled. The clock's date at startup is primed
// as already seen; only transitions after that are announced.
func (n *Notifier) RunPolling(ctx context.Context, clock *replay.Clock, interval time.Duration) {
	n.mu.Lock()
	n.lastDate = clock.CurrentDate()
	n.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.Observe(clock.CurrentDate())
		}
	}
}
