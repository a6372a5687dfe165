package simfeed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Feed maintains a websocket subscription to the simulation's push feed
// and delivers day-change announcements to a single handler.
type Feed struct {
	url     string
	dialer  *websocket.Dialer
	handler func(date string)
	logger  *zap.Logger
}

func NewFeed(url string, handshakeTimeout time.Duration, logger *zap.Logger) *Feed {
	return &Feed{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger: logger,
	}
}

// SetDayHandler sets the function invoked for each day event. The handler
// runs inline on the read loop, so a call completes before the next
// message is processed.
func (f *Feed) SetDayHandler(h func(date string)) {
	f.handler = h
}

// Listen connects and consumes the feed until ctx is cancelled. Retries
// use exponential backoff, doubling from 1s up to 30s; the delay resets
// to the floor after a successful dial.
func (f *Feed) Listen(ctx context.Context) {
	wait := initialBackoff
	for ctx.Err() == nil {
		conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn("feed dial failed",
				zap.String("url", f.url),
				zap.Duration("retry_in", wait),
				zap.Error(err))
			if !sleep(ctx, wait) {
				return
			}
			wait = nextBackoff(wait)
			continue
		}

		f.logger.Info("feed connected", zap.String("url", f.url))
		wait = initialBackoff

		f.readLoop(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		// pause before redialing a dropped connection
		if !sleep(ctx, wait) {
			return
		}
		wait = nextBackoff(wait)
	}
}

func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close() // unblocks ReadMessage
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				f.logger.Warn("feed read error", zap.Error(err))
			}
			return
		}
		f.dispatch(msg)
	}
}

func (f *Feed) dispatch(msg []byte) {
	var evt DayEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		f.logger.Warn("feed message malformed", zap.Error(err))
		return
	}
	if evt.Type != "day" || evt.Date == "" {
		return
	}
	if f.handler != nil {
		f.handler(evt.Date)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
