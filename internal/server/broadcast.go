package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"simtrade/internal/marketdata"
	"simtrade/internal/pricing"
)

const (
	clientSendBuffer = 16
	writeWait        = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// Hub fans day-advance messages out to every connected observer. Clients
// carry no per-connection state beyond a send buffer; a client whose
// buffer is full when a broadcast arrives is dropped rather than allowed
// to block the day-advance path.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, clientSendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", zap.Int("clients", n))

	go c.writeLoop()
	go h.readLoop(c)
}

// readLoop discards inbound frames; its job is to notice the peer going
// away.
func (h *Hub) readLoop(c *wsClient) {
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues msg on every client. When it returns, each surviving
// client has the message buffered.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn("dropping slow websocket client")
		}
	}
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

type dayMessage struct {
	Type     string          `json:"type"`
	SimDate  string          `json:"simDate"`
	Currency string          `json:"currency"`
	Quotes   []pricing.Quote `json:"quotes"`
}

// DayBroadcast builds the day-advance callback: it prices every supported
// currency against the freshly cleared cache and pushes one message per
// currency. It returns only after every message is queued, so the
// notifier's ordering guarantee extends to the broadcast.
func DayBroadcast(hub *Hub, provider marketdata.Provider, eng *pricing.Engine, logger *zap.Logger, timeout time.Duration) marketdata.DayHandler {
	return func(date string) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		currencies, err := provider.Currencies(ctx)
		if err != nil {
			logger.Warn("day broadcast: currency listing failed", zap.Error(err))
			return
		}
		for _, cur := range currencies {
			quotes, err := eng.AllQuotes(ctx, cur)
			if err != nil {
				logger.Warn("day broadcast: quotes failed",
					zap.String("currency", cur), zap.Error(err))
				continue
			}
			msg, err := json.Marshal(dayMessage{
				Type:     "day",
				SimDate:  date,
				Currency: cur,
				Quotes:   quotes,
			})
			if err != nil {
				logger.Error("day broadcast: marshal failed", zap.Error(err))
				continue
			}
			hub.Broadcast(msg)
		}
	}
}
