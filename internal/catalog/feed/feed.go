// Package feed streams restaurant changes to websocket subscribers.
package feed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/logger"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	WriteBufferSize: 1024 * 10,
	ReadBufferSize:  1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type subscriber struct {
	send chan []byte
}

// Hub fans store changes out to every connected subscriber. A subscriber
// whose buffer is full is disconnected rather than allowed to stall the
// store's observers.
type Hub struct {
	mu      sync.Mutex
	clients map[*subscriber]struct{}
	logger  *slog.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*subscriber]struct{}),
		logger:  slog.Default().With("component", "change-feed"),
	}
}

// Publish is registered with store.Store.OnChange.
func (h *Hub) Publish(c store.Change) {
	data, err := json.Marshal(analytics.FromChange(c))
	if err != nil {
		h.logger.Error("encoding change", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.clients {
		select {
		case sub.send <- data:
		default:
			h.logger.Warn("subscriber too slow, dropping")
			delete(h.clients, sub)
			close(sub.send)
		}
	}
}

// Subscribers is the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add() *subscriber {
	sub := &subscriber{send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[sub]; ok {
		delete(h.clients, sub)
		close(sub.send)
	}
}

// ServeHTTP upgrades the request and streams changes until either side
// closes the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := h.add()
	log.Info("feed subscriber connected", "subscribers", h.Subscribers())

	// Reader: only control frames are expected; a read error means the
	// client went away.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn("feed subscriber closed unexpectedly", "error", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	defer h.remove(sub)
	for {
		select {
		case <-done:
			log.Info("feed subscriber disconnected")
			return
		case msg, ok := <-sub.send:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
