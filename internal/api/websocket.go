package api

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dan-online/autopulse-sub000/internal/bus"
	"github.com/dan-online/autopulse-sub000/internal/logger"
)

var upgrader = websocket.Upgrader{
	// Same-origin only: no Origin header (non-browser clients, same-origin
	// fetches) is allowed; a mismatched browser Origin is rejected.
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	},
}

// Hub fans out scan-event lifecycle notifications from the bus to every
// connected websocket client, mirroring the teacher's WebSocketHub but
// sourced from bus.Bus instead of an eventbus subscription.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan interface{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	shutdown   chan struct{}
	sub        chan bus.Notification
	b          *bus.Bus
	mu         sync.Mutex
}

// NewHub builds a Hub subscribed to b (may be nil, in which case the hub
// still serves connections but never has anything to broadcast).
func NewHub(b *bus.Bus) *Hub {
	h := &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan interface{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		shutdown:   make(chan struct{}),
		b:          b,
	}

	if b != nil {
		h.sub = b.Subscribe()
		go h.pump()
	}
	go h.run()
	return h
}

func (h *Hub) pump() {
	for {
		select {
		case <-h.shutdown:
			return
		case n, ok := <-h.sub:
			if !ok {
				return
			}
			select {
			case h.broadcast <- gin.H{"type": "event", "kind": n.Kind, "event": n.Event}:
			case <-h.shutdown:
				return
			}
		}
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.shutdown:
			h.closeAll()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				_ = c.Close()
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if err := c.WriteJSON(msg); err != nil {
					logger.Debugf("api: websocket write failed, dropping client: %v", err)
					_ = c.Close()
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
}

// Shutdown unsubscribes from the bus and closes every connected client.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	if h.sub != nil && h.b != nil {
		h.b.Unsubscribe(h.sub)
	}
}

// HandleConnection upgrades the request and keeps the connection alive
// with periodic pings until the client disconnects (§6.1 `/ws`).
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("api: websocket upgrade failed: %v", err)
		return
	}
	h.register <- conn

	const (
		pongWait   = 60 * time.Second
		pingPeriod = pongWait * 9 / 10
	)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			h.mu.Lock()
			_, ok := h.clients[conn]
			if ok {
				ok = conn.WriteMessage(websocket.PingMessage, nil) == nil
			}
			h.mu.Unlock()
			if !ok {
				return
			}
		}
	}()

	defer func() { h.unregister <- conn }()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
