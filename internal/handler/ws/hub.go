package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"ComicScout/internal/domain/models"
	"ComicScout/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	sendBuffer   = 8
)

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans deal snapshots out to websocket subscribers. A new subscriber
// receives the most recent snapshot first.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	latest   []byte
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/deals", h.Serve)
}

// Broadcast stores the snapshot and queues it for every subscriber.
// Subscribers whose buffer is full are disconnected.
func (h *Hub) Broadcast(snapshot models.DealsSnapshot) {
	b, err := json.Marshal(snapshot)
	if err != nil {
		h.log.Error("ws: encode snapshot", logger.Error(err))
		return
	}

	h.mu.Lock()
	h.latest = b
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()

	if len(slow) > 0 {
		h.log.Warn("ws: dropped slow subscribers", logger.Int("count", len(slow)))
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws: upgrade failed", logger.Error(err))
		return nil
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.latest != nil {
		cl.send <- h.latest
	}
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("ws: subscriber connected", logger.String("remote", c.RealIP()))

	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

// readPump discards inbound frames and unregisters on disconnect.
func (h *Hub) readPump(cl *client) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[cl]; ok {
			delete(h.clients, cl)
			cl.close()
		}
		h.mu.Unlock()
		_ = cl.conn.Close()
	}()

	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
