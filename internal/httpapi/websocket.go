package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// cycleEvent is the frame pushed to every subscriber when a matrix entry
// finishes a cycle.
type cycleEvent struct {
	Event string `json:"event"`
	Key   string `json:"key"`
}

// Hub fans completed-cycle notifications out to every connected websocket
// client, grounded on the teacher's handlers.WebSocketHub but narrowed to
// the single Notify(key) shape the scheduler emits rather than a generic
// broadcast(type, data) surface.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*websocket.Conn]bool
	broadcast chan cycleEvent
}

func newHub() *Hub {
	h := &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan cycleEvent, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for event := range h.broadcast {
		h.mu.RLock()
		for conn := range h.clients {
			go h.send(conn, event)
		}
		h.mu.RUnlock()
	}
}

func (h *Hub) send(conn *websocket.Conn, event cycleEvent) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(event); err != nil {
		h.unregister(conn)
	}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

// Notify implements scheduler.EventSink structurally: the scheduler package
// never imports httpapi, so there is no compile-time interface to satisfy,
// only a matching method shape.
func (h *Hub) Notify(key string) {
	event := cycleEvent{Event: "cycle_complete", Key: key}
	select {
	case h.broadcast <- event:
	default:
		// Channel full: drop rather than block the scheduler on slow readers.
	}
}

// ServeWS upgrades the connection and keeps it alive with ping/pong until
// the client disconnects. Clients are not expected to send data.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.register(conn)
	go h.readPump(conn)
}

func (h *Hub) readPump(conn *websocket.Conn) {
	defer h.unregister(conn)

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
