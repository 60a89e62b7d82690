// Package eventhub fans meeting events out to WebSocket clients. Every
// client receives a status event on connect and then every start/end
// transition as it happens.
package eventhub

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tiroq/meetsense/internal/diaglog"
)

// Hub manages WebSocket client connections and fans out broadcast messages
// to all of them. Register, unregister and broadcast all go through channels.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{} // closed when Run returns
	upgrader   websocket.Upgrader

	greeting func() any
	diag     *diaglog.Logger
}

// NewHub allocates a hub. greeting, when non-nil, produces the first
// message each new client receives. Call Run in a goroutine.
func NewHub(greeting func() any, diag *diaglog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn, 16),
		unregister: make(chan *websocket.Conn, 16),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The daemon binds to loopback; browser extensions connect from arbitrary origins
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		greeting: greeting,
		diag:     diag,
	}
}

// Run processes registrations, broadcasts and keepalive pings in a single
// select loop. It closes all clients when ctx is cancelled. Run must be
// called at most once.
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				_ = c.Close()
			}
			// Connections queued before shutdown never reached the map
			for {
				select {
				case c := <-h.register:
					_ = c.Close()
				default:
					return
				}
			}

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.diag.Log(diaglog.LogEntry{
				Component: diaglog.ComponentEventHub,
				Event:     diaglog.EventClientConnected,
				Payload:   map[string]interface{}{"remote": c.RemoteAddr().String(), "clients": len(h.clients)},
			})
			if h.greeting != nil {
				if b, err := json.Marshal(h.greeting()); err == nil {
					h.send(c, websocket.TextMessage, b)
				}
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				_ = c.Close()
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				h.send(c, websocket.TextMessage, msg)
			}

		case <-ping.C:
			for c := range h.clients {
				h.send(c, websocket.PingMessage, nil)
			}
		}
	}
}

// send writes one frame and drops the client on failure
func (h *Hub) send(c *websocket.Conn, messageType int, msg []byte) {
	_ = c.SetWriteDeadline(time.Now().Add(3 * time.Second))
	if err := c.WriteMessage(messageType, msg); err != nil {
		delete(h.clients, c)
		_ = c.Close()
	}
}

// Handler upgrades incoming requests to WebSocket connections and
// registers them with the hub
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied
			return
		}
		// After shutdown nobody drains register
		select {
		case <-h.done:
			_ = conn.Close()
			return
		default:
		}
		select {
		case h.register <- conn:
		case <-h.done:
			_ = conn.Close()
			return
		}

		go func() {
			defer func() {
				select {
				case h.unregister <- conn:
				case <-h.done:
					_ = conn.Close()
				}
			}()
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			conn.SetPongHandler(func(string) error {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
				return nil
			})

			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})
}

// BroadcastJSON marshals v and queues it for every client. A full queue
// drops the message rather than blocking the caller.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- b:
	default:
	}
}
