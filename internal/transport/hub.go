package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/twin"
)

const (
	socketBufferSize  = 1024
	messageBufferSize = 8
)

// ErrHubClosed is returned by Publish once Run has returned.
var ErrHubClosed = errors.New("hub closed")

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  socketBufferSize,
	WriteBufferSize: socketBufferSize,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub broadcasts snapshots to websocket observers. A client whose buffer is
// full is dropped instead of slowing the broadcast down. New clients get the
// latest snapshot as soon as they join.
type Hub struct {
	forward chan []byte
	join    chan *client
	leave   chan *client
	done    chan struct{}

	clients map[*client]bool
	latest  []byte
	count   atomic.Int32
}

var _ Publisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		forward: make(chan []byte),
		join:    make(chan *client),
		leave:   make(chan *client),
		done:    make(chan struct{}),
		clients: make(map[*client]bool),
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.count.Store(0)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.join:
			h.clients[c] = true
			if h.latest != nil {
				c.send <- h.latest
			}
			log.Debug().Str("component", "hub").Int("clients", len(h.clients)).Msg("observer joined")
		case c := <-h.leave:
			h.drop(c)
		case msg := <-h.forward:
			h.latest = msg
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					log.Warn().Str("component", "hub").Msg("observer too slow, dropping")
					h.drop(c)
				}
			}
		}
		h.count.Store(int32(len(h.clients)))
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients is the number of connected observers.
func (h *Hub) Clients() int { return int(h.count.Load()) }

func (h *Hub) Publish(ctx context.Context, s twin.State) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	select {
	case h.forward <- payload:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Warn().Str("component", "hub").Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{socket: socket, send: make(chan []byte, messageBufferSize)}

	select {
	case h.join <- c:
	case <-h.done:
		socket.Close()
		return
	}
	defer func() {
		select {
		case h.leave <- c:
		case <-h.done:
		}
	}()
	go c.write()
	c.read()
}

type client struct {
	socket *websocket.Conn
	send   chan []byte
}

// read discards inbound frames; it returns when the peer goes away.
func (c *client) read() {
	defer c.socket.Close()
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) write() {
	defer c.socket.Close()
	for msg := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
