// Package realtime pushes notifications and chat messages to connected
// websocket clients.  A user may hold several connections; frames go to all
// of them.  Delivery is best effort: the database remains the source of
// truth and clients reconcile through the polling endpoints.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/iliyamo/tripshare/internal/logger"
)

// Frame is the JSON envelope written to clients.
type Frame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

type Hub struct {
	mu         sync.RWMutex
	users      map[uint64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *logger.Logger
	origins    []string
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		users:      make(map[uint64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// AllowOrigins sets the cross-origin pages allowed to connect, as
// scheme://host[:port] or "*".  Call it before serving.
func (h *Hub) AllowOrigins(origins ...string) {
	h.origins = origins
}

// Run serves registrations until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.users[c.userID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.users[c.userID] = set
	}
	set[c] = struct{}{}
	h.log.WithUserID(c.userID).Debugf("websocket client registered (%d open)", len(set))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.users[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.users, c.userID)
	}
	h.log.WithUserID(c.userID).Debugf("websocket client unregistered")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.users {
		for c := range set {
			close(c.send)
		}
		delete(h.users, id)
	}
}

// Connected returns the number of open connections of a user.
func (h *Hub) Connected(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// SendToUser queues a frame on every connection of the user.  A client whose
// buffer is full misses the frame.
func (h *Hub) SendToUser(userID uint64, typ string, data any) {
	payload, err := json.Marshal(Frame{Type: typ, Timestamp: time.Now().Unix(), Data: data})
	if err != nil {
		h.log.WithError(err).Warnf("websocket frame %s not encodable", typ)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[userID] {
		select {
		case c.send <- payload:
		default:
			h.log.WithUserID(userID).Warnf("websocket buffer full, dropping %s frame", typ)
		}
	}
}

func (h *Hub) enqueue(ch chan *Client, c *Client) bool {
	select {
	case ch <- c:
		return true
	case <-h.done:
		return false
	}
}
