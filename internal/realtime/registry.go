// Package realtime fans domain events out to connected websocket clients.
package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/metrics"
)

const (
	EventLocationUpdate     = "location-update"
	EventOrderStatusUpdated = "order-status-updated"
	EventNotification       = "notification"

	orderRoomPrefix = "order-"
	sendBuffer      = 32
)

// Event is the frame pushed to clients.
type Event struct {
	Name string `json:"event"`
	Room string `json:"room,omitempty"`
	Data any    `json:"data"`
}

// OrderRoom names the room subscribers of one order join.
func OrderRoom(orderID uuid.UUID) string {
	return orderRoomPrefix + orderID.String()
}

// ParseOrderRoom extracts the order id from a room name.
func ParseOrderRoom(room string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(room, orderRoomPrefix)
	if !ok {
		return uuid.Nil, fmt.Errorf("unknown room %q", room)
	}
	return uuid.Parse(raw)
}

// Client is one live connection.
type Client struct {
	ID     string
	UserID uuid.UUID
	Role   enums.Role

	send  chan Event
	rooms map[string]struct{}
}

// NewClient allocates a client with a buffered outbound queue.
func NewClient(userID uuid.UUID, role enums.Role) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		send:   make(chan Event, sendBuffer),
		rooms:  map[string]struct{}{},
	}
}

// Outbound is drained by the connection writer. It is closed on Deregister.
func (c *Client) Outbound() <-chan Event {
	return c.send
}

// Registry tracks connections per user and per room. Create one per process and share it.
type Registry struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	users   map[uuid.UUID]map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	logg    *logger.Logger
	metrics *metrics.RealtimeMetrics
}

// NewRegistry builds an empty registry.
func NewRegistry(logg *logger.Logger) *Registry {
	return &Registry{
		clients: map[*Client]struct{}{},
		users:   map[uuid.UUID]map[*Client]struct{}{},
		rooms:   map[string]map[*Client]struct{}{},
		logg:    logg,
	}
}

// WithMetrics attaches connection gauges. Call before serving.
func (r *Registry) WithMetrics(m *metrics.RealtimeMetrics) *Registry {
	r.metrics = m
	return r
}

func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
	add(r.users, c.UserID, c)
	r.metrics.SetConnections(len(r.clients))
}

// Deregister removes the client everywhere and closes its outbound queue. It is safe to call twice.
func (r *Registry) Deregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; !ok {
		return
	}
	delete(r.clients, c)
	remove(r.users, c.UserID, c)
	for room := range c.rooms {
		remove(r.rooms, room, c)
	}
	c.rooms = map[string]struct{}{}
	close(c.send)
	r.metrics.SetConnections(len(r.clients))
}

func (r *Registry) Join(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; !ok {
		return
	}
	c.rooms[room] = struct{}{}
	add(r.rooms, room, c)
}

func (r *Registry) Leave(c *Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(c.rooms, room)
	remove(r.rooms, room, c)
}

// EmitToUser pushes to every connection of the user and returns how many received it.
func (r *Registry) EmitToUser(ctx context.Context, userID uuid.UUID, name string, data any) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fanout(ctx, r.users[userID], Event{Name: name, Data: data})
}

// EmitToRoom pushes to every member of the room and returns how many received it.
func (r *Registry) EmitToRoom(ctx context.Context, room, name string, data any) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fanout(ctx, r.rooms[room], Event{Name: name, Room: room, Data: data})
}

// Connections reports the number of live clients.
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// fanout never blocks: a client whose queue is full misses the event.
func (r *Registry) fanout(ctx context.Context, targets map[*Client]struct{}, evt Event) int {
	delivered := 0
	for c := range targets {
		select {
		case c.send <- evt:
			delivered++
		default:
			r.metrics.IncDropped()
			if r.logg != nil {
				logCtx := r.logg.WithFields(ctx, map[string]any{
					"client_id": c.ID,
					"user_id":   c.UserID.String(),
					"event":     evt.Name,
				})
				r.logg.Warn(logCtx, "realtime client queue full, event dropped")
			}
		}
	}
	return delivered
}

func add[K comparable](index map[K]map[*Client]struct{}, key K, c *Client) {
	set, ok := index[key]
	if !ok {
		set = map[*Client]struct{}{}
		index[key] = set
	}
	set[c] = struct{}{}
}

func remove[K comparable](index map[K]map[*Client]struct{}, key K, c *Client) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(index, key)
	}
}
