// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

// Package hub implements the realtime WebSocket fan-out for RangeFlow.
//
// Every connected client may join the room of its range by sending a
// join_range message. Note events are delivered to a single room;
// activity and administrative events go to every client. A client
// belongs to at most one room at a time; joining again moves it.
package hub

import (
	"context"
	"sort"
	"sync"

	"github.com/rangeflow/rangeflow/internal/logging"
)

// Events emitted to clients.
const (
	EventReceiveTask     = "receive_task"
	EventTaskReadReceipt = "task_read_receipt"
	EventActivityLog     = "activity_log"
	EventNoteDeleted     = "note_deleted"
	EventNotesCleared    = "notes_cleared"
)

// Client-to-server message types.
const (
	MessageTypeJoinRange = "join_range"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
)

// Message is the wire envelope in both directions.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// envelope pairs a message with its destination room. An empty room
// means every connected client.
type envelope struct {
	room string
	msg  Message
}

// joinRequest moves a client into a room.
type joinRequest struct {
	client *Client
	room   string
}

// Hub tracks connected clients, their room membership, and fans
// messages out to them.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	Register   chan *Client
	Unregister chan *Client
	joins      chan joinRequest
	broadcast  chan envelope

	mu sync.RWMutex
}

// NewHub creates an empty hub. Call RunWithContext to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		joins:      make(chan joinRequest, 64),
		broadcast:  make(chan envelope, 256),
	}
}

// EmitToRoom queues an event for every client in the room. Non-blocking:
// when the hub's queue is full the event is dropped and logged, since
// clients re-fetch state over HTTP anyway.
func (h *Hub) EmitToRoom(room, event string, payload interface{}) {
	h.emit(envelope{room: room, msg: Message{Event: event, Data: payload}})
}

// EmitGlobal queues an event for every connected client.
func (h *Hub) EmitGlobal(event string, payload interface{}) {
	h.emit(envelope{msg: Message{Event: event, Data: payload}})
}

func (h *Hub) emit(env envelope) {
	select {
	case h.broadcast <- env:
	default:
		logging.Warn().
			Str("event", env.msg.Event).
			Str("room", env.room).
			Msg("hub queue full, event dropped")
	}
}

// RunWithContext runs the hub loop until ctx is canceled, then closes
// every client and returns ctx.Err().
//
// Lifecycle events take priority over broadcasts: a registration or
// disconnect is always applied before the next message is fanned out,
// so delivery never races membership changes.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Shutdown first, non-blocking.
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		// Lifecycle events next, non-blocking.
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		case req := <-h.joins:
			h.joinRoom(req.client, req.room)
			continue
		default:
		}

		// Block for whatever comes first.
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case req := <-h.joins:
			h.joinRoom(req.client, req.room)
		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.leaveRoomLocked(c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// joinRoom moves the client into room, leaving any previous room.
func (h *Hub) joinRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	h.leaveRoomLocked(c)
	if room == "" {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	c.room = room
	logging.Debug().Str("room", room).Msg("websocket client joined room")
}

// leaveRoomLocked removes the client from its room, pruning the room
// when it empties. Caller holds h.mu.
func (h *Hub) leaveRoomLocked(c *Client) {
	if c.room == "" {
		return
	}
	if members, ok := h.rooms[c.room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.room = ""
}

// deliver fans an envelope out to its audience in a stable order. A
// client whose send buffer is full is evicted; it can reconnect and
// re-fetch over HTTP.
func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var audience map[*Client]bool
	if env.room == "" {
		audience = h.clients
	} else {
		audience = h.rooms[env.room]
	}
	if len(audience) == 0 {
		return
	}

	clients := make([]*Client, 0, len(audience))
	for c := range audience {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var evict []*Client
	for _, c := range clients {
		select {
		case c.send <- env.msg:
		default:
			evict = append(evict, c)
		}
	}

	for _, c := range evict {
		logging.Warn().Msg("evicting slow websocket client")
		delete(h.clients, c)
		h.leaveRoomLocked(c)
		close(c.send)
	}
}

// shutdown closes every client connection.
func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	count := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.rooms = make(map[string]map[*Client]bool)
	h.mu.Unlock()

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", reason).
		Int("clients_closed", count).
		Msg("websocket hub stopped")
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
