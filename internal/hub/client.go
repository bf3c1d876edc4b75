// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

package hub

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rangeflow/rangeflow/internal/logging"
	"github.com/rangeflow/rangeflow/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // join_range and ping only; notes travel over HTTP
)

// clientIDCounter hands out stable ids so broadcast order is
// deterministic.
var clientIDCounter atomic.Uint64

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	// room is the range room this client joined. Owned by the hub;
	// guarded by hub.mu.
	room string
}

// NewClient wraps an upgraded connection. Call Start to begin pumping.
func NewClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  h,
		conn: conn,
		send: make(chan Message, 64),
	}
}

// Start launches the read and write pumps and counts the connection in
// the metrics gauge. The read pump teardown releases it.
func (c *Client) Start() {
	metrics.TrackWebSocketConnection(true)
	go c.writePump()
	go c.readPump()
}

// readPump consumes client messages until the connection drops, then
// unregisters. Clients only ever send join_range and ping. This is the
// single exit path for a started client, whether the close was clean,
// abrupt, or a slow-client eviction, so the connection gauge is
// released here.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
		metrics.TrackWebSocketConnection(false)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}

		switch msg.Event {
		case MessageTypeJoinRange:
			room, ok := msg.Data.(string)
			if !ok || room == "" {
				continue
			}
			select {
			case c.hub.joins <- joinRequest{client: c, room: room}:
			default:
				logging.Warn().Msg("hub join queue full, join_range dropped")
			}
		case MessageTypePing:
			select {
			case c.send <- Message{Event: MessageTypePong}:
			default:
			}
		}
	}
}

// writePump sends hub messages and keepalive pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logging.Error().Err(err).Msg("failed to write websocket message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
