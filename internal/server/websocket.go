package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sparkyhq/sparky/internal/event"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSClient represents a connected UI client
type WSClient struct {
	ID     string
	Conn   *websocket.Conn
	Send   chan []byte
	Server *Server
}

// WSMessage is a message sent over WebSocket
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] Upgrade error: %v", err)
		return
	}

	client := &WSClient{
		ID:     uuid.New().String(),
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Server: s,
	}

	s.mu.Lock()
	s.clients[client.ID] = client
	s.mu.Unlock()

	log.Printf("[WebSocket] Client connected: %s", client.ID)

	go client.writePump()
	go client.readPump()
}

// broadcastEvent forwards a store event to all connected clients
func (s *Server) broadcastEvent(evt *event.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Printf("[WebSocket] Failed to encode event: %v", err)
		return
	}
	data, _ := json.Marshal(WSMessage{Type: evt.Type, Payload: payload})

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		select {
		case client.Send <- data:
		default:
			// Slow client, drop the event rather than block the bus
		}
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.Server.mu.Lock()
		delete(c.Server.clients, c.ID)
		c.Server.mu.Unlock()
		c.Conn.Close()
		log.Printf("[WebSocket] Client disconnected: %s", c.ID)
	}()

	c.Conn.SetReadLimit(512 * 1024) // 512KB
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WebSocket] Read error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("[WebSocket] Invalid message: %v", err)
		return
	}

	switch msg.Type {
	case "chat.message":
		var req SendMessageRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			log.Printf("[WebSocket] Invalid chat message: %v", err)
			return
		}
		// Same round trip as the REST endpoint; results reach the
		// client through the broadcast of store events
		go c.Server.sendMessage(context.Background(), req)

	case "ping":
		c.send("pong", nil)

	default:
		log.Printf("[WebSocket] Unknown message type: %s", msg.Type)
	}
}

func (c *WSClient) send(msgType string, payload interface{}) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		raw = data
	}
	data, err := json.Marshal(WSMessage{Type: msgType, Payload: raw})
	if err != nil {
		return
	}

	select {
	case c.Send <- data:
	default:
	}
}
