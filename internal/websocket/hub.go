package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/beanline/storefront/pkg/logger"
)

const maxMessagesPerSecond = 10

// ClientMessage is what a browser may send up the socket. Cart sockets are
// read-only; only "ping" gets an answer.
type ClientMessage struct {
	Type string `json:"type"`
}

// Client is one open socket. A session may have several (one per tab).
type Client struct {
	Hub           *Hub
	Conn          *Conn
	SessionID     string
	Send          chan []byte
	MessageCount  int
	LastResetTime time.Time
	RateMu        sync.Mutex
}

func NewClient(hub *Hub, conn *Conn, sessionID string) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		Send:      make(chan []byte, 64),
	}
}

// Hub fans cart snapshots out to every socket of a session. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	clients map[string][]*Client

	register   chan *registration
	unregister chan *Client
	drop       chan string
	broadcast  chan *BroadcastMessage

	done     chan struct{}
	stopOnce sync.Once

	mu sync.RWMutex
}

// registration carries the snapshot source read once the client is in
// the session's list, so no broadcast can fall between the two.
type registration struct {
	client  *Client
	initial func() interface{}
}

type BroadcastMessage struct {
	SessionID string
	Message   []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *registration, 256),
		unregister: make(chan *Client, 256),
		drop:       make(chan string, 256),
		broadcast:  make(chan *BroadcastMessage, 1024),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for sid, list := range h.clients {
				for _, client := range list {
					close(client.Send)
				}
				delete(h.clients, sid)
			}
			h.mu.Unlock()
			return

		case reg := <-h.register:
			client := reg.client
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			total := len(h.clients[client.SessionID])
			h.mu.Unlock()
			if reg.initial != nil {
				h.sendInitial(client, reg.initial())
			}
			logger.Debug("WebSocket client registered", map[string]interface{}{
				"session_id": client.SessionID,
				"sockets":    total,
			})

		case client := <-h.unregister:
			h.removeClient(client)

		case sid := <-h.drop:
			h.mu.Lock()
			list := h.clients[sid]
			delete(h.clients, sid)
			h.mu.Unlock()
			for _, client := range list {
				close(client.Send)
			}
			if len(list) > 0 {
				logger.Debug("WebSocket session dropped", map[string]interface{}{
					"session_id": sid,
					"sockets":    len(list),
				})
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			list := h.clients[message.SessionID]
			var slow []*Client
			for _, client := range list {
				select {
				case client.Send <- message.Message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
					"session_id": client.SessionID,
				})
				h.removeClient(client)
			}
		}
	}
}

// sendInitial runs on the Run goroutine only, ahead of any broadcast the
// client can receive.
func (h *Hub) sendInitial(client *Client, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Warn("Failed to encode initial snapshot", map[string]interface{}{
			"session_id": client.SessionID,
			"error":      err.Error(),
		})
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

// removeClient runs on the Run goroutine only.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	list := h.clients[client.SessionID]
	kept := make([]*Client, 0, len(list))
	found := false
	for _, c := range list {
		if c == client {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		delete(h.clients, client.SessionID)
	} else {
		h.clients[client.SessionID] = kept
	}
	h.mu.Unlock()

	if found {
		close(client.Send)
		logger.Debug("WebSocket client unregistered", map[string]interface{}{
			"session_id": client.SessionID,
			"remaining":  len(kept),
		})
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// SendToSession queues message, JSON encoded, for every socket of the
// session. A full broadcast queue drops the message; the next state change
// sends a complete snapshot anyway.
func (h *Hub) SendToSession(sessionID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to marshal message", err, nil)
		return err
	}

	select {
	case h.broadcast <- &BroadcastMessage{SessionID: sessionID, Message: data}:
	default:
		logger.Warn("Broadcast channel full, message dropped", map[string]interface{}{
			"session_id": sessionID,
		})
	}
	return nil
}

// Register attaches client to its session. initial, when non-nil, is called
// on the hub goroutine right after and its result is the client's first
// message. It must not block.
func (h *Hub) Register(client *Client, initial func() interface{}) {
	select {
	case h.register <- &registration{client: client, initial: initial}:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// DropSession disconnects every socket of the session.
func (h *Hub) DropSession(sessionID string) {
	select {
	case h.drop <- sessionID:
	case <-h.done:
	}
}

func (h *Hub) IsSessionOnline(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[sessionID]
	return ok
}

func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// HandleClientMessage rate-limits and answers messages from the browser
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"session_id": client.SessionID,
			"count":      count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Debug("Ignoring unparseable client message", map[string]interface{}{
			"session_id": client.SessionID,
			"error":      err.Error(),
		})
		return
	}

	if msg.Type == "ping" {
		if err := h.SendToSession(client.SessionID, map[string]string{"type": "pong"}); err != nil {
			logger.Error("Failed to answer ping", err, nil)
		}
	}
}
