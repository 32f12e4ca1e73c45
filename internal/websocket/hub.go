package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"stockpulse/internal/config"
	"stockpulse/internal/infrastructure"
)

// Message types sent to clients
const (
	TypeConnection        = "connection"
	TypeOperationSnapshot = "operation:snapshot"
)

const broadcastBuffer = 256

// Message is the envelope of every message sent to clients
type Message struct {
	Type      string      `json:"type"`
	Step      string      `json:"step,omitempty"`
	Status    string      `json:"status,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Broadcasts never block: when the hub falls behind, messages are dropped.
type Hub struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	done       chan struct{}

	running  bool
	stopOnce sync.Once

	settings config.WebSocketConfig
	metrics  *Metrics
	logger   *slog.Logger

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64
}

// NewHub creates a hub. Nil metrics disable instrumentation.
func NewHub(settings config.WebSocketConfig, metrics *Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		settings:   settings,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket_hub")),
	}
}

// Start runs the hub loop in its own goroutine
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop ends the hub loop and closes every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
		h.mu.RLock()
		running := h.running
		h.mu.RUnlock()
		if running {
			<-h.done
		}
	})
}

// Accepting reports whether the hub loop is running and not shutting down
func (h *Hub) Accepting() bool {
	select {
	case <-h.quit:
		return false
	default:
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("hub_stopped")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.totalConnections.Add(1)
	ctx := client.context()
	h.metrics.recordConnection(ctx)
	h.logger.InfoContext(ctx, "client_registered",
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("total_clients", count))

	welcome, err := encode(TypeConnection, "", "", map[string]interface{}{
		"status":    "connected",
		"client_id": client.id,
	}, client.traceID)
	if err != nil {
		return
	}
	select {
	case client.send <- welcome:
	default:
		h.logger.WarnContext(ctx, "client_buffer_full", slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	ctx := client.context()
	h.metrics.recordDisconnection(ctx, time.Since(client.connectedAt))
	h.logger.InfoContext(ctx, "client_unregistered",
		slog.String("client_id", client.id),
		slog.Int("total_clients", count),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- message:
			h.messagesSent.Add(1)
		default:
			// a client that cannot keep up is disconnected
			h.logger.WarnContext(client.context(), "client_send_buffer_full",
				slog.String("client_id", client.id))
			h.metrics.recordDropped(context.Background(), "client_buffer_full")
			h.removeClient(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// BroadcastUpdate sends a message to every connected client. It never
// blocks the caller.
func (h *Hub) BroadcastUpdate(eventType, step, status string, data interface{}) {
	h.BroadcastUpdateWithTrace(eventType, step, status, data, "")
}

// BroadcastUpdateWithTrace is BroadcastUpdate with a trace id in the envelope
func (h *Hub) BroadcastUpdateWithTrace(eventType, step, status string, data interface{}, traceID string) {
	ctx := context.Background()
	if traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, traceID)
	}

	// snapshots carry their step and status in the data
	if eventType == TypeOperationSnapshot {
		step, status = "", ""
	}
	message, err := encode(eventType, step, status, data, traceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal message",
			slog.String("message_type", eventType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- message:
		h.metrics.recordSent(ctx, eventType, len(message))
	case <-h.quit:
	default:
		h.messagesDropped.Add(1)
		h.metrics.recordDropped(ctx, "hub_buffer_full")
		h.logger.WarnContext(ctx, "broadcast_dropped", slog.String("message_type", eventType))
	}
}

func encode(eventType, step, status string, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(Message{
		Type:      eventType,
		Step:      step,
		Status:    status,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   traceID,
	})
}

// Register adds a client to the hub. It is a no-op once the hub stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubStats describes the hub for health reporting
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
}

// Stats returns current hub counters
func (h *Hub) Stats() HubStats {
	return HubStats{
		ActiveClients:    h.ClientCount(),
		TotalConnections: h.totalConnections.Load(),
		MessagesSent:     h.messagesSent.Load(),
		MessagesDropped:  h.messagesDropped.Load(),
	}
}
