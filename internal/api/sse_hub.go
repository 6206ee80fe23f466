package api

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Event types streamed to the browser
const (
	EventProgress  = "progress"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// SSEClient represents a connected SSE client
type SSEClient struct {
	SessionID string
	Channel   chan ProgressEvent
}

// ProgressEvent represents a job update for SSE streaming
type ProgressEvent struct {
	SessionID string    `json:"session_id"`
	EventType string    `json:"event_type"`
	Progress  float64   `json:"progress"`
	Percent   int       `json:"percent"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SSEHub manages Server-Sent Events for live progress updates
type SSEHub struct {
	clients    map[string]map[chan ProgressEvent]bool
	clientsMu  sync.RWMutex
	register   chan SSEClient
	unregister chan SSEClient
	broadcast  chan ProgressEvent
	keepAlive  time.Duration
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	hub := &SSEHub{
		clients:    make(map[string]map[chan ProgressEvent]bool),
		register:   make(chan SSEClient, 10),
		unregister: make(chan SSEClient, 10),
		broadcast:  make(chan ProgressEvent, 100),
		keepAlive:  30 * time.Second,
	}

	go hub.run()
	return hub
}

// run processes SSE hub operations
func (h *SSEHub) run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			if h.clients[client.SessionID] == nil {
				h.clients[client.SessionID] = make(map[chan ProgressEvent]bool)
			}
			h.clients[client.SessionID][client.Channel] = true
			log.Printf("[SSE] Client registered for job %s (total clients: %d)",
				client.SessionID, len(h.clients[client.SessionID]))
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if clients, exists := h.clients[client.SessionID]; exists {
				delete(clients, client.Channel)
				close(client.Channel)
				log.Printf("[SSE] Client unregistered from job %s (remaining clients: %d)",
					client.SessionID, len(clients))
				if len(clients) == 0 {
					delete(h.clients, client.SessionID)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			if clients, exists := h.clients[event.SessionID]; exists {
				for clientChan := range clients {
					select {
					case clientChan <- event:
					default:
						log.Printf("[SSE] Client channel full for job %s, skipping event",
							event.SessionID)
					}
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Broadcast sends an event to all clients listening to a job
func (h *SSEHub) Broadcast(event ProgressEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[SSE] Broadcast channel full, dropping event: %s", event.EventType)
	}
}

// HandleSSE streams a job's events; the job is selected by ?session_id=
func (h *SSEHub) HandleSSE(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(400, gin.H{"error": "session_id parameter required"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	clientChan := make(chan ProgressEvent, 10)

	select {
	case h.register <- SSEClient{SessionID: sessionID, Channel: clientChan}:
	default:
		c.JSON(500, gin.H{"error": "SSE hub registration failed"})
		return
	}

	defer func() {
		select {
		case h.unregister <- SSEClient{SessionID: sessionID, Channel: clientChan}:
		default:
		}
	}()

	c.Status(200)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-clientChan:
			if !ok {
				return false
			}
			eventJSON, err := json.Marshal(event)
			if err != nil {
				log.Printf("[SSE] Failed to marshal event: %v", err)
				return true
			}
			c.SSEvent(event.EventType, string(eventJSON))
			// Terminal events end the stream so the browser can close it.
			return event.EventType == EventProgress

		case <-time.After(h.keepAlive):
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}

// GetClientCount returns the number of active clients for a job
func (h *SSEHub) GetClientCount(sessionID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	if clients, exists := h.clients[sessionID]; exists {
		return len(clients)
	}
	return 0
}
