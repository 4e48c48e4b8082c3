package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/contentpilot/api/internal/jobs"
	"github.com/contentpilot/api/internal/model"
)

// Client represents a WebSocket client
type Client struct {
	JobID string
	Conn  *websocket.Conn
	Send  chan []byte

	// revision of the snapshot the client started from
	seen uint64
}

// Hub maintains active WebSocket connections and forwards job store
// events to the clients watching each job
type Hub struct {
	store  *jobs.Store
	logger *zap.SugaredLogger

	// Clients grouped by job ID
	clients map[string]map[*Client]bool

	// Store subscriptions, one per watched job
	subscriptions map[string]func()

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Broadcast messages to job subscribers
	broadcast chan *BroadcastMessage

	done     chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	JobID    string
	Message  []byte
	Revision uint64
	// Final closes the job's clients after delivery
	Final bool
}

// NewHub creates a new Hub
func NewHub(store *jobs.Store, logger *zap.SugaredLogger) *Hub {
	return &Hub{
		store:         store,
		logger:        logger,
		clients:       make(map[string]map[*Client]bool),
		subscriptions: make(map[string]func()),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan *BroadcastMessage, 256),
		done:          make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)

		case <-h.done:
			h.mu.Lock()
			for jobID, unsubscribe := range h.subscriptions {
				unsubscribe()
				delete(h.subscriptions, jobID)
			}
			for jobID, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.clients, jobID)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every attached client. It is safe to call twice.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a new client. Once the hub is stopped the client's stream
// is closed right away.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Watching returns the number of clients attached to jobID
func (h *Hub) Watching(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[jobID])
}

func (h *Hub) addClient(client *Client) {
	jobID := client.JobID

	// subscribe before taking the snapshot so no event falls in between
	h.mu.RLock()
	_, subscribed := h.subscriptions[jobID]
	h.mu.RUnlock()
	if !subscribed {
		unsubscribe, err := h.store.Subscribe(jobID, h.publish)
		if err != nil {
			h.sendDirect(client, errorMessage(jobID, "NOT_FOUND", "Job not found"))
			close(client.Send)
			return
		}
		h.mu.Lock()
		h.subscriptions[jobID] = unsubscribe
		h.mu.Unlock()
	}

	job, _ := h.store.Get(jobID)
	// events already queued up to this revision are covered by the snapshot
	client.seen = job.Revision

	h.mu.Lock()
	if h.clients[jobID] == nil {
		h.clients[jobID] = make(map[*Client]bool)
	}
	h.clients[jobID][client] = true
	h.mu.Unlock()
	h.logger.Debugw("Client registered", "jobId", jobID)

	// the store has no replay, so a late client starts from the current snapshot
	msg, final := eventMessage(model.JobEvent{Type: snapshotEventType(job.State), Job: job})
	h.sendDirect(client, msg)
	if final {
		h.deliver(&BroadcastMessage{JobID: jobID, Final: true})
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[client.JobID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.Send)
			if len(clients) == 0 {
				h.dropJobLocked(client.JobID)
			}
		}
	}
	h.logger.Debugw("Client unregistered", "jobId", client.JobID)
}

func (h *Hub) deliver(msg *BroadcastMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[msg.JobID]
	if !ok {
		return
	}
	for client := range clients {
		if msg.Message != nil && msg.Revision > client.seen {
			select {
			case client.Send <- msg.Message:
			default:
				close(client.Send)
				delete(clients, client)
				continue
			}
		}
		if msg.Final {
			close(client.Send)
			delete(clients, client)
		}
	}
	if len(clients) == 0 {
		h.dropJobLocked(msg.JobID)
	}
}

func (h *Hub) dropJobLocked(jobID string) {
	delete(h.clients, jobID)
	if unsubscribe, ok := h.subscriptions[jobID]; ok {
		unsubscribe()
		delete(h.subscriptions, jobID)
	}
}

// publish is the store listener. It runs under the job lock, so it must not block.
func (h *Hub) publish(evt model.JobEvent) {
	data, final := eventMessage(evt)
	if data == nil {
		return
	}
	select {
	case h.broadcast <- &BroadcastMessage{JobID: evt.Job.ID, Message: data, Revision: evt.Job.Revision, Final: final}:
	default:
		h.logger.Warnw("Broadcast queue full, dropping job event", "jobId", evt.Job.ID, "event", evt.Type)
	}
}

func (h *Hub) sendDirect(client *Client, data []byte) {
	if data == nil {
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

func snapshotEventType(state model.JobState) model.JobEventType {
	switch state {
	case model.JobStateComplete:
		return model.JobEventCompleted
	case model.JobStateFailed:
		return model.JobEventFailed
	default:
		return model.JobEventProgress
	}
}

// eventMessage encodes a job event for clients and reports whether it is
// the job's last message
func eventMessage(evt model.JobEvent) ([]byte, bool) {
	job := evt.Job
	switch evt.Type {
	case model.JobEventCompleted:
		data, _ := json.Marshal(model.WSCompleteMessage{
			Type:   model.WSMessageTypeComplete,
			JobID:  job.ID,
			Result: job.Result,
		})
		return data, true
	case model.JobEventFailed:
		msg := "Job failed"
		if job.Error != nil {
			msg = *job.Error
		}
		return errorMessage(job.ID, "JOB_FAILED", msg), true
	default:
		data, _ := json.Marshal(model.WSProgressMessage{
			Type:        model.WSMessageTypeProgress,
			JobID:       job.ID,
			Progress:    job.Progress,
			State:       job.State,
			CurrentStep: job.CurrentStep,
			Steps:       job.Steps,
		})
		return data, false
	}
}

func errorMessage(jobID, code, message string) []byte {
	data, _ := json.Marshal(model.WSErrorMessage{
		Type:  model.WSMessageTypeError,
		JobID: jobID,
		Error: model.WSError{
			Code:    code,
			Message: message,
		},
	})
	return data
}

// HandleConnection handles a WebSocket connection
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	client := &Client{
		JobID: jobID,
		Conn:  c,
		Send:  make(chan []byte, 256),
	}

	h.Register(client)

	writerDone := make(chan struct{})
	// Start writer goroutine
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Send ping for keep-alive
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	pongs := make(chan []byte, 1)
	go func() {
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
					h.logger.Debugw("WebSocket read error", "jobId", jobID, "error", err)
				}
				close(pongs)
				return
			}

			var msg model.WSMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				continue
			}
			if msg.Type == model.WSMessageTypePing {
				data, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
				select {
				case pongs <- data:
				default:
				}
			}
		}
	}()

	for {
		select {
		case data, ok := <-pongs:
			if !ok {
				h.Unregister(client)
				<-writerDone
				return
			}
			// Send is only closed under the write lock
			h.mu.RLock()
			if h.clients[jobID][client] {
				h.sendDirect(client, data)
			}
			h.mu.RUnlock()
		case <-writerDone:
			// the hub closed the stream after the final message
			h.Unregister(client)
			return
		}
	}
}
