package server

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/pipeline"
	"github.com/MeKo-Tech/lingolens/internal/region"
	"github.com/MeKo-Tech/lingolens/internal/utils"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	defaultClientQueue = 16
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Presentation clients run locally next to the pipeline.
		return true
	},
}

// Event is a message pushed to websocket clients.
type Event struct {
	Type    string `json:"type"` // "state", "frame", "stats" or "frame_error"
	Payload any    `json:"payload,omitempty"`
}

// StateEvent describes a lifecycle transition.
type StateEvent struct {
	From  string    `json:"from"`
	To    string    `json:"to"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

// FrameEvent describes a translated frame.
type FrameEvent struct {
	ID          string              `json:"id"`
	CaptureTime time.Time           `json:"capture_time"`
	DurationMs  int64               `json:"duration_ms"`
	Detected    int                 `json:"detected"`
	Reused      bool                `json:"reused"`
	Regions     []region.TextRegion `json:"regions"`
	ImagePNG    string              `json:"image_png,omitempty"` // base64
}

// FrameErrorEvent describes a skipped frame.
type FrameErrorEvent struct {
	Stage       string    `json:"stage"`
	Error       string    `json:"error"`
	CaptureTime time.Time `json:"capture_time"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans pipeline events out to websocket clients. Each client has a
// bounded queue; messages for a client whose queue is full are dropped.
type Hub struct {
	queue      int
	sendImages bool

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub. queue is the per-client send queue length.
func NewHub(queue int, sendImages bool) *Hub {
	if queue <= 0 {
		queue = defaultClientQueue
	}
	return &Hub{queue: queue, sendImages: sendImages, clients: make(map[*client]struct{})}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and registers the connection as a client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.queue)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	websocketConnections.Inc()
	slog.Info("WebSocket client connected", "remote_addr", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(c)
}

// readPump only watches for the client going away; clients do not send commands.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("WebSocket read error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			websocketMessagesTotal.WithLabelValues("sent").Inc()
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	websocketConnections.Dec()
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		websocketConnections.Dec()
	}
}

// Broadcast queues an event for every client.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal WebSocket event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			websocketDroppedTotal.Inc()
		}
	}
}

func (h *Hub) OnStateChange(change pipeline.StateChange) {
	h.Broadcast(Event{Type: "state", Payload: StateEvent{
		From:  change.From.String(),
		To:    change.To.String(),
		Error: change.Message(),
		At:    change.At,
	}})
}

func (h *Hub) OnFrame(frame pipeline.TranslatedFrame, stats pipeline.Stats) {
	if h.Clients() == 0 {
		return
	}
	ev := FrameEvent{
		ID:          frame.ID,
		CaptureTime: frame.CaptureTime,
		DurationMs:  frame.ProcessingDuration.Milliseconds(),
		Detected:    frame.Detected,
		Reused:      frame.Reused,
		Regions:     frame.Regions,
	}
	if h.sendImages && frame.Image != nil {
		if png, err := utils.EncodePNG(frame.Image); err == nil {
			ev.ImagePNG = base64.StdEncoding.EncodeToString(png)
		} else {
			slog.Warn("Failed to encode frame for WebSocket clients", "error", err)
		}
	}
	h.Broadcast(Event{Type: "frame", Payload: ev})
	h.Broadcast(Event{Type: "stats", Payload: stats})
}

func (h *Hub) OnFrameError(err *pipeline.FrameError) {
	h.Broadcast(Event{Type: "frame_error", Payload: FrameErrorEvent{
		Stage:       err.Stage,
		Error:       err.Err.Error(),
		CaptureTime: err.CapturedAt,
	}})
}
