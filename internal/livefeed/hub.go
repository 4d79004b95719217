package livefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"smartcampus/internal/observability"
	"smartcampus/internal/recognition"
)

const EventMarked = "attendance.marked"

// Event is pushed to live clients when a student is marked present.
type Event struct {
	Type       string  `json:"type"`
	StudentID  string  `json:"student_id"`
	Confidence float64 `json:"confidence"`
	Date       string  `json:"date"`
	Time       string  `json:"time"`
}

// EventFor converts a marked decision. ok is false for every other outcome.
func EventFor(d recognition.Decision) (Event, bool) {
	if d.Outcome != recognition.OutcomeMarked {
		return Event{}, false
	}
	return Event{
		Type:       EventMarked,
		StudentID:  d.IdentityKey,
		Confidence: d.Confidence,
		Date:       d.Date,
		Time:       d.Time,
	}, true
}

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	studentID string
}

type message struct {
	studentID string
	data      []byte
}

// Hub maintains live clients and fans events out to them. Slow clients are
// dropped rather than blocking the broadcast.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan message
	register   chan *client
	unregister chan *client
	done       chan struct{}
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

func NewHub(origins []string, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan message, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		log:        log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := map[string]bool{}
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed["*"] || allowed[origin]
	}
}

// Run is the hub event loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			observability.WSConnections.Inc()
			h.log.Debug("live client connected", zap.String("student_id", c.studentID))
		case c := <-h.unregister:
			h.drop(c)
		case msg := <-h.broadcast:
			for c := range h.clients {
				if c.studentID != "" && c.studentID != msg.studentID {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	observability.WSConnections.Dec()
}

// Broadcast queues an event for delivery.
func (h *Hub) Broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("marshal live event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message{studentID: evt.StudentID, data: data}:
	default:
		h.log.Warn("live feed backlog full, dropping event", zap.String("student_id", evt.StudentID))
	}
}

// Publish broadcasts d when it marked a student.
func (h *Hub) Publish(_ context.Context, d recognition.Decision) error {
	if evt, ok := EventFor(d); ok {
		h.Broadcast(evt)
	}
	return nil
}

// HandleWS upgrades the request. ?student_id= limits the stream to one student.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	cl := &client{conn: conn, send: make(chan []byte, 64), studentID: c.Query("student_id")}
	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return
	case <-c.Request.Context().Done():
		conn.Close()
		return
	}
	go cl.writePump()
	go cl.readPump(h)
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump only detects disconnects; clients never send anything useful.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
