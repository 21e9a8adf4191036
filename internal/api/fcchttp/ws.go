package fcchttp

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ferux/devicewatch/internal/fcontext"
	"github.com/ferux/devicewatch/internal/model"
	"github.com/ferux/devicewatch/internal/telemetry"
)

const (
	writeWait    = time.Second * 5
	pongWait     = time.Second * 15
	pingPeriod   = pongWait * 9 / 10
	clientBuffer = 32
)

// wsMessage is what clients receive on every poll.
type wsMessage struct {
	Type    string            `json:"type"`
	Payload model.Observation `json:"payload"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan model.Observation
}

// Hub streams observations to connected websocket clients. A client which
// does not keep up loses messages instead of slowing others down.
type Hub struct {
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			HandshakeTimeout: time.Second * 5,
			ReadBufferSize:   4 << 10, // 4 KiB
			WriteBufferSize:  4 << 10, // 4 KiB
		},
		logger:  logger.With().Str("pkg", "ws").Logger(),
		clients: make(map[*wsClient]struct{}),
	}
}

// Broadcast observation to every client. It never blocks.
func (h *Hub) Broadcast(o model.Observation) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- o:
		default:
			telemetry.NotificationsDropped.WithLabelValues("websocket").Inc()
		}
	}
}

// Clients returns amount of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already replied with an error
		logger.Warn().Err(err).Str("request_id", fcontext.RequestID(ctx)).Msg("unable to upgrade to websockets")
		return
	}

	c := &wsClient{conn: conn, send: make(chan model.Observation, clientBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()

		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("client connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

// readLoop only watches for the connection to go away.
func (h *Hub) readLoop(c *wsClient) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.logger.Debug().Err(err).Msg("client has gone")
			return
		}
	}
}

func (h *Hub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case o, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}

			if err := c.conn.WriteJSON(wsMessage{Type: "status", Payload: o}); err != nil {
				h.logger.Debug().Err(err).Msg("unable to write")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
