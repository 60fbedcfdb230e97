package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/schedule-browser/internal/service"
)

const (
	streamSendBuffer = 16
	streamWriteWait  = 10 * time.Second
	streamReadLimit  = 1024
)

type streamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// StreamHub pushes list snapshots to connected UI shells. A new client first
// receives the latest snapshot. Clients that fall behind are disconnected.
type StreamHub struct {
	upgrader websocket.Upgrader
	ping     time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	last    []byte
}

// NewStreamHub constructs a hub. With no allowed origins every origin is accepted.
func NewStreamHub(allowedOrigins []string, ping time.Duration, logger *zap.Logger) *StreamHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ping <= 0 {
		ping = 30 * time.Second
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return &StreamHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		ping:    ping,
		logger:  logger,
		clients: make(map[*streamClient]struct{}),
	}
}

// PublishList broadcasts a list snapshot.
func (h *StreamHub) PublishList(snap service.ListSnapshot) {
	payload, err := json.Marshal(streamMessage{Type: "schedules", Data: snap})
	if err != nil {
		h.logger.Error("encode stream message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = payload
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			delete(h.clients, client)
			close(client.send)
			h.logger.Warn("dropping slow stream client")
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *StreamHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve godoc
// @Summary Stream list snapshots over a websocket
// @Tags Schedules
// @Success 101
// @Router /stream [get]
func (h *StreamHub) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &streamClient{conn: conn, send: make(chan []byte, streamSendBuffer)}
	h.register(client)

	go h.readLoop(client)
	h.writeLoop(client)
}

func (h *StreamHub) register(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
	if h.last != nil {
		client.send <- h.last
	}
}

func (h *StreamHub) unregister(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// readLoop only watches for pongs and the close frame.
func (h *StreamHub) readLoop(client *streamClient) {
	defer h.unregister(client)
	client.conn.SetReadLimit(streamReadLimit)
	_ = client.conn.SetReadDeadline(time.Now().Add(2 * h.ping))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(2 * h.ping))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHub) writeLoop(client *streamClient) {
	ticker := time.NewTicker(h.ping)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
