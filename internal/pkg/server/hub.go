package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/anicoll/nest-integration/internal/pkg/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12
	sendBuffer = 32
)

const (
	envelopeStatus    = "status"
	envelopeDevice    = "device"
	envelopeDevices   = "devices"
	envelopeVariables = "variables"
)

type wsEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes plugin events to connected websocket clients. It is registered as
// a publisher sink. Clients that cannot keep up are disconnected.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	logger  *zap.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		logger:  zap.L(),
	}
}

func (h *Hub) RegisterDevice(ctx context.Context, device *model.Device) error {
	return h.broadcast(wsEnvelope{Type: envelopeDevice, Data: device})
}

func (h *Hub) Write(ctx context.Context, batch model.VariableBatch) error {
	return h.broadcast(wsEnvelope{Type: envelopeVariables, Data: batch})
}

func (h *Hub) ReportStatus(ctx context.Context, status model.PluginStatus) error {
	return h.broadcast(wsEnvelope{Type: envelopeStatus, Data: status})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(env wsEnvelope) error {
	msg, err := json.Marshal(env)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping slow websocket client", zap.String("remote", c.conn.RemoteAddr().String()))
			h.removeLocked(c)
		}
	}
	return nil
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// serveWS upgrades the connection, sends the current status and devices, then
// streams hub events until the client goes away.
func (s *server) serveWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	for _, env := range []wsEnvelope{
		{Type: envelopeStatus, Data: s.plugin.Status()},
		{Type: envelopeDevices, Data: s.plugin.Devices()},
	} {
		msg, err := json.Marshal(env)
		if err != nil {
			s.logger.Error("ws initial state", zap.Error(err))
			_ = conn.Close()
			return
		}
		c.send <- msg
	}
	s.hub.add(c)

	go s.hub.readPump(c)
	s.hub.writePump(c)
}

// readPump discards client messages and unregisters the client once the
// connection fails.
func (h *Hub) readPump(c *wsClient) {
	defer h.remove(c)
	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("ws write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
