package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/blood-donation-support-server/internal/domain"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsPingInterval   = 30 * time.Second
	wsSendBufferSize = 16
)

// EventHub fans notification events out to connected WebSocket subscribers.
// It implements domain.NotificationDispatcher so staff dashboards receive
// eligibility decisions, deferrals, and transfer authorizations live.
//
// A slow subscriber never blocks Dispatch: when a client's send buffer is
// full the event is dropped for that client and the drop is logged.
type EventHub struct {
	logger   *logrus.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan domain.NotificationEvent
}

// NewEventHub creates a hub with no connected subscribers.
func NewEventHub(logger *logrus.Logger) *EventHub {
	return &EventHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser dashboards connect cross-origin in development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// Dispatch implements domain.NotificationDispatcher by broadcasting the event
// to every connected subscriber. It never returns an error: per-client
// delivery problems are handled per client.
func (h *EventHub) Dispatch(ctx context.Context, event domain.NotificationEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- event:
		default:
			h.logger.WithFields(logrus.Fields{
				"kind":        event.Kind,
				"remote_addr": client.conn.RemoteAddr().String(),
			}).Warn("Dropping event for slow WebSocket subscriber")
		}
	}
	return nil
}

// SubscriberCount returns the number of connected subscribers.
func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleConnection upgrades the request to a WebSocket and streams events
// until the subscriber disconnects.
func (h *EventHub) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := &hubClient{
		conn: conn,
		send: make(chan domain.NotificationEvent, wsSendBufferSize),
	}
	h.register(client)
	h.logger.WithField("remote_addr", conn.RemoteAddr().String()).Info("WebSocket subscriber connected")

	go h.writeLoop(client)
	h.readLoop(client)
}

func (h *EventHub) register(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

func (h *EventHub) unregister(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// readLoop drains inbound frames so close and ping/pong control messages are
// processed. Subscribers are read-only; payloads are discarded.
func (h *EventHub) readLoop(client *hubClient) {
	defer func() {
		h.unregister(client)
		client.conn.Close()
		h.logger.WithField("remote_addr", client.conn.RemoteAddr().String()).Info("WebSocket subscriber disconnected")
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("WebSocket read error")
			}
			return
		}
	}
}

func (h *EventHub) writeLoop(client *hubClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case event, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
