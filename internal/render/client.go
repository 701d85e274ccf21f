package render

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"heatwatch/internal/types"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxEventBytes  = 4096
	pongWaitFactor = 2
)

// client is one connected browser. send and closed are guarded by the
// hub's mutex.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	closed bool
}

func (c *client) enqueue(payload []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ServeWS upgrades the request and streams surface messages to the client
// until it disconnects or the hub is torn down. Client events are handed to
// the bound EventHandler.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "render surface is closed", http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin:       h.checkOrigin,
		EnableCompression: true,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer)}
	if err := h.attach(c); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "render surface is closed"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.logger.DebugContext(r.Context(), "surface client connected", "remote_addr", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(r.Context(), c)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	if len(h.origins) > 0 {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("surface client write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.logger.Debug("surface client ping failed", "error", err)
				return
			}
		}
	}
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	defer h.detach(c)

	pongWait := h.pingInterval * pongWaitFactor
	c.conn.SetReadLimit(maxEventBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev ClientEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				h.logger.DebugContext(ctx, "surface client read ended", "error", err)
			}
			return
		}
		h.dispatch(ctx, c, ev)
	}
}

func (h *Hub) dispatch(ctx context.Context, c *client, ev ClientEvent) {
	handler := h.eventHandler()
	if handler == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.eventTimeout)
	defer cancel()

	var err error
	switch ev.Type {
	case EventMouseOver:
		err = handler.Highlight(ctx, ev.Region)
	case EventMouseOut:
		err = handler.ResetHighlight(ctx, ev.Region)
	case EventClick:
		_, err = handler.Zoom(ctx, ev.Region)
	default:
		err = types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidJSON, "unknown client event", nil,
			map[string]any{"type": string(ev.Type)})
	}
	if err != nil {
		h.logger.DebugContext(ctx, "client event rejected", "type", string(ev.Type), "region", string(ev.Region), "error", err)
		h.sendError(c, err)
	}
}

func (h *Hub) sendError(c *client, err error) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		appErr = types.NewAppError(types.ErrCodeInternalUnexpected, "event failed", err)
	}
	payload, encErr := encode(MessageError, appErr)
	if encErr != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	c.enqueue(payload)
}
