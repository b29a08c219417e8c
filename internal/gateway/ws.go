package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haasonsaas/concierge/internal/agent"
	"github.com/haasonsaas/concierge/internal/observability"
	"github.com/haasonsaas/concierge/pkg/models"
)

const (
	wsMaxPayloadBytes = 8 << 20 // voice frames carry raw audio
	wsTickInterval    = 15 * time.Second
	wsPongWait        = 45 * time.Second
	wsWriteWait       = 10 * time.Second
)

// ConversationHandler is the per-connection session surface the gateway
// drives. *agent.Session satisfies it.
type ConversationHandler interface {
	ID() string
	HandleText(ctx context.Context, text string) error
	HandleVoice(ctx context.Context, audio []byte) error
}

// SessionFactory builds a session whose events flow to the given sink.
// The gateway calls it once per websocket connection.
type SessionFactory func(sink agent.EventSink) (ConversationHandler, error)

type wsHandler struct {
	newSession SessionFactory
	logger     *slog.Logger
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader
}

func newWSHandler(factory SessionFactory, logger *slog.Logger, metrics *observability.Metrics) *wsHandler {
	return &wsHandler{
		newSession: factory,
		logger:     logger,
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8192,
			WriteBufferSize: 8192,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

// inboundFrame is one client request: a text turn or a voice turn.
type inboundFrame struct {
	Event string `json:"event"`
	Text  string `json:"text,omitempty"`
	Audio []byte `json:"audio,omitempty"`
}

// outboundFrame is one serialized stream event.
type outboundFrame struct {
	Event string `json:"event"`
	Text  string `json:"text,omitempty"`
	Tool  string `json:"tool,omitempty"`
	Audio []byte `json:"audio,omitempty"`
	Error string `json:"error,omitempty"`
}

type wsConn struct {
	handler *wsHandler
	conn    *websocket.Conn
	send    chan []byte
	ctx     context.Context
	cancel  context.CancelFunc
	session ConversationHandler
	logger  *slog.Logger

	closeOnce sync.Once
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &wsConn{
		handler: h,
		conn:    conn,
		send:    make(chan []byte, 64),
		ctx:     ctx,
		cancel:  cancel,
	}

	session, err := h.newSession(agent.SinkFunc(c.forward))
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		c.close()
		return
	}
	c.session = session
	c.logger = h.logger.With("session_id", session.ID())

	if h.metrics != nil {
		h.metrics.SessionOpened()
		defer h.metrics.SessionClosed()
	}

	c.logger.Info("websocket session opened")
	c.run()
	c.logger.Info("websocket session closed")
}

func (c *wsConn) run() {
	defer c.close()
	go c.writeLoop()
	c.readLoop()
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close()
	})
}

func (c *wsConn) readLoop() {
	c.conn.SetReadLimit(wsMaxPayloadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		// A turn may outlive the pong deadline while the model streams.
		_ = c.conn.SetReadDeadline(time.Time{})
		c.handleFrame(data)
		_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}

func (c *wsConn) writeLoop() {
	ticker := time.NewTicker(wsTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// handleFrame runs one client turn. Turn errors were already surfaced to the
// client as error events, so they are only logged here.
func (c *wsConn) handleFrame(data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.sendError("invalid frame: " + err.Error())
		return
	}

	switch frame.Event {
	case "text":
		if frame.Text == "" {
			c.sendError("text event requires a text field")
			return
		}
		if err := c.session.HandleText(c.ctx, frame.Text); err != nil {
			c.logger.Warn("text turn failed", "error", err)
		}
	case "voice":
		if len(frame.Audio) == 0 {
			c.sendError("voice event requires an audio field")
			return
		}
		if err := c.session.HandleVoice(c.ctx, frame.Audio); err != nil {
			c.logger.Warn("voice turn failed", "error", err)
		}
	default:
		c.sendError(fmt.Sprintf("unknown event %q", frame.Event))
	}
}

// forward serializes one stream event onto the wire. The switch is
// exhaustive: adding an event type without updating the wire mapping is a
// loud failure, not a silently dropped event.
func (c *wsConn) forward(event models.StreamEvent) error {
	var frame outboundFrame
	switch event.Type {
	case models.EventTextDelta:
		frame = outboundFrame{Event: string(models.EventTextDelta), Text: event.Text}
	case models.EventToolCall:
		frame = outboundFrame{Event: string(models.EventToolCall), Tool: event.Tool}
	case models.EventAudio:
		frame = outboundFrame{Event: string(models.EventAudio), Audio: event.Audio}
	case models.EventTurnDone:
		frame = outboundFrame{Event: string(models.EventTurnDone)}
	case models.EventError:
		frame = outboundFrame{Event: string(models.EventError), Error: event.Err}
	default:
		return fmt.Errorf("gateway: unmapped stream event type %q", event.Type)
	}
	return c.enqueue(frame)
}

func (c *wsConn) enqueue(frame outboundFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("gateway: failed to encode frame: %w", err)
	}
	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

func (c *wsConn) sendError(msg string) {
	if err := c.enqueue(outboundFrame{Event: string(models.EventError), Error: msg}); err != nil {
		c.logger.Warn("failed to send error frame", "error", err)
	}
}
