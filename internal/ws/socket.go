package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"channel-chat-service/internal/models"
	"channel-chat-service/internal/observability"
)

// SocketHandler upgrades HTTP requests to websocket connections and feeds
// "view channel" intents into the hub.
type SocketHandler struct {
	hub *Hub
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(hub *Hub) *SocketHandler {
	return &SocketHandler{hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers it with the hub. The
// connection starts out viewing no channel; push events only begin flowing
// once the client sends a view intent.
func (h *SocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("channel-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddConnection(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	publishLifecycleEvent(ctx, "ws_connect", info, "")

	go h.readLoop(conn, info)
}

// readLoop consumes intent messages until the connection dies, then removes
// it from the hub.
func (h *SocketHandler) readLoop(conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.RemoveConnection(conn)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		publishLifecycleEvent(context.Background(), "ws_disconnect", info, closeReason)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				publishLifecycleEvent(context.Background(), "ws_error", info, closeReason)
			}
			return
		}

		var intent models.ViewChannelIntent
		if err := json.Unmarshal(data, &intent); err != nil {
			continue
		}
		if intent.Type == "view channel" {
			h.hub.SetViewedChannel(conn, intent.ChannelID)
		}
	}
}

func publishLifecycleEvent(ctx context.Context, event string, info ConnInfo, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.connections", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"ip": info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
