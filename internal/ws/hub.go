package ws

import (
	"encoding/json"
	"log"
	"sync"

	"channel-chat-service/internal/models"
	"channel-chat-service/internal/observability"
)

// Conn is the transport half of a live connection. *websocket.Conn
// satisfies it; tests substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// TextMessage mirrors websocket.TextMessage so callers of fakes need not
// import gorilla.
const TextMessage = 1

type entry struct {
	channelID string // empty until a "view channel" intent arrives
	info      ConnInfo
}

// Hub owns the mapping from live connections to the channel each one is
// currently viewing, and fans events out accordingly. It never touches the
// message store.
type Hub struct {
	mu    sync.RWMutex
	conns map[Conn]entry
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[Conn]entry)}
}

// AddConnection registers a connection viewing nothing yet.
func (h *Hub) AddConnection(conn Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = entry{info: info}
}

// SetViewedChannel records which channel a connection is looking at. An
// empty channel id is ignored: a connection cannot unset its view except by
// disconnecting. Unknown connections are ignored too.
func (h *Hub) SetViewedChannel(conn Conn, channelID string) {
	if channelID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.conns[conn]
	if !ok {
		return
	}
	e.channelID = channelID
	h.conns[conn] = e
}

// RemoveConnection drops a connection from the registry. Safe to call on a
// connection that was already removed.
func (h *Hub) RemoveConnection(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// BroadcastNewMessage pushes a freshly created message to the connections
// viewing its channel.
func (h *Hub) BroadcastNewMessage(msg models.Message) {
	h.broadcast(msg.ChannelID, models.EventReceivedChatMessage,
		models.MessageEvent{Type: models.EventReceivedChatMessage, Message: &msg})
}

// BroadcastEditedMessage pushes the updated document after an edit, scoped
// by the message's own channel.
func (h *Hub) BroadcastEditedMessage(msg models.Message) {
	h.broadcast(msg.ChannelID, models.EventEditedChatMessage,
		models.MessageEvent{Type: models.EventEditedChatMessage, Message: &msg})
}

// BroadcastReaction notifies viewers of a changed reaction count.
func (h *Hub) BroadcastReaction(channelID, messageID, code string, count int) {
	h.broadcast(channelID, models.EventAddedReaction,
		models.ReactionEvent{Type: models.EventAddedReaction, MessageID: messageID, Code: code, Count: count})
}

// BroadcastNewChannel announces a channel to every live connection; no
// connection can be viewing it yet.
func (h *Hub) BroadcastNewChannel(channel models.Channel) {
	h.broadcast("", models.EventCreatedNewChannel,
		models.ChannelEvent{Type: models.EventCreatedNewChannel, Channel: &channel})
}

// BroadcastPublicKey announces a released public key to every live
// connection.
func (h *Hub) BroadcastPublicKey(key, username string) {
	h.broadcast("", models.EventReleasedPublicKey,
		models.PublicKeyEvent{Type: models.EventReleasedPublicKey, Key: key, Username: username})
}

// broadcast delivers event to every connection viewing channelID, or to all
// connections when channelID is empty. Targets are snapshotted before
// writing so a removal mid-delivery cannot upset the iteration, and a
// failed write drops only that one connection.
func (h *Hub) broadcast(channelID, eventName string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	h.mu.RLock()
	targets := make([]Conn, 0, len(h.conns))
	for conn, e := range h.conns {
		if channelID == "" || e.channelID == channelID {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.WriteMessage(TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveConnection(conn)
			observability.DecWSActive()
			observability.IncWSEvent("ws_error")
			continue
		}
		observability.IncBroadcastDelivery(eventName)
	}
}
