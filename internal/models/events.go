package models

// Push event names. "received chat message", "edited chat message" and
// "added message reaction" are scoped to connections viewing the message's
// channel; the rest go to every live connection.
const (
	EventReceivedChatMessage = "received chat message"
	EventEditedChatMessage   = "edited chat message"
	EventAddedReaction       = "added message reaction"
	EventCreatedNewChannel   = "created new channel"
	EventReleasedPublicKey   = "released public key"
)

// MessageEvent carries a full message to viewing clients.
type MessageEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

// ReactionEvent notifies viewers that a reaction count changed.
type ReactionEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"messageID"`
	Code      string `json:"reactionCode"`
	Count     int    `json:"newCount"`
}

// ChannelEvent announces a new channel to every connection.
type ChannelEvent struct {
	Type    string   `json:"type"`
	Channel *Channel `json:"channel"`
}

// PublicKeyEvent is a channel-agnostic capability announcement.
type PublicKeyEvent struct {
	Type     string `json:"type"`
	Key      string `json:"key"`
	Username string `json:"username"`
}

// ViewChannelIntent is the only message clients send over the socket: it
// sets which channel the connection is currently viewing.
type ViewChannelIntent struct {
	Type      string `json:"type"`
	ChannelID string `json:"channelID"`
}
