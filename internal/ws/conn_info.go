package ws

import "time"

// ConnInfo carries per-connection metadata used for lifecycle events.
type ConnInfo struct {
	ConnID      string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
