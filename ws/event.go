// Package ws pushes realtime admin-dashboard events over websockets.
//
// Events flow one way: services call Publish, the Hub fans the encoded event
// out to every connected client's send buffer, and each client's write pump
// drains it to the socket.
package ws

// Event is the wire format: {"op": "...", "d": ...}.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
}

// Server → client operations
const (
	OpVisitorNew         = "visitor:new"
	OpNotificationNew    = "notification:new"
	OpNotificationUpdate = "notification:update"
	OpNotificationDelete = "notification:delete"
	OpSystemMetrics      = "system:metrics"
)

// EventPublisher is what services depend on to emit events.
type EventPublisher interface {
	Publish(op string, data any)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(string, any) {}
