package models

type EventType string

const (
	EventTypeMessage  EventType = "message"
	EventTypeTyping   EventType = "typing"
	EventTypeReaction EventType = "reaction"
	EventTypePresence EventType = "presence"
)

const (
	ReactionAdd    = "add"
	ReactionRemove = "remove"
)

// Event is the wire format carried over the room channel, both directions.
// Fields are populated per Type; timestamps stay strings on the wire and are
// parsed when merged into the timeline.
type Event struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	CreatedAt string    `json:"created_at,omitempty"`
	State     bool      `json:"state"`
	MessageID string    `json:"message_id,omitempty"`
	Emoji     string    `json:"emoji,omitempty"`
	Action    string    `json:"action,omitempty"`
}
