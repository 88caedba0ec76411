// Package domain contains the core concepts of the chat gateway.
// This file defines chat events and the inbound frame format.
// Events are immutable and serialized once per broadcast.
package domain

type EventType string

const (
	EventMessage EventType = "message"
	EventJoin    EventType = "join"
	EventLeave   EventType = "leave"
	EventError   EventType = "error"
)

// Sender is the verified identity attached to message events.
type Sender struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

// ChatEvent is the wire format delivered to every chat member.
// Sender is null for everything except message events.
type ChatEvent struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
	Sender  *Sender   `json:"sender"`
}

func NewJoinEvent(username string) ChatEvent {
	return ChatEvent{
		Type:    EventJoin,
		Content: "Welcome, " + username + "!",
	}
}

func NewMessageEvent(content string, sender Sender) ChatEvent {
	return ChatEvent{
		Type:    EventMessage,
		Content: content,
		Sender:  &sender,
	}
}

func NewLeaveEvent(username string) ChatEvent {
	return ChatEvent{
		Type:    EventLeave,
		Content: username + " left the chat",
	}
}

func NewErrorEvent(content string) ChatEvent {
	return ChatEvent{
		Type:    EventError,
		Content: content,
	}
}

// InboundFrame is the only payload clients may send on a chat socket.
// Message uses a pointer so a missing field is distinguishable from
// an empty string: only the former is rejected.
type InboundFrame struct {
	Message *string `json:"message" validate:"required"`
}
