package models

import "time"

type ChatEventType string

const (
	EventDelta     ChatEventType = "delta"
	EventCompleted ChatEventType = "completed"
	EventStopped   ChatEventType = "stopped"
	EventFailed    ChatEventType = "failed"
	EventNotice    ChatEventType = "notice"
	EventPath      ChatEventType = "path"
	EventJump      ChatEventType = "jump"
)

type ChatEvent struct {
	Type           ChatEventType `json:"type"`
	ConversationID string        `json:"conversation_id,omitempty"`
	NodeID         string        `json:"node_id,omitempty"`
	Delta          string        `json:"delta,omitempty"`
	Message        string        `json:"message,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}
