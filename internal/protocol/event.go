package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types pushed by the gateway. The message field's semantics depend
// on the type: "stream" carries an incremental delta, "chat_complete" and
// "message_boundary" carry the full raw text accumulated for that cycle,
// "structured_recommendations" carries a JSON-encoded Recommendations payload.
const (
	EventChat            = "chat"
	EventSystem          = "system"
	EventError           = "error"
	EventFileSaved       = "file_saved"
	EventStream          = "stream"
	EventChatComplete    = "chat_complete"
	EventMessageBoundary = "message_boundary"
	EventRecommendations = "structured_recommendations"
)

// Sender identifiers carried in an event's user_id field.
const (
	SenderAssistant = "assistant"
	SenderSystem    = "system"
)

// Event is a typed message pushed from the gateway to a client.
type Event struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	UserID    string         `json:"user_id"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType, message, userID string) Event {
	return Event{
		Type:      eventType,
		Message:   message,
		UserID:    userID,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// KnownEventType reports whether t is part of the wire contract.
func KnownEventType(t string) bool {
	switch t {
	case EventChat, EventSystem, EventError, EventFileSaved,
		EventStream, EventChatComplete, EventMessageBoundary, EventRecommendations:
		return true
	}
	return false
}

// DecodeEvent parses a raw WebSocket payload into an Event. Payloads that
// are not valid JSON or carry no type are rejected; unknown but well-formed
// types decode successfully so the consumer can log and skip them.
func DecodeEvent(data []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if evt.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return evt, nil
}
