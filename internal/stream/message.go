package stream

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hypershop/shopstream/internal/protocol"
)

// Role of a display message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a display-ready chat message. While Streaming is set, Text is
// the filtered view of the raw accumulated text and both are rewritten on
// every stream delta; sealing fixes Text and Products and drops the raw
// buffer. Sealed messages are never mutated again.
type Message struct {
	ID        string
	Role      Role
	Text      string
	Products  []protocol.Product
	Streaming bool
	Timestamp time.Time

	raw string // accumulated raw text, kept only while streaming
}

func newMessage(role Role) Message {
	return Message{
		ID:        ulid.Make().String(),
		Role:      role,
		Timestamp: time.Now(),
	}
}

// Raw returns the accumulated raw text of an in-flight message. Sealed
// messages return the empty string.
func (m Message) Raw() string { return m.raw }
