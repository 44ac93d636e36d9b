package gateway

import (
	"context"

	"github.com/hypershop/shopstream/internal/protocol"
)

// Request describes one user chat turn.
type Request struct {
	SessionID  string
	CustomerID string
	Message    string
	Files      []string // stored attachment paths uploaded for this turn
}

// Emit delivers one event to the requesting client. A failed emit aborts
// the turn; the client is gone.
type Emit func(protocol.Event) error

// Producer generates the assistant side of a chat turn. Implementations
// stream text through stream events and may interleave system notices and
// message boundaries. The gateway wraps the emit function to watch the
// produced text and finalizes every turn itself: recommendation
// extraction, the structured_recommendations push, and chat_complete.
type Producer interface {
	Produce(ctx context.Context, req Request, emit Emit) error
}

// ProducerFunc adapts a function to the Producer interface.
type ProducerFunc func(ctx context.Context, req Request, emit Emit) error

func (f ProducerFunc) Produce(ctx context.Context, req Request, emit Emit) error {
	return f(ctx, req, emit)
}

func streamEvt(text string) protocol.Event {
	return protocol.NewEvent(protocol.EventStream, text, protocol.SenderAssistant)
}

func systemEvt(text string) protocol.Event {
	return protocol.NewEvent(protocol.EventSystem, text, protocol.SenderSystem)
}
