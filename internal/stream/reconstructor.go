package stream

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/hypershop/shopstream/internal/extract"
	"github.com/hypershop/shopstream/internal/protocol"
)

// Notice shown for a structured_recommendations event; the products ride
// alongside it for the side panel.
const recommendationsNotice = "Recommendations updated"

// System notices whose text contains one of these keeps the waiting
// indicator up: a tool has taken over mid-turn.
var toolUseWords = []string{"using", "searching", "analyzing"}

// Status notices that never count as meaningful assistant output.
var statusPrefixes = []string{"Assistant is thinking", "Using ", "Welcome"}

// Reconstructor folds the gateway's ordered event stream into display
// messages: at most one message is in streaming state at a time, raw text
// accumulates append-only, and the display text is recomputed from the
// full raw text on every delta so a partially streamed tagged section is
// never shown. It is single-consumer by contract: Handle must be called
// from one goroutine, in arrival order, one event at a time.
type Reconstructor struct {
	// OnUpdate is invoked after a message is created, mutated, or sealed.
	OnUpdate func(Message)
	// OnWaiting is invoked when the waiting indicator changes.
	OnWaiting func(bool)

	messages  []Message
	streaming int // index of the in-flight message, -1 when idle
	waiting   bool
}

func NewReconstructor() *Reconstructor {
	return &Reconstructor{streaming: -1}
}

// Messages returns a copy of the reconstructed message list.
func (r *Reconstructor) Messages() []Message {
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Waiting reports whether the turn's waiting indicator is active.
func (r *Reconstructor) Waiting() bool { return r.waiting }

// BeginTurn raises the waiting indicator. Callers invoke it when an
// outbound chat envelope is sent; only meaningful assistant output (or an
// error event) lowers it again.
func (r *Reconstructor) BeginTurn() { r.setWaiting(true) }

// Handle processes one inbound event. Events are consumed strictly in
// arrival order; no reordering or batching happens here.
func (r *Reconstructor) Handle(evt protocol.Event) {
	switch evt.Type {
	case protocol.EventStream:
		r.handleStream(evt)
	case protocol.EventChatComplete:
		r.sealTurn(evt.Message)
	case protocol.EventMessageBoundary:
		r.handleBoundary(evt)
	case protocol.EventChat:
		r.handleChat(evt)
	case protocol.EventRecommendations:
		r.handleRecommendations(evt)
	case protocol.EventSystem:
		// Status notices never become chat bubbles; tool-use chatter keeps
		// the waiting indicator up while a sub-process runs.
		if isToolUseNotice(evt.Message) {
			r.setWaiting(true)
		}
	case protocol.EventError:
		slog.Warn("gateway reported error", "message", evt.Message)
		r.setWaiting(false)
	case protocol.EventFileSaved:
		// Acknowledged out of band; no chat bubble.
	default:
		slog.Warn("ignoring unknown event type", "type", evt.Type)
	}
}

// handleStream appends an incremental delta to the in-flight message,
// creating one if the turn has no streaming message yet.
func (r *Reconstructor) handleStream(evt protocol.Event) {
	if r.streaming < 0 {
		msg := newMessage(RoleAssistant)
		msg.Streaming = true
		msg.raw = evt.Message
		msg.Text = extract.FilterStreaming(msg.raw)
		r.messages = append(r.messages, msg)
		r.streaming = len(r.messages) - 1
	} else {
		m := &r.messages[r.streaming]
		m.raw += evt.Message
		m.Text = extract.FilterStreaming(m.raw)
	}
	m := r.messages[r.streaming]
	r.clearWaitingIfMeaningful(m.Text)
	r.notify(m)
}

// sealTurn finalizes the in-flight message using rawText as ground truth:
// chat_complete carries the full accumulated text, not a delta, so any
// locally accumulated text is discarded. Without an in-flight message a
// new sealed one is created.
func (r *Reconstructor) sealTurn(rawText string) {
	text, products := cleanFinal(rawText)
	if r.streaming >= 0 {
		m := &r.messages[r.streaming]
		m.Text = text
		m.Products = products
		m.Streaming = false
		m.raw = ""
		r.streaming = -1
		r.clearWaitingIfMeaningful(m.Text)
		r.notify(*m)
		return
	}
	msg := newMessage(RoleAssistant)
	msg.Text = text
	msg.Products = products
	r.messages = append(r.messages, msg)
	r.clearWaitingIfMeaningful(text)
	r.notify(msg)
}

// handleBoundary seals the current message without ending the turn;
// subsequent stream events open a fresh message. An empty boundary with no
// in-flight message produces nothing.
func (r *Reconstructor) handleBoundary(evt protocol.Event) {
	if r.streaming < 0 && strings.TrimSpace(evt.Message) == "" {
		return
	}
	r.sealTurn(evt.Message)
}

func (r *Reconstructor) handleChat(evt protocol.Event) {
	switch evt.UserID {
	case protocol.SenderAssistant:
		// Complete non-streamed response: same cleaning pipeline as a
		// completed stream, but it never consumes the in-flight message.
		text, products := cleanFinal(evt.Message)
		msg := newMessage(RoleAssistant)
		msg.Text = text
		msg.Products = products
		r.messages = append(r.messages, msg)
		r.clearWaitingIfMeaningful(text)
		r.notify(msg)
	case protocol.SenderSystem:
		// System chatter is not a chat bubble.
	default:
		msg := newMessage(RoleUser)
		msg.Text = evt.Message
		r.messages = append(r.messages, msg)
		r.notify(msg)
	}
}

func (r *Reconstructor) handleRecommendations(evt protocol.Event) {
	products, ok := protocol.ParseRecommendations(evt.Message)
	if !ok {
		slog.Warn("unparseable recommendations payload, rendering as text")
		msg := newMessage(RoleAssistant)
		msg.Text = evt.Message
		r.messages = append(r.messages, msg)
		r.clearWaitingIfMeaningful(msg.Text)
		r.notify(msg)
		return
	}
	r.setWaiting(false)
	msg := newMessage(RoleAssistant)
	msg.Text = recommendationsNotice
	msg.Products = products
	r.messages = append(r.messages, msg)
	r.notify(msg)
}

// cleanFinal runs the finalized-text pipeline: strip complete tagged
// spans, then extract embedded recommendation JSON.
func cleanFinal(rawText string) (string, []protocol.Product) {
	res := extract.Extract(extract.StripResultTags(rawText))
	return res.Text, res.Products
}

func (r *Reconstructor) notify(m Message) {
	if r.OnUpdate != nil {
		r.OnUpdate(m)
	}
}

func (r *Reconstructor) setWaiting(w bool) {
	if r.waiting == w {
		return
	}
	r.waiting = w
	if r.OnWaiting != nil {
		r.OnWaiting(w)
	}
}

// clearWaitingIfMeaningful lowers the waiting indicator the first time
// real display text appears, regardless of which event kind produced it.
func (r *Reconstructor) clearWaitingIfMeaningful(text string) {
	if !r.waiting {
		return
	}
	if meaningfulText(text) {
		r.setWaiting(false)
	}
}

func meaningfulText(text string) bool {
	t := strings.TrimSpace(text)
	if len(t) <= 5 {
		return false
	}
	for _, p := range statusPrefixes {
		if strings.HasPrefix(t, p) {
			return false
		}
	}
	for _, c := range t {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			return true
		}
	}
	return false
}

func isToolUseNotice(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range toolUseWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
