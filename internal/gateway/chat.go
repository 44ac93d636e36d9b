package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/hypershop/shopstream/internal/catalog"
	"github.com/hypershop/shopstream/internal/extract"
	"github.com/hypershop/shopstream/internal/protocol"
)

// turnRecorder watches the events a producer emits. segment holds the text
// since the last message boundary (what chat_complete must carry); full
// holds the whole turn (what recommendation extraction scans).
type turnRecorder struct {
	segment strings.Builder
	full    strings.Builder
}

// handleChat runs one chat turn synchronously on the connection's read
// loop, so a client's turns never interleave.
func (s *Server) handleChat(ctx context.Context, conn *Conn, env protocol.Envelope) {
	if strings.TrimSpace(env.Message) == "" {
		conn.Send(protocol.NewEvent(protocol.EventError, "Empty message", protocol.SenderSystem))
		return
	}

	req := Request{
		SessionID:  conn.UserID,
		CustomerID: env.CustomerID,
		Message:    env.Message,
		Files:      conn.TakeFiles(),
	}

	conn.Send(systemEvt("Assistant is thinking..."))

	rec := &turnRecorder{}
	emit := func(evt protocol.Event) error {
		switch evt.Type {
		case protocol.EventStream:
			rec.segment.WriteString(evt.Message)
			rec.full.WriteString(evt.Message)
		case protocol.EventMessageBoundary:
			rec.segment.Reset()
		}
		return conn.Send(evt)
	}

	if err := s.Producer.Produce(ctx, req, emit); err != nil {
		slog.Error("producer failed", "session", req.SessionID, "error", err)
		conn.Send(protocol.NewEvent(protocol.EventError,
			"Sorry, something went wrong handling your message. Please try again.",
			protocol.SenderSystem))
		return
	}

	s.finishTurn(ctx, conn, rec)
}

// finishTurn closes out a turn: push extracted recommendations when the
// produced text carried any, then the authoritative chat_complete.
func (s *Server) finishTurn(ctx context.Context, conn *Conn, rec *turnRecorder) {
	fullText := rec.full.String()

	products := s.collectRecommendations(ctx, fullText)
	if len(products) > 0 {
		recs := protocol.Recommendations{}
		for _, p := range products {
			recs.Recommendations = append(recs.Recommendations, p.Wire())
		}
		payload, err := json.Marshal(recs)
		if err == nil {
			conn.Send(protocol.NewEvent(protocol.EventRecommendations, string(payload), protocol.SenderAssistant))
		} else {
			slog.Warn("marshal recommendations failed", "error", err)
		}
	}

	conn.Send(protocol.NewEvent(protocol.EventChatComplete, rec.segment.String(), protocol.SenderAssistant))
}

// collectRecommendations pulls product picks out of the produced text:
// first from tagged spans, then from bare JSON the producer left inline.
// Picks are enriched from the catalog so clients get price and imagery.
func (s *Server) collectRecommendations(ctx context.Context, fullText string) []protocol.Product {
	seen := make(map[string]bool)
	var products []protocol.Product

	add := func(ps []protocol.Product) {
		for _, p := range ps {
			key := p.ID
			if key == "" {
				key = p.Name
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			products = append(products, p)
		}
	}

	for _, payload := range extract.ResultPayloads(fullText) {
		if ps, ok := protocol.ParseRecommendations(payload); ok {
			add(ps)
		}
	}
	add(extract.Extract(extract.StripResultTags(fullText)).Products)

	if s.Catalog != nil {
		for i, p := range products {
			if p.ID == "" {
				continue
			}
			row, err := s.Catalog.GetByID(ctx, p.ID)
			if err != nil {
				continue // not in catalog; keep the extracted fields as-is
			}
			products[i] = catalog.Merge(p, row)
		}
	}
	return products
}
