package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hypershop/shopstream/internal/catalog"
	"github.com/hypershop/shopstream/internal/protocol"
)

// CatalogProducer is the built-in assistant: it answers by keyword search
// over the product catalog and emits its picks inside a <results> span,
// the same envelope an LLM-backed producer would use.
type CatalogProducer struct {
	Repo *catalog.Repo
	// ChunkDelay paces stream chunks to mimic token-by-token output.
	// Zero emits as fast as the socket drains; tests rely on that.
	ChunkDelay time.Duration
}

const maxPicks = 3

func (p *CatalogProducer) Produce(ctx context.Context, req Request, emit Emit) error {
	hits, err := p.search(ctx, req.Message)
	if err != nil {
		return fmt.Errorf("catalog search: %w", err)
	}

	if len(hits) == 0 {
		return p.stream(ctx, emit,
			"I couldn't find anything matching that in our catalog. "+
				"Could you tell me a bit more about what you're looking for?")
	}

	if err := p.stream(ctx, emit, "Let me see what we have for that."); err != nil {
		return err
	}
	if err := emit(protocol.NewEvent(protocol.EventMessageBoundary, "Let me see what we have for that.", protocol.SenderAssistant)); err != nil {
		return err
	}
	if err := emit(systemEvt("Using product_search...")); err != nil {
		return err
	}

	var reply strings.Builder
	reply.WriteString("Here's what I found for you:\n")
	for _, h := range hits {
		fmt.Fprintf(&reply, "- %s ($%.2f): %s\n", h.Name, h.Price, h.Description)
	}
	reply.WriteString("\n")
	reply.WriteString(resultsSpan(hits))

	return p.stream(ctx, emit, reply.String())
}

func (p *CatalogProducer) search(ctx context.Context, message string) ([]catalog.Product, error) {
	seen := make(map[string]bool)
	var hits []catalog.Product
	for _, word := range strings.Fields(strings.ToLower(message)) {
		word = strings.Trim(word, ".,!?\"'")
		if len(word) < 4 {
			continue
		}
		found, err := p.Repo.Search(ctx, word, maxPicks)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			if seen[f.ID] || len(hits) >= maxPicks {
				continue
			}
			seen[f.ID] = true
			hits = append(hits, f)
		}
	}
	return hits, nil
}

// stream chops text into word-boundary chunks and emits them as deltas.
func (p *CatalogProducer) stream(ctx context.Context, emit Emit, text string) error {
	const chunkSize = 24
	for len(text) > 0 {
		n := chunkSize
		if n > len(text) {
			n = len(text)
		} else {
			// Extend to the next space so words stay whole.
			for n < len(text) && text[n] != ' ' && text[n] != '\n' {
				n++
			}
		}
		if err := emit(streamEvt(text[:n])); err != nil {
			return err
		}
		text = text[n:]

		if p.ChunkDelay > 0 {
			select {
			case <-time.After(p.ChunkDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// resultsSpan wraps the picks in the machine-readable envelope.
func resultsSpan(hits []catalog.Product) string {
	recs := protocol.Recommendations{}
	for i, h := range hits {
		recs.Recommendations = append(recs.Recommendations, protocol.RecommendedProduct{
			ProductID:       h.ID,
			ProductName:     h.Name,
			Reason:          h.Description,
			ConfidenceScore: 9 - i,
		})
	}
	payload, _ := json.Marshal(recs)
	return "<results>" + string(payload) + "</results>"
}
