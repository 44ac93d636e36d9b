package client

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hypershop/shopstream/internal/protocol"
	"github.com/hypershop/shopstream/internal/stream"
)

func TestRendererStreamsDeltas(t *testing.T) {
	var buf bytes.Buffer
	r := &renderer{out: &buf}

	rec := stream.NewReconstructor()
	rec.OnUpdate = r.render

	rec.Handle(protocol.NewEvent(protocol.EventStream, "Hello", protocol.SenderAssistant))
	rec.Handle(protocol.NewEvent(protocol.EventStream, ", world", protocol.SenderAssistant))
	rec.Handle(protocol.NewEvent(protocol.EventChatComplete, "Hello, world", protocol.SenderAssistant))

	out := buf.String()
	if !strings.Contains(out, "assistant> Hello, world") {
		t.Fatalf("unexpected output: %q", out)
	}
	// Deltas are appended, not reprinted: the full text appears once.
	if strings.Count(out, "Hello") != 1 {
		t.Fatalf("text reprinted: %q", out)
	}
}

func TestRendererRewritesWhenViewShrinks(t *testing.T) {
	var buf bytes.Buffer
	r := &renderer{out: &buf}

	rec := stream.NewReconstructor()
	rec.OnUpdate = r.render

	rec.Handle(protocol.NewEvent(protocol.EventStream, "Picks <res", protocol.SenderAssistant))
	rec.Handle(protocol.NewEvent(protocol.EventStream, "ults>{", protocol.SenderAssistant))
	rec.Handle(protocol.NewEvent(protocol.EventStream, "}</results> done", protocol.SenderAssistant))

	out := buf.String()
	if !strings.Contains(out, "\r") {
		t.Fatalf("expected a line rewrite: %q", out)
	}
	if !strings.HasSuffix(out, "Picks  done") {
		t.Fatalf("final view wrong: %q", out)
	}
}

func TestRendererShowsProducts(t *testing.T) {
	var buf bytes.Buffer
	r := &renderer{out: &buf}

	rec := stream.NewReconstructor()
	rec.OnUpdate = r.render

	payload := `{"recommendations":[{"product_id":"A1","product_name":"Omega-3","reason":"heart health","confidence_score":8}]}`
	rec.Handle(protocol.NewEvent(protocol.EventRecommendations, payload, protocol.SenderAssistant))

	out := buf.String()
	if !strings.Contains(out, "Recommendations updated") {
		t.Fatalf("notice missing: %q", out)
	}
	if !strings.Contains(out, "• Omega-3") || !strings.Contains(out, "heart health") {
		t.Fatalf("product bullet missing: %q", out)
	}
}
