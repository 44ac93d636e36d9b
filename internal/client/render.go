package client

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hypershop/shopstream/internal/stream"
)

// renderer prints reconstructed messages to a terminal. Streaming updates
// arrive as ever-longer views of the same message, so it prints the delta
// when the new text extends the old and rewrites the line when filtering
// shortened it.
type renderer struct {
	mu       sync.Mutex
	out      io.Writer
	openID   string // message currently being streamed onto the line
	lastText string
}

func (r *renderer) render(m stream.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.Streaming {
		if m.ID != r.openID {
			fmt.Fprint(r.out, "\nassistant> ")
			r.openID = m.ID
			r.lastText = ""
		}
		r.printDelta(m.Text)
		return
	}

	if m.ID == r.openID {
		// The streamed message just sealed; finish its line.
		r.printDelta(m.Text)
		fmt.Fprintln(r.out)
	} else {
		fmt.Fprintf(r.out, "\n%s> %s\n", m.Role, m.Text)
	}
	r.openID = ""
	r.lastText = ""

	for _, p := range m.Products {
		fmt.Fprintf(r.out, "  • %s", p.Name)
		if p.Price > 0 {
			fmt.Fprintf(r.out, " ($%.2f)", p.Price)
		}
		if p.Description != "" {
			fmt.Fprintf(r.out, ": %s", p.Description)
		}
		fmt.Fprintln(r.out)
	}
}

func (r *renderer) printDelta(text string) {
	if strings.HasPrefix(text, r.lastText) {
		fmt.Fprint(r.out, text[len(r.lastText):])
	} else {
		// Filtering shrank the view (a tagged span closed); rewrite.
		fmt.Fprintf(r.out, "\r\033[Kassistant> %s", text)
	}
	r.lastText = text
}

func (r *renderer) waiting(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if on {
		fmt.Fprint(r.out, "\n(assistant is thinking...)")
	}
}

func (r *renderer) status(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "\n%s\n", s)
}
