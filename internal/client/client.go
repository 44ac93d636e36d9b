package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hypershop/shopstream/internal/channel"
	"github.com/hypershop/shopstream/internal/config"
	"github.com/hypershop/shopstream/internal/protocol"
	"github.com/hypershop/shopstream/internal/session"
	"github.com/hypershop/shopstream/internal/stream"
	"github.com/hypershop/shopstream/internal/upload"
)

// Client is the interactive terminal chat client. It wires a channel, a
// reconstructor, and the persisted session identity together and renders
// reconstructed messages as they evolve.
type Client struct {
	Config *config.Config
	In     io.Reader
	Out    io.Writer

	store *session.Store
	ch    *channel.Channel
	rec   *stream.Reconstructor
	rend  *renderer
}

func New(cfg *config.Config, in io.Reader, out io.Writer) *Client {
	return &Client{Config: cfg, In: in, Out: out}
}

// Run connects and processes stdin commands until EOF or /quit.
func (c *Client) Run(ctx context.Context) error {
	c.store = session.NewStore(config.SessionDir())
	ident, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	c.rend = &renderer{out: c.Out}
	c.rec = stream.NewReconstructor()
	c.rec.OnUpdate = c.rend.render
	c.rec.OnWaiting = c.rend.waiting

	if err := c.connect(ctx, ident); err != nil {
		return err
	}
	defer c.ch.Disconnect()

	fmt.Fprintf(c.Out, "Connected as %s. Type a message, or /help for commands.\n", ident.SessionID)

	scanner := bufio.NewScanner(c.In)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for {
		fmt.Fprint(c.Out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/help":
			c.printHelp()
		case line == "/clear":
			if err := c.resetSession(ctx); err != nil {
				fmt.Fprintf(c.Out, "could not reset session: %v\n", err)
			}
		case strings.HasPrefix(line, "/customer"):
			c.setCustomer(strings.TrimSpace(strings.TrimPrefix(line, "/customer")))
		case strings.HasPrefix(line, "/upload"):
			c.sendUpload(strings.TrimSpace(strings.TrimPrefix(line, "/upload")))
		case strings.HasPrefix(line, "/"):
			fmt.Fprintf(c.Out, "unknown command %s; try /help\n", strings.Fields(line)[0])
		default:
			c.sendChat(line)
		}
	}
}

func (c *Client) connect(ctx context.Context, ident session.Identity) error {
	url := strings.TrimSuffix(c.Config.Client.GatewayURL, "/") + "/" + ident.SessionID
	ch := channel.New(url)
	ch.ReconnectDelay = time.Duration(c.Config.Client.ReconnectDelayMs) * time.Millisecond
	ch.MaxReconnects = c.Config.Client.MaxReconnects
	ch.SubscribeState(func(s channel.State) {
		if s != channel.StateConnecting {
			c.rend.status(fmt.Sprintf("[%s]", s))
		}
	})
	// The channel dispatches sequentially on its read pump, which is
	// exactly the single-consumer contract the reconstructor requires.
	// Status notices are rendered here; the reconstructor discards them.
	ch.Subscribe(c.renderNotices)
	ch.Subscribe(c.rec.Handle)

	if err := ch.Connect(ctx); err != nil {
		return err
	}
	c.ch = ch
	return nil
}

// renderNotices prints status traffic that never becomes a chat bubble:
// non-progress system notices (the welcome message), file acks, and errors.
// Progress notices end in "..." and are covered by the waiting indicator.
func (c *Client) renderNotices(evt protocol.Event) {
	switch evt.Type {
	case protocol.EventSystem:
		if !strings.HasSuffix(evt.Message, "...") {
			c.rend.status(evt.Message)
		}
	case protocol.EventFileSaved:
		c.rend.status(evt.Message)
	case protocol.EventError:
		c.rend.status("error: " + evt.Message)
	}
}

func (c *Client) sendChat(text string) {
	ident := c.store.Current()
	env := protocol.NewChat(text, ident.SessionID)
	env.CustomerID = ident.CustomerID
	if err := c.ch.Send(env); err != nil {
		fmt.Fprintf(c.Out, "send failed: %v\n", err)
		return
	}
	// Local echo: the gateway does not mirror the user's own messages.
	c.rec.Handle(protocol.NewEvent(protocol.EventChat, text, ident.SessionID))
	c.rec.BeginTurn()
}

// sendUpload handles "/upload <path>... [-- message]".
func (c *Client) sendUpload(args string) {
	var message string
	if i := strings.Index(args, "--"); i >= 0 {
		message = strings.TrimSpace(args[i+2:])
		args = args[:i]
	}
	paths := strings.Fields(args)
	if len(paths) == 0 {
		fmt.Fprintln(c.Out, "usage: /upload <path>... [-- message]")
		return
	}

	atts, err := upload.Encode(paths)
	if err != nil {
		fmt.Fprintf(c.Out, "upload failed: %v\n", err)
		return
	}

	ident := c.store.Current()
	env := protocol.NewFileUpload(message, atts, ident.SessionID)
	env.CustomerID = ident.CustomerID
	if err := c.ch.Send(env); err != nil {
		fmt.Fprintf(c.Out, "send failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.Out, "uploading %d file(s)...\n", len(atts))
	if message != "" {
		c.rec.Handle(protocol.NewEvent(protocol.EventChat, message, ident.SessionID))
		c.rec.BeginTurn()
	}
}

// resetSession regenerates the identity and reconnects under the new one.
func (c *Client) resetSession(ctx context.Context) error {
	ident, err := c.store.Clear()
	if err != nil {
		return err
	}
	c.ch.Disconnect()
	if err := c.connect(ctx, ident); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "started fresh session %s\n", ident.SessionID)
	return nil
}

func (c *Client) setCustomer(id string) {
	ident, err := c.store.SetCustomerID(id)
	if err != nil {
		fmt.Fprintf(c.Out, "could not save customer id: %v\n", err)
		return
	}
	if ident.CustomerID == "" {
		fmt.Fprintln(c.Out, "customer id cleared")
	} else {
		fmt.Fprintf(c.Out, "customer id set to %s\n", ident.CustomerID)
	}
}

func (c *Client) printHelp() {
	fmt.Fprintln(c.Out, "commands:")
	fmt.Fprintln(c.Out, "  /upload <path>... [-- message]   upload files, optionally with a message")
	fmt.Fprintln(c.Out, "  /customer [id]                   link (or clear) a storefront account")
	fmt.Fprintln(c.Out, "  /clear                           start a fresh session")
	fmt.Fprintln(c.Out, "  /quit                            exit")
}
