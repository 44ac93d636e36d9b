package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hypershop/shopstream/internal/protocol"
	"github.com/hypershop/shopstream/internal/upload"
)

// handleFileUpload stores each attachment and acks it with a file_saved
// event. A failed attachment produces an error event but does not stop the
// rest of the batch. When the envelope carries a message too, a chat turn
// runs afterwards with the stored files attached.
func (s *Server) handleFileUpload(ctx context.Context, conn *Conn, env protocol.Envelope) {
	for _, att := range env.Files {
		path, err := upload.Save(s.Config.Uploads.Dir, att)
		if err != nil {
			slog.Warn("attachment rejected", "session", conn.UserID, "file", att.Filename, "error", err)
			conn.Send(protocol.NewEvent(protocol.EventError,
				fmt.Sprintf("Could not save %s: %v", att.Filename, err),
				protocol.SenderSystem))
			continue
		}
		conn.AddFile(path)

		evt := protocol.NewEvent(protocol.EventFileSaved,
			fmt.Sprintf("File saved: %s", att.Filename),
			protocol.SenderSystem)
		evt.Data = map[string]any{
			"filename": att.Filename,
			"path":     path,
			"size":     att.Size,
		}
		conn.Send(evt)
	}

	if strings.TrimSpace(env.Message) != "" {
		s.handleChat(ctx, conn, env)
	}
}
