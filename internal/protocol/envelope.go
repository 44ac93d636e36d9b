package protocol

import "time"

// Envelope types sent by clients.
const (
	EnvelopeChat       = "chat"
	EnvelopeFileUpload = "file_upload"
)

// FileAttachment is one uploaded file carried inside a file_upload envelope.
// FileData is the base64-encoded binary payload.
type FileAttachment struct {
	Filename string `json:"filename"`
	FileType string `json:"file_type"`
	FileData string `json:"file_data"`
	Size     int64  `json:"size,omitempty"`
}

// Envelope is a structured outbound message sent over the chat channel.
// UserID is the sender's session identifier and doubles as the channel's
// addressing key.
type Envelope struct {
	Type       string           `json:"type"`
	Message    string           `json:"message,omitempty"`
	Files      []FileAttachment `json:"files,omitempty"`
	UserID     string           `json:"user_id"`
	CustomerID string           `json:"customer_id,omitempty"`
	Timestamp  string           `json:"timestamp,omitempty"`
}

// NewChat builds a chat envelope stamped with the current time.
func NewChat(text, userID string) Envelope {
	return Envelope{
		Type:      EnvelopeChat,
		Message:   text,
		UserID:    userID,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// NewFileUpload builds a file_upload envelope. Text is optional; when
// present the gateway processes it as a chat message after saving the files.
func NewFileUpload(text string, files []FileAttachment, userID string) Envelope {
	return Envelope{
		Type:      EnvelopeFileUpload,
		Message:   text,
		Files:     files,
		UserID:    userID,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
