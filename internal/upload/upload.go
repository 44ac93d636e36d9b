package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/hypershop/shopstream/internal/protocol"
)

// MaxFileSize caps a single attachment's decoded size.
const MaxFileSize = 10 << 20

var (
	ErrUnsupportedType = errors.New("upload: unsupported file type")
	ErrTooLarge        = errors.New("upload: file exceeds size limit")
)

// extTypes maps file extensions to the MIME types the gateway accepts.
var extTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".json": "application/json",
}

var allowedTypes = map[string]bool{
	"image/jpeg":       true,
	"image/jpg":        true,
	"image/png":        true,
	"image/gif":        true,
	"image/webp":       true,
	"application/pdf":  true,
	"text/plain":       true,
	"application/json": true,
}

// Allowed reports whether the MIME type is accepted for upload.
func Allowed(fileType string) bool {
	return allowedTypes[strings.ToLower(fileType)]
}

// Encode reads and base64-encodes the given files into wire attachments.
// It is all-or-nothing: any unreadable, oversized, or unsupported file
// fails the whole batch so a partial upload never reaches the gateway.
func Encode(paths []string) ([]protocol.FileAttachment, error) {
	attachments := make([]protocol.FileAttachment, 0, len(paths))
	for _, path := range paths {
		att, err := encodeOne(path)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, att)
	}
	return attachments, nil
}

func encodeOne(path string) (protocol.FileAttachment, error) {
	fileType, ok := extTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return protocol.FileAttachment{}, fmt.Errorf("%w: %s", ErrUnsupportedType, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return protocol.FileAttachment{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > MaxFileSize {
		return protocol.FileAttachment{}, fmt.Errorf("%w: %s (%d bytes)", ErrTooLarge, path, len(data))
	}
	return protocol.FileAttachment{
		Filename: filepath.Base(path),
		FileType: fileType,
		FileData: base64.StdEncoding.EncodeToString(data),
		Size:     int64(len(data)),
	}, nil
}

// Save validates and decodes an inbound attachment and writes it under
// dir with a collision-proof name. It returns the stored path.
func Save(dir string, att protocol.FileAttachment) (string, error) {
	if !Allowed(att.FileType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, att.FileType)
	}
	data, err := base64.StdEncoding.DecodeString(att.FileData)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", att.Filename, err)
	}
	if len(data) > MaxFileSize {
		return "", fmt.Errorf("%w: %s (%d bytes)", ErrTooLarge, att.Filename, len(data))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	name := uuid.NewString() + "_" + safeFileName(att.Filename)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("store %s: %w", att.Filename, err)
	}
	return path, nil
}

// safeFileName keeps only filesystem-safe bytes of a client-supplied name.
func safeFileName(name string) string {
	safe := make([]byte, 0, len(name))
	for _, c := range []byte(filepath.Base(name)) {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.' {
			safe = append(safe, c)
		} else {
			safe = append(safe, '_')
		}
	}
	if len(safe) == 0 {
		return "file"
	}
	return string(safe)
}
