package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Identity is the client's stable chat identity. The session ID doubles as
// the user_id on the wire; the customer ID is optional and links the chat
// to a storefront account for personalized recommendations.
type Identity struct {
	SessionID  string    `json:"session_id"`
	CustomerID string    `json:"customer_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists the identity to a single JSON file so the session
// survives restarts. All writes go through an atomic tmp+rename.
type Store struct {
	mu    sync.Mutex
	path  string
	ident Identity
}

func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "session.json")}
}

// Load reads the persisted identity, generating and persisting a fresh one
// when the file is missing or unreadable as JSON.
func (s *Store) Load() (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err == nil {
		var ident Identity
		if jerr := json.Unmarshal(data, &ident); jerr == nil && validSessionID(ident.SessionID) {
			s.ident = ident
			return ident, nil
		}
		// Corrupt or foreign file: start over rather than fail the client.
	} else if !os.IsNotExist(err) {
		return Identity{}, fmt.Errorf("read session file: %w", err)
	}

	s.ident = newIdentity()
	if err := s.save(); err != nil {
		return Identity{}, err
	}
	return s.ident, nil
}

// Current returns the identity loaded or generated by Load.
func (s *Store) Current() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ident
}

// SetCustomerID links the session to a storefront account and persists it.
// An empty id unlinks.
func (s *Store) SetCustomerID(id string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ident.CustomerID = id
	if err := s.save(); err != nil {
		return Identity{}, err
	}
	return s.ident, nil
}

// Clear discards the current identity and persists a fresh one. The
// gateway treats the new session ID as a brand-new conversation.
func (s *Store) Clear() (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ident = newIdentity()
	if err := s.save(); err != nil {
		return Identity{}, err
	}
	return s.ident, nil
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.ident, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session file: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmpPath, s.path)
}

func newIdentity() Identity {
	return Identity{
		SessionID: "sess_" + uuid.NewString(),
		CreatedAt: time.Now(),
	}
}

func validSessionID(id string) bool {
	return strings.HasPrefix(id, "sess_") && len(id) > len("sess_")
}
