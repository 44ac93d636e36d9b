package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hypershop/shopstream/internal/catalog"
	"github.com/hypershop/shopstream/internal/config"
	"github.com/hypershop/shopstream/internal/protocol"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Uploads.Dir = t.TempDir()

	db, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	repo := catalog.NewRepo(db)
	if err := repo.Seed(context.Background()); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	s := NewServer(cfg, repo, &CatalogProducer{Repo: repo})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func dialChat(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/" + userID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) protocol.Event {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var evt protocol.Event
	if err := ws.ReadJSON(&evt); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return evt
}

// readTurn collects events until chat_complete.
func readTurn(t *testing.T, ws *websocket.Conn) []protocol.Event {
	t.Helper()
	var events []protocol.Event
	for {
		evt := readEvent(t, ws)
		events = append(events, evt)
		if evt.Type == protocol.EventChatComplete {
			return events
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestProductEndpoints(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/products/VIT001")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	var p catalog.Product
	json.NewDecoder(resp.Body).Decode(&p)
	resp.Body.Close()
	if p.Name != "Daily Multivitamin" {
		t.Fatalf("unexpected product: %+v", p)
	}

	resp, _ = http.Get(srv.URL + "/products/NOPE")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp, _ = http.Get(srv.URL + "/products?q=protein")
	var search struct {
		Products []catalog.Product `json:"products"`
	}
	json.NewDecoder(resp.Body).Decode(&search)
	resp.Body.Close()
	if len(search.Products) != 1 || search.Products[0].ID != "PRO001" {
		t.Fatalf("unexpected search result: %+v", search.Products)
	}

	resp, _ = http.Get(srv.URL + "/products")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without query, got %d", resp.StatusCode)
	}
}

func TestChatTurnOverWebSocket(t *testing.T) {
	_, srv := newTestServer(t)
	ws := dialChat(t, srv, "sess_test")

	welcome := readEvent(t, ws)
	if welcome.Type != protocol.EventSystem || !strings.HasPrefix(welcome.Message, "Welcome") {
		t.Fatalf("expected welcome, got %+v", welcome)
	}

	if err := ws.WriteJSON(protocol.NewChat("I need a protein supplement", "sess_test")); err != nil {
		t.Fatalf("send: %v", err)
	}
	events := readTurn(t, ws)

	if events[0].Type != protocol.EventSystem || events[0].Message != "Assistant is thinking..." {
		t.Fatalf("expected thinking notice first, got %+v", events[0])
	}

	var sawBoundary, sawToolNotice, sawRecs bool
	var streamed strings.Builder
	for _, evt := range events {
		switch evt.Type {
		case protocol.EventStream:
			streamed.WriteString(evt.Message)
		case protocol.EventMessageBoundary:
			sawBoundary = true
		case protocol.EventSystem:
			if strings.HasPrefix(evt.Message, "Using ") {
				sawToolNotice = true
			}
		case protocol.EventRecommendations:
			sawRecs = true
			products, ok := protocol.ParseRecommendations(evt.Message)
			if !ok || len(products) == 0 {
				t.Fatalf("bad recommendations payload: %q", evt.Message)
			}
			if products[0].ID != "PRO001" {
				t.Fatalf("unexpected pick: %+v", products[0])
			}
		}
	}
	if !sawBoundary || !sawToolNotice || !sawRecs {
		t.Fatalf("missing turn phases: boundary=%v tool=%v recs=%v", sawBoundary, sawToolNotice, sawRecs)
	}

	if !strings.Contains(streamed.String(), "<results>") {
		t.Fatal("expected tagged span in the raw stream")
	}

	final := events[len(events)-1]
	if !strings.Contains(final.Message, "Whey Protein Isolate") {
		t.Fatalf("chat_complete missing reply text: %q", final.Message)
	}
	if strings.Contains(final.Message, "Let me see what we have") {
		t.Fatal("chat_complete should only carry the segment after the boundary")
	}
}

func TestChatTurnWithoutMatches(t *testing.T) {
	_, srv := newTestServer(t)
	ws := dialChat(t, srv, "sess_test")
	readEvent(t, ws) // welcome

	ws.WriteJSON(protocol.NewChat("xyzzy plugh", "sess_test"))
	events := readTurn(t, ws)

	for _, evt := range events {
		if evt.Type == protocol.EventRecommendations {
			t.Fatalf("unexpected recommendations: %+v", evt)
		}
	}
	final := events[len(events)-1]
	if !strings.Contains(final.Message, "couldn't find anything") {
		t.Fatalf("unexpected reply: %q", final.Message)
	}
}

func TestFileUpload(t *testing.T) {
	s, srv := newTestServer(t)
	ws := dialChat(t, srv, "sess_test")
	readEvent(t, ws) // welcome

	att := protocol.FileAttachment{
		Filename: "wishlist.txt",
		FileType: "text/plain",
		FileData: base64.StdEncoding.EncodeToString([]byte("protein, omega-3")),
		Size:     16,
	}
	ws.WriteJSON(protocol.NewFileUpload("", []protocol.FileAttachment{att}, "sess_test"))

	evt := readEvent(t, ws)
	if evt.Type != protocol.EventFileSaved {
		t.Fatalf("expected file_saved, got %+v", evt)
	}
	path, _ := evt.Data["path"].(string)
	if path == "" {
		t.Fatalf("file_saved missing path: %+v", evt.Data)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "protein, omega-3" {
		t.Fatalf("stored file wrong: %q, %v", data, err)
	}
	if filepath.Dir(path) != s.Config.Uploads.Dir {
		t.Fatalf("file stored outside upload dir: %s", path)
	}
}

func TestFileUploadRejectsBadType(t *testing.T) {
	_, srv := newTestServer(t)
	ws := dialChat(t, srv, "sess_test")
	readEvent(t, ws) // welcome

	att := protocol.FileAttachment{
		Filename: "malware.exe",
		FileType: "application/x-msdownload",
		FileData: base64.StdEncoding.EncodeToString([]byte("MZ")),
	}
	ws.WriteJSON(protocol.NewFileUpload("", []protocol.FileAttachment{att}, "sess_test"))

	evt := readEvent(t, ws)
	if evt.Type != protocol.EventError {
		t.Fatalf("expected error event, got %+v", evt)
	}
}

func TestMalformedAndUnknownEnvelopes(t *testing.T) {
	_, srv := newTestServer(t)
	ws := dialChat(t, srv, "sess_test")
	readEvent(t, ws) // welcome

	ws.WriteMessage(websocket.TextMessage, []byte("not json"))
	evt := readEvent(t, ws)
	if evt.Type != protocol.EventError || evt.Message != "Invalid message format" {
		t.Fatalf("expected format error, got %+v", evt)
	}

	ws.WriteJSON(map[string]any{"type": "telepathy", "message": "hi"})
	evt = readEvent(t, ws)
	if evt.Type != protocol.EventError || !strings.Contains(evt.Message, "telepathy") {
		t.Fatalf("expected unknown type error, got %+v", evt)
	}
}

func TestEmptyChatMessage(t *testing.T) {
	_, srv := newTestServer(t)
	ws := dialChat(t, srv, "sess_test")
	readEvent(t, ws) // welcome

	ws.WriteJSON(protocol.NewChat("   ", "sess_test"))
	evt := readEvent(t, ws)
	if evt.Type != protocol.EventError {
		t.Fatalf("expected error for empty message, got %+v", evt)
	}
}

func TestSweepUploads(t *testing.T) {
	s, _ := newTestServer(t)
	dir := s.Config.Uploads.Dir

	old := filepath.Join(dir, "old.txt")
	fresh := filepath.Join(dir, "fresh.txt")
	os.WriteFile(old, []byte("x"), 0644)
	os.WriteFile(fresh, []byte("y"), 0644)
	stale := time.Now().Add(-time.Duration(s.Config.Uploads.RetainHours+1) * time.Hour)
	os.Chtimes(old, stale, stale)

	s.sweepUploads()

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("stale upload not removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("fresh upload removed")
	}
}
