package terminal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/antibyte/linebasic/pkg/auth"
	"github.com/antibyte/linebasic/pkg/journal"
	"github.com/antibyte/linebasic/pkg/shared"

	"github.com/gorilla/websocket"
)

type fakeRecorder struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (f *fakeRecorder) Record(ctx context.Context, e journal.Entry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return "id", nil
}

func (f *fakeRecorder) snapshot() []journal.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]journal.Entry(nil), f.entries...)
}

type testServer struct {
	handler  *TerminalHandler
	server   *httptest.Server
	recorder *fakeRecorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	rec := &fakeRecorder{}
	h := NewTerminalHandler(ctx, rec)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(func() {
		h.Shutdown()
		srv.Close()
		cancel()
	})
	return &testServer{handler: h, server: srv, recorder: rec}
}

func (ts *testServer) dial(t *testing.T, sessionID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	token, err := auth.GenerateSessionToken(sessionID)
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

// connect dials and consumes the SESSION and first PROMPT frames.
func (ts *testServer) connect(t *testing.T, sessionID string) *websocket.Conn {
	t.Helper()
	conn, _, err := ts.dial(t, sessionID)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	msg := readMessage(t, conn)
	if msg.Type != shared.MessageTypeSession || msg.SessionID != sessionID {
		t.Fatalf("expected session message for %s, got %+v", sessionID, msg)
	}
	expectPrompt(t, conn, false)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) shared.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg shared.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func expectPrompt(t *testing.T, conn *websocket.Conn, input bool) shared.Message {
	t.Helper()
	msg := readMessage(t, conn)
	if msg.Type != shared.MessageTypePrompt || msg.Input != input {
		t.Fatalf("expected prompt (input=%v), got %+v", input, msg)
	}
	return msg
}

func expectText(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()
	msg := readMessage(t, conn)
	if msg.Type != shared.MessageTypeText || msg.Content != want {
		t.Fatalf("expected text %q, got %+v", want, msg)
	}
}

func sendLine(t *testing.T, conn *websocket.Conn, line string) {
	t.Helper()
	if err := conn.WriteJSON(shared.ClientMessage{Type: shared.ClientMessageInput, Content: line}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func TestSessionRunsProgram(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.connect(t, "run-session")

	sendLine(t, conn, "10 LET A = 1")
	expectPrompt(t, conn, false)
	sendLine(t, conn, "20 PRINT A+2")
	expectPrompt(t, conn, false)
	sendLine(t, conn, "RUN")
	expectText(t, conn, "3")
	expectPrompt(t, conn, false)

	sendLine(t, conn, "LIST")
	expectText(t, conn, "10 LET A = 1")
	expectText(t, conn, "20 PRINT A+2")
	expectPrompt(t, conn, false)
}

func TestSessionInput(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.connect(t, "input-session")

	sendLine(t, conn, "10 INPUT A")
	expectPrompt(t, conn, false)
	sendLine(t, conn, "20 PRINT A*2")
	expectPrompt(t, conn, false)
	sendLine(t, conn, "RUN")

	msg := expectPrompt(t, conn, true)
	if msg.PromptSymbol != "?" {
		t.Errorf("INPUT prompt = %q, want ?", msg.PromptSymbol)
	}
	sendLine(t, conn, "21")
	expectText(t, conn, "42")
	expectPrompt(t, conn, false)
}

func TestSessionReportsErrors(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.connect(t, "error-session")

	sendLine(t, conn, "10 PRINT 1/0")
	expectPrompt(t, conn, false)
	sendLine(t, conn, "RUN")

	msg := readMessage(t, conn)
	if msg.Type != shared.MessageTypeError {
		t.Fatalf("expected error message, got %+v", msg)
	}
	if msg.Code != "DIVISION_BY_ZERO" || msg.Category != "ARITHMETIC ERROR" || msg.LineNumber != 10 {
		t.Errorf("unexpected error frame %+v", msg)
	}
	if !strings.Contains(msg.Content, "IN LINE 10") {
		t.Errorf("error text %q lacks line number", msg.Content)
	}
	expectPrompt(t, conn, false)

	entries := ts.recorder.snapshot()
	if len(entries) != 2 {
		t.Fatalf("journal has %d entries, want 2", len(entries))
	}
	if entries[0].Outcome != journal.OutcomeOK || entries[1].Outcome != journal.OutcomeError {
		t.Errorf("unexpected outcomes %+v", entries)
	}
	if entries[1].SessionID != "error-session" || entries[1].Line != "RUN" {
		t.Errorf("unexpected entry %+v", entries[1])
	}
}

func TestSessionRejectsControlCharacters(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.connect(t, "validator-session")

	sendLine(t, conn, "PRINT \x07")
	msg := readMessage(t, conn)
	if msg.Type != shared.MessageTypeError || !strings.Contains(msg.Content, "control character") {
		t.Fatalf("expected validator error, got %+v", msg)
	}

	sendLine(t, conn, "PRINT 5")
	expectText(t, conn, "5")
}

func TestRejectsMissingOrInvalidToken(t *testing.T) {
	ts := newTestServer(t)
	base := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws"

	for _, url := range []string{base, base + "?token=bogus"} {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Fatalf("Dial(%s) should fail", url)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Dial(%s): expected 401, got %v", url, resp)
		}
	}
}

func TestRejectsSecondConnection(t *testing.T) {
	ts := newTestServer(t)
	ts.connect(t, "dup-session")

	_, resp, err := ts.dial(t, "dup-session")
	if err == nil {
		t.Fatal("second connection for the same session should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %v", resp)
	}
}

func TestDisconnectEndsSession(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.connect(t, "loop-session")

	sendLine(t, conn, "10 GOTO 10")
	expectPrompt(t, conn, false)
	sendLine(t, conn, "RUN")
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for ts.handler.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCheckOrigin(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.com/ws", nil)
	if !checkOrigin(req) {
		t.Error("request without Origin should be accepted")
	}
	req.Header.Set("Origin", "http://example.com")
	if !checkOrigin(req) {
		t.Error("same-host origin should be accepted")
	}
	req.Header.Set("Origin", "http://evil.example")
	if checkOrigin(req) {
		t.Error("foreign origin should be rejected")
	}
}

func TestInputValidator(t *testing.T) {
	v := &InputValidator{maxLength: 10}
	if got, err := v.Clean("PRINT 1\r\n"); err != nil || got != "PRINT 1" {
		t.Errorf("Clean = %q, %v", got, err)
	}
	if _, err := v.Clean(strings.Repeat("A", 11)); err == nil {
		t.Error("expected length error")
	}
	if _, err := v.Clean("A\x00"); err == nil {
		t.Error("expected control character error")
	}
}

func TestRateLimit(t *testing.T) {
	cm := &ClientManager{
		clients:    make(map[string]*Client),
		rateLimits: make(map[string]*rateWindowCount),
		maxClients: 1,
		maxPerMin:  2,
	}
	for i := 0; i < 2; i++ {
		if err := cm.CheckRateLimit("1.2.3.4"); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := cm.CheckRateLimit("1.2.3.4"); !errors.Is(err, errRateLimited) {
		t.Errorf("third request should be limited, got %v", err)
	}
	if err := cm.CheckRateLimit("5.6.7.8"); err != nil {
		t.Errorf("other IP limited: %v", err)
	}

	// an expired window starts over
	cm.rateLimits["1.2.3.4"].start = time.Now().Add(-2 * rateWindow)
	if err := cm.CheckRateLimit("1.2.3.4"); err != nil {
		t.Errorf("expired window still limited: %v", err)
	}
}

func TestRateLimitSweep(t *testing.T) {
	cm := &ClientManager{
		clients:    make(map[string]*Client),
		rateLimits: make(map[string]*rateWindowCount),
		maxPerMin:  5,
	}
	old := time.Now().Add(-2 * rateWindow)
	for i := 0; i < rateLimitSweepSize; i++ {
		cm.rateLimits[fmt.Sprintf("10.0.%d.%d", i/256, i%256)] = &rateWindowCount{requests: 1, start: old}
	}
	if err := cm.CheckRateLimit("192.168.1.1"); err != nil {
		t.Fatal(err)
	}
	if len(cm.rateLimits) != 1 {
		t.Errorf("expired windows kept: %d entries", len(cm.rateLimits))
	}
}

func TestAddClientLimits(t *testing.T) {
	cm := &ClientManager{
		clients:    make(map[string]*Client),
		rateLimits: make(map[string]*rateWindowCount),
		maxClients: 1,
	}
	if err := cm.AddClient(&Client{sessionID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := cm.AddClient(&Client{sessionID: "a"}); !errors.Is(err, errSessionTaken) {
		t.Errorf("duplicate session: got %v", err)
	}
	if err := cm.AddClient(&Client{sessionID: "b"}); !errors.Is(err, errServerFull) {
		t.Errorf("full server: got %v", err)
	}
	first := &Client{sessionID: "a"}
	cm.RemoveClient(first)
	if !cm.HasClient("a") {
		t.Error("RemoveClient dropped a different client of the same session")
	}
}
