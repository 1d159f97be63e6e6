// Package terminal serves interpreter sessions over WebSocket. Every
// connection owns one TinyBASIC session for its lifetime.
package terminal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antibyte/linebasic/pkg/auth"
	"github.com/antibyte/linebasic/pkg/configuration"
	"github.com/antibyte/linebasic/pkg/journal"
	"github.com/antibyte/linebasic/pkg/logger"
	"github.com/antibyte/linebasic/pkg/shared"
	"github.com/antibyte/linebasic/pkg/tinybasic"

	"github.com/gorilla/websocket"
)

// Recorder stores interpreted lines. *journal.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (string, error)
}

// TerminalHandler verwaltet WebSocket-Verbindungen und Terminal-Sitzungen
type TerminalHandler struct {
	ctx       context.Context
	recorder  Recorder
	clients   *ClientManager
	validator *InputValidator
	upgrader  websocket.Upgrader
	basic     tinybasic.Config
	prompt    string
}

// NewTerminalHandler erstellt einen neuen TerminalHandler. Sessions end when
// ctx is cancelled. recorder may be nil.
func NewTerminalHandler(ctx context.Context, recorder Recorder) *TerminalHandler {
	h := &TerminalHandler{
		ctx:       ctx,
		recorder:  recorder,
		clients:   NewClientManager(),
		validator: NewInputValidator(),
		basic: tinybasic.Config{
			MaxGosubDepth: configuration.GetInt("Interpreter", "max_gosub_depth", tinybasic.MaxGosubDepth),
			InputPrompt:   configuration.GetString("Interpreter", "input_prompt", tinybasic.DefaultInputPrompt),
		},
		prompt: configuration.GetString("Interpreter", "prompt", ">"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin,
	}
	return h
}

// checkOrigin accepts clients without an Origin header, origins listed in
// [Server] allowed_origins, and otherwise only the serving host.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	allowed := configuration.GetString("Server", "allowed_origins", "")
	if allowed != "" {
		for _, o := range strings.Split(allowed, ",") {
			if strings.TrimSpace(o) == origin {
				return true
			}
		}
		logger.TerminalWarn("WebSocket request from disallowed origin rejected: %s", origin)
		return false
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// clientIP ermittelt die IP-Adresse des Clients
func clientIP(r *http.Request) string {
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		return strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// HandleWebSocket validates the session token, upgrades the connection and
// runs the session until either side closes.
func (h *TerminalHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ipAddress := clientIP(r)
	logger.TerminalDebug("New WebSocket connection attempt from %s", ipAddress)

	if err := h.clients.CheckRateLimit(ipAddress); err != nil {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	token, err := auth.ExtractTokenFromRequest(r)
	if err != nil {
		logger.TerminalWarn("WebSocket request without token from %s", ipAddress)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		logger.TerminalWarn("Invalid token in WebSocket request from %s: %v", ipAddress, err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if h.clients.HasClient(claims.SessionID) {
		http.Error(w, "Session already connected", http.StatusConflict)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.TerminalError("WebSocket upgrade failed for %s: %v", ipAddress, err)
		return
	}

	ctx, cancel := context.WithCancel(h.ctx)
	client := newClient(h, conn, claims.SessionID, ipAddress, cancel)
	if err := h.clients.AddClient(client); err != nil {
		logger.TerminalWarn("Rejecting session %s: %v", claims.SessionID, err)
		code := websocket.CloseTryAgainLater
		if errors.Is(err, errSessionTaken) {
			// zwischen HasClient und AddClient verbunden
			code = websocket.ClosePolicyViolation
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, err.Error()),
			time.Now().Add(time.Second))
		client.close()
		return
	}
	logger.TerminalInfo("Session %s connected from %s", claims.SessionID, ipAddress)

	go client.writePump()
	go h.runSession(ctx, client)
	client.readPump()
}

// cleanupClient entfernt einen Client und beendet seine Session
func (h *TerminalHandler) cleanupClient(c *Client) {
	h.clients.RemoveClient(c)
	c.close()
	logger.TerminalInfo("Session %s disconnected", c.sessionID)
}

// Shutdown closes every open session.
func (h *TerminalHandler) Shutdown() {
	h.clients.CloseAll()
}

// ClientCount returns the number of connected sessions.
func (h *TerminalHandler) ClientCount() int {
	return h.clients.GetClientCount()
}

// runSession is the interpreter loop of one connection: prompt, read a
// line, interpret it, report errors.
func (h *TerminalHandler) runSession(ctx context.Context, c *Client) {
	defer c.close()

	cfg := h.basic
	cfg.SessionID = c.sessionID
	b := tinybasic.NewTinyBASIC(ctx, c, cfg)

	if err := c.Send(shared.Message{Type: shared.MessageTypeSession, SessionID: c.sessionID}); err != nil {
		return
	}

	for {
		if err := c.Send(shared.Message{Type: shared.MessageTypePrompt, PromptSymbol: h.prompt}); err != nil {
			return
		}
		line, err := c.nextLine()
		if err != nil {
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		err = b.InterpretLine(line)
		h.record(c.sessionID, line, err)
		if err == nil {
			continue
		}
		if errors.Is(err, errClientGone) || ctx.Err() != nil {
			return
		}
		if err := c.Send(errorMessage(err)); err != nil {
			return
		}
	}
}

// errorMessage converts an interpreter error into an ERROR frame.
func errorMessage(err error) shared.Message {
	msg := shared.Message{Type: shared.MessageTypeError, Content: err.Error()}
	var be *tinybasic.BASICError
	if errors.As(err, &be) {
		msg.Category = be.Kind.Category()
		msg.Code = be.Code
		msg.LineNumber = be.LineNumber
	}
	return msg
}

func (h *TerminalHandler) record(sessionID, line string, err error) {
	if h.recorder == nil {
		return
	}
	entry := journal.Entry{SessionID: sessionID, Line: line, Outcome: journal.OutcomeOK}
	if err != nil {
		entry.Outcome = journal.OutcomeError
		entry.ErrorText = err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, rerr := h.recorder.Record(ctx, entry); rerr != nil {
		logger.Warn(logger.AreaJournal, "[%s] journal write failed: %v", sessionID, rerr)
	}
}
