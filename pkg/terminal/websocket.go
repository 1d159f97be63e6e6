package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/antibyte/linebasic/pkg/configuration"
	"github.com/antibyte/linebasic/pkg/logger"
	"github.com/antibyte/linebasic/pkg/shared"

	"github.com/gorilla/websocket"
)

// Hilfsfunktionen für WebSocket-Konfigurationswerte, siehe [Network]
func getWriteWait() time.Duration {
	return configuration.GetDuration("Network", "write_wait_timeout", 10*time.Second)
}

func getPongWait() time.Duration {
	return configuration.GetDuration("Network", "pong_timeout", 90*time.Second)
}

func getPingPeriod() time.Duration {
	return (getPongWait() * 9) / 10
}

func getMaxMessageSize() int64 {
	return int64(configuration.GetInt("Network", "max_message_size_kb", 64) * 1024)
}

func getInputBuffer() int {
	return configuration.GetInt("Network", "input_buffer", 64)
}

// errClientGone is returned by Send once the connection is closed.
var errClientGone = errors.New("client disconnected")

// Client repräsentiert einen verbundenen WebSocket-Client. Er ist zugleich
// die Konsole der Interpreter-Session dieser Verbindung.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	input     chan string
	handler   *TerminalHandler
	ipAddress string
	sessionID string

	shutdown  chan struct{} // closed once, stops both pumps
	closeOnce sync.Once
	cancel    context.CancelFunc
}

func newClient(h *TerminalHandler, conn *websocket.Conn, sessionID, ip string, cancel context.CancelFunc) *Client {
	return &Client{
		conn:      conn,
		send:      make(chan []byte, getInputBuffer()),
		input:     make(chan string, getInputBuffer()),
		handler:   h,
		ipAddress: ip,
		sessionID: sessionID,
		shutdown:  make(chan struct{}),
		cancel:    cancel,
	}
}

// close stops the session and both pumps. Safe to call more than once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.shutdown)
		c.conn.Close()
	})
}

// Send queues msg for the write pump. A client that does not drain its
// queue within the write timeout is disconnected.
func (c *Client) Send(msg shared.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.shutdown:
		return errClientGone
	case <-time.After(getWriteWait()):
		logger.TerminalWarn("Send timeout for client %s, closing", c.ipAddress)
		go c.close()
		return errClientGone
	}
}

// WriteLine sends one line of program output.
func (c *Client) WriteLine(s string) error {
	return c.Send(shared.Message{Type: shared.MessageTypeText, Content: s})
}

// ReadLine asks the client for an INPUT value and waits for the next line.
func (c *Client) ReadLine(prompt string) (string, error) {
	if err := c.Send(shared.Message{Type: shared.MessageTypePrompt, PromptSymbol: prompt, Input: true}); err != nil {
		return "", err
	}
	return c.nextLine()
}

// nextLine waits for the next line from the read pump.
func (c *Client) nextLine() (string, error) {
	select {
	case line := <-c.input:
		return line, nil
	case <-c.shutdown:
		return "", io.EOF
	}
}

// readPump liest Nachrichten vom WebSocket und reicht Eingabezeilen an die
// Session weiter
func (c *Client) readPump() {
	defer c.handler.cleanupClient(c)

	c.conn.SetReadLimit(getMaxMessageSize())
	c.conn.SetReadDeadline(time.Now().Add(getPongWait()))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(getPongWait()))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.TerminalWarn("Unexpected close error for client %s: %v", c.ipAddress, err)
			} else {
				logger.TerminalDebug("Normal close for client %s: %v", c.ipAddress, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var request shared.ClientMessage
		if err := json.Unmarshal(message, &request); err != nil {
			logger.TerminalWarn("Failed to parse JSON from client %s: %v", c.ipAddress, err)
			continue
		}
		if request.Type != shared.ClientMessageInput {
			logger.TerminalDebug("Ignoring message type %q from %s", request.Type, c.ipAddress)
			continue
		}

		line, err := c.handler.validator.Clean(request.Content)
		if err != nil {
			logger.TerminalWarn("[SECURITY] Rejected input from %s: %v", c.ipAddress, err)
			c.Send(shared.Message{Type: shared.MessageTypeError, Content: "Access denied: " + err.Error()})
			continue
		}

		select {
		case c.input <- line:
		case <-c.shutdown:
			return
		}
	}
}

// writePump schreibt Nachrichten aus dem send-Kanal auf den WebSocket und
// hält die Verbindung mit Pings am Leben
func (c *Client) writePump() {
	ticker := time.NewTicker(getPingPeriod())
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.TerminalDebug("Write to client %s failed: %v", c.ipAddress, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(getWriteWait()))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.TerminalError("Failed to send ping to client %s: %v", c.ipAddress, err)
				return
			}
		case <-c.shutdown:
			return
		}
	}
}
