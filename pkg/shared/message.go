package shared

// MessageType definiert den Typ einer Nachricht für die WebSocket-Kommunikation.
type MessageType int

// Werte bleiben stabil, Clients schalten darauf.
const (
	MessageTypeText    MessageType = 0  // Textausgabe, eine Zeile pro Nachricht
	MessageTypeSession MessageType = 8  // Session-ID Übermittlung nach dem Verbindungsaufbau
	MessageTypePrompt  MessageType = 12 // Eingabe erwartet (Direktmodus oder INPUT)
	MessageTypeError   MessageType = 32 // Fehlermeldung des Interpreters
)

// Message repräsentiert eine Nachricht, die über WebSocket gesendet wird.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`

	// Für SESSION
	SessionID string `json:"sessionId,omitempty"`

	// Für PROMPT: das anzuzeigende Symbol und ob ein INPUT-Befehl wartet
	PromptSymbol string `json:"promptSymbol,omitempty"`
	Input        bool   `json:"input,omitempty"`

	// Für ERROR: Kategorie und Code aus tinybasic.BASICError
	Category   string `json:"category,omitempty"`
	Code       string `json:"code,omitempty"`
	LineNumber int    `json:"lineNumber,omitempty"`
}

// ClientMessage ist eine Nachricht vom Client. Zurzeit gibt es nur "input".
type ClientMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ClientMessageInput markiert eine eingegebene Zeile.
const ClientMessageInput = "input"
