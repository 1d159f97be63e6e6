package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/antibyte/linebasic/pkg/logger"

	"github.com/google/uuid"
)

// SessionRequest definiert die Struktur für Session-Anfragen
type SessionRequest struct {
	Password string `json:"password,omitempty"`
}

// SessionResponse definiert die Struktur für Session-Antworten
type SessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId,omitempty"`
	Token     string `json:"token,omitempty"`
	Message   string `json:"message"`
}

// HandleCreateSession creates a new interpreter session and returns its ID
// together with a signed token for the WebSocket handshake.
func HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		logger.AuthWarn("Invalid method for session creation: %s", r.Method)
		respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Ein leerer Body ist erlaubt, solange kein Passwort verlangt wird
	var req SessionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.AuthWarn("Invalid JSON in session request: %v", err)
		respondWithError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	clientIP := getClientIP(r)
	if err := CheckAccessPassword(accessPasswordHash(), req.Password); err != nil {
		logger.AuthWarn("Rejected session request from %s: %v", clientIP, err)
		respondWithError(w, "Access denied", http.StatusUnauthorized)
		return
	}

	sessionID := uuid.New().String()
	token, err := GenerateSessionToken(sessionID)
	if err != nil {
		logger.AuthError("Failed to generate JWT token for session %s: %v", sessionID, err)
		respondWithError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(getTokenExpiration().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	logger.AuthInfo("New session created: %s for IP: %s", sessionID, clientIP)
	json.NewEncoder(w).Encode(SessionResponse{
		Success:   true,
		SessionID: sessionID,
		Token:     token,
		Message:   "Session created successfully",
	})
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Content-Type", "application/json")
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

// respondWithError sendet eine Fehlerantwort als JSON
func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(SessionResponse{
		Success: false,
		Message: message,
	})
}
