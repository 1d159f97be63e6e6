package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// withAccessHash swaps the configured access password hash for one test.
func withAccessHash(t *testing.T, hash string) {
	t.Helper()
	prev := accessPasswordHash
	accessPasswordHash = func() string { return hash }
	t.Cleanup(func() { accessPasswordHash = prev })
}

// TestJWTTokenGeneration tests JWT token creation and validation
func TestJWTTokenGeneration(t *testing.T) {
	sessionID := "test-session-123"

	token, err := GenerateSessionToken(sessionID)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("Generated token should not be empty")
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.SessionID != sessionID {
		t.Errorf("Expected session ID %s, got %s", sessionID, claims.SessionID)
	}
	if claims.Issuer != tokenIssuer {
		t.Errorf("Expected issuer %s, got %s", tokenIssuer, claims.Issuer)
	}
}

func signClaims(t *testing.T, method jwt.SigningMethod, key interface{}, claims SessionClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

// TestRejectedTokens covers tokens that must not validate
func TestRejectedTokens(t *testing.T) {
	now := time.Now()
	base := func() SessionClaims {
		return SessionClaims{
			SessionID: "s1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(now),
				Issuer:    tokenIssuer,
			},
		}
	}
	secret := []byte(getJWTSecret())

	expired := base()
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))

	foreign := base()
	foreign.Issuer = "tinyos"

	noExpiry := base()
	noExpiry.ExpiresAt = nil

	noSession := base()
	noSession.SessionID = ""

	testCases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "invalid.token.here"},
		{"expired", signClaims(t, jwt.SigningMethodHS256, secret, expired)},
		{"foreign issuer", signClaims(t, jwt.SigningMethodHS256, secret, foreign)},
		{"no expiry", signClaims(t, jwt.SigningMethodHS256, secret, noExpiry)},
		{"no session", signClaims(t, jwt.SigningMethodHS256, secret, noSession)},
		{"wrong secret", signClaims(t, jwt.SigningMethodHS256, []byte("other"), base())},
		{"alg none", signClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, base())},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ValidateToken(tc.token); err == nil {
				t.Errorf("Token %q should be rejected", tc.name)
			}
		})
	}
}

// TestSessionCreationHandler tests the session creation endpoint
func TestSessionCreationHandler(t *testing.T) {
	withAccessHash(t, "")

	for _, body := range []string{"", "{}"} {
		req := httptest.NewRequest("POST", "/api/session", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		HandleCreateSession(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("body %q: expected status 200, got %d", body, w.Code)
		}

		var response SessionResponse
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
		if !response.Success || response.SessionID == "" {
			t.Fatalf("unexpected response %+v", response)
		}

		claims, err := ValidateToken(response.Token)
		if err != nil {
			t.Fatalf("Returned token should be valid: %v", err)
		}
		if claims.SessionID != response.SessionID {
			t.Errorf("Token session %s does not match %s", claims.SessionID, response.SessionID)
		}
		if !strings.Contains(w.Header().Get("Set-Cookie"), cookieName+"=") {
			t.Error("Expected session cookie to be set")
		}
	}
}

// TestSessionCreationPassword checks the bcrypt access password
func TestSessionCreationPassword(t *testing.T) {
	hash, err := HashPassword("letmein")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	withAccessHash(t, hash)

	testCases := []struct {
		name         string
		body         string
		expectedCode int
	}{
		{"correct password", `{"password":"letmein"}`, http.StatusOK},
		{"wrong password", `{"password":"nope"}`, http.StatusUnauthorized},
		{"missing password", `{}`, http.StatusUnauthorized},
		{"invalid json", `{"password":`, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/session", bytes.NewBufferString(tc.body))
			w := httptest.NewRecorder()
			HandleCreateSession(w, req)

			if w.Code != tc.expectedCode {
				t.Errorf("Expected status %d, got %d", tc.expectedCode, w.Code)
			}
		})
	}
}

func TestSessionCreationMethods(t *testing.T) {
	withAccessHash(t, "")

	req := httptest.NewRequest("GET", "/api/session", nil)
	w := httptest.NewRecorder()
	HandleCreateSession(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: expected 405, got %d", w.Code)
	}

	req = httptest.NewRequest("OPTIONS", "/api/session", nil)
	w = httptest.NewRecorder()
	HandleCreateSession(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("OPTIONS: expected 200, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

// TestExtractTokenFromRequest tests token extraction from different sources
func TestExtractTokenFromRequest(t *testing.T) {
	token, err := GenerateSessionToken("test-session-extract")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	header := httptest.NewRequest("GET", "/ws", nil)
	header.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))

	cookie := httptest.NewRequest("GET", "/ws", nil)
	cookie.AddCookie(&http.Cookie{Name: cookieName, Value: token})

	query := httptest.NewRequest("GET", "/ws?token="+token, nil)

	for name, req := range map[string]*http.Request{"header": header, "cookie": cookie, "query": query} {
		got, err := ExtractTokenFromRequest(req)
		if err != nil {
			t.Errorf("%s: expected no error, got %v", name, err)
		}
		if got != token {
			t.Errorf("%s: extracted wrong token", name)
		}
	}

	bad := httptest.NewRequest("GET", "/ws", nil)
	bad.Header.Set("Authorization", "Token abc")
	if _, err := ExtractTokenFromRequest(bad); err == nil {
		t.Error("Expected error for malformed authorization header")
	}

	if _, err := ExtractTokenFromRequest(httptest.NewRequest("GET", "/ws", nil)); err == nil {
		t.Error("Expected error when no token present")
	}
}

func TestRequireToken(t *testing.T) {
	token, err := GenerateSessionToken("mw-session")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	var seen string
	handler := RequireToken(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/ws?token="+token, nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusNoContent || seen != "mw-session" {
		t.Errorf("valid token: code %d, session %q", w.Code, seen)
	}

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/ws?token=bogus", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("invalid token: expected 401, got %d", w.Code)
	}
}

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := ClaimsFromContext(ctx); ok {
		t.Error("empty context should have no claims")
	}
	if SessionIDFromContext(ctx) != "" {
		t.Error("empty context should have no session ID")
	}

	ctx = AddClaimsToContext(ctx, &SessionClaims{SessionID: "abc"})
	claims, ok := ClaimsFromContext(ctx)
	if !ok || claims.SessionID != "abc" {
		t.Errorf("claims not stored: %+v", claims)
	}
	if SessionIDFromContext(ctx) != "abc" {
		t.Error("session ID not stored")
	}
}

func TestCheckAccessPassword(t *testing.T) {
	if err := CheckAccessPassword("", "anything"); err != nil {
		t.Errorf("open server should accept any password: %v", err)
	}
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := CheckAccessPassword(hash, "secret"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := CheckAccessPassword(hash, "Secret"); err != ErrAccessDenied {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
}

// BenchmarkTokenValidation benchmarks token validation performance
func BenchmarkTokenValidation(b *testing.B) {
	token, err := GenerateSessionToken("benchmark-session")
	if err != nil {
		b.Fatalf("Failed to generate token: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ValidateToken(token); err != nil {
			b.Fatalf("Failed to validate token: %v", err)
		}
	}
}
