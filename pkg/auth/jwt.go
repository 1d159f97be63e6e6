package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/antibyte/linebasic/pkg/configuration"
	"github.com/antibyte/linebasic/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Default values - actual values are loaded from configuration
	defaultJWTSecret       = "fallback_secret_change_in_production"
	defaultTokenExpiration = 24 * time.Hour

	tokenIssuer = "linebasic"
	cookieName  = "session_token"
)

// getJWTSecret retrieves the JWT secret from environment variable or configuration
func getJWTSecret() string {
	if envSecret := os.Getenv("JWT_SECRET_KEY"); envSecret != "" {
		return envSecret
	}

	secret := configuration.GetString("JWT", "secret_key", "")
	if secret == "" {
		logger.AuthWarn("Using fallback JWT secret - set JWT_SECRET_KEY environment variable for production!")
		return defaultJWTSecret
	}
	return secret
}

// getTokenExpiration retrieves the token expiration duration from configuration
func getTokenExpiration() time.Duration {
	hours := configuration.GetInt("JWT", "token_expiration_hours", 0)
	if hours <= 0 {
		return defaultTokenExpiration
	}
	return time.Duration(hours) * time.Hour
}

// SessionClaims are the claims of an interpreter session token.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs a token for sessionID.
func GenerateSessionToken(sessionID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(getTokenExpiration())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   "session",
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(getJWTSecret()))
	if err != nil {
		return "", fmt.Errorf("token could not be signed: %w", err)
	}
	logger.AuthDebug("Session token generated for session ID: %s", sessionID)
	return signedToken, nil
}

// ValidateToken parses tokenString and returns its claims. Expired tokens,
// foreign issuers and non-HMAC signatures are rejected.
func ValidateToken(tokenString string) (*SessionClaims, error) {
	secretKey := getJWTSecret()

	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || claims.SessionID == "" {
		return nil, errors.New("could not extract token claims")
	}
	return claims, nil
}

// ExtractTokenFromRequest extracts the JWT token from the HTTP request.
// Browsers cannot set headers on a WebSocket handshake, so the cookie and
// the token query parameter are accepted as well.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" { // Format: "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1], nil
		}
		return "", errors.New("invalid authorization header format")
	}

	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}

	return "", errors.New("no token found in request")
}

// RequireToken ist ein Middleware für HTTP-Handler, die einen gültigen Token erfordert
func RequireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := ExtractTokenFromRequest(r)
		if err != nil {
			logger.AuthWarn("Kein Token im Request gefunden: %v", err)
			http.Error(w, "Unauthorized: token missing", http.StatusUnauthorized)
			return
		}

		claims, err := ValidateToken(tokenString)
		if err != nil {
			logger.AuthWarn("Ungültiger Token: %v", err)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		next(w, r.WithContext(AddClaimsToContext(r.Context(), claims)))
	}
}
