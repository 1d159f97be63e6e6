package auth

import (
	"context"
)

// Schlüsselkonstante für die Session-ID im Kontext
type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	claimsKey    contextKey = "jwt_claims"
)

// NewContextWithSessionID erstellt einen neuen Kontext, der die Session-ID enthält
func NewContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext returns the session ID stored in ctx, or "" when
// there is none.
func SessionIDFromContext(ctx context.Context) string {
	sessionID, _ := ctx.Value(sessionIDKey).(string)
	return sessionID
}

// AddClaimsToContext stores claims and their session ID in ctx.
func AddClaimsToContext(ctx context.Context, claims *SessionClaims) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	if claims != nil {
		ctx = NewContextWithSessionID(ctx, claims.SessionID)
	}
	return ctx
}

// ClaimsFromContext extrahiert die JWT-Claims aus dem Kontext
func ClaimsFromContext(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*SessionClaims)
	return claims, ok && claims != nil
}
