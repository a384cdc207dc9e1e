// Package observability provides session ID generation and propagation.
package observability

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// sessionIDKey is the context key for session IDs.
type sessionIDKey struct{}

// GenerateSessionID generates a new unique session ID.
func GenerateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Fallback if crypto/rand fails
		return "session-fallback"
	}
	return hex.EncodeToString(b)
}

// ContextWithSessionID adds a session ID to the context.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// SessionIDFromContext extracts the session ID from context.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return id
	}
	return ""
}

// GetOrCreateSessionID gets an existing session ID or creates a new one.
func GetOrCreateSessionID(ctx context.Context) (context.Context, string) {
	if id := SessionIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := GenerateSessionID()
	return ContextWithSessionID(ctx, id), id
}
