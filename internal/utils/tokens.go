package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// NewShareToken returns an opaque identifier for public worksheet links.
// Tokens are random, so a link cannot be derived from the worksheet ID.
func NewShareToken() string {
	return uuid.NewString()
}

// NewAccessToken returns a random bearer token for API clients.
func NewAccessToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
