package oauth

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// NewCodeVerifier returns a random PKCE code verifier.
func NewCodeVerifier() string {
	return oauth2.GenerateVerifier()
}

// CodeChallenge returns the S256 challenge for verifier.
func CodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// NewState returns a random state parameter for CSRF protection.
func NewState() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return id.String(), nil
}
