// Package auth resolves bearer credentials to users. Tokens are opaque
// strings minted by the external authenticator; this service only
// stores their SHA-256 hashes and looks them up.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"spendtrail/internal/core"
	"spendtrail/internal/storage"
)

// ErrUnauthenticated is returned for missing, malformed, or unknown
// credentials. Callers map it to a 401.
var ErrUnauthenticated = errors.New("invalid or missing credentials")

// TokenStore is the storage surface credential resolution needs.
type TokenStore interface {
	UserByTokenHash(ctx context.Context, tokenHash string) (core.User, error)
}

type Verifier struct {
	store TokenStore
}

func NewVerifier(store TokenStore) *Verifier {
	return &Verifier{store: store}
}

// HashToken derives the stored form of a credential.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Verify resolves a raw bearer token to its owner.
func (v *Verifier) Verify(ctx context.Context, token string) (core.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return core.User{}, ErrUnauthenticated
	}
	user, err := v.store.UserByTokenHash(ctx, HashToken(token))
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, ErrUnauthenticated
	}
	if err != nil {
		return core.User{}, fmt.Errorf("verify token: %w", err)
	}
	return user, nil
}

// FromHeader extracts the bearer token from an Authorization header
// value, case-insensitively on the scheme.
func FromHeader(header string) (string, error) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrUnauthenticated
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}
