// Package auth resolves bearer tokens to operator principals. It stands in
// for the platform's identity provider: tokens are issued out of band and
// only their SHA-256 hashes appear in config.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// Principal is a resolved operator identity.
type Principal struct {
	Name string
}

// TokenEntry maps a token hash to a principal name.
type TokenEntry struct {
	TokenHash string
	Principal string
}

// Resolver validates bearer tokens and returns the principal they belong to.
type Resolver struct {
	principals map[string]Principal // tokenhash -> principal
}

// NewResolver creates a resolver from the configured token table.
func NewResolver(entries []TokenEntry) *Resolver {
	r := &Resolver{
		principals: make(map[string]Principal),
	}
	for _, e := range entries {
		r.principals[e.TokenHash] = Principal{Name: e.Principal}
	}
	return r
}

// ResolveToken validates a token and returns the associated principal.
func (r *Resolver) ResolveToken(token string) (Principal, error) {
	hash := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(hash[:])

	_, ok := r.principals[tokenHash]
	if !ok {
		return Principal{}, fmt.Errorf("invalid token")
	}

	// Constant-time comparison to prevent timing attacks
	for h, candidate := range r.principals {
		if subtle.ConstantTimeCompare([]byte(tokenHash), []byte(h)) == 1 {
			return candidate, nil
		}
	}

	return Principal{}, fmt.Errorf("invalid token")
}

// ExtractToken extracts the bearer token from the Authorization header.
func ExtractToken(req *http.Request) (string, error) {
	header := req.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	if strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("unsupported authorization scheme")
	}

	return parts[1], nil
}

// HashToken creates a SHA-256 hash of a token for storage in config.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
