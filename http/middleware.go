package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequestVerifier authorizes a request before it reaches a handler.
type RequestVerifier interface {
	Verify(r *http.Request) error
}

// TokenVerifier checks bearer tokens against a fixed token set.
type TokenVerifier struct {
	tokens []string
}

// NewTokenVerifier builds a verifier accepting any of the given tokens.
func NewTokenVerifier(tokens []string) *TokenVerifier {
	return &TokenVerifier{tokens: tokens}
}

// Verify checks the Authorization bearer token.
func (v *TokenVerifier) Verify(r *http.Request) error {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return ErrUnauthorized
	}
	for _, t := range v.tokens {
		if subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1 {
			return nil
		}
	}
	return ErrUnauthorized
}

// AuthMiddleware enforces the given verifier. Pass nil to disable
// authentication (public access).
func AuthMiddleware(verifier RequestVerifier) func(http.Handler) http.Handler {
	if verifier == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := verifier.Verify(r); err != nil {
				HandleError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
