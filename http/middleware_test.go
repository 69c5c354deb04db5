package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	depothttp "github.com/filedepot/filedepot/http"
)

func TestAuthMiddleware_PublicAccess(t *testing.T) {
	// Handler that just writes OK
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Wrap with auth middleware (nil verifier = public access)
	wrapped := depothttp.AuthMiddleware(nil)(handler)

	req := httptest.NewRequest("GET", "/files/docs/abc/original/a.txt", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuthMiddleware_RequiresAuth_NoToken(t *testing.T) {
	// Handler that shouldn't be reached
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	verifier := depothttp.NewTokenVerifier([]string{"secret-token"})
	wrapped := depothttp.AuthMiddleware(verifier)(handler)

	req := httptest.NewRequest("GET", "/files/docs", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestAuthMiddleware_RequiresAuth_PassesThrough(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	verifier := depothttp.NewTokenVerifier([]string{"secret-token"})
	wrapped := depothttp.AuthMiddleware(verifier)(handler)

	req := httptest.NewRequest("DELETE", "/files/docs/abc", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTokenVerifier(t *testing.T) {
	verifier := depothttp.NewTokenVerifier([]string{"alpha", "beta"})

	tests := []struct {
		name   string
		header string
		valid  bool
	}{
		{"first token", "Bearer alpha", true},
		{"second token", "Bearer beta", true},
		{"wrong token", "Bearer gamma", false},
		{"wrong scheme", "Basic alpha", false},
		{"missing header", "", false},
		{"bare token", "alpha", false},
		{"empty bearer", "Bearer ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/files/docs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			err := verifier.Verify(req)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, depothttp.ErrUnauthorized)
			}
		})
	}
}
