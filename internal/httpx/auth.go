package httpx

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ariefcatur/mars-shop.git/internal/apperr"
	"github.com/ariefcatur/mars-shop.git/internal/auth"
	"github.com/ariefcatur/mars-shop.git/internal/logger"
)

type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
		return "", false
	}
	return strings.TrimSpace(tok), true
}

func withPrincipal(r *http.Request, p auth.Principal) *http.Request {
	ctx := auth.WithPrincipal(r.Context(), p)
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.Int64("user_id", p.UserID)))
	return r.WithContext(ctx)
}

// Authenticate rejects requests without a valid bearer token.
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := bearer(r)
			if !ok {
				writeError(w, r, apperr.Unauthorized("JWT Token not found"))
				return
			}
			p, err := tokens.Verify(tok)
			if err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, withPrincipal(r, p))
		})
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous requests through. An invalid token is still rejected.
func OptionalAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := bearer(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			p, err := tokens.Verify(tok)
			if err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, withPrincipal(r, p))
		})
	}
}

// RequireRole must run after Authenticate.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, r, apperr.Unauthorized("JWT Token not found"))
				return
			}
			if !p.HasRole(role) {
				writeError(w, r, apperr.Forbidden("Access Denied."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func principal(r *http.Request) auth.Principal {
	p, _ := principalOf(r)
	return p
}

func principalOf(r *http.Request) (auth.Principal, bool) {
	return auth.FromContext(r.Context())
}
