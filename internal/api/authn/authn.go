// Package authn resolves the opaque requester identity for each request. The
// engine itself holds no session state; identity always arrives explicitly.
package authn

import (
	"context"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/rs/zerolog/log"
)

// Requester is the opaque caller identity issued by the identity provider.
type Requester struct {
	ID   string
	Role string
}

type contextKey struct{}

func ContextWithRequester(ctx context.Context, requester Requester) context.Context {
	return context.WithValue(ctx, contextKey{}, requester)
}

// RequesterFromContext returns the requester identity, if any.
func RequesterFromContext(ctx context.Context) (Requester, bool) {
	requester, ok := ctx.Value(contextKey{}).(Requester)
	return requester, ok && requester.ID != ""
}

var clerkEnabled bool

// InitClerk initializes the Clerk SDK with the secret key. When no key is
// configured, identity falls back to trusted headers (internal callers only).
func InitClerk(secretKey string) {
	if secretKey == "" {
		log.Warn().Msg("Clerk secret key not configured; using header identity")
		return
	}
	clerk.SetKey(secretKey)
	clerkEnabled = true
	log.Info().Msg("Clerk SDK initialized")
}

// Middleware resolves the requester identity. With Clerk enabled it verifies
// the Authorization session token; otherwise it trusts the X-Requester-ID and
// X-Requester-Role headers set by the gateway.
func Middleware(next http.Handler) http.Handler {
	resolve := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if clerkEnabled {
			if claims, ok := clerk.SessionClaimsFromContext(r.Context()); ok {
				ctx := ContextWithRequester(r.Context(), Requester{
					ID:   claims.Subject,
					Role: "player",
				})
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
			return
		}

		id := strings.TrimSpace(r.Header.Get("X-Requester-ID"))
		if id != "" {
			role := strings.TrimSpace(r.Header.Get("X-Requester-Role"))
			if role == "" {
				role = "player"
			}
			ctx := ContextWithRequester(r.Context(), Requester{ID: id, Role: role})
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})

	if clerkEnabled {
		return clerkhttp.WithHeaderAuthorization()(resolve)
	}
	return resolve
}

// RequireRequester writes 401 and returns false when no identity is present.
func RequireRequester(w http.ResponseWriter, r *http.Request) (Requester, bool) {
	requester, ok := RequesterFromContext(r.Context())
	if !ok {
		log.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("Request without requester identity")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return Requester{}, false
	}
	return requester, true
}
