package server

import (
	"context"
	"net/http"

	"github.com/deploykit/stagegate/internal/auth"
	"github.com/deploykit/stagegate/internal/domain"
)

// principalKey is the context key for the resolved caller.
const principalKey contextKey = "principal"

// PrincipalMiddleware resolves the bearer token to an operator principal and
// injects it into the request context. Mutating routes sit behind this;
// reads do not.
func PrincipalMiddleware(resolver *auth.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractToken(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			p, err := resolver.ResolveToken(token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			AddLogField(r.Context(), "operator", p.Name)
			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerFromContext returns the resolved caller identity. The zero Caller is
// returned when no principal middleware ran.
func CallerFromContext(ctx context.Context) domain.Caller {
	if p, ok := ctx.Value(principalKey).(auth.Principal); ok {
		return domain.Caller{Name: p.Name}
	}
	return domain.Caller{}
}
