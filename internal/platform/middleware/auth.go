package middleware

import (
	"net/http"
	"strings"

	"vouchsafe/internal/jwtauth"
	"vouchsafe/pkg/requestcontext"
)

// RequireAuth rejects requests without a valid bearer token and places the
// authenticated actor ID into the context.
func RequireAuth(validator jwtauth.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := requestcontext.WithActorID(r.Context(), claims.ActorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
