package middleware

import (
	"context"
	"net/http"

	"github.com/okonst/vidstream/internal/handlers/render"
	"github.com/okonst/vidstream/internal/handlers/userctx"
	"github.com/okonst/vidstream/internal/models"
)

type authService interface {
	Authenticate(ctx context.Context, r *http.Request) (models.User, error)
}

// AuthMiddleware rejects requests without a valid access token and puts
// the resolved user into the request context
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Authenticate(r.Context(), r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MaybeAuthMiddleware resolves the user when a valid access token is
// present but lets anonymous requests through. Handlers that personalize
// public views (channel profiles) use it.
func MaybeAuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Authenticate(r.Context(), r)
			if err == nil {
				r = r.WithContext(userctx.New(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}
