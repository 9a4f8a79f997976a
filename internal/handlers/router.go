package handlers

import (
	"net/http"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// Middleware guarding routes that require an authenticated user
type AuthMiddleware func(next http.Handler) http.Handler

// Middleware resolving the user when present but passing anonymous
// requests through
type MaybeAuthMiddleware func(next http.Handler) http.Handler

// NewRouter wires all handlers under /api/v1.
// metricsHandler, when not nil, is exposed on GET /metrics outside the
// api prefix, so scraping does not show up in api access logs.
func NewRouter(
	authHandler *AuthHandler,
	userHandler *UserHandler,
	channelHandler *ChannelHandler,
	mediaHandler *MediaHandler,
	withAuth AuthMiddleware,
	withMaybeAuth MaybeAuthMiddleware,
	metricsHandler http.Handler,
	mds ...func(next http.Handler) http.Handler,
) http.Handler {
	api := http.NewServeMux()

	api.Handle("/auth/", http.StripPrefix("/auth", authHandler.Handler(withAuth)))
	api.Handle("/users/", http.StripPrefix("/users", userHandler.Handler(withAuth)))
	api.Handle("/channels/", channelHandler.Handler(withAuth, withMaybeAuth))
	// Media uploads are optional, the service may run without object storage
	if mediaHandler != nil {
		api.Handle("/media/", mediaHandler.Handler(withAuth))
	}

	root := http.NewServeMux()
	root.Handle("/api/v1/", http.StripPrefix("/api/v1", api))

	if metricsHandler != nil {
		root.Handle("GET /metrics", metricsHandler)
	}

	return chain(root, mds...)
}
