package e2e

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stretchr/testify/require"

	"github.com/okonst/vidstream/internal/handlers"
	"github.com/okonst/vidstream/internal/handlers/middleware"
	"github.com/okonst/vidstream/internal/repository/postgres"
	"github.com/okonst/vidstream/internal/service/auth"
	"github.com/okonst/vidstream/internal/service/auth/tokenmanager"
	"github.com/okonst/vidstream/internal/service/user"
	"github.com/okonst/vidstream/internal/testutil"
)

type Services struct {
	AuthService *auth.AuthService
	UserService *user.UserService
}

// Create db transaction and run server in with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.WithTx with it
func ServeWithTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		// Initialize repositories
		storage := postgres.NewStorage(tx)

		// Initialize services
		tokenManager, err := tokenmanager.New(tokenmanager.Config{
			AccessSecret:  "test-access-secret",
			RefreshSecret: "test-refresh-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    24 * time.Hour,
		})
		require.NoError(t, err, "token manager should be created without errors")

		as, err := auth.NewService(auth.Config{}, tokenManager, storage.User())
		require.NoError(t, err, "auth service starting error", err)

		us := user.NewService(nil, storage)

		// Initialize handlers
		authHandler := handlers.NewAuth(as)
		userHandler := handlers.NewUser(us)
		channelHandler := handlers.NewChannel(us)

		// Complete all together as router
		router := handlers.NewRouter(
			authHandler,
			userHandler,
			channelHandler,
			nil, // no media storage in tests
			middleware.AuthMiddleware(as),
			middleware.MaybeAuthMiddleware(as),
			nil, // no metrics endpoint in tests
		)

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			AuthService: as,
			UserService: us,
		})
	})
}
