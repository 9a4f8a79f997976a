package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/okonst/vidstream/internal/handlers/middleware"
	"github.com/okonst/vidstream/internal/models"
	"github.com/okonst/vidstream/internal/repository/postgres"
	"github.com/okonst/vidstream/internal/service/auth"
	"github.com/okonst/vidstream/internal/service/auth/tokenmanager"
	"github.com/okonst/vidstream/internal/service/user"
	"github.com/okonst/vidstream/internal/testutil"
)

func Test_ChannelHandler(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withTx := func(dbpool *pgxpool.Pool, t *testing.T, fn func(url string, authService *auth.AuthService, userService *user.UserService)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)

			tokenManager, err := tokenmanager.New(tokenmanager.Config{
				AccessSecret:  "test-access-secret",
				RefreshSecret: "test-refresh-secret",
				AccessTTL:     15 * time.Minute,
				RefreshTTL:    24 * time.Hour,
			})
			require.NoError(t, err)

			authService, err := auth.NewService(auth.Config{}, tokenManager, storage.User())
			require.NoError(t, err)
			userService := user.NewService(nil, storage)

			h := NewChannel(userService)
			srv := httptest.NewServer(h.Handler(
				middleware.AuthMiddleware(authService),
				middleware.MaybeAuthMiddleware(authService),
			))
			defer srv.Close()

			fn(srv.URL, authService, userService)
		})
	}

	register := func(t *testing.T, userService *user.UserService, username string) models.User {
		t.Helper()
		created, err := userService.Register(t.Context(), user.RegisterParams{
			Username: username,
			Email:    username + "@x.io",
			FullName: "Test User",
			Password: "StrongEnoughPassword",
		})
		require.NoError(t, err)
		return created
	}

	t.Run("profile for anonymous viewer", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, authService *auth.AuthService, userService *user.UserService) {
			register(t, userService, "channel")

			resp, err := http.Get(url + "/channels/channel")
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.Contains(t, string(body), `"username":"channel"`)
			require.Contains(t, string(body), `"is_subscribed":false`)
		})
	})

	t.Run("profile unknown channel", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, authService *auth.AuthService, userService *user.UserService) {
			resp, err := http.Get(url + "/channels/ghost")
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	})

	t.Run("subscribe and personalized profile", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, authService *auth.AuthService, userService *user.UserService) {
			register(t, userService, "channel")
			register(t, userService, "fan")
			pair, _, err := authService.Login(t.Context(), "fan", "", "StrongEnoughPassword")
			require.NoError(t, err)

			// Subscribe
			req, err := http.NewRequest(http.MethodPost, url+"/channels/channel/subscription", nil)
			require.NoError(t, err)
			authService.SetTokenPairToRequest(req, pair)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			_ = resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			// Profile as the subscriber
			req, err = http.NewRequest(http.MethodGet, url+"/channels/channel", nil)
			require.NoError(t, err)
			authService.SetTokenPairToRequest(req, pair)

			resp, err = http.DefaultClient.Do(req)
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Contains(t, string(body), `"is_subscribed":true`)
			require.Contains(t, string(body), `"subscriber_count":1`)

			// Unsubscribe and check once more
			req, err = http.NewRequest(http.MethodDelete, url+"/channels/channel/subscription", nil)
			require.NoError(t, err)
			authService.SetTokenPairToRequest(req, pair)

			resp, err = http.DefaultClient.Do(req)
			require.NoError(t, err)
			_ = resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
		})
	})

	t.Run("subscribe requires auth", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, authService *auth.AuthService, userService *user.UserService) {
			register(t, userService, "channel")

			resp, err := http.Post(url+"/channels/channel/subscription", "application/json", nil)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	})

	t.Run("subscribe to unknown channel", func(t *testing.T) {
		withTx(pg.Pool, t, func(url string, authService *auth.AuthService, userService *user.UserService) {
			register(t, userService, "fan")
			pair, _, err := authService.Login(t.Context(), "fan", "", "StrongEnoughPassword")
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodPost, url+"/channels/ghost/subscription", nil)
			require.NoError(t, err)
			authService.SetTokenPairToRequest(req, pair)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	})
}
