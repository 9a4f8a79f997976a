package auth

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/okonst/vidstream/internal/apperrors"
	"github.com/okonst/vidstream/internal/models"
	"github.com/okonst/vidstream/internal/repository"
	"github.com/okonst/vidstream/internal/repository/postgres"
	"github.com/okonst/vidstream/internal/service/auth/tokenmanager"
	"github.com/okonst/vidstream/internal/testutil"
)

func Test_Auth(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Begin new db transaction and create new AuthService
	// Rollback transaction when test stops
	withTx := func(dbpool *pgxpool.Pool, accessTTL time.Duration, refreshTTL time.Duration, t *testing.T, fn func(s *AuthService, userRepo *postgres.UserRepo)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			userRepo := &postgres.UserRepo{DB: tx}

			tokenManager, err := tokenmanager.New(tokenmanager.Config{
				AccessSecret:  "test-access-secret",
				RefreshSecret: "test-refresh-secret",
				AccessTTL:     accessTTL,
				RefreshTTL:    refreshTTL,
			})
			require.NoError(t, err, "token manager should be created without errors")

			s, err := NewService(Config{}, tokenManager, userRepo)
			require.NoError(t, err, "auth service couldn't be started", err)

			fn(s, userRepo)
		})
	}

	// Create user the way registration does: with a bcrypt hashed password
	createUser := func(t *testing.T, userRepo *postgres.UserRepo, username string, email string, password string) models.User {
		t.Helper()

		hash, err := BcryptHasher{}.Hash(password)
		require.NoError(t, err)

		user, err := userRepo.CreateUser(t.Context(), repository.CreateUserParams{
			Username:     username,
			Email:        email,
			FullName:     "Thomas Anderson",
			PasswordHash: hash,
		})
		require.NoError(t, err, "failed to create user for test")
		return user
	}

	t.Run("new auth service defaults", func(t *testing.T) {
		tokenManager, err := tokenmanager.New(tokenmanager.Config{
			AccessSecret:  "a",
			RefreshSecret: "r",
			AccessTTL:     time.Minute,
			RefreshTTL:    time.Hour,
		})
		require.NoError(t, err)

		s, err := NewService(Config{}, tokenManager, &postgres.UserRepo{})
		require.NoError(t, err, "auth service should be created without errors")

		require.Equal(t, defaultAccessCookieName, s.accessCookieName, "default access cookie name should be set")
		require.Equal(t, defaultRefreshCookieName, s.refreshCookieName, "default refresh cookie name should be set")
		require.Equal(t, BcryptHasher{}, s.hasher, "default hasher should be set to BcryptHasher")
	})

	t.Run("new auth service requires deps", func(t *testing.T) {
		_, err := NewService(Config{}, nil, nil)
		require.Error(t, err)
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("by username ok", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				createUser(t, userRepo, "neo", "neo@x.io", "p@ss1")

				pair, user, err := s.Login(t.Context(), "neo", "", "p@ss1")

				require.NoError(t, err)
				require.NotEmpty(t, pair.Access.Value, "access token should not be empty")
				require.NotEmpty(t, pair.Refresh.Value, "refresh token should not be empty")
				require.Equal(t, "neo", user.Username)

				// Session must be persisted before tokens are handed out
				stored, err := userRepo.GetUserByID(t.Context(), user.ID)
				require.NoError(t, err)
				require.NotNil(t, stored.RefreshToken)
				require.Equal(t, pair.Refresh.Value, *stored.RefreshToken)
			})
		})

		t.Run("by email ok", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				createUser(t, userRepo, "neo", "neo@x.io", "p@ss1")

				_, user, err := s.Login(t.Context(), "", "neo@x.io", "p@ss1")

				require.NoError(t, err)
				require.Equal(t, "neo", user.Username)
			})
		})

		t.Run("both identifiers empty", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				_, _, err := s.Login(t.Context(), "", "", "p@ss1")

				require.Error(t, err)
				require.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
			})
		})

		t.Run("user not exists", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				_, _, err := s.Login(t.Context(), "ghost", "", "p@ss1")

				require.Error(t, err)
				require.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
			})
		})

		t.Run("wrong password leaves no session", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				created := createUser(t, userRepo, "neo", "neo@x.io", "p@ss1")

				_, _, err := s.Login(t.Context(), "neo", "", "wrong")

				require.Error(t, err)
				require.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

				stored, err := userRepo.GetUserByID(t.Context(), created.ID)
				require.NoError(t, err)
				require.Nil(t, stored.RefreshToken, "failed login must not touch the session slot")
			})
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("rotate once ok", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				user := createUser(t, userRepo, "neo", "neo@x.io", "p@ss1")
				initialPair, _, err := s.Login(t.Context(), "neo", "", "p@ss1")
				require.NoError(t, err)

				newPair, err := s.Refresh(t.Context(), initialPair.Refresh.Value)

				require.NoError(t, err)
				require.NotEqual(t, initialPair.Refresh.Value, newPair.Refresh.Value, "new refresh token should be different")

				stored, err := userRepo.GetUserByID(t.Context(), user.ID)
				require.NoError(t, err)
				require.NotNil(t, stored.RefreshToken)
				require.Equal(t, newPair.Refresh.Value, *stored.RefreshToken, "slot should hold the rotated token")
			})
		})

		t.Run("fail if used once", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				createUser(t, userRepo, "neo", "neo@x.io", "p@ss1")
				initialPair, _, err := s.Login(t.Context(), "neo", "", "p@ss1")
				require.NoError(t, err)

				// Use refresh token once - should work
				_, err = s.Refresh(t.Context(), initialPair.Refresh.Value)
				require.NoError(t, err)

				// Try to use same refresh token again - should fail
				_, err = s.Refresh(t.Context(), initialPair.Refresh.Value)
				require.Error(t, err)
				require.ErrorIs(t, err, apperrors.ErrRefreshTokenRotated, "should return error if token already used")
				require.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
			})
		})

		t.Run("fail if empty", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				_, err := s.Refresh(t.Context(), "")

				require.Error(t, err)
				require.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
			})
		})

		t.Run("fail if garbage", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				_, err := s.Refresh(t.Context(), "not-even-a-jwt")

				require.Error(t, err)
				require.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
			})
		})

		t.Run("fail if access token presented", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				createUser(t, userRepo, "neo", "neo@x.io", "p@ss1")
				pair, _, err := s.Login(t.Context(), "neo", "", "p@ss1")
				require.NoError(t, err)

				// Access token is signed with a different secret
				_, err = s.Refresh(t.Context(), pair.Access.Value)

				require.Error(t, err)
				require.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
			})
		})

		t.Run("fail if expired", func(t *testing.T) {
			withTx(pg.Pool, time.Second, time.Second, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				createUser(t, userRepo, "neo", "neo@x.io", "p@ss1")
				initialPair, _, err := s.Login(t.Context(), "neo", "", "p@ss1")
				require.NoError(t, err)

				// Move time forward to make sure refresh token is expired
				time.Sleep(2 * time.Second)

				_, err = s.Refresh(t.Context(), initialPair.Refresh.Value)
				require.Error(t, err)
				require.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
			})
		})

		t.Run("fail after logout", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				user := createUser(t, userRepo, "neo", "neo@x.io", "p@ss1")
				pair, _, err := s.Login(t.Context(), "neo", "", "p@ss1")
				require.NoError(t, err)

				require.NoError(t, s.Logout(t.Context(), user.ID))

				_, err = s.Refresh(t.Context(), pair.Refresh.Value)
				require.Error(t, err, "logged out session must not refresh")
				require.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
			})
		})
	})

	t.Run("Logout", func(t *testing.T) {
		t.Run("clears session and is idempotent", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				user := createUser(t, userRepo, "neo", "neo@x.io", "p@ss1")
				_, _, err := s.Login(t.Context(), "neo", "", "p@ss1")
				require.NoError(t, err)

				require.NoError(t, s.Logout(t.Context(), user.ID))

				stored, err := userRepo.GetUserByID(t.Context(), user.ID)
				require.NoError(t, err)
				require.Nil(t, stored.RefreshToken)

				// Logging out twice should be fine
				require.NoError(t, s.Logout(t.Context(), user.ID))
			})
		})
	})

	t.Run("ChangePassword", func(t *testing.T) {
		t.Run("old password verified", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				user := createUser(t, userRepo, "neo", "neo@x.io", "p@ss1")

				err := s.ChangePassword(t.Context(), user.ID, "p@ss1", "p@ss2")
				require.NoError(t, err)

				_, _, err = s.Login(t.Context(), "neo", "", "p@ss2")
				require.NoError(t, err, "new password should work")

				_, _, err = s.Login(t.Context(), "neo", "", "p@ss1")
				require.Error(t, err, "old password should not work anymore")
			})
		})

		t.Run("wrong old password", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				user := createUser(t, userRepo, "neo", "neo@x.io", "p@ss1")

				err := s.ChangePassword(t.Context(), user.ID, "wrong", "p@ss2")

				require.Error(t, err)
				require.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

				_, _, err = s.Login(t.Context(), "neo", "", "p@ss1")
				require.NoError(t, err, "password must stay unchanged")
			})
		})

		t.Run("existing session survives", func(t *testing.T) {
			withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
				user := createUser(t, userRepo, "neo", "neo@x.io", "p@ss1")
				pair, _, err := s.Login(t.Context(), "neo", "", "p@ss1")
				require.NoError(t, err)

				require.NoError(t, s.ChangePassword(t.Context(), user.ID, "p@ss1", "p@ss2"))

				_, err = s.Refresh(t.Context(), pair.Refresh.Value)
				require.NoError(t, err, "issued refresh token should survive a password change")
			})
		})
	})

	t.Run("session lifecycle", func(t *testing.T) {
		// Full token lifecycle for a single user, step by step
		withTx(pg.Pool, 15*time.Minute, 24*time.Hour, t, func(s *AuthService, userRepo *postgres.UserRepo) {
			user := createUser(t, userRepo, "neo", "neo@x.io", "p@ss1")

			pair1, _, err := s.Login(t.Context(), "neo", "", "p@ss1")
			require.NoError(t, err)

			pair2, err := s.Refresh(t.Context(), pair1.Refresh.Value)
			require.NoError(t, err)

			_, err = s.Refresh(t.Context(), pair1.Refresh.Value)
			require.Error(t, err, "rotated token must be dead")

			require.NoError(t, s.Logout(t.Context(), user.ID))

			_, err = s.Refresh(t.Context(), pair2.Refresh.Value)
			require.Error(t, err, "logout must kill the current token too")
		})
	})
}
