package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/okonst/vidstream/internal/apperrors"
	"github.com/okonst/vidstream/internal/logger"
	"github.com/okonst/vidstream/internal/models"
	"github.com/okonst/vidstream/internal/repository"
	"github.com/okonst/vidstream/internal/service/auth/tokenmanager"
)

const (
	defaultAccessCookieName  = "accessToken"
	defaultRefreshCookieName = "refreshToken"
	defaultAccessAuthScheme  = "Bearer"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type Config struct {
	// Hasher to use during login or password change
	// BcryptHasher is used if not set
	Hasher PasswordHasher

	// Logger for internal diagnostics. The reasons logged here are
	// deliberately not included in client-facing messages.
	Logger logger.Logger

	// Cookie names for the token pair, defaults are used if empty
	AccessCookieName  string
	RefreshCookieName string
}

// AuthService owns the session lifecycle: login, refresh, logout and
// password change. The refresh token lives in a single per-user slot,
// so issuing a new one always invalidates the previous session.
type AuthService struct {
	token    *tokenmanager.TokenManager
	hasher   PasswordHasher
	userRepo repository.UserRepo
	logger   logger.Logger

	accessCookieName  string
	refreshCookieName string
}

func NewService(cfg Config, token *tokenmanager.TokenManager, userRepo repository.UserRepo) (*AuthService, error) {
	if token == nil || userRepo == nil {
		return nil, errors.New("token manager and user repo must not be nil")
	}

	if cfg.Hasher == nil {
		cfg.Hasher = BcryptHasher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOp()
	}
	if cfg.AccessCookieName == "" {
		cfg.AccessCookieName = defaultAccessCookieName
	}
	if cfg.RefreshCookieName == "" {
		cfg.RefreshCookieName = defaultRefreshCookieName
	}

	return &AuthService{
		token:             token,
		hasher:            cfg.Hasher,
		userRepo:          userRepo,
		logger:            cfg.Logger,
		accessCookieName:  cfg.AccessCookieName,
		refreshCookieName: cfg.RefreshCookieName,
	}, nil
}

// Login verifies credentials and starts a session.
// Either username or email may identify the user; at least one is required.
// The refresh token is persisted before the pair is returned: if the write
// fails, the whole login fails and no tokens leak out.
func (s *AuthService) Login(ctx context.Context, username string, email string, password string) (models.TokenPair, models.User, error) {
	var pair models.TokenPair
	var user models.User

	if username == "" && email == "" {
		return pair, user, apperrors.BadRequest("Username or email is required")
	}

	user, err := s.userRepo.GetUserByLogin(ctx, username, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return pair, user, apperrors.NotFound("User does not exist")
		}
		return pair, user, apperrors.Internal("Internal server error", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return pair, user, apperrors.Unauthorized("Invalid user credentials", err)
	}

	pair, err = s.token.IssuePair(user)
	if err != nil {
		return pair, user, apperrors.Internal("Something went wrong while generating the tokens", err)
	}

	err = s.userRepo.SetRefreshToken(ctx, user.ID, &pair.Refresh.Value)
	if err != nil {
		return models.TokenPair{}, user, apperrors.Internal("Something went wrong while generating the tokens", err)
	}

	user.RefreshToken = &pair.Refresh.Value
	return pair, user, nil
}

// Refresh rotates the token pair using a presented refresh token.
// Every failure is reported as Unauthorized: the caller must not learn
// whether the token was malformed, expired, reused or owned by nobody.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	if refresh == "" {
		return pair, apperrors.Unauthorized("Unauthorized request", nil)
	}

	claims, err := s.token.ParseRefresh(refresh)
	if err != nil {
		s.logger.Info("refresh token rejected", "reason", refreshRejectReason(err))
		return pair, apperrors.Unauthorized("Invalid refresh token", err)
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		s.logger.Info("refresh token rejected", "reason", "unknown user")
		return pair, apperrors.Unauthorized("Invalid refresh token", err)
	}

	// Single-use rotation: a cryptographically valid token that is not the
	// one in the slot was already used or revoked
	if user.RefreshToken == nil || *user.RefreshToken != refresh {
		s.logger.Info("refresh token rejected", "reason", "stale token", "user_id", user.ID)
		return pair, apperrors.Unauthorized("Refresh token is expired or used", apperrors.ErrRefreshTokenRotated)
	}

	pair, err = s.token.IssuePair(user)
	if err != nil {
		return models.TokenPair{}, apperrors.Internal("Something went wrong while generating the tokens", err)
	}

	// Conditional write: loses against a concurrent refresh of the same token
	err = s.userRepo.SwapRefreshToken(ctx, user.ID, refresh, pair.Refresh.Value)
	switch {
	case err == nil:
		return pair, nil
	case errors.Is(err, apperrors.ErrRefreshTokenRotated):
		s.logger.Info("refresh token rejected", "reason", "lost rotation race", "user_id", user.ID)
		return models.TokenPair{}, apperrors.Unauthorized("Refresh token is expired or used", err)
	default:
		return models.TokenPair{}, apperrors.Internal("Something went wrong while generating the tokens", err)
	}
}

// Logout clears the refresh token slot. Idempotent: logging out an
// already logged out user succeeds.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	err := s.userRepo.SetRefreshToken(ctx, userID, nil)
	if err != nil {
		return apperrors.Internal("Logout failed", err)
	}

	return nil
}

// ChangePassword verifies the old password and stores a hash of the new one.
// The current refresh token is left in place: already issued sessions
// survive a password change.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return apperrors.Internal("Internal server error", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, oldPassword); err != nil {
		return apperrors.Unauthorized("Invalid old password", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.Internal("Can't use this as password", err)
	}

	err = s.userRepo.SetPasswordHash(ctx, userID, hash)
	if err != nil {
		return apperrors.Internal("Internal server error", err)
	}

	return nil
}

// Authenticate resolves the request's access token into a user.
// The token is taken from the access cookie or the Authorization header.
func (s *AuthService) Authenticate(ctx context.Context, r *http.Request) (models.User, error) {
	var user models.User

	access := s.readAccessString(r)
	if access == "" {
		return user, apperrors.Unauthorized("Unauthorized request", nil)
	}

	claims, err := s.token.ParseAccess(access)
	if err != nil {
		return user, apperrors.Unauthorized("Invalid access token", err)
	}

	user, err = s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return user, apperrors.Unauthorized("Invalid access token", err)
	}

	return user, nil
}

// SetTokenPairToResponse transports the pair as secure http-only cookies
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, s.tokenCookie(s.accessCookieName, pair.Access))
	http.SetCookie(w, s.tokenCookie(s.refreshCookieName, pair.Refresh))
}

// ClearTokensFromResponse instructs the client to drop both cookies
func (s *AuthService) ClearTokensFromResponse(w http.ResponseWriter) {
	for _, name := range []string{s.accessCookieName, s.refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// SetTokenPairToRequest sets the pair on an outbound request, as a browser
// holding the cookies would. Used in tests.
func (s *AuthService) SetTokenPairToRequest(r *http.Request, pair models.TokenPair) {
	r.AddCookie(&http.Cookie{Name: s.accessCookieName, Value: pair.Access.Value})
	r.AddCookie(&http.Cookie{Name: s.refreshCookieName, Value: pair.Refresh.Value})
	r.Header.Set("Authorization", defaultAccessAuthScheme+" "+pair.Access.Value)
}

// GetRefreshString reads the refresh token from the request cookie.
// Empty string means no token presented.
func (s *AuthService) GetRefreshString(r *http.Request) string {
	cookie, err := r.Cookie(s.refreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *AuthService) readAccessString(r *http.Request) string {
	if cookie, err := r.Cookie(s.accessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if scheme, token, found := strings.Cut(header, " "); found && scheme == defaultAccessAuthScheme {
		return token
	}

	return ""
}

func (s *AuthService) tokenCookie(name string, token models.IssuedToken) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// refreshRejectReason keeps the distinguishable verification failures
// for logs only, never for responses
func refreshRejectReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return fmt.Sprintf("invalid: %v", err)
	}
}
