package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/okonst/vidstream/internal/models"
)

type CreateUserParams struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	AvatarRef    string
	CoverRef     string
}

type UpdateProfileParams struct {
	FullName string
	Email    string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If username or email is taken already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by its id
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)

	// Get user matching either username or email (logical OR).
	// Both values are compared lower-cased; empty values never match.
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByLogin(ctx context.Context, username string, email string) (models.User, error)

	// Set or clear (token == nil) the refresh token slot
	// If user not found must return apperrors.ErrUserNotFound
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error

	// Replace the refresh token only if the stored value still equals current.
	// Returns apperrors.ErrRefreshTokenRotated if the slot holds something else:
	// two concurrent refreshes with the same token must not both succeed.
	SwapRefreshToken(ctx context.Context, userID uuid.UUID, current string, next string) error

	// Replace the password hash
	// If user not found must return apperrors.ErrUserNotFound
	SetPasswordHash(ctx context.Context, userID uuid.UUID, hash string) error

	UpdateProfile(ctx context.Context, userID uuid.UUID, arg UpdateProfileParams) (models.User, error)
	SetAvatarRef(ctx context.Context, userID uuid.UUID, ref string) (models.User, error)
	SetCoverRef(ctx context.Context, userID uuid.UUID, ref string) (models.User, error)
}

// Channel (subscription graph) repository interface
type ChannelRepo interface {
	// Subscribe subscriber to channel. Subscribing twice is harmless.
	Subscribe(ctx context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error

	Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error

	// Aggregate the public channel profile for username as seen by viewerID.
	// viewerID may be uuid.Nil for anonymous viewers.
	// If channel not found must return apperrors.ErrChannelNotFound
	GetChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (models.ChannelProfile, error)
}

// Watch history repository interface
type HistoryRepo interface {
	CreateVideo(ctx context.Context, video models.Video) (models.Video, error)

	// Record that user watched video. Re-watching moves the entry up.
	AddWatched(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error

	// List watched videos with their owners, newest watches first
	ListWatched(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error)
}
