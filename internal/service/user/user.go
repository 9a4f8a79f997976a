package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okonst/vidstream/internal/apperrors"
	"github.com/okonst/vidstream/internal/models"
	"github.com/okonst/vidstream/internal/repository"
	"github.com/okonst/vidstream/internal/service/auth"
)

type RegisterParams struct {
	Username  string
	Email     string
	FullName  string
	Password  string
	AvatarRef string
	CoverRef  string
}

// UserService owns account management: registration, profile and media
// reference updates, plus the channel and watch history read models
type UserService struct {
	hasher  auth.PasswordHasher
	storage repository.Storage
}

func NewService(hasher auth.PasswordHasher, storage repository.Storage) *UserService {
	if hasher == nil {
		hasher = auth.BcryptHasher{}
	}

	return &UserService{
		hasher:  hasher,
		storage: storage,
	}
}

// Register creates a new account. Username and email are normalized by the
// repository; a clash on either fails with apperrors.ErrUserAlreadyExists.
// No tokens are issued here: a fresh account logs in explicitly.
func (s *UserService) Register(ctx context.Context, arg RegisterParams) (models.User, error) {
	var user models.User

	hash, err := s.hasher.Hash(arg.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err = s.storage.User().CreateUser(ctx, repository.CreateUserParams{
		Username:     arg.Username,
		Email:        arg.Email,
		FullName:     arg.FullName,
		PasswordHash: hash,
		AvatarRef:    arg.AvatarRef,
		CoverRef:     arg.CoverRef,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			return user, apperrors.ErrUserAlreadyExists
		}
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error) {
	return s.storage.User().UpdateProfile(ctx, userID, repository.UpdateProfileParams{
		FullName: fullName,
		Email:    email,
	})
}

func (s *UserService) SetAvatar(ctx context.Context, userID uuid.UUID, ref string) (models.User, error) {
	return s.storage.User().SetAvatarRef(ctx, userID, ref)
}

func (s *UserService) SetCover(ctx context.Context, userID uuid.UUID, ref string) (models.User, error) {
	return s.storage.User().SetCoverRef(ctx, userID, ref)
}

// GetChannelProfile aggregates the public channel view of username as seen
// by viewerID (uuid.Nil for anonymous viewers)
func (s *UserService) GetChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (models.ChannelProfile, error) {
	if username == "" {
		return models.ChannelProfile{}, apperrors.BadRequest("Username is missing")
	}

	return s.storage.Channel().GetChannelProfile(ctx, username, viewerID)
}

// Subscribe resolves the channel by username and records the subscription.
// Resolve and write run in one transaction so a concurrently deleted
// channel can't leave a dangling edge.
func (s *UserService) Subscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error {
	return s.storage.InTx(ctx, func(st repository.Storage) error {
		channel, err := st.User().GetUserByLogin(ctx, channelUsername, "")
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				return apperrors.ErrChannelNotFound
			}
			return err
		}

		return st.Channel().Subscribe(ctx, subscriberID, channel.ID)
	})
}

func (s *UserService) Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error {
	return s.storage.InTx(ctx, func(st repository.Storage) error {
		channel, err := st.User().GetUserByLogin(ctx, channelUsername, "")
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				return apperrors.ErrChannelNotFound
			}
			return err
		}

		return st.Channel().Unsubscribe(ctx, subscriberID, channel.ID)
	})
}

func (s *UserService) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	return s.storage.History().ListWatched(ctx, userID)
}

func (s *UserService) AddWatched(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error {
	return s.storage.History().AddWatched(ctx, userID, videoID)
}
