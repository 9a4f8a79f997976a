package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/okonst/vidstream/internal/apperrors"
	"github.com/okonst/vidstream/internal/models"
	"github.com/okonst/vidstream/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, created_at, updated_at, username, email, full_name, password_hash, current_refresh_token, avatar_ref, cover_ref`

const createUser = `-- name: CreateUser
INSERT INTO users (id, username, email, full_name, password_hash, avatar_ref, cover_ref)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser,
		uuid.New(),
		strings.ToLower(arg.Username),
		strings.ToLower(arg.Email),
		arg.FullName,
		arg.PasswordHash,
		arg.AvatarRef,
		arg.CoverRef,
	)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, userID)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUserByLogin = `-- name: GetUserByLogin
SELECT ` + userColumns + `
FROM users
WHERE (username = $1 AND $1 <> '') OR (email = $2 AND $2 <> '')
LIMIT 1
`

// Match on username or email, whichever is supplied.
// Values are lower-cased before comparison, same as on insert.
func (r *UserRepo) GetUserByLogin(ctx context.Context, username string, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByLogin, strings.ToLower(username), strings.ToLower(email))
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const setRefreshToken = `-- name: SetRefreshToken
UPDATE users
SET current_refresh_token = $2, updated_at = now()
WHERE id = $1
RETURNING id
`

func (r *UserRepo) SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	rows, _ := r.DB.Query(ctx, setRefreshToken, userID, token)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrUserNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const swapRefreshToken = `-- name: SwapRefreshToken
UPDATE users
SET current_refresh_token = $3, updated_at = now()
WHERE id = $1 AND current_refresh_token = $2
RETURNING id
`

// Compare-and-swap on the stored token value.
// No matched row means the slot was rotated or cleared since the token
// was read; the caller must treat the presented token as dead.
func (r *UserRepo) SwapRefreshToken(ctx context.Context, userID uuid.UUID, current string, next string) error {
	rows, _ := r.DB.Query(ctx, swapRefreshToken, userID, current, next)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrRefreshTokenRotated
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const setPasswordHash = `-- name: SetPasswordHash
UPDATE users
SET password_hash = $2, updated_at = now()
WHERE id = $1
RETURNING id
`

func (r *UserRepo) SetPasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	rows, _ := r.DB.Query(ctx, setPasswordHash, userID, hash)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrUserNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const updateProfile = `-- name: UpdateProfile
UPDATE users
SET full_name = $2, email = $3, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, arg repository.UpdateProfileParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateProfile, userID, arg.FullName, strings.ToLower(arg.Email))
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation:
			return user, apperrors.ErrUserAlreadyExists
		case errors.Is(err, pgx.ErrNoRows):
			return user, apperrors.ErrUserNotFound
		default:
			return user, fmt.Errorf("db error: %w", err)
		}
	}

	return user, nil
}

const setAvatarRef = `-- name: SetAvatarRef
UPDATE users
SET avatar_ref = $2, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) SetAvatarRef(ctx context.Context, userID uuid.UUID, ref string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, setAvatarRef, userID, ref)
	return collectUserOrNotFound(rows)
}

const setCoverRef = `-- name: SetCoverRef
UPDATE users
SET cover_ref = $2, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) SetCoverRef(ctx context.Context, userID uuid.UUID, ref string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, setCoverRef, userID, ref)
	return collectUserOrNotFound(rows)
}

func collectUserOrNotFound(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.HashedPassword,
		&u.RefreshToken,
		&u.AvatarRef,
		&u.CoverRef,
	)
	return u, err
}
