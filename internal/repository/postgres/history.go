package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/okonst/vidstream/internal/apperrors"
	"github.com/okonst/vidstream/internal/models"
)

type HistoryRepo struct {
	DB DBTX
}

const createVideo = `-- name: CreateVideo
INSERT INTO videos (id, owner_id, title, file_ref)
VALUES ($1, $2, $3, $4)
RETURNING id, owner_id, created_at, title, file_ref
`

func (r *HistoryRepo) CreateVideo(ctx context.Context, video models.Video) (models.Video, error) {
	id := video.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createVideo, id, video.OwnerID, video.Title, video.FileRef)
	created, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.Video, error) {
		var v models.Video
		err := row.Scan(&v.ID, &v.OwnerID, &v.CreatedAt, &v.Title, &v.FileRef)
		return v, err
	})
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const addWatched = `-- name: AddWatched
INSERT INTO watch_history (user_id, video_id)
VALUES ($1, $2)
ON CONFLICT (user_id, video_id) DO UPDATE SET watched_at = now()
`

// Upsert: re-watching an already watched video refreshes watched_at
func (r *HistoryRepo) AddWatched(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, addWatched, userID, videoID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return apperrors.ErrVideoNotFound
		}

		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const listWatched = `-- name: ListWatched
SELECT
    v.id, v.owner_id, v.created_at, v.title, v.file_ref,
    h.watched_at,
    o.username, o.full_name, o.avatar_ref
FROM watch_history h
JOIN videos v ON v.id = h.video_id
JOIN users o ON o.id = v.owner_id
WHERE h.user_id = $1
ORDER BY h.watched_at DESC
`

func (r *HistoryRepo) ListWatched(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	rows, _ := r.DB.Query(ctx, listWatched, userID)
	watched, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.WatchedVideo, error) {
		var w models.WatchedVideo
		err := row.Scan(
			&w.Video.ID,
			&w.Video.OwnerID,
			&w.Video.CreatedAt,
			&w.Video.Title,
			&w.Video.FileRef,
			&w.WatchedAt,
			&w.OwnerUsername,
			&w.OwnerFullName,
			&w.OwnerAvatar,
		)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return watched, nil
}
