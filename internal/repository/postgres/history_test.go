package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okonst/vidstream/internal/apperrors"
	"github.com/okonst/vidstream/internal/models"
	"github.com/okonst/vidstream/internal/testutil"
)

func Test_HistoryRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create video", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			r := HistoryRepo{DB: tx}

			owner := mustCreateUser(t, &users, "creator", "creator@example.com")

			video, err := r.CreateVideo(t.Context(), models.Video{
				OwnerID: owner.ID,
				Title:   "First video",
				FileRef: "media/2026/08/28/video",
			})

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, video.ID, "id should be generated")
			assert.Equal(t, owner.ID, video.OwnerID)
			assert.Equal(t, "First video", video.Title)
			assert.WithinDuration(t, time.Now(), video.CreatedAt, time.Second)
		})
	})

	t.Run("watch history", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			r := HistoryRepo{DB: tx}

			owner := mustCreateUser(t, &users, "creator", "creator@example.com")
			viewer := mustCreateUser(t, &users, "viewer", "viewer@example.com")

			first, err := r.CreateVideo(t.Context(), models.Video{OwnerID: owner.ID, Title: "First"})
			require.NoError(t, err)
			second, err := r.CreateVideo(t.Context(), models.Video{OwnerID: owner.ID, Title: "Second"})
			require.NoError(t, err)

			require.NoError(t, r.AddWatched(t.Context(), viewer.ID, first.ID))
			require.NoError(t, r.AddWatched(t.Context(), viewer.ID, second.ID))

			// now() inside a transaction is frozen, bump the clock manually
			_, err = tx.Exec(t.Context(),
				"UPDATE watch_history SET watched_at = watched_at + interval '1 hour' WHERE user_id = $1 AND video_id = $2",
				viewer.ID, second.ID,
			)
			require.NoError(t, err)

			watched, err := r.ListWatched(t.Context(), viewer.ID)

			require.NoError(t, err)
			require.Len(t, watched, 2)
			assert.Equal(t, "Second", watched[0].Video.Title, "newest watch comes first")
			assert.Equal(t, "First", watched[1].Video.Title)
			assert.Equal(t, "creator", watched[0].OwnerUsername)
		})
	})

	t.Run("rewatching moves entry up", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			r := HistoryRepo{DB: tx}

			owner := mustCreateUser(t, &users, "creator", "creator@example.com")
			viewer := mustCreateUser(t, &users, "viewer", "viewer@example.com")

			first, err := r.CreateVideo(t.Context(), models.Video{OwnerID: owner.ID, Title: "First"})
			require.NoError(t, err)
			second, err := r.CreateVideo(t.Context(), models.Video{OwnerID: owner.ID, Title: "Second"})
			require.NoError(t, err)

			require.NoError(t, r.AddWatched(t.Context(), viewer.ID, first.ID))
			require.NoError(t, r.AddWatched(t.Context(), viewer.ID, second.ID))

			// now() inside a transaction is frozen, bump the clock manually
			_, err = tx.Exec(t.Context(),
				"UPDATE watch_history SET watched_at = watched_at + interval '1 hour' WHERE user_id = $1 AND video_id = $2",
				viewer.ID, first.ID,
			)
			require.NoError(t, err)

			watched, err := r.ListWatched(t.Context(), viewer.ID)

			require.NoError(t, err)
			require.Len(t, watched, 2, "rewatch must not duplicate the entry")
			assert.Equal(t, "First", watched[0].Video.Title)
		})
	})

	t.Run("watching unknown video", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			r := HistoryRepo{DB: tx}

			viewer := mustCreateUser(t, &users, "viewer", "viewer@example.com")

			err := r.AddWatched(t.Context(), viewer.ID, uuid.New())

			assert.ErrorIs(t, err, apperrors.ErrVideoNotFound, "should return well known error")
		})
	})

	t.Run("empty history", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{DB: tx}
			r := HistoryRepo{DB: tx}

			viewer := mustCreateUser(t, &users, "viewer", "viewer@example.com")

			watched, err := r.ListWatched(t.Context(), viewer.ID)

			require.NoError(t, err)
			assert.Empty(t, watched)
		})
	})
}
