package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okonst/vidstream/internal/apperrors"
	"github.com/okonst/vidstream/internal/handlers/render"
	"github.com/okonst/vidstream/internal/handlers/userctx"
	"github.com/okonst/vidstream/internal/models"
	"github.com/okonst/vidstream/internal/service/user"
)

type userService interface {
	Register(ctx context.Context, arg user.RegisterParams) (models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error)
	SetAvatar(ctx context.Context, userID uuid.UUID, ref string) (models.User, error)
	SetCover(ctx context.Context, userID uuid.UUID, ref string) (models.User, error)
	WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error)
	AddWatched(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) error
}

type UserHandler struct {
	userService userService
}

func NewUser(userService userService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Handler returns account endpoints. Registration is public, everything
// under /me operates on the authenticated account.
func (h *UserHandler) Handler(withAuth func(next http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", h.register)
	mux.Handle("GET /me", withAuth(http.HandlerFunc(h.me)))
	mux.Handle("PATCH /me", withAuth(http.HandlerFunc(h.updateProfile)))
	mux.Handle("PATCH /me/avatar", withAuth(http.HandlerFunc(h.updateAvatar)))
	mux.Handle("PATCH /me/cover", withAuth(http.HandlerFunc(h.updateCover)))
	mux.Handle("GET /me/history", withAuth(http.HandlerFunc(h.watchHistory)))
	mux.Handle("POST /me/history", withAuth(http.HandlerFunc(h.addWatched)))

	return mux
}

func (h *UserHandler) register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Username string `json:"username" validate:"required,min=2,max=50"`
		Email    string `json:"email" validate:"required,email"`
		FullName string `json:"full_name" validate:"required"`
		Password string `json:"password" validate:"required,min=8"`
		Avatar   string `json:"avatar"`
		Cover    string `json:"cover"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		return
	}

	created, err := h.userService.Register(r.Context(), user.RegisterParams{
		Username:  data.Username,
		Email:     data.Email,
		FullName:  data.FullName,
		Password:  data.Password,
		AvatarRef: data.Avatar,
		CoverRef:  data.Cover,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User with email or username already exists", http.StatusConflict)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.SuccessWithStatus(w, newUserResponse(created), "User registered successfully", http.StatusCreated)
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.Success(w, newUserResponse(user), "Current user fetched successfully")
}

func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	type UpdateProfileRequest struct {
		FullName string `json:"full_name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
	}

	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data, err := render.BindAndValidate[UpdateProfileRequest](w, r)
	if err != nil {
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user.ID, data.FullName, data.Email)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "Email is already taken", http.StatusConflict)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.Success(w, newUserResponse(updated), "Account details updated successfully")
}

func (h *UserHandler) updateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateMediaRef(w, r, h.userService.SetAvatar, "Avatar updated successfully")
}

func (h *UserHandler) updateCover(w http.ResponseWriter, r *http.Request) {
	h.updateMediaRef(w, r, h.userService.SetCover, "Cover image updated successfully")
}

func (h *UserHandler) updateMediaRef(
	w http.ResponseWriter,
	r *http.Request,
	set func(ctx context.Context, userID uuid.UUID, ref string) (models.User, error),
	message string,
) {
	type UpdateMediaRequest struct {
		Ref string `json:"ref" validate:"required"`
	}

	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data, err := render.BindAndValidate[UpdateMediaRequest](w, r)
	if err != nil {
		return
	}

	updated, err := set(r.Context(), user.ID, data.Ref)
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.Success(w, newUserResponse(updated), message)
}

func (h *UserHandler) watchHistory(w http.ResponseWriter, r *http.Request) {
	type WatchedOwnerResponse struct {
		Username string `json:"username"`
		FullName string `json:"full_name"`
		Avatar   string `json:"avatar,omitempty"`
	}
	type WatchedVideoResponse struct {
		ID        uuid.UUID            `json:"id"`
		Title     string               `json:"title"`
		FileRef   string               `json:"file_ref"`
		WatchedAt time.Time            `json:"watched_at"`
		Owner     WatchedOwnerResponse `json:"owner"`
	}

	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	watched, err := h.userService.WatchHistory(r.Context(), user.ID)
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	res := make([]WatchedVideoResponse, 0, len(watched))
	for _, wv := range watched {
		res = append(res, WatchedVideoResponse{
			ID:        wv.Video.ID,
			Title:     wv.Video.Title,
			FileRef:   wv.Video.FileRef,
			WatchedAt: wv.WatchedAt,
			Owner: WatchedOwnerResponse{
				Username: wv.OwnerUsername,
				FullName: wv.OwnerFullName,
				Avatar:   wv.OwnerAvatar,
			},
		})
	}

	render.Success(w, res, "Watch history fetched successfully")
}

func (h *UserHandler) addWatched(w http.ResponseWriter, r *http.Request) {
	type AddWatchedRequest struct {
		VideoID uuid.UUID `json:"video_id" validate:"required"`
	}

	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data, err := render.BindAndValidate[AddWatchedRequest](w, r)
	if err != nil {
		return
	}

	err = h.userService.AddWatched(r.Context(), user.ID, data.VideoID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrVideoNotFound):
			render.ServiceError(w, "Video does not exist", http.StatusNotFound)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.Success(w, nil, "Video added to watch history")
}
