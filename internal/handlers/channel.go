package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/okonst/vidstream/internal/apperrors"
	"github.com/okonst/vidstream/internal/handlers/render"
	"github.com/okonst/vidstream/internal/handlers/userctx"
	"github.com/okonst/vidstream/internal/models"
)

type channelService interface {
	GetChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (models.ChannelProfile, error)
	Subscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error
	Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error
}

type ChannelHandler struct {
	channelService channelService
}

func NewChannel(channelService channelService) *ChannelHandler {
	return &ChannelHandler{channelService: channelService}
}

// Handler returns channel endpoints. The profile is public; an
// authenticated viewer personalizes the is_subscribed flag.
func (h *ChannelHandler) Handler(
	withAuth func(next http.Handler) http.Handler,
	withMaybeAuth func(next http.Handler) http.Handler,
) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /channels/{username}", withMaybeAuth(http.HandlerFunc(h.profile)))
	mux.Handle("POST /channels/{username}/subscription", withAuth(http.HandlerFunc(h.subscribe)))
	mux.Handle("DELETE /channels/{username}/subscription", withAuth(http.HandlerFunc(h.unsubscribe)))

	return mux
}

func (h *ChannelHandler) profile(w http.ResponseWriter, r *http.Request) {
	type ChannelProfileResponse struct {
		Username          string `json:"username"`
		FullName          string `json:"full_name"`
		Email             string `json:"email"`
		Avatar            string `json:"avatar,omitempty"`
		Cover             string `json:"cover,omitempty"`
		SubscriberCount   int64  `json:"subscriber_count"`
		SubscribedToCount int64  `json:"subscribed_to_count"`
		IsSubscribed      bool   `json:"is_subscribed"`
	}

	username := r.PathValue("username")
	if username == "" {
		render.ServiceError(w, "Username is missing", http.StatusBadRequest)
		return
	}

	// Anonymous viewers get is_subscribed == false
	viewerID := uuid.Nil
	if viewer, ok := userctx.FromContext(r.Context()); ok {
		viewerID = viewer.ID
	}

	profile, err := h.channelService.GetChannelProfile(r.Context(), username, viewerID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrChannelNotFound):
			render.ServiceError(w, "Channel does not exist", http.StatusNotFound)
		default:
			appError(w, err)
		}
		return
	}

	render.Success(w, ChannelProfileResponse{
		Username:          profile.Username,
		FullName:          profile.FullName,
		Email:             profile.Email,
		Avatar:            profile.AvatarRef,
		Cover:             profile.CoverRef,
		SubscriberCount:   profile.SubscriberCount,
		SubscribedToCount: profile.SubscribedToCount,
		IsSubscribed:      profile.IsSubscribed,
	}, "User channel fetched successfully")
}

func (h *ChannelHandler) subscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	err := h.channelService.Subscribe(r.Context(), user.ID, r.PathValue("username"))
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrChannelNotFound):
			render.ServiceError(w, "Channel does not exist", http.StatusNotFound)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.Success(w, nil, "Subscribed successfully")
}

func (h *ChannelHandler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	err := h.channelService.Unsubscribe(r.Context(), user.ID, r.PathValue("username"))
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrChannelNotFound):
			render.ServiceError(w, "Channel does not exist", http.StatusNotFound)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.Success(w, nil, "Unsubscribed successfully")
}
