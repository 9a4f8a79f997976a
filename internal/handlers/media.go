package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/okonst/vidstream/internal/handlers/render"
	"github.com/okonst/vidstream/internal/service/media"
)

type mediaService interface {
	PresignUpload(ctx context.Context) (media.Upload, error)
}

type MediaHandler struct {
	mediaService mediaService
}

func NewMedia(mediaService mediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

func (h *MediaHandler) Handler(withAuth func(next http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /media/uploads", withAuth(http.HandlerFunc(h.presignUpload)))

	return mux
}

// presignUpload grants a one-time upload slot: the client PUTs the file
// to the returned url and then submits key as its media ref
func (h *MediaHandler) presignUpload(w http.ResponseWriter, r *http.Request) {
	type PresignUploadResponse struct {
		Key       string    `json:"key"`
		URL       string    `json:"url"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	upload, err := h.mediaService.PresignUpload(r.Context())
	if err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.Success(w, PresignUploadResponse{
		Key:       upload.Key,
		URL:       upload.URL,
		ExpiresAt: upload.ExpiresAt,
	}, "Upload URL created successfully")
}
