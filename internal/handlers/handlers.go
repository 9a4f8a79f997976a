package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okonst/vidstream/internal/apperrors"
	"github.com/okonst/vidstream/internal/handlers/render"
	"github.com/okonst/vidstream/internal/models"
)

// UserResponse is the redacted account view: no password hash and no
// refresh token, whatever the handler
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Avatar    string    `json:"avatar,omitempty"`
	Cover     string    `json:"cover,omitempty"`
}

func newUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		CreatedAt: u.CreatedAt,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Avatar:    u.AvatarRef,
		Cover:     u.CoverRef,
	}
}

// appError maps error kinds to transport codes. Unknown errors render as
// opaque internal errors, their text stays in the logs.
func appError(w http.ResponseWriter, err error) {
	var code int
	switch apperrors.KindOf(err) {
	case apperrors.KindBadRequest:
		code = http.StatusBadRequest
	case apperrors.KindNotFound:
		code = http.StatusNotFound
	case apperrors.KindUnauthorized:
		code = http.StatusUnauthorized
	default:
		code = http.StatusInternalServerError
	}

	render.ServiceError(w, apperrors.MessageOf(err), code)
}
