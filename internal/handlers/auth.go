package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/okonst/vidstream/internal/handlers/render"
	"github.com/okonst/vidstream/internal/handlers/userctx"
	"github.com/okonst/vidstream/internal/models"
)

type authService interface {
	Login(ctx context.Context, username string, email string, password string) (models.TokenPair, models.User, error)
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error

	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)
	ClearTokensFromResponse(w http.ResponseWriter)
	GetRefreshString(r *http.Request) string
}

type AuthHandler struct {
	auth authService
}

func NewAuth(auth authService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Handler returns session endpoints. Login and refresh are public by
// nature, logout and password change require an authenticated caller.
func (h *AuthHandler) Handler(withAuth func(next http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /refresh", h.refresh)
	mux.Handle("POST /logout", withAuth(http.HandlerFunc(h.logout)))
	mux.Handle("POST /change-password", withAuth(http.HandlerFunc(h.changePassword)))

	return mux
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password" validate:"required"`
	}
	type LoginSuccessResponse struct {
		User         UserResponse `json:"user"`
		AccessToken  string       `json:"access_token"`
		RefreshToken string       `json:"refresh_token"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	pair, user, err := h.auth.Login(r.Context(), data.Username, data.Email, data.Password)
	if err != nil {
		appError(w, err)
		return
	}

	h.auth.SetTokenPairToResponse(w, pair)
	render.Success(w, LoginSuccessResponse{
		User:         newUserResponse(user),
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
	}, "User logged in successfully")
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshSuccessResponse struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}

	pair, err := h.auth.Refresh(r.Context(), h.auth.GetRefreshString(r))
	if err != nil {
		appError(w, err)
		return
	}

	h.auth.SetTokenPairToResponse(w, pair)
	render.Success(w, RefreshSuccessResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
	}, "Access token refreshed")
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.auth.Logout(r.Context(), user.ID); err != nil {
		appError(w, err)
		return
	}

	h.auth.ClearTokensFromResponse(w)
	render.Success(w, nil, "User logged out")
}

func (h *AuthHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	type ChangePasswordRequest struct {
		OldPassword string `json:"old_password" validate:"required"`
		NewPassword string `json:"new_password" validate:"required,min=8"`
	}

	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data, err := render.BindAndValidate[ChangePasswordRequest](w, r)
	if err != nil {
		return
	}

	if err := h.auth.ChangePassword(r.Context(), user.ID, data.OldPassword, data.NewPassword); err != nil {
		appError(w, err)
		return
	}

	render.Success(w, nil, "Password changed successfully")
}
