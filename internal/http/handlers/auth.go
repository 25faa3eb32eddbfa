package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/appsisted/parkhub/internal/config"
	"github.com/appsisted/parkhub/internal/domain/user"
	"github.com/appsisted/parkhub/internal/security"
	"github.com/appsisted/parkhub/internal/store"
	"github.com/gin-gonic/gin"
)

type UserService interface {
	Register(ctx context.Context, username, password string) (user.User, error)
	Authenticate(ctx context.Context, username, password string) (user.User, error)
	Get(ctx context.Context, username string) (user.User, error)
	UpdateSettings(ctx context.Context, username, location, site string) error
}

type UsersHandler struct {
	users UserService
}

func NewUsersHandler(users UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.users.Register(cctx, req.Username, req.Password)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidInput):
			RespondBadRequest(ctx, "Username and password must not be empty", nil)
		case errors.Is(err, user.ErrDuplicate):
			RespondConflict(ctx, "username_taken", "Username already taken.")
		case errors.Is(err, security.ErrCryptoUnavailable):
			RespondInternal(ctx, "Could not create account")
		case errors.Is(err, store.ErrUnavailable):
			RespondUnavailable(ctx, "Storage unavailable, retry later.")
		default:
			RespondInternal(ctx, "Could not create account")
		}
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *UsersHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.Authenticate(cctx, req.Username, req.Password)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "Unknown user")
		case errors.Is(err, user.ErrInvalidCredentials):
			RespondUnAuthorized(ctx, "invalid_credentials", "Username or password is incorrect.")
		case errors.Is(err, store.ErrUnavailable):
			RespondUnavailable(ctx, "Storage unavailable, retry later.")
		default:
			RespondInternal(ctx, "Could not authenticate")
		}
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	username := ctx.Param("username")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.Get(cctx, username)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "Unknown user")
		case errors.Is(err, store.ErrUnavailable):
			RespondUnavailable(ctx, "Storage unavailable, retry later.")
		default:
			RespondInternal(ctx, "Could not fetch user")
		}
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) UpdateSettings(ctx *gin.Context) {
	username := ctx.Param("username")

	var req user.UpdateSettingsRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.users.UpdateSettings(cctx, username, req.Location, req.Site)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "Unknown user")
		case errors.Is(err, store.ErrUnavailable):
			RespondUnavailable(ctx, "Storage unavailable, retry later.")
		default:
			RespondInternal(ctx, "Could not update settings")
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}
