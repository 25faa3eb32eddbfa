package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/appsisted/parkhub/internal/config"
	"github.com/appsisted/parkhub/internal/domain/parking"
	"github.com/appsisted/parkhub/internal/domain/site"
	"github.com/appsisted/parkhub/internal/domain/user"
	"github.com/appsisted/parkhub/internal/store"
	"github.com/gin-gonic/gin"
)

type SessionStarter interface {
	StartSession(ctx context.Context, username, location, name string) (parking.Session, error)
}

type ParkingHandler struct {
	ledger SessionStarter
}

func NewParkingHandler(ledger SessionStarter) *ParkingHandler {
	return &ParkingHandler{ledger: ledger}
}

// Start reserves a slot and charges for it in one flow. The reservation is
// released again if the charge cannot be applied.
func (h *ParkingHandler) Start(ctx *gin.Context) {
	var req parking.StartSessionRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	session, err := h.ledger.StartSession(cctx, req.Username, req.Location, req.Site)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "Unknown user")
		case errors.Is(err, site.ErrNotFound):
			RespondNotFound(ctx, "Parking site not found")
		case errors.Is(err, site.ErrFull):
			RespondConflict(ctx, "site_full", "No slots available at this site.")
		case errors.Is(err, parking.ErrConflict):
			RespondConflict(ctx, "conflict", "Too much contention, try again.")
		case errors.Is(err, store.ErrUnavailable):
			RespondUnavailable(ctx, "Storage unavailable, retry later.")
		default:
			RespondInternal(ctx, "Could not start parking session")
		}
		return
	}

	ctx.JSON(http.StatusOK, session)
}
