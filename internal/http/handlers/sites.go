package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/appsisted/parkhub/internal/config"
	"github.com/appsisted/parkhub/internal/domain/parking"
	"github.com/appsisted/parkhub/internal/domain/site"
	"github.com/appsisted/parkhub/internal/store"
	"github.com/gin-gonic/gin"
)

type SiteService interface {
	Get(ctx context.Context, location, name string) (site.Site, error)
	List(ctx context.Context, location string) ([]site.Site, error)
	Reserve(ctx context.Context, location, name string) (int, error)
	Release(ctx context.Context, location, name string) error
}

type SitesHandler struct {
	sites SiteService
}

func NewSitesHandler(sites SiteService) *SitesHandler {
	return &SitesHandler{sites: sites}
}

func (h *SitesHandler) List(ctx *gin.Context) {
	location := ctx.Query("location")

	if location == "" {
		RespondBadRequest(ctx, "location query parameter is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.sites.List(cctx, location)

	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			RespondUnavailable(ctx, "Storage unavailable, retry later.")
			return
		}

		RespondInternal(ctx, "Could not list sites")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *SitesHandler) Get(ctx *gin.Context) {
	location := ctx.Param("location")
	name := ctx.Param("site")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	s, err := h.sites.Get(cctx, location, name)

	if err != nil {
		respondSiteError(ctx, err, "Could not fetch site")
		return
	}

	ctx.JSON(http.StatusOK, s)
}

func (h *SitesHandler) Reserve(ctx *gin.Context) {
	location := ctx.Param("location")
	name := ctx.Param("site")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	available, err := h.sites.Reserve(cctx, location, name)

	if err != nil {
		respondSiteError(ctx, err, "Could not reserve a slot")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"available": available})
}

func (h *SitesHandler) Release(ctx *gin.Context) {
	location := ctx.Param("location")
	name := ctx.Param("site")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.sites.Release(cctx, location, name); err != nil {
		respondSiteError(ctx, err, "Could not release the slot")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func respondSiteError(ctx *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, site.ErrNotFound):
		RespondNotFound(ctx, "Parking site not found")
	case errors.Is(err, site.ErrFull):
		RespondConflict(ctx, "site_full", "No slots available at this site.")
	case errors.Is(err, parking.ErrConflict):
		RespondConflict(ctx, "conflict", "Too much contention, try again.")
	case errors.Is(err, store.ErrUnavailable):
		RespondUnavailable(ctx, "Storage unavailable, retry later.")
	default:
		RespondInternal(ctx, fallback)
	}
}
