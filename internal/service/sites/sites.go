package sites

import (
	"context"
	"encoding/json"

	"github.com/appsisted/parkhub/internal/cache"
	"github.com/appsisted/parkhub/internal/domain/parking"
	"github.com/appsisted/parkhub/internal/domain/site"
	"github.com/appsisted/parkhub/internal/observability"
)

// SiteStore is what the registry needs from storage. CompareAndSetAvailable
// must apply atomically and report the stored count when the swap loses.
type SiteStore interface {
	Get(ctx context.Context, location, name string) (site.Site, error)
	List(ctx context.Context, location string) ([]site.Site, error)
	Insert(ctx context.Context, s site.Site) (bool, error)
	CompareAndSetAvailable(ctx context.Context, location, name string, expected, next int) (bool, int, error)
}

type Registry struct {
	store SiteStore
	cache cache.Cache
	prom  *observability.Prom
	code  site.CodeFunc

	// Retries bounds the compare-and-swap loops in Reserve and Release.
	Retries int
}

func New(store SiteStore, c cache.Cache, prom *observability.Prom) *Registry {
	return &Registry{
		store:   store,
		cache:   c,
		prom:    prom,
		code:    site.DefaultCode,
		Retries: 8,
	}
}

// cached sites need the access code round-tripped, which the public JSON
// shape deliberately hides
type cachedSite struct {
	site.Site
	Code string `json:"code"`
}

func siteCacheKey(location, name string) string {
	return "sites:v1:" + location + ":" + name
}

// Create inserts the site with a fresh access code and available=capacity.
// Re-creating an existing (location, site) key is a no-op that returns the
// stored row, so bootstrap re-runs are harmless.
func (g *Registry) Create(ctx context.Context, req site.CreateSiteRequest) (site.Site, error) {
	s := site.NewFromCreateRequest(req, g.code)

	applied, err := g.store.Insert(ctx, s)

	if err != nil {
		return site.Site{}, err
	}

	if !applied {
		return g.store.Get(ctx, s.Location, s.Name)
	}

	g.invalidate(ctx, s.Location, s.Name)

	return s, nil
}

// Get serves the display path: cache first, then a quorum read. Staleness of
// the available count here is acceptable, reservations never trust it.
func (g *Registry) Get(ctx context.Context, location, name string) (site.Site, error) {
	key := siteCacheKey(location, name)

	if g.cache != nil {
		if raw, ok := g.cache.Get(ctx, key); ok {
			var c cachedSite

			if json.Unmarshal(raw, &c) == nil {
				c.Site.Code = c.Code
				return c.Site, nil
			}
		}
	}

	s, err := g.store.Get(ctx, location, name)

	if err != nil {
		return site.Site{}, err
	}

	if g.cache != nil {
		if raw, merr := json.Marshal(cachedSite{Site: s, Code: s.Code}); merr == nil {
			g.cache.Set(ctx, key, raw)
		}
	}

	return s, nil
}

func (g *Registry) List(ctx context.Context, location string) ([]site.Site, error) {
	return g.store.List(ctx, location)
}

// Reserve takes one slot: test available > 0 and decrement in a single
// conditional write. A lost swap re-reads the count the store reported and
// tries again within the retry budget. A zero count is confirmed through the
// serial path before failing ErrFull, so a stale quorum read alone never turns
// callers away. available never goes below zero.
func (g *Registry) Reserve(ctx context.Context, location, name string) (int, error) {
	s, err := g.store.Get(ctx, location, name)

	if err != nil {
		return 0, err
	}

	avail := s.Available

	for attempt := 0; attempt <= g.Retries; attempt++ {
		if avail <= 0 {
			// a swap of 0 for 0 reads the live count through the same
			// serial path the decrement uses, without changing it
			applied, current, err := g.store.CompareAndSetAvailable(ctx, location, name, 0, 0)

			if err != nil {
				g.outcome("error")
				return 0, err
			}

			if applied {
				g.outcome("full")
				return 0, site.ErrFull
			}

			g.retried("sites.reserve")
			avail = current
			continue
		}

		applied, current, err := g.store.CompareAndSetAvailable(ctx, location, name, avail, avail-1)

		if err != nil {
			g.outcome("error")
			return 0, err
		}

		if applied {
			g.invalidate(ctx, location, name)
			g.outcome("reserved")
			return avail - 1, nil
		}

		g.retried("sites.reserve")
		avail = current
	}

	g.outcome("conflict")
	return 0, parking.ErrConflict
}

// Release puts one slot back, clamped at capacity so repeated compensations
// can never make available exceed the fixed capacity.
func (g *Registry) Release(ctx context.Context, location, name string) error {
	s, err := g.store.Get(ctx, location, name)

	if err != nil {
		return err
	}

	avail := s.Available

	for attempt := 0; attempt <= g.Retries; attempt++ {
		if avail >= s.Capacity {
			return nil
		}

		applied, current, err := g.store.CompareAndSetAvailable(ctx, location, name, avail, avail+1)

		if err != nil {
			g.outcome("error")
			return err
		}

		if applied {
			g.invalidate(ctx, location, name)
			g.outcome("released")
			return nil
		}

		g.retried("sites.release")
		avail = current
	}

	g.outcome("conflict")
	return parking.ErrConflict
}

func (g *Registry) invalidate(ctx context.Context, location, name string) {
	if g.cache != nil {
		g.cache.Delete(ctx, siteCacheKey(location, name))
	}
}

func (g *Registry) outcome(v string) {
	if g.prom != nil {
		g.prom.ReservationsTotal.WithLabelValues(v).Inc()
	}
}

func (g *Registry) retried(op string) {
	if g.prom != nil {
		g.prom.CasRetriesTotal.WithLabelValues(op).Inc()
	}
}
