package sites

import (
	"context"
	"fmt"

	"github.com/appsisted/parkhub/internal/domain/site"
)

type SeedSite struct {
	Location string
	Site     string
	Capacity int
	Lat      float64
	Lon      float64
	Price    float64
}

// DefaultSeed is the demo data set: one location, three sites with distinct
// capacities.
func DefaultSeed() []SeedSite {
	return []SeedSite{
		{Location: "stirling", Site: "ONE", Capacity: 100, Lat: 0.0, Lon: 0.0, Price: 2.5},
		{Location: "stirling", Site: "TWO", Capacity: 50, Lat: 0.0, Lon: 0.0, Price: 2.0},
		{Location: "stirling", Site: "THREE", Capacity: 30, Lat: 0.0, Lon: 0.0, Price: 1.0},
	}
}

// Seed creates every listed site. Goes through Create, so rows that already
// exist are left untouched and the routine can run at every boot.
func (g *Registry) Seed(ctx context.Context, seeds []SeedSite) error {
	for _, sd := range seeds {
		req := site.CreateSiteRequest{
			Location: sd.Location,
			Site:     sd.Site,
			Capacity: sd.Capacity,
			Lat:      sd.Lat,
			Lon:      sd.Lon,
			Price:    sd.Price,
		}

		if _, err := g.Create(ctx, req); err != nil {
			return fmt.Errorf("seed site %s/%s: %w", sd.Location, sd.Site, err)
		}
	}

	return nil
}
