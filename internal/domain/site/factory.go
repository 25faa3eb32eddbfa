package site

import "github.com/google/uuid"

// CodeFunc produces the opaque access code a driver presents at the barrier.
// Pluggable so tests and alternative deployments can generate predictable codes.
type CodeFunc func(location, site string) string

// DefaultCode yields "<location>+<site>+<uuid>", the historical code format.
func DefaultCode(location, site string) string {
	return location + "+" + site + "+" + uuid.NewString()
}

func NewFromCreateRequest(req CreateSiteRequest, code CodeFunc) Site {
	if code == nil {
		code = DefaultCode
	}

	return Site{
		Location:  req.Location,
		Name:      req.Site,
		Capacity:  req.Capacity,
		Available: req.Capacity,
		Lat:       req.Lat,
		Lon:       req.Lon,
		Code:      code(req.Location, req.Site),
		Price:     req.Price,
	}
}
