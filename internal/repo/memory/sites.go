package memory

import (
	"context"
	"sync"

	"github.com/appsisted/parkhub/internal/domain/site"
)

type siteKey struct {
	location string
	name     string
}

type SitesRepo struct {
	mu    sync.Mutex
	items map[siteKey]site.Site
}

func NewSitesRepo() *SitesRepo {
	return &SitesRepo{
		items: make(map[siteKey]site.Site),
	}
}

func (r *SitesRepo) Get(ctx context.Context, location, name string) (site.Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[siteKey{location, name}]

	if !ok {
		return site.Site{}, site.ErrNotFound
	}

	return s, nil
}

func (r *SitesRepo) List(ctx context.Context, location string) ([]site.Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]site.Site, 0)

	for k, s := range r.items {
		if k.location == location {
			out = append(out, s)
		}
	}

	return out, nil
}

func (r *SitesRepo) Insert(ctx context.Context, s site.Site) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := siteKey{s.Location, s.Name}

	if _, ok := r.items[k]; ok {
		return false, nil
	}

	r.items[k] = s

	return true, nil
}

func (r *SitesRepo) CompareAndSetAvailable(ctx context.Context, location, name string, expected, next int) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := siteKey{location, name}
	s, ok := r.items[k]

	if !ok {
		return false, 0, site.ErrNotFound
	}

	if s.Available != expected {
		return false, s.Available, nil
	}

	s.Available = next
	r.items[k] = s

	return true, next, nil
}
