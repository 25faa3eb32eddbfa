package sites_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/appsisted/parkhub/internal/domain/parking"
	"github.com/appsisted/parkhub/internal/domain/site"
	"github.com/appsisted/parkhub/internal/repo/memory"
	"github.com/appsisted/parkhub/internal/service/sites"
)

func newRegistry() *sites.Registry {
	r := sites.New(memory.NewSitesRepo(), nil, nil)
	// a storm of concurrent swaps needs more headroom than the production
	// default
	r.Retries = 512

	return r
}

func createSite(t *testing.T, r *sites.Registry, name string, capacity int) site.Site {
	t.Helper()

	s, err := r.Create(context.Background(), site.CreateSiteRequest{
		Location: "stirling",
		Site:     name,
		Capacity: capacity,
		Price:    2.5,
	})

	if err != nil {
		t.Fatalf("create site: %v", err)
	}

	return s
}

func TestCreateRoundTrip(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	created := createSite(t, r, "ONE", 100)

	if created.Available != created.Capacity {
		t.Fatalf("available = %d, want capacity %d", created.Available, created.Capacity)
	}

	if created.Code == "" {
		t.Fatal("no access code assigned")
	}

	got, err := r.Get(ctx, "stirling", "ONE")

	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Capacity != created.Capacity || got.Price != created.Price || got.Name != "ONE" || got.Location != "stirling" {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, created)
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	r := newRegistry()

	first := createSite(t, r, "ONE", 100)

	// a bootstrap re-run must not reset or duplicate the row
	again, err := r.Create(context.Background(), site.CreateSiteRequest{
		Location: "stirling",
		Site:     "ONE",
		Capacity: 999,
		Price:    9.9,
	})

	if err != nil {
		t.Fatalf("re-create: %v", err)
	}

	if again.Capacity != first.Capacity || again.Code != first.Code {
		t.Fatalf("re-create altered the row: %+v vs %+v", again, first)
	}
}

func TestGetUnknownSite(t *testing.T) {
	r := newRegistry()

	if _, err := r.Get(context.Background(), "stirling", "NOPE"); !errors.Is(err, site.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestReserveStorm(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	const capacity = 100
	const callers = 150

	createSite(t, r, "ONE", capacity)

	var wg sync.WaitGroup
	var mu sync.Mutex
	reserved := 0
	full := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := r.Reserve(ctx, "stirling", "ONE")

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				reserved++
			case errors.Is(err, site.ErrFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if reserved != capacity {
		t.Fatalf("reserved = %d, want %d", reserved, capacity)
	}

	if full != callers-capacity {
		t.Fatalf("full = %d, want %d", full, callers-capacity)
	}

	s, err := r.Get(ctx, "stirling", "ONE")

	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if s.Available != 0 {
		t.Fatalf("available after storm = %d, want 0", s.Available)
	}
}

func TestReleaseRestoresAndClamps(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	createSite(t, r, "TWO", 2)

	if _, err := r.Reserve(ctx, "stirling", "TWO"); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := r.Release(ctx, "stirling", "TWO"); err != nil {
		t.Fatalf("release: %v", err)
	}

	s, err := r.Get(ctx, "stirling", "TWO")

	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if s.Available != s.Capacity {
		t.Fatalf("available = %d, want %d", s.Available, s.Capacity)
	}

	// releasing with a full slate must never push available past capacity
	if err := r.Release(ctx, "stirling", "TWO"); err != nil {
		t.Fatalf("clamped release: %v", err)
	}

	s, err = r.Get(ctx, "stirling", "TWO")

	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if s.Available != s.Capacity {
		t.Fatalf("available = %d after clamped release, want %d", s.Available, s.Capacity)
	}
}

func TestReserveDrainedSite(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	createSite(t, r, "THREE", 1)

	if _, err := r.Reserve(ctx, "stirling", "THREE"); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if _, err := r.Reserve(ctx, "stirling", "THREE"); !errors.Is(err, site.ErrFull) {
		t.Fatalf("got %v, want ErrFull", err)
	}
}

// fake SiteStore for failure injection, function-field style

type fakeSiteStore struct {
	getFn    func(ctx context.Context, location, name string) (site.Site, error)
	listFn   func(ctx context.Context, location string) ([]site.Site, error)
	insertFn func(ctx context.Context, s site.Site) (bool, error)
	casFn    func(ctx context.Context, location, name string, expected, next int) (bool, int, error)
}

func (f *fakeSiteStore) Get(ctx context.Context, location, name string) (site.Site, error) {
	if f.getFn != nil {
		return f.getFn(ctx, location, name)
	}

	return site.Site{}, site.ErrNotFound
}

func (f *fakeSiteStore) List(ctx context.Context, location string) ([]site.Site, error) {
	if f.listFn != nil {
		return f.listFn(ctx, location)
	}

	return nil, nil
}

func (f *fakeSiteStore) Insert(ctx context.Context, s site.Site) (bool, error) {
	if f.insertFn != nil {
		return f.insertFn(ctx, s)
	}

	return true, nil
}

func (f *fakeSiteStore) CompareAndSetAvailable(ctx context.Context, location, name string, expected, next int) (bool, int, error) {
	if f.casFn != nil {
		return f.casFn(ctx, location, name, expected, next)
	}

	return true, next, nil
}

func TestReserveStaleZeroRead(t *testing.T) {
	// the quorum read claims empty while the serial path still sees slots;
	// the reservation must go through instead of a premature ErrFull
	fs := &fakeSiteStore{
		getFn: func(ctx context.Context, location, name string) (site.Site, error) {
			return site.Site{Location: location, Name: name, Capacity: 5, Available: 0}, nil
		},
		casFn: func(ctx context.Context, location, name string, expected, next int) (bool, int, error) {
			if expected == 0 {
				// the no-op confirmation swap loses against the live count
				return false, 3, nil
			}

			if expected == 3 && next == 2 {
				return true, 2, nil
			}

			return false, 3, nil
		},
	}

	r := sites.New(fs, nil, nil)

	got, err := r.Reserve(context.Background(), "stirling", "ONE")

	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if got != 2 {
		t.Fatalf("available = %d, want 2", got)
	}
}

func TestReserveConfirmedFull(t *testing.T) {
	fs := &fakeSiteStore{
		getFn: func(ctx context.Context, location, name string) (site.Site, error) {
			return site.Site{Location: location, Name: name, Capacity: 5, Available: 0}, nil
		},
		casFn: func(ctx context.Context, location, name string, expected, next int) (bool, int, error) {
			if expected != 0 || next != 0 {
				t.Fatalf("unexpected swap %d -> %d on a drained site", expected, next)
			}

			return true, 0, nil
		},
	}

	r := sites.New(fs, nil, nil)

	if _, err := r.Reserve(context.Background(), "stirling", "ONE"); !errors.Is(err, site.ErrFull) {
		t.Fatalf("got %v, want ErrFull", err)
	}
}

func TestReserveConflictAfterRetryBudget(t *testing.T) {
	// slots remain but every swap loses; that is contention, not a full site
	fs := &fakeSiteStore{
		getFn: func(ctx context.Context, location, name string) (site.Site, error) {
			return site.Site{Location: location, Name: name, Capacity: 5, Available: 5}, nil
		},
		casFn: func(ctx context.Context, location, name string, expected, next int) (bool, int, error) {
			return false, 5, nil
		},
	}

	r := sites.New(fs, nil, nil)
	r.Retries = 3

	if _, err := r.Reserve(context.Background(), "stirling", "ONE"); !errors.Is(err, parking.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
}

func TestSeedIsRepeatable(t *testing.T) {
	r := newRegistry()
	ctx := context.Background()

	if err := r.Seed(ctx, sites.DefaultSeed()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	one, err := r.Get(ctx, "stirling", "ONE")

	if err != nil {
		t.Fatalf("get seeded site: %v", err)
	}

	// drain a slot, then re-seed: the row must survive untouched
	if _, err := r.Reserve(ctx, "stirling", "ONE"); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := r.Seed(ctx, sites.DefaultSeed()); err != nil {
		t.Fatalf("re-seed: %v", err)
	}

	again, err := r.Get(ctx, "stirling", "ONE")

	if err != nil {
		t.Fatalf("get after re-seed: %v", err)
	}

	if again.Available != one.Capacity-1 || again.Code != one.Code {
		t.Fatalf("re-seed reset the row: %+v", again)
	}

	all, err := r.List(ctx, "stirling")

	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(all) != 3 {
		t.Fatalf("seeded sites = %d, want 3", len(all))
	}
}
