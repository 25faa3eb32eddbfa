package cassandra

import (
	"context"
	"errors"
	"fmt"

	"github.com/appsisted/parkhub/internal/domain/site"
	"github.com/appsisted/parkhub/internal/observability"
	"github.com/appsisted/parkhub/internal/store"
	"github.com/gocql/gocql"
)

type SitesRepo struct {
	session *gocql.Session
	prom    *observability.Prom

	selectSite   string
	listSites    string
	insertSite   string
	casAvailable string
}

func NewSitesRepo(session *gocql.Session, keyspace string, prom *observability.Prom) *SitesRepo {
	table := keyspace + ".parkingsite"

	return &SitesRepo{
		session: session,
		prom:    prom,
		selectSite: fmt.Sprintf(
			`SELECT location, site, capacity, available, lat, lon, code, price FROM %s WHERE location = ? AND site = ?`, table),
		listSites: fmt.Sprintf(
			`SELECT location, site, capacity, available, lat, lon, code, price FROM %s WHERE location = ?`, table),
		insertSite: fmt.Sprintf(
			`INSERT INTO %s (location, site, capacity, available, lat, lon, code, price) VALUES (?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`, table),
		casAvailable: fmt.Sprintf(
			`UPDATE %s SET available = ? WHERE location = ? AND site = ? IF available = ?`, table),
	}
}

func (r *SitesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveStore(op, fn)
	}
	return fn()
}

func (r *SitesRepo) Get(ctx context.Context, location, name string) (s site.Site, err error) {
	err = r.observe("sites.get", func() error {
		return r.session.Query(r.selectSite, location, name).
			WithContext(ctx).
			Consistency(gocql.Quorum).
			Scan(&s.Location, &s.Name, &s.Capacity, &s.Available, &s.Lat, &s.Lon, &s.Code, &s.Price)
	})

	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			err = site.ErrNotFound
			return
		}

		err = store.WrapErr(err)
		return
	}

	return
}

func (r *SitesRepo) List(ctx context.Context, location string) ([]site.Site, error) {
	iter := r.session.Query(r.listSites, location).
		WithContext(ctx).
		Consistency(gocql.Quorum).
		Iter()

	sites := make([]site.Site, 0)

	var s site.Site
	for iter.Scan(&s.Location, &s.Name, &s.Capacity, &s.Available, &s.Lat, &s.Lon, &s.Code, &s.Price) {
		sites = append(sites, s)
	}

	if err := iter.Close(); err != nil {
		if r.prom != nil {
			r.prom.StoreErrorsTotal.WithLabelValues("sites.list", "iter").Inc()
		}
		return nil, store.WrapErr(err)
	}

	return sites, nil
}

// Insert creates the site row if absent. A lost race (or a bootstrap re-run)
// comes back as applied=false, which callers treat as a no-op, not an error.
func (r *SitesRepo) Insert(ctx context.Context, s site.Site) (applied bool, err error) {
	err = r.observe("sites.insert", func() error {
		var e error
		applied, e = r.session.Query(r.insertSite,
			s.Location, s.Name, s.Capacity, s.Available, s.Lat, s.Lon, s.Code, s.Price).
			WithContext(ctx).
			SerialConsistency(gocql.Serial).
			MapScanCAS(map[string]interface{}{})
		return e
	})

	if err != nil {
		return false, store.WrapErr(err)
	}

	return applied, nil
}

// CompareAndSetAvailable writes next only if the stored slot count still
// equals expected. The swap is the sole exclusion mechanism for reservations;
// there is no lock anywhere above it.
func (r *SitesRepo) CompareAndSetAvailable(ctx context.Context, location, name string, expected, next int) (bool, int, error) {
	previous := map[string]interface{}{}
	var applied bool

	err := r.observe("sites.cas_available", func() error {
		var e error
		applied, e = r.session.Query(r.casAvailable, next, location, name, expected).
			WithContext(ctx).
			SerialConsistency(gocql.Serial).
			MapScanCAS(previous)
		return e
	})

	if err != nil {
		return false, 0, store.WrapErr(err)
	}

	if applied {
		return true, next, nil
	}

	current, ok := previous["available"].(int)

	if !ok {
		return false, 0, site.ErrNotFound
	}

	return false, current, nil
}
