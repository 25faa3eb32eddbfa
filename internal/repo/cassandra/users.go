package cassandra

import (
	"context"
	"errors"
	"fmt"

	"github.com/appsisted/parkhub/internal/domain/user"
	"github.com/appsisted/parkhub/internal/observability"
	"github.com/appsisted/parkhub/internal/store"
	"github.com/gocql/gocql"
)

type UsersRepo struct {
	session *gocql.Session
	prom    *observability.Prom

	selectUser     string
	existsUser     string
	insertUser     string
	updateSettings string
	casBalance     string
}

func NewUsersRepo(session *gocql.Session, keyspace string, prom *observability.Prom) *UsersRepo {
	table := keyspace + ".user"

	return &UsersRepo{
		session: session,
		prom:    prom,
		selectUser: fmt.Sprintf(
			`SELECT username, password, salt, setting_location, setting_site, balance FROM %s WHERE username = ?`, table),
		existsUser: fmt.Sprintf(
			`SELECT username FROM %s WHERE username = ? LIMIT 1`, table),
		insertUser: fmt.Sprintf(
			`INSERT INTO %s (username, password, salt, setting_location, setting_site, balance) VALUES (?, ?, ?, ?, ?, ?) IF NOT EXISTS`, table),
		updateSettings: fmt.Sprintf(
			`UPDATE %s SET setting_location = ?, setting_site = ? WHERE username = ? IF EXISTS`, table),
		casBalance: fmt.Sprintf(
			`UPDATE %s SET balance = ? WHERE username = ? IF balance = ?`, table),
	}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveStore(op, fn)
	}
	return fn()
}

// Get fetches a user at quorum. Fine for display and pre-checks, may be stale.
func (r *UsersRepo) Get(ctx context.Context, username string) (u user.User, err error) {
	err = r.observe("users.get", func() error {
		return r.session.Query(r.selectUser, username).
			WithContext(ctx).
			Consistency(gocql.Quorum).
			Scan(&u.Username, &u.PasswordHash, &u.Salt, &u.SettingLocation, &u.SettingSite, &u.Balance)
	})

	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			err = user.ErrNotFound
			return
		}

		err = store.WrapErr(err)
		return
	}

	return
}

func (r *UsersRepo) Exists(ctx context.Context, username string) (bool, error) {
	var found string

	err := r.observe("users.exists", func() error {
		return r.session.Query(r.existsUser, username).
			WithContext(ctx).
			Consistency(gocql.Quorum).
			Scan(&found)
	})

	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return false, nil
		}

		return false, store.WrapErr(err)
	}

	return true, nil
}

// Insert registers the row through a lightweight transaction. The returned
// bool reports whether the insert was applied; false means the username was
// already claimed. This, not any pre-check, is the uniqueness guarantee.
func (r *UsersRepo) Insert(ctx context.Context, u user.User) (applied bool, err error) {
	err = r.observe("users.insert", func() error {
		var e error
		applied, e = r.session.Query(r.insertUser,
			u.Username, u.PasswordHash, u.Salt, u.SettingLocation, u.SettingSite, u.Balance).
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

// UpdateSettings overwrites the preference fields. Last writer wins; the
// IF EXISTS guard only keeps the upsert semantics of the store from
// materialising rows for unknown users.
func (r *UsersRepo) UpdateSettings(ctx context.Context, username, location, site string) error {
	var applied bool

	err := r.observe("users.update_settings", func() error {
		var e error
		applied, e = r.session.Query(r.updateSettings, location, site, username).
			WithContext(ctx).
			SerialConsistency(gocql.Serial).
			MapScanCAS(map[string]interface{}{})
		return e
	})

	if err != nil {
		return store.WrapErr(err)
	}

	if !applied {
		return user.ErrNotFound
	}

	return nil
}

// CompareAndSetBalance writes next only if the stored balance still equals
// expected. When the swap loses, the balance observed by the store comes back
// so the caller can recompute without an extra read.
func (r *UsersRepo) CompareAndSetBalance(ctx context.Context, username string, expected, next float64) (bool, float64, error) {
	previous := map[string]interface{}{}
	var applied bool

	err := r.observe("users.cas_balance", func() error {
		var e error
		applied, e = r.session.Query(r.casBalance, next, username, expected).
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

	current, ok := previous["balance"].(float64)

	if !ok {
		// no previous row came back: the user does not exist
		return false, 0, user.ErrNotFound
	}

	return false, current, nil
}
