package store

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
)

// CreateAll creates the keyspace and tables. Every statement is IF NOT EXISTS,
// so the routine is safe to run at every boot.
func CreateAll(ctx context.Context, session *gocql.Session, keyspace string) error {
	stmts := []string{
		fmt.Sprintf(
			`CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class':'SimpleStrategy', 'replication_factor': 3}`,
			keyspace,
		),
		fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s.user (
				username text PRIMARY KEY,
				password text,
				salt text,
				setting_location text,
				setting_site text,
				balance double
			)`,
			keyspace,
		),
		fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s.parkingsite (
				location text,
				site text,
				capacity int,
				available int,
				lat double,
				lon double,
				code text,
				price double,
				PRIMARY KEY (location, site)
			)`,
			keyspace,
		),
	}

	for _, stmt := range stmts {
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("create schema: %w", WrapErr(err))
		}
	}

	return nil
}
