package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
)

// error when the store cannot be reached or a call timed out; for conditional
// writes this means "outcome unknown", callers re-verify by read instead of
// blindly retrying
var ErrUnavailable = errors.New("storage unavailable")

type Config struct {
	Hosts          []string
	Timeout        time.Duration
	ConnectTimeout time.Duration
}

// Connect builds a session against the cluster. The session pools connections
// and is safe for concurrent use; reads default to quorum, the conditional
// writes in the repositories opt into serial consistency per query.
func Connect(cfg Config) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)

	cluster.Consistency = gocql.Quorum

	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	}

	if cfg.ConnectTimeout > 0 {
		cluster.ConnectTimeout = cfg.ConnectTimeout
	}

	session, err := cluster.CreateSession()

	if err != nil {
		return nil, fmt.Errorf("connect to store: %w: %v", ErrUnavailable, err)
	}

	return session, nil
}

// WrapErr maps driver-level transport failures onto ErrUnavailable so callers
// can tell "storage down, retry the whole call later" apart from business
// errors. Anything else passes through untouched.
func WrapErr(err error) error {
	if err == nil {
		return nil
	}

	if IsUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return err
}

// IsNoRows reports an empty result from the driver. That is business data
// (unknown user, unknown site), not a store failure.
func IsNoRows(err error) bool {
	return errors.Is(err, gocql.ErrNotFound)
}

func IsUnavailable(err error) bool {
	if errors.Is(err, ErrUnavailable) ||
		errors.Is(err, gocql.ErrTimeoutNoResponse) ||
		errors.Is(err, gocql.ErrNoConnections) ||
		errors.Is(err, gocql.ErrConnectionClosed) ||
		errors.Is(err, gocql.ErrSessionClosed) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var readTimeout *gocql.RequestErrReadTimeout
	var writeTimeout *gocql.RequestErrWriteTimeout
	var unavailable *gocql.RequestErrUnavailable

	return errors.As(err, &readTimeout) ||
		errors.As(err, &writeTimeout) ||
		errors.As(err, &unavailable)
}
