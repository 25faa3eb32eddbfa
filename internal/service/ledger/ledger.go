package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/appsisted/parkhub/internal/domain/parking"
	"github.com/appsisted/parkhub/internal/domain/site"
	"github.com/appsisted/parkhub/internal/domain/user"
	"github.com/appsisted/parkhub/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// SiteService is the slice of the site registry the ledger drives for the
// reserve/charge/compensate flow.
type SiteService interface {
	Get(ctx context.Context, location, name string) (site.Site, error)
	Reserve(ctx context.Context, location, name string) (int, error)
	Release(ctx context.Context, location, name string) error
}

// BalanceStore is the conditional-write view of user storage.
type BalanceStore interface {
	Get(ctx context.Context, username string) (user.User, error)
	CompareAndSetBalance(ctx context.Context, username string, expected, next float64) (bool, float64, error)
}

type Ledger struct {
	users  BalanceStore
	sites  SiteService
	log    *slog.Logger
	prom   *observability.Prom
	tracer trace.Tracer

	// Retries bounds the balance compare-and-swap loop.
	Retries int
}

func New(users BalanceStore, sites SiteService, log *slog.Logger, prom *observability.Prom) *Ledger {
	if log == nil {
		log = slog.Default()
	}

	return &Ledger{
		users:   users,
		sites:   sites,
		log:     log,
		prom:    prom,
		tracer:  otel.Tracer("parkhub/ledger"),
		Retries: 8,
	}
}

// Charge debits the user by the site's price through an optimistic loop:
// read the balance, write balance-price conditioned on the value read, retry
// from the value the store reports when the swap loses. A plain read-then-
// write here would silently drop concurrent charges. Balances may go
// negative; the account runs as debt.
func (l *Ledger) Charge(ctx context.Context, username, location, name string) (float64, error) {
	s, err := l.sites.Get(ctx, location, name)

	if err != nil {
		return 0, err
	}

	u, err := l.users.Get(ctx, username)

	if err != nil {
		return 0, err
	}

	balance := u.Balance

	for attempt := 0; attempt <= l.Retries; attempt++ {
		applied, current, err := l.users.CompareAndSetBalance(ctx, username, balance, balance-s.Price)

		if err != nil {
			l.outcome("error")
			return 0, err
		}

		if applied {
			l.outcome("charged")
			return current, nil
		}

		l.retried()
		balance = current
	}

	l.outcome("conflict")
	return 0, parking.ErrConflict
}

// StartSession runs the per-session flow: Requested -> Reserved (capacity
// decremented) -> Charged (balance debited) -> Active. A charge failure after
// a successful reservation releases the slot again so capacity is never
// stranded on a half-finished session.
func (l *Ledger) StartSession(ctx context.Context, username, location, name string) (parking.Session, error) {
	ctx, span := l.tracer.Start(ctx, "parking.session")
	defer span.End()

	s, err := l.sites.Get(ctx, location, name)

	if err != nil {
		return parking.Session{}, err
	}

	if _, err := l.users.Get(ctx, username); err != nil {
		return parking.Session{}, err
	}

	available, err := l.sites.Reserve(ctx, location, name)

	if err != nil {
		return parking.Session{}, err
	}

	span.AddEvent("reserved")

	balance, err := l.Charge(ctx, username, location, name)

	if err != nil {
		// compensate so the slot is not lost with the failed charge
		if rerr := l.sites.Release(ctx, location, name); rerr != nil {
			l.log.ErrorContext(ctx, "compensating release failed",
				"username", username,
				"location", location,
				"site", name,
				"err", rerr,
			)
		}

		return parking.Session{}, err
	}

	span.AddEvent("charged")

	return parking.Session{
		Username:   username,
		Location:   location,
		Site:       name,
		AccessCode: s.Code,
		Price:      s.Price,
		Balance:    balance,
		Available:  available,
		StartedAt:  time.Now().UTC(),
	}, nil
}

func (l *Ledger) outcome(v string) {
	if l.prom != nil {
		l.prom.ChargesTotal.WithLabelValues(v).Inc()
	}
}

func (l *Ledger) retried() {
	if l.prom != nil {
		l.prom.CasRetriesTotal.WithLabelValues("users.charge").Inc()
	}
}
