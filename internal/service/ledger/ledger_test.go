package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/appsisted/parkhub/internal/domain/parking"
	"github.com/appsisted/parkhub/internal/domain/site"
	"github.com/appsisted/parkhub/internal/domain/user"
	"github.com/appsisted/parkhub/internal/repo/memory"
	"github.com/appsisted/parkhub/internal/service/ledger"
	"github.com/appsisted/parkhub/internal/service/sites"
)

type fixture struct {
	users  *memory.UsersRepo
	sites  *sites.Registry
	ledger *ledger.Ledger
}

func newFixture(t *testing.T, capacity int, price, balance float64) fixture {
	t.Helper()

	ctx := context.Background()

	users := memory.NewUsersRepo()

	if _, err := users.Insert(ctx, user.User{Username: "alice", Balance: balance}); err != nil {
		t.Fatalf("insert user: %v", err)
	}

	siteRegistry := sites.New(memory.NewSitesRepo(), nil, nil)
	siteRegistry.Retries = 512

	_, err := siteRegistry.Create(ctx, site.CreateSiteRequest{
		Location: "stirling",
		Site:     "ONE",
		Capacity: capacity,
		Price:    price,
	})

	if err != nil {
		t.Fatalf("create site: %v", err)
	}

	l := ledger.New(users, siteRegistry, nil, nil)
	l.Retries = 512

	return fixture{users: users, sites: siteRegistry, ledger: l}
}

func TestChargeDebitsPrice(t *testing.T) {
	f := newFixture(t, 10, 2.5, 10)
	ctx := context.Background()

	balance, err := f.ledger.Charge(ctx, "alice", "stirling", "ONE")

	if err != nil {
		t.Fatalf("charge: %v", err)
	}

	if balance != 7.5 {
		t.Fatalf("balance = %v, want 7.5", balance)
	}
}

func TestChargeUnknownUserAndSite(t *testing.T) {
	f := newFixture(t, 10, 2.5, 10)
	ctx := context.Background()

	if _, err := f.ledger.Charge(ctx, "ghost", "stirling", "ONE"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("unknown user: got %v, want ErrNotFound", err)
	}

	if _, err := f.ledger.Charge(ctx, "alice", "stirling", "NOPE"); !errors.Is(err, site.ErrNotFound) {
		t.Fatalf("unknown site: got %v, want site.ErrNotFound", err)
	}
}

func TestConcurrentChargesLoseNoUpdates(t *testing.T) {
	const chargers = 40
	const price = 2.5
	const initial = 50.0

	f := newFixture(t, 1000, price, initial)
	ctx := context.Background()

	var wg sync.WaitGroup

	for i := 0; i < chargers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, err := f.ledger.Charge(ctx, "alice", "stirling", "ONE"); err != nil {
				t.Errorf("charge: %v", err)
			}
		}()
	}

	wg.Wait()

	u, err := f.users.Get(ctx, "alice")

	if err != nil {
		t.Fatalf("get user: %v", err)
	}

	// the account runs as debt, so this intentionally goes below zero
	want := initial - chargers*price

	if u.Balance != want {
		t.Fatalf("balance = %v, want %v (lost updates)", u.Balance, want)
	}
}

func TestChargeConflictAfterRetryBudget(t *testing.T) {
	f := newFixture(t, 10, 2.5, 10)
	ctx := context.Background()

	hostile := &fakeBalanceStore{
		getFn: func(ctx context.Context, username string) (user.User, error) {
			return user.User{Username: username, Balance: 10}, nil
		},
		casFn: func(ctx context.Context, username string, expected, next float64) (bool, float64, error) {
			// always lose the swap
			return false, expected + 1, nil
		},
	}

	l := ledger.New(hostile, f.sites, nil, nil)
	l.Retries = 3

	if _, err := l.Charge(ctx, "alice", "stirling", "ONE"); !errors.Is(err, parking.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
}

func TestStartSessionHappyPath(t *testing.T) {
	f := newFixture(t, 5, 2.5, 10)
	ctx := context.Background()

	session, err := f.ledger.StartSession(ctx, "alice", "stirling", "ONE")

	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	if session.AccessCode == "" {
		t.Fatal("no access code returned")
	}

	if session.Available != 4 {
		t.Fatalf("available = %d, want 4", session.Available)
	}

	if session.Balance != 7.5 {
		t.Fatalf("balance = %v, want 7.5", session.Balance)
	}
}

func TestStartSessionReleasesOnChargeFailure(t *testing.T) {
	f := newFixture(t, 5, 2.5, 10)
	ctx := context.Background()

	hostile := &fakeBalanceStore{
		getFn: func(ctx context.Context, username string) (user.User, error) {
			return user.User{Username: username, Balance: 10}, nil
		},
		casFn: func(ctx context.Context, username string, expected, next float64) (bool, float64, error) {
			return false, expected, nil
		},
	}

	l := ledger.New(hostile, f.sites, nil, nil)
	l.Retries = 2

	if _, err := l.StartSession(ctx, "alice", "stirling", "ONE"); !errors.Is(err, parking.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}

	// the failed charge must not strand the reserved slot
	s, err := f.sites.Get(ctx, "stirling", "ONE")

	if err != nil {
		t.Fatalf("get site: %v", err)
	}

	if s.Available != s.Capacity {
		t.Fatalf("available = %d after compensation, want %d", s.Available, s.Capacity)
	}
}

// fake BalanceStore in the usual function-field style

type fakeBalanceStore struct {
	getFn func(ctx context.Context, username string) (user.User, error)
	casFn func(ctx context.Context, username string, expected, next float64) (bool, float64, error)
}

func (f *fakeBalanceStore) Get(ctx context.Context, username string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, username)
	}

	return user.User{}, nil
}

func (f *fakeBalanceStore) CompareAndSetBalance(ctx context.Context, username string, expected, next float64) (bool, float64, error) {
	if f.casFn != nil {
		return f.casFn(ctx, username, expected, next)
	}

	return true, next, nil
}
