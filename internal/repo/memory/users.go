package memory

import (
	"context"
	"sync"

	"github.com/appsisted/parkhub/internal/domain/user"
)

// UsersRepo keeps users in a map but honours the exact conditional-write
// contract of the Cassandra repo, so service-level concurrency tests exercise
// the real coordination logic.
type UsersRepo struct {
	mu    sync.Mutex
	items map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) Get(ctx context.Context, username string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[username]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) Exists(ctx context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.items[username]

	return ok, nil
}

func (r *UsersRepo) Insert(ctx context.Context, u user.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[u.Username]; ok {
		return false, nil
	}

	r.items[u.Username] = u

	return true, nil
}

func (r *UsersRepo) UpdateSettings(ctx context.Context, username, location, site string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[username]

	if !ok {
		return user.ErrNotFound
	}

	u.SettingLocation = location
	u.SettingSite = site
	r.items[username] = u

	return nil
}

func (r *UsersRepo) CompareAndSetBalance(ctx context.Context, username string, expected, next float64) (bool, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[username]

	if !ok {
		return false, 0, user.ErrNotFound
	}

	if u.Balance != expected {
		return false, u.Balance, nil
	}

	u.Balance = next
	r.items[username] = u

	return true, next, nil
}
