package registry

import (
	"context"

	"github.com/appsisted/parkhub/internal/domain/user"
	"github.com/appsisted/parkhub/internal/security"
	"github.com/appsisted/parkhub/internal/store"
)

// UserStore is what the registry needs from storage. Insert must be a single
// conditional write: applied=false when the username already has a row.
type UserStore interface {
	Get(ctx context.Context, username string) (user.User, error)
	Exists(ctx context.Context, username string) (bool, error)
	Insert(ctx context.Context, u user.User) (bool, error)
	UpdateSettings(ctx context.Context, username, location, site string) error
}

type Registry struct {
	store UserStore
}

func New(s UserStore) *Registry {
	return &Registry{store: s}
}

// Register creates the account. The existence pre-check is a fast path to
// skip the key derivation for names that are obviously taken; the conditional
// insert is what actually enforces uniqueness, so losing the race between
// check and insert still comes back as ErrDuplicate.
func (r *Registry) Register(ctx context.Context, username, password string) (user.User, error) {
	if username == "" || password == "" {
		return user.User{}, user.ErrInvalidInput
	}

	exists, err := r.store.Exists(ctx, username)

	if err == nil && exists {
		return user.User{}, user.ErrDuplicate
	}
	// a failed pre-check is not fatal, the insert below decides

	salt, err := security.GenerateSalt()

	if err != nil {
		return user.User{}, err
	}

	u := user.NewFromRegistration(username, security.HashPassword(salt, password), salt)

	applied, err := r.store.Insert(ctx, u)

	if err != nil {
		if store.IsUnavailable(err) {
			// outcome unknown: the insert may have landed before the timeout.
			// Re-verify by read instead of retrying the non-idempotent write.
			if got, gerr := r.store.Get(ctx, username); gerr == nil {
				if got.Salt == u.Salt && got.PasswordHash == u.PasswordHash {
					return got, nil
				}

				return user.User{}, user.ErrDuplicate
			}
		}

		return user.User{}, err
	}

	if !applied {
		return user.User{}, user.ErrDuplicate
	}

	return u, nil
}

func (r *Registry) Authenticate(ctx context.Context, username, password string) (user.User, error) {
	u, err := r.store.Get(ctx, username)

	if err != nil {
		return user.User{}, err
	}

	if !security.CheckPassword(u.Salt, password, u.PasswordHash) {
		return user.User{}, user.ErrInvalidCredentials
	}

	return u, nil
}

func (r *Registry) Get(ctx context.Context, username string) (user.User, error) {
	return r.store.Get(ctx, username)
}

// UpdateSettings overwrites the preference fields, last writer wins. No
// numeric or uniqueness invariant is at stake here.
func (r *Registry) UpdateSettings(ctx context.Context, username, location, site string) error {
	return r.store.UpdateSettings(ctx, username, location, site)
}
