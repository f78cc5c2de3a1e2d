package memory

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"user-crud-service/internal/domain/user"
)

// ErrDuplicateEmail is the driver-level cause wrapped in unique violations.
var ErrDuplicateEmail = errors.New("duplicate key value violates unique constraint \"uni_users_email\"")

// UserRepo is an in-memory user store. It assigns ids sequentially from 1 and
// enforces email uniqueness the way the SQL schema does.
type UserRepo struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]user.User
	order  []int64
	log    *zap.Logger
}

// NewUserRepo creates an empty in-memory repository.
func NewUserRepo(log *zap.Logger) *UserRepo {
	return &UserRepo{
		nextID: 1,
		rows:   make(map[int64]user.User),
		log:    log,
	}
}

// Create inserts a new user and returns its id.
func (r *UserRepo) Create(_ context.Context, u *user.User) (int64, error) {
	if u == nil {
		return 0, errors.New("user cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTakenLocked(u.Email, 0) {
		return 0, &user.UniqueViolationError{Field: user.FieldEmail, Err: ErrDuplicateEmail}
	}

	id := r.nextID
	r.nextID++
	r.rows[id] = user.User{ID: id, Name: u.Name, Email: u.Email}
	r.order = append(r.order, id)

	r.log.Debug("user created in memory", zap.Int64("id", id))
	return id, nil
}

// GetByID returns the user with the given id or user.ErrNotFound.
func (r *UserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.rows[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

// GetByEmail returns the user holding email, or nil when there is none.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if u := r.rows[id]; u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

// List returns all users in insertion order.
func (r *UserRepo) List(_ context.Context) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]user.User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, r.rows[id])
	}
	return users, nil
}

// Update applies p to the user with the given id.
func (r *UserRepo) Update(_ context.Context, id int64, p user.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.rows[id]
	if !ok {
		return user.ErrNotFound
	}
	if p.Email != nil && r.emailTakenLocked(*p.Email, id) {
		return &user.UniqueViolationError{Field: user.FieldEmail, Err: ErrDuplicateEmail}
	}

	r.rows[id] = p.Apply(u)
	r.log.Debug("user updated in memory", zap.Int64("id", id))
	return nil
}

// Delete removes the user with the given id.
func (r *UserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.rows, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.log.Debug("user deleted in memory", zap.Int64("id", id))
	return nil
}

// Ping always succeeds.
func (r *UserRepo) Ping(context.Context) error {
	return nil
}

func (r *UserRepo) emailTakenLocked(email string, exceptID int64) bool {
	for id, u := range r.rows {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}
