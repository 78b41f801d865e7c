package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/rentdesk/internal/domain/user"
)

type UsersRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[int64]user.User),
	}
}

func (r *UsersRepo) Create(_ context.Context, nu user.NewUser, actor *int64) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTakenLocked(nu.Email, 0) {
		return user.User{}, user.ErrEmailTaken
	}

	now := time.Now().UTC()
	r.nextID++

	u := user.User{
		ID:           r.nextID,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		IsActive:     nu.IsActive,
		IsStaff:      nu.IsStaff,
		IsSuperuser:  nu.IsSuperuser,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    copyID(actor),
		UpdatedBy:    copyID(actor),
	}
	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) List(_ context.Context, filter user.ListFilter) ([]user.User, int, error) {
	r.mu.RLock()
	matched := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		if filter.Search != nil && !strings.Contains(strings.ToLower(u.Email), strings.ToLower(*filter.Search)) {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.IsStaff != nil && u.IsStaff != *filter.IsStaff {
			continue
		}
		matched = append(matched, u)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r *UsersRepo) Update(_ context.Context, u user.User, actor *int64) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[u.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if r.emailTakenLocked(u.Email, u.ID) {
		return user.User{}, user.ErrEmailTaken
	}

	current.Email = u.Email
	current.IsActive = u.IsActive
	current.IsStaff = u.IsStaff
	current.IsSuperuser = u.IsSuperuser
	current.UpdatedAt = time.Now().UTC()
	current.UpdatedBy = copyID(actor)
	r.items[u.ID] = current

	return current, nil
}

// UpdateProfile changes email and/or password hash in one write; nil leaves
// the field as is.
func (r *UsersRepo) UpdateProfile(_ context.Context, id int64, email, hash *string, actor *int64) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if email != nil {
		if r.emailTakenLocked(*email, id) {
			return user.User{}, user.ErrEmailTaken
		}
		u.Email = *email
	}
	if hash != nil {
		u.PasswordHash = *hash
	}

	u.UpdatedAt = time.Now().UTC()
	u.UpdatedBy = copyID(actor)
	r.items[id] = u

	return u, nil
}

func (r *UsersRepo) SetPassword(_ context.Context, id int64, hash string, actor *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}

	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	u.UpdatedBy = copyID(actor)
	r.items[id] = u

	return nil
}

func (r *UsersRepo) RecordLogin(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}

	now := time.Now().UTC()
	u.IsActive = true
	u.LastLogin = &now
	r.items[id] = u

	return nil
}

func (r *UsersRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.items, id)

	// audit back-references behave like ON DELETE SET NULL
	for key, u := range r.items {
		changed := false
		if u.CreatedBy != nil && *u.CreatedBy == id {
			u.CreatedBy = nil
			changed = true
		}
		if u.UpdatedBy != nil && *u.UpdatedBy == id {
			u.UpdatedBy = nil
			changed = true
		}
		if changed {
			r.items[key] = u
		}
	}

	return nil
}

func (r *UsersRepo) emailTakenLocked(email string, exceptID int64) bool {
	for id, u := range r.items {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
