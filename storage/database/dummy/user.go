package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers ...user.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email && !isExcluded(*usr, excludedUsers) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, u := range repo.db.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, usr := range repo.db.users {
			if usr.Email == filter.Email {
				return *usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.query() {
		// users with search keyword matching FullName or Email ?
		if filter.Search != "" && !core.ContainsFold(u.FullName, filter.Search) && !core.ContainsFold(u.Email, filter.Search) {
			continue
		}
		// users with any of the specified roles
		if len(filter.Roles) > 0 && !hasRole(u, filter.Roles) {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		users = append(users, u)
	}

	// only the first ordering is honoured
	ords := core.SafeOrderings(ordering, map[string]string{"full_name": "full_name", "email": "email", "created_at": "created_at"})
	if len(ords) > 0 {
		ord := ords[0]
		less := func(a, b user.User) bool {
			switch ord.Field {
			case "email":
				return a.Email < b.Email
			case "created_at":
				return a.CreatedAt.Before(b.CreatedAt)
			default:
				return strings.ToLower(a.FullName) < strings.ToLower(b.FullName)
			}
		}
		sort.SliceStable(users, func(i, j int) bool {
			if ord.Ascending {
				return less(users[i], users[j])
			}
			return less(users[j], users[i])
		})
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	for _, u := range repo.db.users {
		if u.ID != usr.ID && u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUsers(_ context.Context, ids ...string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, id := range ids {
		delete(repo.db.users, id)
		// ON DELETE SET NULL
		for _, rec := range repo.db.payments {
			if rec.StaffID == id {
				rec.StaffID = ""
			}
		}
	}
	return nil
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, u := range excludedUsers {
		if u.ID == usr.ID {
			return true
		}
	}
	return false
}

func hasRole(usr user.User, roles []string) bool {
	for _, r := range roles {
		if string(usr.Role) == r {
			return true
		}
	}
	return false
}
