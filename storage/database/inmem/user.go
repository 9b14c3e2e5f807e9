package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkashama/tathmini/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}
	for _, usr := range repo.db.users {
		if usr.Email == email && !excluded[usr.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = uuid.NewString()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		users = append(users, *usr)
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id string, t time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.LastLogin = t
	return nil
}

func (repo *userRepository) SaveVerificationCode(ctx context.Context, vc user.VerificationCode) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.verificationCodes[vc.Email] = &vc
	return nil
}

func (repo *userRepository) GetVerificationCode(ctx context.Context, email string) (user.VerificationCode, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if vc, ok := repo.db.verificationCodes[email]; ok {
		return *vc, nil
	}
	return user.VerificationCode{}, user.ErrCodeNotFound
}

func (repo *userRepository) DeleteVerificationCode(ctx context.Context, email string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.verificationCodes, email)
	return nil
}
