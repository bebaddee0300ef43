package core

import (
	"errors"
	"fmt"

	"textgen-backend/internal/auth"
	"textgen-backend/internal/store"
)

// ErrInvalidCredentials covers both an unknown username and a wrong password,
// so login responses do not reveal which usernames exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

type UserService struct {
	dbStore *store.SQLiteStore
}

func NewUserService(db *store.SQLiteStore) *UserService {
	return &UserService{dbStore: db}
}

func (s *UserService) Signup(username, name, password string) (*store.User, error) {
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return s.dbStore.CreateUser(username, name, hashed)
}

func (s *UserService) Login(username, password string) (*store.User, error) {
	user, err := s.dbStore.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) ResetPassword(username, newPassword string) error {
	hashed, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.dbStore.UpdateUserPassword(username, hashed)
}

func (s *UserService) Delete(username string) error {
	return s.dbStore.DeleteUser(username)
}

// GetByID returns nil when the user row no longer exists, e.g. a valid token
// for a deleted account.
func (s *UserService) GetByID(userID int64) (*store.User, error) {
	return s.dbStore.GetUserByID(userID)
}
