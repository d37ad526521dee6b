// Package store is the persistence collaborator for users and messages.
// The relay core only sees the Store interface; the Postgres implementation
// (pgx driver, goose migrations, bcrypt credential hashing) and the
// in-memory implementation used by tests live alongside it.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUsernameTaken = errors.New("username taken")
	ErrUserNotFound  = errors.New("user not found")
	ErrVerify        = errors.New("password verification failed")
	ErrInsert        = errors.New("insert failed")
	ErrHistory       = errors.New("history read failed")
	ErrConnection    = errors.New("database connection failed")
)

// User is a registered account. PasswordHash never leaves the store layer.
type User struct {
	ID           int64
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Message is one persisted chat message. Content is the opaque encoded
// payload; the store never inspects it.
type Message struct {
	ID        int64
	UserID    int64
	Content   []byte
	CreatedAt time.Time
}

// Store is safe for concurrent use from multiple connection handlers.
type Store interface {
	// CreateUser registers a new account, hashing the password internally.
	// A username collision yields ErrUsernameTaken.
	CreateUser(ctx context.Context, username, password string) (*User, error)

	// VerifyPassword reports whether password matches the stored credential.
	// A missing user yields ErrUserNotFound; a wrong password is (false, nil).
	VerifyPassword(ctx context.Context, username, password string) (bool, error)

	// GetUserID resolves a username to its id.
	GetUserID(ctx context.Context, username string) (int64, error)

	// GetUser fetches a user by id.
	GetUser(ctx context.Context, id int64) (*User, error)

	// SaveMessage persists one message and returns it with its assigned id.
	SaveMessage(ctx context.Context, userID int64, content []byte) (*Message, error)

	// ReadHistory returns the `amount` most recent messages, offset from the
	// newest by `offset`, ordered oldest-first within the window.
	ReadHistory(ctx context.Context, amount, offset int64) ([]Message, error)
}
