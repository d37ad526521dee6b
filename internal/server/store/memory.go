package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MemoryStore is an in-memory Store used by relay and handler tests.
// It hashes passwords the same way the Postgres store does, so auth flows
// behave identically.
type MemoryStore struct {
	mu         sync.Mutex
	users      map[int64]*User
	byUsername map[string]int64
	messages   []Message
	nextUserID int64
	nextMsgID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[int64]*User),
		byUsername: make(map[string]int64),
		nextUserID: 1,
		nextMsgID:  1,
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, username, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, ErrInsert
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[username]; ok {
		return nil, ErrUsernameTaken
	}

	user := &User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	s.nextUserID++
	s.users[user.ID] = user
	s.byUsername[username] = user.ID

	copied := *user
	return &copied, nil
}

func (s *MemoryStore) VerifyPassword(ctx context.Context, username, password string) (bool, error) {
	s.mu.Lock()
	id, ok := s.byUsername[username]
	var hash []byte
	if ok {
		hash = s.users[id].PasswordHash
	}
	s.mu.Unlock()

	if !ok {
		return false, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) GetUserID(ctx context.Context, username string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[username]
	if !ok {
		return 0, ErrUserNotFound
	}
	return id, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryStore) SaveMessage(ctx context.Context, userID int64, content []byte) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{
		ID:        s.nextMsgID,
		UserID:    userID,
		Content:   append([]byte(nil), content...),
		CreatedAt: time.Now(),
	}
	s.nextMsgID++
	s.messages = append(s.messages, msg)

	copied := msg
	return &copied, nil
}

func (s *MemoryStore) ReadHistory(ctx context.Context, amount, offset int64) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := int64(len(s.messages))
	hi := total - offset
	if hi < 0 {
		hi = 0
	}
	lo := hi - amount
	if lo < 0 {
		lo = 0
	}

	window := make([]Message, hi-lo)
	copy(window, s.messages[lo:hi])
	return window, nil
}

// DeleteUser removes a user while keeping their messages, so tests can
// exercise the per-item resolution failure path of history reads.
func (s *MemoryStore) DeleteUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return
	}
	delete(s.byUsername, user.Username)
	delete(s.users, id)
}
