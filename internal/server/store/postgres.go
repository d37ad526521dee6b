package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/akruglov/chatline/internal/server/store/migrations"
)

const pgUniqueViolation = "23505"

// PostgresStore implements Store over a pgx-driven database/sql pool.
// database/sql provides the internal concurrency safety the relay assumes.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the pool and applies the embedded goose migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.runMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return s, nil
}

// NewPostgresStoreWithDB wraps an existing pool without running migrations.
// Meant for tests (sqlmock).
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsert, err)
	}

	query :=
		`INSERT INTO users (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, created_at
		 `

	user := &User{Username: username, PasswordHash: hash}
	err = s.db.QueryRowContext(ctx, query, username, hash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrInsert, err)
	}

	return user, nil
}

func (s *PostgresStore) VerifyPassword(ctx context.Context, username, password string) (bool, error) {
	query :=
		`SELECT password_hash FROM users
		 WHERE username = $1
		 `

	var hash []byte
	err := s.db.QueryRowContext(ctx, query, username).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrUserNotFound
		}
		return false, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	err = bcrypt.CompareHashAndPassword(hash, []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrVerify, err)
	}

	return true, nil
}

func (s *PostgresStore) GetUserID(ctx context.Context, username string) (int64, error) {
	query :=
		`SELECT id FROM users
		 WHERE username = $1
		 `

	var id int64
	err := s.db.QueryRowContext(ctx, query, username).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	return id, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*User, error) {
	query :=
		`SELECT id, username, password_hash, created_at FROM users
		 WHERE id = $1
		 `

	user := &User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	return user, nil
}

func (s *PostgresStore) SaveMessage(ctx context.Context, userID int64, content []byte) (*Message, error) {
	query :=
		`INSERT INTO messages (user_id, content)
		 VALUES ($1, $2)
		 RETURNING id, created_at
		 `

	msg := &Message{UserID: userID, Content: content}
	err := s.db.QueryRowContext(ctx, query, userID, content).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsert, err)
	}

	return msg, nil
}

func (s *PostgresStore) ReadHistory(ctx context.Context, amount, offset int64) ([]Message, error) {
	query :=
		`SELECT id, user_id, content, created_at FROM messages
		 ORDER BY id DESC
		 LIMIT $1 OFFSET $2
		 `

	rows, err := s.db.QueryContext(ctx, query, amount, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistory, err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHistory, err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistory, err)
	}

	// The query walks newest-first; the window is delivered oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
