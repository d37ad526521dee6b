package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/akruglov/chatline/internal/client/history/migrations"
	"github.com/akruglov/chatline/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RunMigrations applies the embedded goose migrations to the cache database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the cache database and applies migrations. The dsn is
// passed to the pure-Go sqlite driver, which must be registered by the caller.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Prune trims the cache to the newest keep messages. The cutoff lookup and
// the delete run inside one transaction so a concurrent Save cannot land
// between them.
func Prune(ctx context.Context, db *sql.DB, keep int) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var cutoff sql.NullInt64
		row := tx.QueryRowContext(ctx,
			`select min(id) from (select id from messages order by id desc limit ?)`, keep)
		if err := row.Scan(&cutoff); err != nil {
			return fmt.Errorf("failed to find prune cutoff: %w", err)
		}
		if !cutoff.Valid {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `delete from messages where id < ?`, cutoff.Int64); err != nil {
			return fmt.Errorf("failed to prune messages: %w", err)
		}
		return nil
	})
}

// Save upserts a message by id. Replayed history overwrites the cached copy.
func (r *SQLiteRepository) Save(ctx context.Context, e *Entry) error {
	query := `INSERT INTO messages (id, user_id, username, kind, body, received_at)
			values (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id,
				username = excluded.username,
				kind = excluded.kind,
				body = excluded.body
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Username, e.Kind, e.Body, e.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}
	return nil
}

// Recent returns up to limit cached messages, oldest first.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `select id, user_id, username, kind, body, received_at
			from (select * from messages order by id desc limit ?)
			order by id asc`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var item Entry
		if err := rows.Scan(&item.ID, &item.UserID, &item.Username, &item.Kind, &item.Body, &item.ReceivedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
