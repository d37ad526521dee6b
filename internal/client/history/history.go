// Package history keeps a local sqlite cache of chat messages the client
// has seen, so past conversations survive restarts and can be browsed
// offline with the .local command.
package history

import (
	"context"
	"time"
)

// Entry is one cached chat message. Body holds the rendered text for
// text messages and the saved path for file and image attachments.
type Entry struct {
	ID         int64
	UserID     int64
	Username   string
	Kind       string
	Body       string
	ReceivedAt time.Time
}

// Repository stores and retrieves cached messages.
type Repository interface {
	Save(ctx context.Context, e *Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
