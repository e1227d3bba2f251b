// Package archive is the durable turn log behind the ephemeral
// conversation cache. Writes are best-effort and happen after the reply
// exists; losing the archive never affects reply quality, since the cache
// rebuilds from client-supplied history.
package archive

import (
	"context"
	"time"
)

// Record is one archived conversational turn. Content is PII-redacted
// before it is ever handed to a store.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Redacted  bool      `json:"redacted"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists and retrieves archived turns.
type Store interface {
	SaveTurn(ctx context.Context, record Record) error
	RecentTurns(ctx context.Context, userID string, limit int) ([]Record, error)
	Close() error
}
