// Package drafts keeps in-progress editor sessions between HTTP requests.
package drafts

import (
	"context"
	"errors"

	"fieldbook/api/internal/editor"
)

var ErrNotFound = errors.New("draft not found or expired")

// Store persists serialised editor sessions under a session id. Every Save
// refreshes the draft's TTL.
type Store interface {
	Save(ctx context.Context, sessionID string, state editor.State) error
	Get(ctx context.Context, sessionID string) (editor.State, error)
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
	Close() error
}
