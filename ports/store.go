package ports

import (
	"context"

	"github.com/layer-3/tollgate/core"
)

// SessionStore tracks idle liveness per token ID
type SessionStore interface {
	// Start (over)writes the session record with a full idle TTL
	Start(ctx context.Context, tokenID, subject string) error

	// Touch refreshes the idle TTL if the record exists and reports whether it did
	Touch(ctx context.Context, tokenID string) (bool, error)

	// End deletes the session record; a missing record is not an error
	End(ctx context.Context, tokenID string) error

	// Lookup returns the session record without refreshing it
	Lookup(ctx context.Context, tokenID string) (core.Session, bool, error)
}
