package membership

import (
	"context"
	"time"
)

// Client is the channel-membership collaborator: both calls are remote and
// fallible, and callers must treat them that way.
type Client interface {
	// GrantAccess produces a single-use invite reference admitting the user
	// to the channel.
	GrantAccess(ctx context.Context, channelTelegramID, userTelegramID int64, expiresAt *time.Time) (string, error)
	RevokeAccess(ctx context.Context, channelTelegramID, userTelegramID int64) error
}
