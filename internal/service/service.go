// Package service holds the business rules of TripShare.  Services take
// already-authenticated identities from the HTTP layer, validate input,
// run repository calls (in transactions where seats or statuses move) and
// trigger notifications.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/iliyamo/tripshare/internal/queue"
)

// Pusher delivers a frame to a user's live connections.
type Pusher interface {
	SendToUser(userID uint64, typ string, data any)
}

// EventPublisher ships activity events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ActivityEvent) error
}

// utcNow is the default clock: UTC with second precision, which both
// database drivers round-trip exactly.
func utcNow() time.Time { return time.Now().UTC().Truncate(time.Second) }

// Identity is the authenticated caller.
type Identity struct {
	UserID uint64
	Role   string
	Name   string
}

// inTx runs fn in a transaction and commits when it returns nil.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// maxOffset bounds (page-1)*limit so the OFFSET stays a valid integer on
// every driver.
const maxOffset = math.MaxInt32

// Page normalises page/limit query values: page defaults to 1, limit to
// def, limit is capped at maxLimit and page at the last page whose offset
// fits in maxOffset.
func Page(page, limit, def, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if last := maxOffset/limit + 1; page > last {
		page = last
	}
	return page, limit
}
