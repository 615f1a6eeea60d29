package sqlite

import (
	"context"

	"github.com/samtm/motomeet/internal/apperror"
	"github.com/samtm/motomeet/internal/repository"
)

// compile-time check that *DB implements repository.RSVPRepository
var _ repository.RSVPRepository = (*DB)(nil)

// SetAttendance applies the desired attendance state and returns the
// event's RSVP count, all inside one transaction.
//
// Both directions are idempotent by construction: the add is INSERT OR
// IGNORE against the (user_email, event_id) primary key, so a second
// "attend" — even one racing from another session — converges to exactly
// one row; the remove is a plain DELETE, so un-attending a non-member is a
// no-op, not an error. The COUNT runs in the same transaction as the
// mutation, so the returned number is always consistent with the toggle
// just applied regardless of concurrent toggles elsewhere.
func (db *DB) SetAttendance(ctx context.Context, email, eventID string, attending bool) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperror.Storage("beginning rsvp toggle", err)
	}
	defer tx.Rollback()

	// Toggling attendance on a cancelled (or never-existing) event is a
	// not-found, not a constraint violation three frames later.
	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE id = ?`, eventID,
	).Scan(&exists)
	if err != nil {
		return 0, apperror.Storage("checking event exists", err)
	}
	if exists == 0 {
		return 0, apperror.NotFound("event", eventID)
	}

	if attending {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO rsvps (user_email, event_id) VALUES (?, ?)`,
			email, eventID,
		)
		if err != nil {
			return 0, apperror.Storage("inserting rsvp", err)
		}
	} else {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM rsvps WHERE user_email = ? AND event_id = ?`,
			email, eventID,
		)
		if err != nil {
			return 0, apperror.Storage("deleting rsvp", err)
		}
	}

	var count int64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rsvps WHERE event_id = ?`, eventID,
	).Scan(&count)
	if err != nil {
		return 0, apperror.Storage("counting rsvps", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apperror.Storage("committing rsvp toggle", err)
	}

	return count, nil
}

// EventIDsForUser returns the ids of every event the user is attending —
// the home feed's events_going list.
func (db *DB) EventIDsForUser(ctx context.Context, email string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT event_id FROM rsvps WHERE user_email = ? ORDER BY event_id`,
		email,
	)
	if err != nil {
		return nil, apperror.Storage("querying user rsvps", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperror.Storage("scanning rsvp event id", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("iterating user rsvps", err)
	}

	return ids, nil
}
