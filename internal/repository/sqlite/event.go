package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/samtm/motomeet/internal/apperror"
	"github.com/samtm/motomeet/internal/geo"
	"github.com/samtm/motomeet/internal/model"
	"github.com/samtm/motomeet/internal/repository"
)

// compile-time check that *DB implements repository.EventRepository
var _ repository.EventRepository = (*DB)(nil)

// Create persists a new event inside a single transaction:
//
//  1. insert the event row (freshly generated UUID id)
//  2. insert the host's authored-event row
//  3. insert the host's own RSVP — the host is always attending
//
// All three succeed or none does; a half-created event (present but not in
// its host's authored list, or with an absent host RSVP) is never
// observable.
func (db *DB) Create(ctx context.Context, event *model.Event) error {
	event.ID = uuid.NewString()
	event.CreatedAt = time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Storage("beginning event create", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (id, name, event_time, location, latitude, longitude, description, host_email, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Name,
		event.EventTime,
		event.Location,
		event.Latitude,
		event.Longitude,
		event.Description,
		event.HostEmail,
		event.CreatedAt,
	)
	if err != nil {
		return apperror.Storage("inserting event", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO hosted_events (host_email, event_id) VALUES (?, ?)`,
		event.HostEmail, event.ID,
	)
	if err != nil {
		return apperror.Storage("inserting hosted event", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO rsvps (user_email, event_id) VALUES (?, ?)`,
		event.HostEmail, event.ID,
	)
	if err != nil {
		return apperror.Storage("inserting host rsvp", err)
	}

	if err := tx.Commit(); err != nil {
		return apperror.Storage("committing event create", err)
	}
	return nil
}

// GetByID retrieves a single event by its id.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, event_time, location, latitude, longitude, description, host_email, created_at
		 FROM events WHERE id = ?`,
		id,
	).Scan(
		&e.ID,
		&e.Name,
		&e.EventTime,
		&e.Location,
		&e.Latitude,
		&e.Longitude,
		&e.Description,
		&e.HostEmail,
		&e.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("event", id)
		}
		return nil, apperror.Storage("getting event", err)
	}

	return &e, nil
}

// Update overwrites the full event record by id. The host_email column is
// untouched: hosting is not transferable through an update.
func (db *DB) Update(ctx context.Context, event *model.Event) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE events
		 SET name = ?, event_time = ?, location = ?, latitude = ?, longitude = ?, description = ?
		 WHERE id = ?`,
		event.Name,
		event.EventTime,
		event.Location,
		event.Latitude,
		event.Longitude,
		event.Description,
		event.ID,
	)
	if err != nil {
		return apperror.Storage("updating event", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.Storage("checking rows affected", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("event", event.ID)
	}

	return nil
}

// Cancel removes an event and everything referencing it in one transaction:
// every RSVP row for the event, the host's authored-event row, then the
// event itself. Deleting the references first keeps the foreign keys
// satisfied at every step; a failure anywhere rolls the whole thing back,
// so a dangling RSVP or a stale authored-event entry is never observable.
func (db *DB) Cancel(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Storage("beginning event cancel", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rsvps WHERE event_id = ?`, id); err != nil {
		return apperror.Storage("deleting rsvps for event", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM hosted_events WHERE event_id = ?`, id); err != nil {
		return apperror.Storage("deleting hosted event", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return apperror.Storage("deleting event", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.Storage("checking rows affected", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("event", id)
	}

	if err := tx.Commit(); err != nil {
		return apperror.Storage("committing event cancel", err)
	}
	return nil
}

// Nearby returns every event within radiusM meters of the origin.
//
// The SQL pulls each event with its host's display name and a LEFT JOIN
// RSVP count — the outer join keeps zero-attendance events in the result.
// Rows come back ordered by event time ascending with rowid as the tie
// break (insertion order), and the great-circle distance filter is applied
// in Go with an inclusive boundary: exactly radiusM meters away is in.
//
// SQLite has no spatial extension in this build, so the distance runs
// through geo.DistanceM per row. Event counts here are a single town's
// meetups, not a geo index workload.
func (db *DB) Nearby(ctx context.Context, lat, lng float64, radiusM int64) ([]model.EventSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT e.id, e.name, e.event_time, e.location, e.latitude, e.longitude,
		        e.description, e.host_email, u.name, COUNT(r.user_email)
		 FROM events e
		 JOIN users u ON u.email = e.host_email
		 LEFT JOIN rsvps r ON r.event_id = e.id
		 GROUP BY e.id
		 ORDER BY e.event_time ASC, e.rowid ASC`,
	)
	if err != nil {
		return nil, apperror.Storage("querying nearby events", err)
	}
	defer rows.Close()

	summaries := make([]model.EventSummary, 0, 16)

	for rows.Next() {
		var s model.EventSummary
		if err := rows.Scan(
			&s.ID, &s.Name, &s.EventTime, &s.Location, &s.Latitude, &s.Longitude,
			&s.Description, &s.HostEmail, &s.HostName, &s.RSVPCount,
		); err != nil {
			return nil, apperror.Storage("scanning event row", err)
		}

		s.DistanceM = geo.DistanceM(lat, lng, s.Latitude, s.Longitude)
		if s.DistanceM <= float64(radiusM) {
			summaries = append(summaries, s)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("iterating nearby events", err)
	}

	return summaries, nil
}

// AttendingEvents returns the events a user has RSVPed to, each annotated
// with the host's display name and the event's live RSVP count. Used by the
// profile view.
func (db *DB) AttendingEvents(ctx context.Context, email string) ([]model.EventSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT e.id, e.name, e.event_time, e.location, e.latitude, e.longitude,
		        e.description, e.host_email, u.name,
		        (SELECT COUNT(*) FROM rsvps rc WHERE rc.event_id = e.id)
		 FROM events e
		 JOIN users u ON u.email = e.host_email
		 JOIN rsvps r ON r.event_id = e.id AND r.user_email = ?
		 ORDER BY e.event_time ASC, e.rowid ASC`,
		email,
	)
	if err != nil {
		return nil, apperror.Storage("querying attending events", err)
	}
	defer rows.Close()

	summaries := make([]model.EventSummary, 0, 8)

	for rows.Next() {
		var s model.EventSummary
		if err := rows.Scan(
			&s.ID, &s.Name, &s.EventTime, &s.Location, &s.Latitude, &s.Longitude,
			&s.Description, &s.HostEmail, &s.HostName, &s.RSVPCount,
		); err != nil {
			return nil, apperror.Storage("scanning attending event row", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("iterating attending events", err)
	}

	return summaries, nil
}

// HostedEventIDs returns the ids of the events a user has authored. After
// any cancellation the join table row is already gone, so this list never
// contains stale identifiers.
func (db *DB) HostedEventIDs(ctx context.Context, email string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT event_id FROM hosted_events WHERE host_email = ? ORDER BY event_id`,
		email,
	)
	if err != nil {
		return nil, apperror.Storage("querying hosted events", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 4)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperror.Storage("scanning hosted event id", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, apperror.Storage("iterating hosted events", err)
	}

	return ids, nil
}
