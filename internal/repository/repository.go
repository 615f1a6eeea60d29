// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage is the only implementation; tests
// substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/samtm/motomeet/internal/model"
)

type UserRepository interface {
	// Create inserts a new user. A duplicate email is a validation failure.
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertOAuth inserts or refreshes a password-less account created via
	// an identity provider, keyed by email.
	UpsertOAuth(ctx context.Context, user *model.User) error
	UpdateLocation(ctx context.Context, email string, lat, lng float64, radiusM int64, city string) error
}

type EventRepository interface {
	// Create persists the event, the host's authored-event row, and the
	// host's own RSVP in one transaction.
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	// Update is a full-record overwrite by id.
	Update(ctx context.Context, event *model.Event) error
	// Cancel removes the event's RSVPs, its authored-event row, and the
	// event itself in one transaction. No partial cancellation is
	// observable.
	Cancel(ctx context.Context, id string) error
	// Nearby returns every event within radiusM meters (inclusive) of the
	// origin, annotated with host name and live RSVP count, ordered by
	// event time ascending with insertion-order tie break.
	Nearby(ctx context.Context, lat, lng float64, radiusM int64) ([]model.EventSummary, error)
	AttendingEvents(ctx context.Context, email string) ([]model.EventSummary, error)
	HostedEventIDs(ctx context.Context, email string) ([]string, error)
}

type RSVPRepository interface {
	// SetAttendance applies the desired attendance state idempotently and
	// returns the event's RSVP count read in the same transaction.
	SetAttendance(ctx context.Context, email, eventID string, attending bool) (int64, error)
	// EventIDsForUser returns the ids of events the user is attending.
	EventIDsForUser(ctx context.Context, email string) ([]string, error)
}
