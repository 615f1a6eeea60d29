package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/samtm/motomeet/internal/apperror"
	"github.com/samtm/motomeet/internal/model"
	"github.com/samtm/motomeet/internal/repository"
)

// DefaultRadiusM is the feed radius used when a user has a saved location
// but never chose a radius: 50 miles in meters.
const DefaultRadiusM = 80467

// EventService handles event lifecycle, the home feed, and RSVP toggles.
type EventService struct {
	events repository.EventRepository
	rsvps  repository.RSVPRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewEventService(
	events repository.EventRepository,
	rsvps repository.RSVPRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *EventService {
	return &EventService{
		events: events,
		rsvps:  rsvps,
		users:  users,
		logger: logger,
	}
}

// EventInput carries the event fields for create and update. Coordinates
// arrive already parsed; the handler accepts both JSON numbers and numeric
// strings on the wire.
type EventInput struct {
	ID          string
	Name        string
	EventTime   time.Time
	Location    string
	Latitude    float64
	Longitude   float64
	Description string
}

func validateEvent(in EventInput) error {
	if strings.TrimSpace(in.Name) == "" || len(in.Name) > maxNameLen {
		return apperror.ValidationFailed("event_name", "invalid event name")
	}
	if math.IsNaN(in.Latitude) || in.Latitude < -90 || in.Latitude > 90 ||
		math.IsNaN(in.Longitude) || in.Longitude < -180 || in.Longitude > 180 {
		return apperror.ValidationFailed("", "invalid coordinates")
	}
	return nil
}

// Create validates the input and inserts the event. The host is recorded as
// an attendee in the same transaction, so a brand-new event always shows a
// count of one.
func (s *EventService) Create(ctx context.Context, hostEmail string, in EventInput) (*model.Event, error) {
	if err := validateEvent(in); err != nil {
		return nil, err
	}

	event := &model.Event{
		Name:        in.Name,
		EventTime:   in.EventTime,
		Location:    in.Location,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Description: in.Description,
		HostEmail:   hostEmail,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info("event created",
		slog.String("eventID", event.ID),
		slog.String("host", hostEmail),
	)
	return event, nil
}

// Update overwrites every mutable field of the event. Validation runs before
// any write, so a rejected update leaves the stored record untouched.
func (s *EventService) Update(ctx context.Context, in EventInput) error {
	if in.ID == "" {
		return apperror.ValidationFailed("event_id", "missing event_id")
	}
	if err := validateEvent(in); err != nil {
		return err
	}

	event := &model.Event{
		ID:          in.ID,
		Name:        in.Name,
		EventTime:   in.EventTime,
		Location:    in.Location,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Description: in.Description,
	}
	if err := s.events.Update(ctx, event); err != nil {
		return err
	}

	s.logger.Info("event updated", slog.String("eventID", in.ID))
	return nil
}

// Cancel removes the event and everything referencing it in one
// transaction. After it returns, no RSVP row and no authored-event row may
// mention the id.
func (s *EventService) Cancel(ctx context.Context, eventID string) error {
	if eventID == "" {
		return apperror.ValidationFailed("event_id", "missing event_id")
	}
	if err := s.events.Cancel(ctx, eventID); err != nil {
		return err
	}

	s.logger.Info("event cancelled", slog.String("eventID", eventID))
	return nil
}

// SetAttendance toggles the caller's RSVP and returns the event's resulting
// attendee count. Attending twice or leaving twice is a no-op with the same
// count.
func (s *EventService) SetAttendance(ctx context.Context, email, eventID string, attending bool) (int64, error) {
	if eventID == "" {
		return 0, apperror.ValidationFailed("event_id", "missing event_id")
	}
	return s.rsvps.SetAttendance(ctx, email, eventID, attending)
}

// HomeFeed is the home page payload: the user's own fields, the events
// within their radius, and the ids of every event they are attending.
type HomeFeed struct {
	User   *model.User
	Events []model.EventSummary
	Going  []string
}

// Feed builds the home feed for the given user. A user who never saved a
// location gets a not-found failure, matching the client's expectation that
// it must send them to the location picker first.
func (s *EventService) Feed(ctx context.Context, email string) (*HomeFeed, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.HasLocation {
		return nil, &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: "user location not found",
		}
	}

	radiusM := user.RadiusM
	if radiusM <= 0 {
		radiusM = DefaultRadiusM
	}
	// Report the radius actually searched, not the stored zero.
	user.RadiusM = radiusM

	nearby, err := s.events.Nearby(ctx, user.Latitude, user.Longitude, radiusM)
	if err != nil {
		return nil, fmt.Errorf("service/event: loading nearby events: %w", err)
	}

	going, err := s.rsvps.EventIDsForUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/event: loading rsvp ids: %w", err)
	}

	return &HomeFeed{
		User:   user,
		Events: nearby,
		Going:  going,
	}, nil
}
