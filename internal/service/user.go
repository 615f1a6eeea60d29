package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samtm/motomeet/internal/apperror"
	"github.com/samtm/motomeet/internal/geo"
	"github.com/samtm/motomeet/internal/model"
	"github.com/samtm/motomeet/internal/repository"
)

// Geocoder resolves a free-text address to coordinates. Satisfied by
// *geocode.Client; faked in tests.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, err error)
}

// UserService handles profile and location business logic.
type UserService struct {
	users    repository.UserRepository
	events   repository.EventRepository
	geocoder Geocoder
	logger   *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	events repository.EventRepository,
	geocoder Geocoder,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:    users,
		events:   events,
		geocoder: geocoder,
		logger:   logger,
	}
}

// UpdateLocation geocodes the city, converts the radius from miles to
// meters, and persists all of it on the user record. The geocoding call
// happens before any write: an unresolvable city leaves the stored location
// untouched.
func (s *UserService) UpdateLocation(ctx context.Context, email, city string, radiusMiles int64) error {
	if city == "" || radiusMiles <= 0 {
		return apperror.ValidationFailed("", "please enter a valid city and radius")
	}

	lat, lng, err := s.geocoder.Geocode(ctx, city)
	if err != nil {
		return err
	}

	radiusM := geo.MilesToMeters(radiusMiles)
	if err := s.users.UpdateLocation(ctx, email, lat, lng, radiusM, city); err != nil {
		return err
	}

	s.logger.Info("location updated",
		slog.String("email", email),
		slog.String("city", city),
		slog.Int64("radiusM", radiusM),
	)
	return nil
}

// ProfileView is everything the profile page shows: the user's own fields,
// the events they are attending (annotated with host names), and the ids of
// the events they host.
type ProfileView struct {
	User      *model.User
	Attending []model.EventSummary
	HostedIDs []string
}

// Profile assembles the profile view for the given user.
func (s *UserService) Profile(ctx context.Context, email string) (*ProfileView, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	attending, err := s.events.AttendingEvents(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading attended events: %w", err)
	}

	hosted, err := s.events.HostedEventIDs(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading hosted event ids: %w", err)
	}

	return &ProfileView{
		User:      user,
		Attending: attending,
		HostedIDs: hosted,
	}, nil
}
