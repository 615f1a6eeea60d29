package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/samtm/motomeet/internal/apperror"
	"github.com/samtm/motomeet/internal/auth"
	"github.com/samtm/motomeet/internal/model"
)

// In-memory fakes for the repository interfaces. Fakes, not a mock
// framework: each one does just enough bookkeeping for the rules under test,
// and exposes err fields to simulate storage failures.

type fakeUserRepo struct {
	users map[string]*model.User // keyed by email

	createErr error
	getErr    error
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.users[user.Email]; ok {
		return apperror.ValidationFailed("email", "user already exists, please log in")
	}
	copied := *user
	f.users[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpsertOAuth(ctx context.Context, user *model.User) error {
	if existing, ok := f.users[user.Email]; ok {
		existing.Name = user.Name
		*user = *existing
		return nil
	}
	copied := *user
	f.users[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) UpdateLocation(ctx context.Context, email string, lat, lng float64, radiusM int64, city string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.users[email]
	if !ok {
		return apperror.NotFound("user", email)
	}
	u.Latitude, u.Longitude = lat, lng
	u.RadiusM = radiusM
	u.City = city
	u.HasLocation = true
	return nil
}

type fakeEventRepo struct {
	events map[string]*model.Event
	hosted map[string][]string // host email → event ids
	nextID int

	// canned results for the read paths the service passes through
	nearby    []model.EventSummary
	attending []model.EventSummary

	createErr error
	updateErr error
	cancelErr error
	nearbyErr error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		events: make(map[string]*model.Event),
		hosted: make(map[string][]string),
		nextID: 1,
	}
}

func (f *fakeEventRepo) Create(ctx context.Context, event *model.Event) error {
	if f.createErr != nil {
		return f.createErr
	}
	event.ID = fmt.Sprintf("event-%d", f.nextID)
	f.nextID++
	copied := *event
	f.events[event.ID] = &copied
	f.hosted[event.HostEmail] = append(f.hosted[event.HostEmail], event.ID)
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, apperror.NotFound("event", id)
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, event *model.Event) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	existing, ok := f.events[event.ID]
	if !ok {
		return apperror.NotFound("event", event.ID)
	}
	host := existing.HostEmail
	*existing = *event
	existing.HostEmail = host
	return nil
}

func (f *fakeEventRepo) Cancel(ctx context.Context, id string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	if _, ok := f.events[id]; !ok {
		return apperror.NotFound("event", id)
	}
	delete(f.events, id)
	return nil
}

func (f *fakeEventRepo) Nearby(ctx context.Context, lat, lng float64, radiusM int64) ([]model.EventSummary, error) {
	if f.nearbyErr != nil {
		return nil, f.nearbyErr
	}
	return f.nearby, nil
}

func (f *fakeEventRepo) AttendingEvents(ctx context.Context, email string) ([]model.EventSummary, error) {
	return f.attending, nil
}

func (f *fakeEventRepo) HostedEventIDs(ctx context.Context, email string) ([]string, error) {
	return f.hosted[email], nil
}

type fakeRSVPRepo struct {
	attendees map[string]map[string]bool // event id → set of emails
	going     map[string][]string        // email → event ids

	setErr error
}

func newFakeRSVPRepo() *fakeRSVPRepo {
	return &fakeRSVPRepo{
		attendees: make(map[string]map[string]bool),
		going:     make(map[string][]string),
	}
}

func (f *fakeRSVPRepo) SetAttendance(ctx context.Context, email, eventID string, attending bool) (int64, error) {
	if f.setErr != nil {
		return 0, f.setErr
	}
	set := f.attendees[eventID]
	if set == nil {
		set = make(map[string]bool)
		f.attendees[eventID] = set
	}
	if attending {
		set[email] = true
	} else {
		delete(set, email)
	}
	return int64(len(set)), nil
}

func (f *fakeRSVPRepo) EventIDsForUser(ctx context.Context, email string) ([]string, error) {
	return f.going[email], nil
}

type fakeGeocoder struct {
	lat, lng float64
	err      error

	lastAddress string
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	f.lastAddress = address
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.lat, f.lng, nil
}

// testLogger keeps service log output out of test noise.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestAuthService(t *testing.T, repo *fakeUserRepo) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	// bcrypt minimum cost keeps these tests fast
	ps := auth.NewPasswordServiceWithCost(4)

	return NewAuthService(repo, ts, ps, testLogger())
}
