package handler_test

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samtm/motomeet/internal/auth"
	"github.com/samtm/motomeet/internal/geocode"
	"github.com/samtm/motomeet/internal/handler"
	sqliteRepo "github.com/samtm/motomeet/internal/repository/sqlite"
	"github.com/samtm/motomeet/internal/service"
)

// testApp wires the real stack — in-memory SQLite, real services, real auth
// middleware — behind a chi router, with the geocoding client pointed at a
// local stub. Rate limiters are left out here; they have their own tests.
type testApp struct {
	router  http.Handler
	geocode *fakeGoogle
}

// fakeGoogle stands in for the Google Geocoding and Places APIs.
type fakeGoogle struct {
	lat, lng   float64
	noResults  bool
	suggestion string
}

func (g *fakeGoogle) geocodeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if g.noResults {
		fmt.Fprint(w, `{"results":[],"status":"ZERO_RESULTS"}`)
		return
	}
	fmt.Fprintf(w, `{"results":[{"geometry":{"location":{"lat":%f,"lng":%f}}}],"status":"OK"}`, g.lat, g.lng)
}

func (g *fakeGoogle) autocompleteHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"suggestions":[{"placePrediction":{"text":{"text":%q}}}]}`, g.suggestion)
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceWithCost(4)

	google := &fakeGoogle{lat: 40.2206, lng: -74.7597, suggestion: "Trenton, NJ, USA"}
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode", google.geocodeHandler)
	mux.HandleFunc("/autocomplete", google.autocompleteHandler)
	upstream := httptest.NewServer(mux)
	t.Cleanup(upstream.Close)

	geocoder := geocode.NewWithURLs("test-key", upstream.URL+"/geocode", upstream.URL+"/autocomplete")

	authService := service.NewAuthService(db, tokens, passwords, logger)
	userService := service.NewUserService(db, db, geocoder, logger)
	eventService := service.NewEventService(db, db, db, logger)

	authHandler := handler.NewAuthHandler(authService, nil, logger)
	userHandler := handler.NewUserHandler(userService, logger)
	eventHandler := handler.NewEventHandler(eventService, logger)
	placesHandler := handler.NewPlacesHandler(geocoder, logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/news", eventHandler.HandleNews)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/verify", authHandler.HandleVerify)
			r.Post("/set_location", userHandler.HandleSetLocation)
			r.Get("/profile", userHandler.HandleProfile)
			r.Get("/home", eventHandler.HandleHome)
			r.Post("/home", eventHandler.HandleRSVP)
			r.Post("/create_event", eventHandler.HandleCreateEvent)
			r.Post("/update_event", eventHandler.HandleUpdateEvent)
			r.Post("/cancel_event", eventHandler.HandleCancelEvent)
			r.Post("/geocode", placesHandler.HandleGeocode)
			r.Post("/autocomplete", placesHandler.HandleAutocomplete)
		})
	})

	return &testApp{router: r, geocode: google}
}

// do performs a request against the app, attaching the session cookie when
// given, and returns the recorder.
func (a *testApp) do(t *testing.T, method, path, body string, session *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if session != nil {
		req.AddCookie(session)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// signup registers a user and returns the session cookie from the response.
func (a *testApp) signup(t *testing.T, email string) *http.Cookie {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"pwd":"vroom-vroom","name":"Rider","make":"Honda","model":"CB500F"}`, email)
	rec := a.do(t, http.MethodPost, "/api/signup", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, "signup failed: %s", rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("signup response set no session cookie")
	return nil
}

// setLocation stores a location for the session's user via the stubbed
// geocoder.
func (a *testApp) setLocation(t *testing.T, session *http.Cookie) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/set_location", `{"city":"Trenton, NJ","radius":50}`, session)
	require.Equal(t, http.StatusOK, rec.Code, "set_location failed: %s", rec.Body.String())
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestSignupSetsSessionCookie(t *testing.T) {
	app := newTestApp(t)

	cookie := app.signup(t, "rider@example.com")
	assert.True(t, cookie.HttpOnly, "session cookie must be HttpOnly")
	assert.True(t, cookie.Secure, "session cookie must be Secure")
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	assert.NotEmpty(t, cookie.Value)
}

func TestSignupValidation(t *testing.T) {
	app := newTestApp(t)

	t.Run("short password", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/signup",
			`{"email":"a@b.c","pwd":"12345","name":"A","make":"","model":""}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		app.signup(t, "dup@example.com")
		rec := app.do(t, http.MethodPost, "/api/signup",
			`{"email":"dup@example.com","pwd":"vroom-vroom","name":"A","make":"","model":""}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "already exists")
	})
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	app.signup(t, "rider@example.com")

	t.Run("correct credentials", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/login",
			`{"email":"rider@example.com","pwd":"vroom-vroom"}`, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrongPwd := app.do(t, http.MethodPost, "/api/login",
			`{"email":"rider@example.com","pwd":"wrong"}`, nil)
		unknown := app.do(t, http.MethodPost, "/api/login",
			`{"email":"ghost@example.com","pwd":"vroom-vroom"}`, nil)

		assert.Equal(t, http.StatusUnauthorized, wrongPwd.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, wrongPwd.Body.String(), unknown.Body.String())
	})
}

func TestVerify(t *testing.T) {
	app := newTestApp(t)

	t.Run("without session", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/verify", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("with session", func(t *testing.T) {
		session := app.signup(t, "rider@example.com")
		rec := app.do(t, http.MethodGet, "/api/verify", "", session)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Authenticated", decodeBody(t, rec)["message"])
	})
}

func TestLogoutClearsCookie(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/logout", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			cleared = true
			assert.Empty(t, c.Value)
			assert.Negative(t, c.MaxAge)
		}
	}
	assert.True(t, cleared, "logout must rewrite the session cookie")
}

func TestHome(t *testing.T) {
	app := newTestApp(t)
	session := app.signup(t, "rider@example.com")

	t.Run("before location is set", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/home", "", session)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("after location is set", func(t *testing.T) {
		app.setLocation(t, session)

		rec := app.do(t, http.MethodGet, "/api/home", "", session)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decodeBody(t, rec)
		assert.Equal(t, "Rider", body["n"])
		assert.Equal(t, "rider@example.com", body["email"])
		assert.Equal(t, "Trenton, NJ", body["city"])
		assert.Equal(t, float64(50), body["radius"])
		assert.Equal(t, []any{}, body["events"], "no events yet, but never null")
		assert.Equal(t, []any{}, body["events_going"])
	})
}

func TestEventLifecycle(t *testing.T) {
	app := newTestApp(t)
	host := app.signup(t, "host@example.com")
	rider := app.signup(t, "rider@example.com")
	app.setLocation(t, host)
	app.setLocation(t, rider)

	// String coordinates on purpose: the frontend sends either form.
	rec := app.do(t, http.MethodPost, "/api/create_event",
		`{"event_name":"Sunday Ride","event_time":"2026-09-12T18:00","location":"Washington%20Crossing","lat":"40.2206","lng":"-74.7597","description":"easy pace"}`,
		host)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	eventID, _ := decodeBody(t, rec)["event_id"].(string)
	require.NotEmpty(t, eventID)

	t.Run("feed shows the event with the host auto-attending", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/home", "", rider)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		events := body["events"].([]any)
		require.Len(t, events, 1)

		event := events[0].(map[string]any)
		assert.Equal(t, "Sunday Ride", event["event_name"])
		assert.Equal(t, "Washington Crossing", event["location"], "location arrives URL-decoded")
		assert.Equal(t, "Rider", event["host_name"])
		assert.Equal(t, float64(1), event["rsvp_count"])
	})

	t.Run("rsvp toggle is idempotent", func(t *testing.T) {
		attend := fmt.Sprintf(`{"event_id":%q,"state":true}`, eventID)
		unattend := fmt.Sprintf(`{"event_id":%q,"state":false}`, eventID)

		rec := app.do(t, http.MethodPost, "/api/home", attend, rider)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(2), decodeBody(t, rec)["rsvp_count"])

		rec = app.do(t, http.MethodPost, "/api/home", attend, rider)
		assert.Equal(t, float64(2), decodeBody(t, rec)["rsvp_count"], "repeat attend must not double-count")

		rec = app.do(t, http.MethodPost, "/api/home", unattend, rider)
		assert.Equal(t, float64(1), decodeBody(t, rec)["rsvp_count"])

		rec = app.do(t, http.MethodPost, "/api/home", unattend, rider)
		assert.Equal(t, float64(1), decodeBody(t, rec)["rsvp_count"], "repeat unattend must not go negative")
	})

	t.Run("update overwrites the event", func(t *testing.T) {
		body := fmt.Sprintf(`{"event_id":%q,"event_name":"Sunday Night Ride","event_time":"2026-09-12T20:00","location":"same place","lat":40.2206,"lng":-74.7597,"description":"bring lights"}`, eventID)
		rec := app.do(t, http.MethodPost, "/api/update_event", body, host)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		feed := app.do(t, http.MethodGet, "/api/home", "", rider)
		events := decodeBody(t, feed)["events"].([]any)
		require.Len(t, events, 1)
		assert.Equal(t, "Sunday Night Ride", events[0].(map[string]any)["event_name"])
	})

	t.Run("cancel removes the event everywhere", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/cancel_event",
			fmt.Sprintf(`{"event_id":%q}`, eventID), host)
		require.Equal(t, http.StatusOK, rec.Code)

		feed := app.do(t, http.MethodGet, "/api/home", "", rider)
		assert.Equal(t, []any{}, decodeBody(t, feed)["events"])

		rsvp := app.do(t, http.MethodPost, "/api/home",
			fmt.Sprintf(`{"event_id":%q,"state":true}`, eventID), rider)
		assert.Equal(t, http.StatusNotFound, rsvp.Code, "rsvp to a cancelled event")
	})
}

func TestCreateEvent_InvalidInput(t *testing.T) {
	app := newTestApp(t)
	session := app.signup(t, "host@example.com")

	t.Run("unparseable coordinates", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/create_event",
			`{"event_name":"Ride","event_time":"2026-09-12T18:00","location":"x","lat":"not-a-number","lng":"0","description":""}`,
			session)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("blank name", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/create_event",
			`{"event_name":"   ","event_time":"2026-09-12T18:00","location":"x","lat":1,"lng":2,"description":""}`,
			session)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProfile(t *testing.T) {
	app := newTestApp(t)
	session := app.signup(t, "host@example.com")
	app.setLocation(t, session)

	rec := app.do(t, http.MethodPost, "/api/create_event",
		`{"event_name":"Sunday Ride","event_time":"2026-09-12T18:00","location":"park","lat":40.2,"lng":-74.7,"description":""}`,
		session)
	require.Equal(t, http.StatusOK, rec.Code)
	eventID := decodeBody(t, rec)["event_id"].(string)

	prof := app.do(t, http.MethodGet, "/api/profile", "", session)
	require.Equal(t, http.StatusOK, prof.Code)

	body := decodeBody(t, prof)
	assert.Equal(t, "Rider", body["name"])
	assert.Equal(t, "Honda", body["make"])
	assert.Equal(t, "CB500F", body["model"])
	assert.Equal(t, float64(50), body["radius"])

	attending := body["events"].([]any)
	require.Len(t, attending, 1, "host auto-attends their own event")
	assert.Equal(t, eventID, attending[0].(map[string]any)["event_id"])

	hosted := body["events_hosted"].([]any)
	require.Len(t, hosted, 1)
	assert.Equal(t, eventID, hosted[0])
}

func TestGeocodeEndpoint(t *testing.T) {
	app := newTestApp(t)
	session := app.signup(t, "rider@example.com")

	t.Run("resolves an address", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/geocode", `{"address":"Trenton, NJ"}`, session)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.InDelta(t, 40.2206, body["lat"], 0.0001)
		assert.InDelta(t, -74.7597, body["lng"], 0.0001)
	})

	t.Run("missing address", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/geocode", `{}`, session)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no results is an upstream failure", func(t *testing.T) {
		app.geocode.noResults = true
		defer func() { app.geocode.noResults = false }()

		rec := app.do(t, http.MethodPost, "/api/geocode", `{"address":"Nowhereville"}`, session)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestAutocompletePassThrough(t *testing.T) {
	app := newTestApp(t)
	session := app.signup(t, "rider@example.com")

	rec := app.do(t, http.MethodPost, "/api/autocomplete", `{"input":"Tren"}`, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Trenton, NJ, USA")
}

func TestNewsIsPublic(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/news", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "MotoMeet V1.0 Launch", items[0]["title"])
}
