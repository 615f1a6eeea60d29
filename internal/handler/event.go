package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/samtm/motomeet/internal/apperror"
	"github.com/samtm/motomeet/internal/auth"
	"github.com/samtm/motomeet/internal/geo"
	"github.com/samtm/motomeet/internal/model"
	"github.com/samtm/motomeet/internal/service"
)

// EventHandler owns the home feed, the RSVP toggle, and the event
// lifecycle endpoints.
type EventHandler struct {
	events *service.EventService
	logger *slog.Logger
}

func NewEventHandler(events *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// eventTimeFormats are tried in order when parsing the event_time field.
// The frontend's datetime-local input omits the zone and seconds.
var eventTimeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

func parseEventTime(s string) (time.Time, error) {
	for _, layout := range eventTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperror.ValidationFailed("event_time", "invalid event time")
}

type eventRequest struct {
	EventID     string          `json:"event_id"`
	EventName   string          `json:"event_name"`
	EventTime   string          `json:"event_time"`
	Location    string          `json:"location"`
	Lat         json.RawMessage `json:"lat"`
	Lng         json.RawMessage `json:"lng"`
	Description string          `json:"description"`
}

func parseCoordinate(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, apperror.ValidationFailed("", "invalid coordinates")
	}
	var c coordinate
	if err := json.Unmarshal(raw, &c); err != nil {
		return 0, apperror.ValidationFailed("", "invalid coordinates")
	}
	return float64(c), nil
}

func (req eventRequest) toInput() (service.EventInput, error) {
	lat, err := parseCoordinate(req.Lat)
	if err != nil {
		return service.EventInput{}, err
	}
	lng, err := parseCoordinate(req.Lng)
	if err != nil {
		return service.EventInput{}, err
	}
	eventTime, err := parseEventTime(req.EventTime)
	if err != nil {
		return service.EventInput{}, err
	}

	// The frontend URL-encodes the location string.
	location := req.Location
	if unescaped, err := url.QueryUnescape(location); err == nil {
		location = unescaped
	}

	return service.EventInput{
		ID:          req.EventID,
		Name:        req.EventName,
		EventTime:   eventTime,
		Location:    location,
		Latitude:    lat,
		Longitude:   lng,
		Description: req.Description,
	}, nil
}

type homeResponse struct {
	Name        string               `json:"n"`
	Email       string               `json:"email"`
	Events      []model.EventSummary `json:"events"`
	City        string               `json:"city"`
	Radius      int64                `json:"radius"` // miles
	Lat         float64              `json:"lat"`
	Long        float64              `json:"long"`
	EventsGoing []string             `json:"events_going"`
}

// HandleHome returns the home feed: the user's own fields, every event
// within their radius ordered by event time, and the ids of the events
// they already RSVP'd to.
//
// HTTP: GET /api/home
func (h *EventHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		writeError(w, apperror.AuthFailed("unauthorized"))
		return
	}

	feed, err := h.events.Feed(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	events := feed.Events
	if events == nil {
		events = []model.EventSummary{}
	}
	going := feed.Going
	if going == nil {
		going = []string{}
	}

	writeJSON(w, http.StatusOK, homeResponse{
		Name:        feed.User.Name,
		Email:       feed.User.Email,
		Events:      events,
		City:        feed.User.City,
		Radius:      geo.MetersToMiles(feed.User.RadiusM),
		Lat:         feed.User.Latitude,
		Long:        feed.User.Longitude,
		EventsGoing: going,
	})
}

type rsvpRequest struct {
	EventID string `json:"event_id"`
	State   bool   `json:"state"`
}

// HandleRSVP toggles the caller's attendance and returns the resulting
// count. The same state twice in a row is a no-op with the same count.
//
// HTTP: POST /api/home
func (h *EventHandler) HandleRSVP(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		writeError(w, apperror.AuthFailed("unauthorized"))
		return
	}

	var req rsvpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	count, err := h.events.SetAttendance(r.Context(), email, req.EventID, req.State)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "RSVP updated successfully!",
		"rsvp_count": count,
	})
}

// HandleCreateEvent creates an event hosted by the caller.
//
// HTTP: POST /api/create_event
func (h *EventHandler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		writeError(w, apperror.AuthFailed("unauthorized"))
		return
	}

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, err)
		return
	}

	event, err := h.events.Create(r.Context(), email, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Event created successfully!",
		"event_id": event.ID,
	})
}

// HandleUpdateEvent overwrites every mutable field of an event.
//
// HTTP: POST /api/update_event
func (h *EventHandler) HandleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.events.Update(r.Context(), in); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Event updated!"})
}

type cancelRequest struct {
	EventID string `json:"event_id"`
}

// HandleCancelEvent removes the event and every reference to it.
//
// HTTP: POST /api/cancel_event
func (h *EventHandler) HandleCancelEvent(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.events.Cancel(r.Context(), req.EventID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Event canceled successfully!"})
}

type newsItem struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

// HandleNews serves the static launch notes. Public, no auth.
//
// HTTP: GET /api/news
func (h *EventHandler) HandleNews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []newsItem{
		{
			Title: "MotoMeet V1.0 Launch",
			Date:  "2025-04-02",
			Content: "Hello everyone! This is the beta release of MotoMeet, a platform for bikers " +
				"to schedule and find group meets and rides. I made this after having so much trouble " +
				"finding any meets after moving back home from university! So far, users can create and RSVP " +
				"to events! I'm going to release new features in the coming weeks, so stay tuned! - Sam",
		},
	})
}
