package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samtm/motomeet/internal/apperror"
	"github.com/samtm/motomeet/internal/auth"
	"github.com/samtm/motomeet/internal/geo"
	"github.com/samtm/motomeet/internal/model"
	"github.com/samtm/motomeet/internal/service"
)

// UserHandler owns the location and profile endpoints.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type setLocationRequest struct {
	City   string          `json:"city"`
	Radius json.RawMessage `json:"radius"` // miles; number or numeric string
}

// HandleSetLocation geocodes the submitted city and stores the caller's
// location and search radius.
//
// HTTP: POST /api/set_location
func (h *UserHandler) HandleSetLocation(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		writeError(w, apperror.AuthFailed("unauthorized"))
		return
	}

	var req setLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var radiusMiles int64
	if len(req.Radius) > 0 {
		var c coordinate
		if err := json.Unmarshal(req.Radius, &c); err != nil {
			writeError(w, apperror.ValidationFailed("radius", "please enter a valid city and radius"))
			return
		}
		radiusMiles = int64(c)
	}

	if err := h.users.UpdateLocation(r.Context(), email, req.City, radiusMiles); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Location updated successfully!"})
}

type profileResponse struct {
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	Events       []model.EventSummary `json:"events"`
	EventsHosted []string             `json:"events_hosted"`
	City         string               `json:"city"`
	Radius       int64                `json:"radius"` // miles
	Make         string               `json:"make"`
	Model        string               `json:"model"`
}

// HandleProfile returns the caller's profile: their own fields, the events
// they attend, and the ids of the events they host.
//
// HTTP: GET /api/profile
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		writeError(w, apperror.AuthFailed("unauthorized"))
		return
	}

	view, err := h.users.Profile(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	attending := view.Attending
	if attending == nil {
		attending = []model.EventSummary{}
	}
	hosted := view.HostedIDs
	if hosted == nil {
		hosted = []string{}
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Name:         view.User.Name,
		Email:        view.User.Email,
		Events:       attending,
		EventsHosted: hosted,
		City:         view.User.City,
		Radius:       geo.MetersToMiles(view.User.RadiusM),
		Make:         view.User.Make,
		Model:        view.User.Model,
	})
}
