package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/samtm/motomeet/internal/apperror"
	"github.com/samtm/motomeet/internal/geocode"
)

// PlacesHandler exposes the geocoding collaborator to the frontend: a
// forward geocode for the event form and an autocomplete proxy that keeps
// the API key server-side.
type PlacesHandler struct {
	geocoder *geocode.Client
	logger   *slog.Logger
}

func NewPlacesHandler(geocoder *geocode.Client, logger *slog.Logger) *PlacesHandler {
	return &PlacesHandler{geocoder: geocoder, logger: logger}
}

type geocodeRequest struct {
	Address string `json:"address"`
}

// HandleGeocode resolves a free-text address to coordinates.
//
// HTTP: POST /api/geocode
func (h *PlacesHandler) HandleGeocode(w http.ResponseWriter, r *http.Request) {
	var req geocodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Address == "" {
		writeError(w, apperror.ValidationFailed("address", "no address provided"))
		return
	}

	lat, lng, err := h.geocoder.Geocode(r.Context(), req.Address)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]float64{
		"lat": lat,
		"lng": lng,
	})
}

// HandleAutocomplete forwards the request body to the Places autocomplete
// API verbatim and returns the upstream response verbatim. The field mask
// and API key are attached server-side.
//
// HTTP: POST /api/autocomplete
func (h *PlacesHandler) HandleAutocomplete(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperror.ValidationFailed("", "invalid request body"))
		return
	}

	resp, err := h.geocoder.Autocomplete(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp); err != nil {
		h.logger.Error("writing autocomplete response", slog.String("error", err.Error()))
	}
}
