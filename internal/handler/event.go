package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

// eventList is the body of GET /events.
type eventList struct {
	Data           []domain.EventRecord `json:"data"`
	View           domain.View          `json:"view"`
	FilterApplied  bool                 `json:"filter_applied"`
	FavoritesExist bool                 `json:"favorites_exist"`
}

// favoriteResult is an event plus whether the toggle was dropped.
type favoriteResult struct {
	domain.EventRecord
	RateLimited bool `json:"rate_limited"`
}

type calendarRequest struct {
	Alert bool `json:"alert"`
}

// listEvents handles GET /events?view=all|favorites|filtered.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	view, err := domain.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		return
	}
	writeJSON(w, http.StatusOK, eventList{
		Data:           s.events.Events(view),
		View:           view,
		FilterApplied:  s.events.FilterApplied(),
		FavoritesExist: s.events.FavoritesExist(),
	})
}

// getEvent handles GET /events/{eventId}.
func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	rec, err := s.events.Event(chi.URLParam(r, "eventId"))
	if err != nil {
		s.writeEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// toggleFavorite handles POST /events/{eventId}/favorite.
// A toggle inside the debounce window is not an error for the client: it
// gets 200 with the unchanged event and rate_limited set.
func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	rec, err := s.events.ToggleFavorite(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			writeJSON(w, http.StatusOK, favoriteResult{EventRecord: rec, RateLimited: true})
			return
		}
		s.writeEventError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, favoriteResult{EventRecord: rec})
}

// addToCalendar handles POST /events/{eventId}/calendar.
// The body is optional; {"alert": true} adds a reminder 30 minutes before start.
func (s *Server) addToCalendar(w http.ResponseWriter, r *http.Request) {
	var body calendarRequest
	if err := decodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, requestBody("request body must be a JSON object"))
		return
	}

	rec, err := s.events.AddToCalendar(r.Context(), chi.URLParam(r, "eventId"), body.Alert)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyInCalendar):
			writeJSON(w, http.StatusConflict, conflictBody("event already in calendar"))
		case errors.Is(err, domain.ErrCalendarDenied):
			writeJSON(w, http.StatusForbidden, forbiddenBody("calendar access denied"))
		default:
			s.writeEventError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// listEventTypes handles GET /event-types.
func (s *Server) listEventTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"data": s.events.EventTypes()})
}

// listLocations handles GET /locations.
func (s *Server) listLocations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"data": s.events.Locations()})
}

// refresh handles POST /refresh.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	report, err := s.events.Refresh(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "refresh failed", "error", err)
		writeJSON(w, http.StatusBadGateway, upstreamBody("event source unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// writeEventError maps a session error on a single event to a response.
func (s *Server) writeEventError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, notFoundBody("event not found"))
		return
	}
	slog.ErrorContext(r.Context(), "event request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, internalBody())
}
