// Package handler implements the HTTP API the UI layer uses to read events
// and send user actions into the session.
// Handlers are methods on Server, split into files by resource (health.go,
// event.go, filter.go), and share the same dependencies.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

// EventServicer defines the session operations the handlers depend on.
// Defining the interface here, in the consumer package, lets handler tests
// inject a mock without a database or remote source.
type EventServicer interface {
	Events(view domain.View) []domain.EventRecord
	Event(id string) (domain.EventRecord, error)
	ToggleFavorite(ctx context.Context, id string) (domain.EventRecord, error)
	AddToCalendar(ctx context.Context, id string, withAlert bool) (domain.EventRecord, error)
	Filter() domain.SearchFilter
	FilterApplied() bool
	ApplyFilter(ctx context.Context, f domain.SearchFilter) (domain.SearchFilter, error)
	EventTypes() []string
	Locations() []string
	FavoritesExist() bool
	Refresh(ctx context.Context) (domain.IngestReport, error)
}

// Server holds the dependencies of every endpoint.
type Server struct {
	events  EventServicer
	openAPI []byte
}

// NewServer constructs the Server. openAPI is served verbatim at /openapi.yaml.
func NewServer(events EventServicer, openAPI []byte) *Server {
	return &Server{events: events, openAPI: openAPI}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil)
}

// Routes returns a chi router with every endpoint registered.
// Event routes are only mounted when the server has an EventServicer.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.getHealth)
	if s.openAPI != nil {
		r.Get("/openapi.yaml", s.getOpenAPI)
	}
	if s.events == nil {
		return r
	}

	r.Route("/events", func(r chi.Router) {
		r.Get("/", s.listEvents)
		r.Get("/{eventId}", s.getEvent)
		r.Post("/{eventId}/favorite", s.toggleFavorite)
		r.Post("/{eventId}/calendar", s.addToCalendar)
	})
	r.Get("/filter", s.getFilter)
	r.Put("/filter", s.putFilter)
	r.Get("/event-types", s.listEventTypes)
	r.Get("/locations", s.listLocations)
	r.Post("/refresh", s.refresh)
	return r
}

func (s *Server) getOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.openAPI)
}
