package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

// filterBody is the wire form of domain.SearchFilter.
// weekdays_selected is indexed 0=Sunday..6=Saturday.
type filterBody struct {
	WeeksDisplayed   int      `json:"weeks_displayed"`
	WeekdaysSelected []bool   `json:"weekdays_selected"`
	OnlyCultural     bool     `json:"only_cultural"`
	OnlyVirtual      bool     `json:"only_virtual"`
	EventTypes       []string `json:"event_types"`
	Applied          bool     `json:"applied"`
}

// getFilter handles GET /filter.
func (s *Server) getFilter(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, filterToResponse(s.events.Filter(), s.events.FilterApplied()))
}

// putFilter handles PUT /filter. The applied field is ignored on input.
func (s *Server) putFilter(w http.ResponseWriter, r *http.Request) {
	var body filterBody
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody("request body must be a filter object"))
		return
	}
	f, err := filterFromRequest(body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		return
	}

	applied, err := s.events.ApplyFilter(r.Context(), f)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
			return
		}
		writeJSON(w, http.StatusBadGateway, upstreamBody("event source unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, filterToResponse(applied, s.events.FilterApplied()))
}

func filterFromRequest(b filterBody) (domain.SearchFilter, error) {
	f := domain.NewSearchFilter(b.EventTypes)
	f.WeeksDisplayed = b.WeeksDisplayed
	f.OnlyCultural = b.OnlyCultural
	f.OnlyVirtual = b.OnlyVirtual
	if b.WeekdaysSelected != nil {
		if len(b.WeekdaysSelected) != len(f.WeekdaysSelected) {
			return domain.SearchFilter{}, fmt.Errorf("%w: weekdays_selected must have 7 entries", domain.ErrValidation)
		}
		copy(f.WeekdaysSelected[:], b.WeekdaysSelected)
	}
	return f, nil
}

func filterToResponse(f domain.SearchFilter, applied bool) filterBody {
	return filterBody{
		WeeksDisplayed:   f.WeeksDisplayed,
		WeekdaysSelected: f.WeekdaysSelected[:],
		OnlyCultural:     f.OnlyCultural,
		OnlyVirtual:      f.OnlyVirtual,
		EventTypes:       f.TypeList(),
		Applied:          applied,
	}
}
