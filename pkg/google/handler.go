package google

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/daybook/daybook/internal/rest"
	"github.com/daybook/daybook/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

type CalendarItemDto struct {
	Id      string `json:"id"`
	Summary string `json:"summary"`
}

type Handler struct {
	service Service
}

func NewHandler(s Service) *Handler {
	return &Handler{s}
}

func (h *Handler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	calendars, err := h.service.ListCalendars(r.Context())
	if err != nil {
		writeCalendarError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	calendarItems := make([]CalendarItemDto, 0, len(calendars))
	for _, c := range calendars {
		calendarItems = append(calendarItems, toCalendarItemDto(c))
	}

	if err := json.NewEncoder(w).Encode(calendarItems); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func toCalendarItemDto(ci CalendarItem) CalendarItemDto {
	return CalendarItemDto{
		Id:      ci.ID,
		Summary: ci.Summary,
	}
}

func writeCalendarError(w http.ResponseWriter, err error) {
	var configErr *calendar.ConfigurationError
	var unavailableErr *calendar.ProviderUnavailableError
	switch {
	case errors.Is(err, calendar.ErrReauthRequired):
		rest.WriteError(w, http.StatusUnauthorized, rest.ErrorResponse{
			Error:       "Google Calendar authentication required",
			NeedsReauth: true,
		})
	case errors.As(err, &configErr):
		rest.WriteError(w, http.StatusConflict, rest.ErrorResponse{
			Error:   "Google integration is not configured",
			Details: configErr.Error(),
		})
	case errors.As(err, &unavailableErr):
		rest.WriteError(w, http.StatusBadGateway, rest.ErrorResponse{
			Error: "Google Calendar is temporarily unavailable",
		})
	default:
		log.Errorf("google calendar request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, rest.ErrorResponse{
			Error: "Failed to access Google Calendar",
		})
	}
}
