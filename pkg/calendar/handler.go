package calendar

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/daybook/daybook/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	sync *SyncService
}

func NewHandler(sync *SyncService) *Handler {
	return &Handler{sync}
}

type EventDTO struct {
	Id            int64     `json:"id"`
	ExternalId    string    `json:"externalId"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
	IsAllDay      bool      `json:"isAllDay"`
	Location      string    `json:"location,omitempty"`
	ExternalLink  string    `json:"externalLink,omitempty"`
	LastSyncedAt  time.Time `json:"lastSyncedAt"`
}

type EventRequestDTO struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	StartDateTime string        `json:"startDateTime"`
	EndDateTime   string        `json:"endDateTime"`
	Location      string        `json:"location"`
	Attendees     []string      `json:"attendees"`
	Reminders     *RemindersDTO `json:"reminders"`
	Recurrence    []string      `json:"recurrence"`
	Visibility    string        `json:"visibility"`
	ColorId       string        `json:"colorId"`
}

type RemindersDTO struct {
	UseDefault bool `json:"useDefault"`
	Overrides  []struct {
		Method  string `json:"method"`
		Minutes int64  `json:"minutes"`
	} `json:"overrides"`
}

type SyncResponseDTO struct {
	SyncedCount int        `json:"syncedCount"`
	FailedCount int        `json:"failedCount,omitempty"`
	Events      []EventDTO `json:"events"`
}

func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := h.sync.Sync(r.Context())
	if err != nil && result.SyncedCount == 0 {
		writeServiceError(w, err)
		return
	}
	if err != nil {
		// Partial success: events fetched before the failure are kept and
		// reported, not dropped.
		log.Warnf("calendar sync completed partially: %v", err)
	}

	dtos := make([]EventDTO, 0, len(result.Events))
	for _, e := range result.Events {
		dtos = append(dtos, eventToDTO(e))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(SyncResponseDTO{
		SyncedCount: result.SyncedCount,
		FailedCount: result.FailedCount,
		Events:      dtos,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, rest.ErrorResponse{
			Error:   "Invalid from (date) format",
			Details: "'from' must be in RFC3339 format",
		})
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, rest.ErrorResponse{
			Error:   "Invalid to (date) format",
			Details: "'to' must be in RFC3339 format",
		})
		return
	}

	events, err := h.sync.GetEvents(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var dto EventRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, rest.ErrorResponse{Error: "Invalid request body"})
		return
	}

	event, err := h.sync.CreateEvent(r.Context(), dtoToInput(dto))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(eventToDTO(event)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["eventId"], 10, 64)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, rest.ErrorResponse{Error: "Invalid event id"})
		return
	}

	var dto EventRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, rest.ErrorResponse{Error: "Invalid request body"})
		return
	}

	event, err := h.sync.UpdateEvent(r.Context(), id, dtoToInput(dto))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(eventToDTO(event)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["eventId"], 10, 64)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, rest.ErrorResponse{Error: "Invalid event id"})
		return
	}

	if err := h.sync.DeleteEvent(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps the error taxonomy to HTTP statuses. Reauth gets a
// distinguishable 401 + flag so clients prompt re-authentication instead of
// treating it as a generic failure.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	var configErr *ConfigurationError
	var redirectErr *RedirectMismatchError
	var unavailableErr *ProviderUnavailableError

	switch {
	case errors.As(err, &validationErr):
		rest.WriteError(w, http.StatusBadRequest, rest.ErrorResponse{Error: validationErr.Error()})
	case errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, rest.ErrorResponse{Error: "Event not found"})
	case errors.Is(err, ErrReauthRequired):
		rest.WriteError(w, http.StatusUnauthorized, rest.ErrorResponse{
			Error:       "Authentication with the calendar provider is required",
			NeedsReauth: true,
		})
	case errors.As(err, &configErr):
		rest.WriteError(w, http.StatusConflict, rest.ErrorResponse{Error: configErr.Error()})
	case errors.As(err, &redirectErr):
		rest.WriteError(w, http.StatusConflict, rest.ErrorResponse{Error: redirectErr.Error()})
	case errors.As(err, &unavailableErr):
		rest.WriteError(w, http.StatusBadGateway, rest.ErrorResponse{Error: unavailableErr.Error()})
	default:
		log.Errorf("calendar request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, rest.ErrorResponse{Error: "Internal error"})
	}
}

func eventToDTO(e Event) EventDTO {
	return EventDTO{
		Id:            e.Id,
		ExternalId:    e.ExternalId,
		Title:         e.Title,
		Description:   e.Description,
		StartDateTime: e.StartTime,
		EndDateTime:   e.EndTime,
		IsAllDay:      e.AllDay,
		Location:      e.Location,
		ExternalLink:  e.ExternalLink,
		LastSyncedAt:  e.LastSyncedAt,
	}
}

func dtoToInput(dto EventRequestDTO) EventInput {
	input := EventInput{
		Title:         dto.Title,
		Description:   dto.Description,
		StartDateTime: dto.StartDateTime,
		EndDateTime:   dto.EndDateTime,
		Location:      dto.Location,
		Attendees:     dto.Attendees,
		Recurrence:    dto.Recurrence,
		Visibility:    dto.Visibility,
		ColorId:       dto.ColorId,
	}
	if dto.Reminders != nil {
		reminders := &Reminders{UseDefault: dto.Reminders.UseDefault}
		for _, o := range dto.Reminders.Overrides {
			reminders.Overrides = append(reminders.Overrides, ReminderOverride{Method: o.Method, Minutes: o.Minutes})
		}
		input.Reminders = reminders
	}
	return input
}
