package calendar

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/daybook/daybook/internal/rest"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) (*syncFixture, *mux.Router) {
	t.Helper()
	f := setupSyncTest(t)
	handler := NewHandler(f.service)

	r := mux.NewRouter()
	r.HandleFunc("/api/calendar/sync", handler.Sync).Methods("POST")
	r.HandleFunc("/api/calendar/events", handler.GetEvents).Methods("GET")
	r.HandleFunc("/api/calendar/events", handler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/calendar/events/{eventId}", handler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/calendar/events/{eventId}", handler.DeleteEvent).Methods("DELETE")
	return f, r
}

func TestHandler_Sync(t *testing.T) {
	t.Run("Returns synced events", func(t *testing.T) {
		f, router := setupHandlerTest(t)
		f.provider.Seed(remoteEvent("remote-a", "Dentist", f.clock.Now().Add(24*time.Hour)))

		req := httptest.NewRequest("POST", "/api/calendar/sync", nil).WithContext(f.ctx)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SyncResponseDTO
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, 1, resp.SyncedCount)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, "Dentist", resp.Events[0].Title)
	})

	t.Run("Credential failure returns 401 with needsReauth flag", func(t *testing.T) {
		f, router := setupHandlerTest(t)
		f.factory.err = ErrReauthRequired

		req := httptest.NewRequest("POST", "/api/calendar/sync", nil).WithContext(f.ctx)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var resp rest.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.NeedsReauth)
	})

	t.Run("Provider outage returns 502", func(t *testing.T) {
		f, router := setupHandlerTest(t)
		f.provider.ListErr = &ProviderUnavailableError{Err: assert.AnError}

		req := httptest.NewRequest("POST", "/api/calendar/sync", nil).WithContext(f.ctx)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestHandler_CreateEvent(t *testing.T) {
	t.Run("Creates an event", func(t *testing.T) {
		f, router := setupHandlerTest(t)

		body := `{"title":"Dentist","startDateTime":"2024-11-20T14:30:00Z","endDateTime":"2024-11-20T15:30:00Z"}`
		req := httptest.NewRequest("POST", "/api/calendar/events", strings.NewReader(body)).WithContext(f.ctx)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp EventDTO
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "Dentist", resp.Title)
		assert.NotEmpty(t, resp.ExternalId)
	})

	t.Run("Missing required field returns 400", func(t *testing.T) {
		f, router := setupHandlerTest(t)

		body := `{"startDateTime":"2024-11-20T14:30:00Z","endDateTime":"2024-11-20T15:30:00Z"}`
		req := httptest.NewRequest("POST", "/api/calendar/events", strings.NewReader(body)).WithContext(f.ctx)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, f.factory.calls)
	})

	t.Run("Malformed body returns 400", func(t *testing.T) {
		f, router := setupHandlerTest(t)

		req := httptest.NewRequest("POST", "/api/calendar/events", strings.NewReader("{not json")).WithContext(f.ctx)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_GetEvents(t *testing.T) {
	t.Run("Returns cached events in the window", func(t *testing.T) {
		f, router := setupHandlerTest(t)
		f.provider.Seed(remoteEvent("remote-a", "Dentist", f.clock.Now().Add(24*time.Hour)))
		_, err := f.service.Sync(f.ctx)
		require.NoError(t, err)

		url := "/api/calendar/events?from=2024-11-16T00:00:00Z&to=2024-11-30T00:00:00Z"
		req := httptest.NewRequest("GET", url, nil).WithContext(f.ctx)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp []EventDTO
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Len(t, resp, 1)
	})

	t.Run("Invalid from parameter returns 400", func(t *testing.T) {
		f, router := setupHandlerTest(t)

		req := httptest.NewRequest("GET", "/api/calendar/events?from=yesterday&to=2024-11-30T00:00:00Z", nil).WithContext(f.ctx)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_DeleteEvent(t *testing.T) {
	t.Run("Deletes a cached event", func(t *testing.T) {
		f, router := setupHandlerTest(t)
		created, err := f.service.CreateEvent(f.ctx, EventInput{
			Title:         "Dentist",
			StartDateTime: "2024-11-20T14:30:00Z",
			EndDateTime:   "2024-11-20T15:30:00Z",
		})
		require.NoError(t, err)

		req := httptest.NewRequest("DELETE", "/api/calendar/events/1", nil).WithContext(f.ctx)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		_, err = f.repo.GetEvent(f.ctx, 1, created.Id)
		assert.ErrorIs(t, err, ErrEventNotFound)
	})

	t.Run("Unknown event id returns 404", func(t *testing.T) {
		f, router := setupHandlerTest(t)

		req := httptest.NewRequest("DELETE", "/api/calendar/events/42", nil).WithContext(f.ctx)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
