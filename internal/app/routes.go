package app

import (
	"github.com/daybook/daybook/internal/config"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Calendar sync and local event cache
	r.HandleFunc("/api/calendar/sync", deps.CalendarHandler.Sync).Methods("POST")
	r.HandleFunc("/api/calendar/events", deps.CalendarHandler.GetEvents).Queries("from", "{from}", "to", "{to}").Methods("GET")
	r.HandleFunc("/api/calendar/events", deps.CalendarHandler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/calendar/events/{eventId}", deps.CalendarHandler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/calendar/events/{eventId}", deps.CalendarHandler.DeleteEvent).Methods("DELETE")

	// Google integration
	r.HandleFunc("/api/integrations/google/auth/url", deps.GoogleAuth.OAuthLogin).Methods("GET")
	r.HandleFunc("/api/integrations/google/auth/callback", deps.GoogleAuth.OAuthCallback).Methods("GET")
	r.HandleFunc("/api/integrations/google/auth/status", deps.GoogleAuth.AuthStatus).Methods("GET")
	r.HandleFunc("/api/integrations/google/auth", deps.GoogleAuth.OAuthLogout).Methods("DELETE")
	r.HandleFunc("/api/integrations/google/calendars", deps.GoogleHandler.ListCalendars).Methods("GET")
}
