package settings

// Keys consumed by the Google Calendar integration. The OAuth redirect URI is
// deliberately not a setting: it is fixed at deploy time from the configured
// host and must match the value registered with the provider.
const (
	GoogleAuthType          = "google_auth_type"
	GoogleClientId          = "google_client_id"
	GoogleClientSecret      = "google_client_secret"
	GoogleServiceAccountKey = "google_service_account_key"
	GoogleCalendarEmail     = "google_calendar_email"
	GoogleCalendarApiKey    = "google_calendar_api_key"
	GoogleCalendarId        = "google_calendar_id"
	GoogleLastSyncAt        = "google_last_sync_at"
)
