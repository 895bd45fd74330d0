package user

// User is the owner of cached calendar events and OAuth credentials. User
// administration happens outside this service; only the fields the calendar
// core needs are modelled here.
type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	Settings    Settings
}

type Settings struct {
	// Timezone is the reference zone for wall-clock conversion, e.g. "Europe/Warsaw".
	Timezone string
	// GoogleCalendarId overrides the target calendar for the OAuth2
	// strategy. Empty means "primary".
	GoogleCalendarId string
}
