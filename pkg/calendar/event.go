package calendar

import (
	"context"
	"time"
)

// Event is a calendar event cached locally from the remote provider.
// (ExternalId, UserId) is unique; reconciliation upserts on that pair.
type Event struct {
	Id           int64
	ExternalId   string
	UserId       int
	Title        string
	Description  string
	StartTime    time.Time
	EndTime      time.Time
	AllDay       bool
	Location     string
	ExternalLink string
	LastSyncedAt time.Time

	// Push-only details forwarded to the provider, not cached locally.
	Attendees  []string
	Recurrence []string
	Visibility string
	ColorId    string
	Reminders  *Reminders
}

type Reminders struct {
	UseDefault bool
	Overrides  []ReminderOverride
}

type ReminderOverride struct {
	Method  string
	Minutes int64
}

// Provider is a remote calendar bound to one calendar id for one user.
// Write operations may be rejected by the provider under read-restricted
// authentication strategies (API key); callers must not assume write
// capability.
type Provider interface {
	Events(ctx context.Context, from, to time.Time) ([]Event, error)
	AddEvent(ctx context.Context, event Event) (Event, error)
	ModifyEvent(ctx context.Context, event Event) (Event, error)
}

// ProviderFactory resolves the active authentication strategy and returns a
// provider client for the current user.
type ProviderFactory interface {
	GetCalendar(ctx context.Context) (Provider, error)
}
