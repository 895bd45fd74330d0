package event_bus

import "time"

const (
	// SyncCompleted is published after a calendar pull pass, including
	// partially failed passes (SyncedCount reflects what actually landed).
	SyncCompleted EventType = "calendar.sync.completed"
	// EventPushed is published after a local event was written to the
	// remote provider.
	EventPushed EventType = "calendar.event.pushed"
)

type CalendarSyncCompleted struct {
	UserId      int
	SyncedCount int
	FailedCount int
	WindowStart time.Time
	WindowEnd   time.Time
}

type CalendarEventPushed struct {
	UserId     int
	ExternalId string
	Title      string
	StartTime  time.Time
	EndTime    time.Time
}
