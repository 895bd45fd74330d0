package google

import (
	"context"
	"testing"
	"time"

	"github.com/daybook/daybook/pkg/calendar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
)

func warsaw(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	return loc
}

func TestParseEventTime(t *testing.T) {
	loc := warsaw(t)

	t.Run("Date only value is local midnight", func(t *testing.T) {
		got, dateOnly, err := parseEventTime(&gcal.EventDateTime{Date: "2024-11-16"}, loc)
		require.NoError(t, err)
		assert.True(t, dateOnly)
		assert.Equal(t, time.Date(2024, 11, 15, 23, 0, 0, 0, time.UTC), got)
	})

	t.Run("DateTime value is an absolute instant", func(t *testing.T) {
		got, dateOnly, err := parseEventTime(&gcal.EventDateTime{DateTime: "2024-11-16T14:30:00+01:00"}, loc)
		require.NoError(t, err)
		assert.False(t, dateOnly)
		assert.Equal(t, time.Date(2024, 11, 16, 13, 30, 0, 0, time.UTC), got)
	})

	t.Run("Missing value", func(t *testing.T) {
		_, _, err := parseEventTime(nil, loc)
		assert.Error(t, err)
	})

	t.Run("Malformed date", func(t *testing.T) {
		_, _, err := parseEventTime(&gcal.EventDateTime{Date: "16.11.2024"}, loc)
		assert.Error(t, err)
	})
}

func TestLooksAllDay(t *testing.T) {
	loc := warsaw(t)

	testCases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{
			name:  "Local midnight to local midnight",
			start: time.Date(2024, 11, 16, 0, 0, 0, 0, loc),
			end:   time.Date(2024, 11, 17, 0, 0, 0, 0, loc),
			want:  true,
		},
		{
			name:  "One o'clock boundary counts as midnight-ish",
			start: time.Date(2024, 11, 16, 1, 0, 0, 0, loc),
			end:   time.Date(2024, 11, 17, 0, 0, 0, 0, loc),
			want:  true,
		},
		{
			name:  "Regular afternoon meeting",
			start: time.Date(2024, 11, 16, 14, 30, 0, 0, loc),
			end:   time.Date(2024, 11, 16, 15, 30, 0, 0, loc),
			want:  false,
		},
		{
			name:  "Late night event is not all-day",
			start: time.Date(2024, 11, 16, 23, 0, 0, 0, loc),
			end:   time.Date(2024, 11, 17, 1, 30, 0, 0, loc),
			want:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, looksAllDay(tc.start, tc.end, loc))
		})
	}
}

func TestCalendar_ReadOnlyStrategy(t *testing.T) {
	// No API client is needed: the guard must reject the write before any
	// network call.
	c := newGoogleCalendar(nil, 1, "primary", "UTC", false)

	_, err := c.AddEvent(context.Background(), calendar.Event{Title: "Dentist"})
	var configErr *calendar.ConfigurationError
	require.ErrorAs(t, err, &configErr)

	_, err = c.ModifyEvent(context.Background(), calendar.Event{ExternalId: "remote-1"})
	assert.ErrorAs(t, err, &configErr)
}

func TestEventToRemote(t *testing.T) {
	loc := warsaw(t)

	t.Run("Timed event uses RFC3339 instants", func(t *testing.T) {
		remote := eventToRemote(calendar.Event{
			Title:     "Dentist",
			StartTime: time.Date(2024, 11, 16, 13, 30, 0, 0, time.UTC),
			EndTime:   time.Date(2024, 11, 16, 14, 30, 0, 0, time.UTC),
			Attendees: []string{"alex@example.com"},
		}, loc)

		assert.Equal(t, "2024-11-16T13:30:00Z", remote.Start.DateTime)
		assert.Empty(t, remote.Start.Date)
		require.Len(t, remote.Attendees, 1)
		assert.Equal(t, "alex@example.com", remote.Attendees[0].Email)
	})

	t.Run("All-day event uses local dates", func(t *testing.T) {
		remote := eventToRemote(calendar.Event{
			Title:     "Conference",
			AllDay:    true,
			StartTime: time.Date(2024, 11, 15, 23, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2024, 11, 16, 23, 0, 0, 0, time.UTC),
		}, loc)

		assert.Equal(t, "2024-11-16", remote.Start.Date)
		assert.Equal(t, "2024-11-17", remote.End.Date)
		assert.Empty(t, remote.Start.DateTime)
	})

	t.Run("Reminder overrides are forwarded", func(t *testing.T) {
		remote := eventToRemote(calendar.Event{
			Title: "Dentist",
			Reminders: &calendar.Reminders{
				Overrides: []calendar.ReminderOverride{{Method: "popup", Minutes: 15}},
			},
		}, loc)

		require.NotNil(t, remote.Reminders)
		assert.False(t, remote.Reminders.UseDefault)
		require.Len(t, remote.Reminders.Overrides, 1)
		assert.Equal(t, int64(15), remote.Reminders.Overrides[0].Minutes)
	})
}
