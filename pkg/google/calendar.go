package google

import (
	"context"
	"fmt"
	"time"

	"github.com/daybook/daybook/pkg/calendar"
	"github.com/daybook/daybook/pkg/settings"
	log "github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"
)

const dateLayout = "2006-01-02"

// Calendar is the Google-backed calendar.Provider, bound to one calendar id
// for one user.
type Calendar struct {
	service    *gcal.Service
	userId     int
	calendarId string
	timezone   string
	writable   bool
}

func newGoogleCalendar(service *gcal.Service, userId int, calendarId string, timezone string, writable bool) *Calendar {
	return &Calendar{
		service:    service,
		userId:     userId,
		calendarId: calendarId,
		timezone:   timezone,
		writable:   writable,
	}
}

func (c *Calendar) Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	googleEvents, err := c.service.Events.List(c.calendarId).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		err := providerError(err)
		log.Errorf("unable to retrieve events from Google Calendar: %v", err)
		return nil, err
	}

	loc, err := time.LoadLocation(c.timezone)
	if err != nil {
		return nil, fmt.Errorf("could not load location for timezone %s: %w", c.timezone, err)
	}

	events := make([]calendar.Event, 0, len(googleEvents.Items))
	for _, item := range googleEvents.Items {
		event, err := c.remoteToEvent(item, loc)
		if err != nil {
			log.Warnf("skipping unparseable calendar event %s: %v", item.Id, err)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (c *Calendar) AddEvent(ctx context.Context, event calendar.Event) (calendar.Event, error) {
	if err := c.requireWritable(); err != nil {
		return calendar.Event{}, err
	}
	log.Debugf("Adding event %q to calendar %s", event.Title, c.calendarId)
	loc, err := time.LoadLocation(c.timezone)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("could not load location for timezone %s: %w", c.timezone, err)
	}

	result, err := c.service.Events.Insert(c.calendarId, eventToRemote(event, loc)).Context(ctx).Do()
	if err != nil {
		err := providerError(err)
		log.Errorf("unable to insert event in Google Calendar: %v", err)
		return calendar.Event{}, err
	}
	return c.remoteToEvent(result, loc)
}

func (c *Calendar) ModifyEvent(ctx context.Context, event calendar.Event) (calendar.Event, error) {
	if err := c.requireWritable(); err != nil {
		return calendar.Event{}, err
	}
	log.Debugf("Updating event %s on calendar %s", event.ExternalId, c.calendarId)
	loc, err := time.LoadLocation(c.timezone)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("could not load location for timezone %s: %w", c.timezone, err)
	}

	result, err := c.service.Events.Update(c.calendarId, event.ExternalId, eventToRemote(event, loc)).Context(ctx).Do()
	if err != nil {
		err := providerError(err)
		log.Errorf("unable to update event in Google Calendar: %v", err)
		return calendar.Event{}, err
	}
	return c.remoteToEvent(result, loc)
}

// requireWritable rejects writes under read-restricted strategies before a
// doomed network call is made.
func (c *Calendar) requireWritable() error {
	if c.writable {
		return nil
	}
	return &calendar.ConfigurationError{
		Setting: settings.GoogleAuthType,
		Reason:  "the configured authentication strategy does not permit calendar writes",
	}
}

func (c *Calendar) remoteToEvent(item *gcal.Event, loc *time.Location) (calendar.Event, error) {
	start, startDateOnly, err := parseEventTime(item.Start, loc)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("invalid event start: %w", err)
	}
	end, endDateOnly, err := parseEventTime(item.End, loc)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("invalid event end: %w", err)
	}

	return calendar.Event{
		ExternalId:   item.Id,
		UserId:       c.userId,
		Title:        item.Summary,
		Description:  item.Description,
		StartTime:    start,
		EndTime:      end,
		AllDay:       (startDateOnly && endDateOnly) || looksAllDay(start, end, loc),
		Location:     item.Location,
		ExternalLink: item.HtmlLink,
	}, nil
}

// parseEventTime reads the provider's native time shape: a date-only value
// (all-day events) interpreted at local midnight, or an RFC3339 instant.
func parseEventTime(edt *gcal.EventDateTime, loc *time.Location) (time.Time, bool, error) {
	if edt == nil {
		return time.Time{}, false, fmt.Errorf("missing event time")
	}
	if edt.Date != "" {
		t, err := time.ParseInLocation(dateLayout, edt.Date, loc)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339, edt.DateTime)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), false, nil
}

// looksAllDay is the heuristic fallback for providers that emit date-only
// events inconsistently: both endpoints on a zone-local midnight-ish boundary
// (00:00 or 01:00 sharp) count as all-day. Kept deliberately permissive and
// in one place so it can be tightened without touching callers.
func looksAllDay(start, end time.Time, loc *time.Location) bool {
	return onMidnightBoundary(start.In(loc)) && onMidnightBoundary(end.In(loc))
}

func onMidnightBoundary(t time.Time) bool {
	return (t.Hour() == 0 || t.Hour() == 1) && t.Minute() == 0 && t.Second() == 0
}

func eventToRemote(event calendar.Event, loc *time.Location) *gcal.Event {
	remote := &gcal.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Visibility:  event.Visibility,
		ColorId:     event.ColorId,
		Recurrence:  event.Recurrence,
	}

	if event.AllDay {
		remote.Start = &gcal.EventDateTime{Date: event.StartTime.In(loc).Format(dateLayout)}
		remote.End = &gcal.EventDateTime{Date: event.EndTime.In(loc).Format(dateLayout)}
	} else {
		remote.Start = &gcal.EventDateTime{DateTime: event.StartTime.Format(time.RFC3339)}
		remote.End = &gcal.EventDateTime{DateTime: event.EndTime.Format(time.RFC3339)}
	}

	for _, attendee := range event.Attendees {
		remote.Attendees = append(remote.Attendees, &gcal.EventAttendee{Email: attendee})
	}
	if event.Reminders != nil {
		reminders := &gcal.EventReminders{
			UseDefault:      event.Reminders.UseDefault,
			ForceSendFields: []string{"UseDefault"},
		}
		for _, o := range event.Reminders.Overrides {
			reminders.Overrides = append(reminders.Overrides, &gcal.EventReminder{
				Method:  o.Method,
				Minutes: o.Minutes,
			})
		}
		remote.Reminders = reminders
	}
	return remote
}
