package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daybook/daybook/internal/event_bus"
	"github.com/daybook/daybook/internal/utils"
	"github.com/daybook/daybook/pkg/user"
	log "github.com/sirupsen/logrus"
)

// syncWindow is how far ahead a pull reaches.
const syncWindow = 30 * 24 * time.Hour

// providerTimeout bounds every blocking call to the remote provider.
const providerTimeout = 30 * time.Second

// EventInput is the push payload for creating or updating an event.
// StartDateTime and EndDateTime are absolute RFC3339 instants; a value
// without a UTC offset is treated as a wall-clock time in the user's
// reference zone and converted before use.
type EventInput struct {
	Title         string
	Description   string
	StartDateTime string
	EndDateTime   string
	Location      string
	Attendees     []string
	Recurrence    []string
	Visibility    string
	ColorId       string
	Reminders     *Reminders
}

type SyncResult struct {
	SyncedCount int
	FailedCount int
	Events      []Event
}

// SyncService reconciles the remote provider with the local event cache and
// pushes local create/update requests to the provider.
type SyncService struct {
	providers ProviderFactory
	repo      Repository
	users     user.Service
	bus       *event_bus.EventBus
	clock     utils.Clock
}

func NewSyncService(providers ProviderFactory, repo Repository, users user.Service, bus *event_bus.EventBus, clock utils.Clock) *SyncService {
	return &SyncService{
		providers: providers,
		repo:      repo,
		users:     users,
		bus:       bus,
		clock:     clock,
	}
}

// Sync pulls the upcoming window from the provider and upserts every fetched
// event into the local cache. The operation is idempotent: an unchanged
// remote window changes nothing but last_synced_at. Per-event cache failures
// do not abort the pass; the partial count is reported alongside the error.
func (s *SyncService) Sync(ctx context.Context) (SyncResult, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to get current user: %w", err)
	}

	provider, err := s.providers.GetCalendar(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	from := s.clock.Now()
	to := from.Add(syncWindow)

	listCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	remote, err := provider.Events(listCtx, from, to)
	if err != nil {
		return SyncResult{}, err
	}

	result, upsertErr := s.reconcile(ctx, userId, remote)

	s.publishSyncCompleted(ctx, userId, result, from, to)

	events, err := s.repo.GetEvents(ctx, userId, from, to)
	if err != nil {
		log.Errorf("failed to read back synced events: %v", err)
	} else {
		result.Events = events
	}

	return result, upsertErr
}

func (s *SyncService) reconcile(ctx context.Context, userId int, remote []Event) (SyncResult, error) {
	var result SyncResult
	var errs []error
	syncedAt := s.clock.Now()
	for _, event := range remote {
		event.LastSyncedAt = syncedAt
		if _, err := s.repo.UpsertEvent(ctx, userId, event); err != nil {
			log.Errorf("failed to cache remote event %s: %v", event.ExternalId, err)
			result.FailedCount++
			errs = append(errs, err)
			continue
		}
		result.SyncedCount++
	}
	if len(errs) > 0 {
		return result, fmt.Errorf("synced %d of %d events: %w", result.SyncedCount, len(remote), errors.Join(errs...))
	}
	return result, nil
}

// CreateEvent validates the input, writes it to the provider, and refreshes
// the local cache. The refresh is best-effort: once the remote write has
// succeeded, a refresh failure is logged and swallowed.
func (s *SyncService) CreateEvent(ctx context.Context, input EventInput) (Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}

	event, err := s.validate(ctx, input)
	if err != nil {
		return Event{}, err
	}

	provider, err := s.providers.GetCalendar(ctx)
	if err != nil {
		return Event{}, err
	}

	pushCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	created, err := provider.AddEvent(pushCtx, event)
	if err != nil {
		return Event{}, err
	}

	stored, err := s.repo.UpsertEvent(ctx, userId, created)
	if err != nil {
		log.Errorf("failed to cache created event %s: %v", created.ExternalId, err)
		stored = created
	}

	s.publishEventPushed(ctx, userId, stored)
	s.refreshCache(ctx, userId, provider)
	return stored, nil
}

// UpdateEvent pushes changed fields of a cached event to the provider.
func (s *SyncService) UpdateEvent(ctx context.Context, id int64, input EventInput) (Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}

	existing, err := s.repo.GetEvent(ctx, userId, id)
	if err != nil {
		return Event{}, err
	}

	event, err := s.validate(ctx, input)
	if err != nil {
		return Event{}, err
	}
	event.Id = existing.Id
	event.ExternalId = existing.ExternalId

	provider, err := s.providers.GetCalendar(ctx)
	if err != nil {
		return Event{}, err
	}

	pushCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	updated, err := provider.ModifyEvent(pushCtx, event)
	if err != nil {
		return Event{}, err
	}

	stored, err := s.repo.UpsertEvent(ctx, userId, updated)
	if err != nil {
		log.Errorf("failed to cache updated event %s: %v", updated.ExternalId, err)
		stored = updated
	}

	s.publishEventPushed(ctx, userId, stored)
	s.refreshCache(ctx, userId, provider)
	return stored, nil
}

// DeleteEvent removes an event from the local cache only. The remote copy is
// left untouched; propagating deletes to the provider is a pending product
// decision and deliberately isolated here.
func (s *SyncService) DeleteEvent(ctx context.Context, id int64) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.DeleteEvent(ctx, userId, id)
}

// GetEvents reads the local cache without touching the provider.
func (s *SyncService) GetEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetEvents(ctx, userId, from, to)
}

// validate rejects malformed input before any network call is made.
func (s *SyncService) validate(ctx context.Context, input EventInput) (Event, error) {
	if input.Title == "" {
		return Event{}, &ValidationError{Field: "title", Reason: "is required"}
	}
	if input.StartDateTime == "" {
		return Event{}, &ValidationError{Field: "startDateTime", Reason: "is required"}
	}
	if input.EndDateTime == "" {
		return Event{}, &ValidationError{Field: "endDateTime", Reason: "is required"}
	}

	currentUser, err := s.users.GetCurrentUser(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}
	timezone := currentUser.Settings.Timezone

	start, err := parseInstant(input.StartDateTime, timezone)
	if err != nil {
		return Event{}, &ValidationError{Field: "startDateTime", Reason: err.Error()}
	}
	end, err := parseInstant(input.EndDateTime, timezone)
	if err != nil {
		return Event{}, &ValidationError{Field: "endDateTime", Reason: err.Error()}
	}
	if end.Before(start) {
		return Event{}, &ValidationError{Field: "endDateTime", Reason: "must not be before startDateTime"}
	}

	return Event{
		Title:       input.Title,
		Description: input.Description,
		StartTime:   start,
		EndTime:     end,
		Location:    input.Location,
		Attendees:   input.Attendees,
		Recurrence:  input.Recurrence,
		Visibility:  input.Visibility,
		ColorId:     input.ColorId,
		Reminders:   input.Reminders,
	}, nil
}

// parseInstant accepts an absolute RFC3339 instant, or falls back to
// interpreting the value as a naive wall-clock time in the user's zone.
func parseInstant(value string, timezone string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return ToInstant(value, timezone)
}

// refreshCache re-pulls the sync window after a successful remote write so
// the cache picks up provider-assigned fields. Failures are logged only: the
// remote write has already succeeded.
func (s *SyncService) refreshCache(ctx context.Context, userId int, provider Provider) {
	from := s.clock.Now()
	to := from.Add(syncWindow)

	listCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	remote, err := provider.Events(listCtx, from, to)
	if err != nil {
		log.Warnf("post-push cache refresh failed for user %d: %v", userId, err)
		return
	}
	if _, err := s.reconcile(ctx, userId, remote); err != nil {
		log.Warnf("post-push cache refresh failed for user %d: %v", userId, err)
	}
}

func (s *SyncService) publishSyncCompleted(ctx context.Context, userId int, result SyncResult, from, to time.Time) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.SyncCompleted, event_bus.CalendarSyncCompleted{
		UserId:      userId,
		SyncedCount: result.SyncedCount,
		FailedCount: result.FailedCount,
		WindowStart: from,
		WindowEnd:   to,
	}))
	if err != nil {
		log.Errorf("failed to publish sync completion: %v", err)
	}
}

func (s *SyncService) publishEventPushed(ctx context.Context, userId int, event Event) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.EventPushed, event_bus.CalendarEventPushed{
		UserId:     userId,
		ExternalId: event.ExternalId,
		Title:      event.Title,
		StartTime:  event.StartTime,
		EndTime:    event.EndTime,
	}))
	if err != nil {
		log.Errorf("failed to publish event push: %v", err)
	}
}
