package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	UpsertEvent(ctx context.Context, userId int, event Event) (Event, error)
	GetEvents(ctx context.Context, userId int, from, to time.Time) ([]Event, error)
	GetEvent(ctx context.Context, userId int, id int64) (Event, error)
	DeleteEvent(ctx context.Context, userId int, id int64) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// UpsertEvent reconciles one remote event into the local cache, keyed by
// (user_id, external_id). Re-running with unchanged remote data changes
// nothing but last_synced_at.
func (r *RepositoryImpl) UpsertEvent(ctx context.Context, userId int, event Event) (Event, error) {
	const query = `
		INSERT INTO calendar_event (external_id, user_id, title, description, start_time, end_time, all_day, location, external_link, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, external_id)
		DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			all_day = EXCLUDED.all_day,
			location = EXCLUDED.location,
			external_link = EXCLUDED.external_link,
			last_synced_at = EXCLUDED.last_synced_at
		RETURNING id`

	syncedAt := event.LastSyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}

	err := r.db.QueryRow(ctx, query,
		event.ExternalId,
		userId,
		event.Title,
		event.Description,
		event.StartTime.UnixMilli(),
		event.EndTime.UnixMilli(),
		event.AllDay,
		event.Location,
		event.ExternalLink,
		syncedAt.UnixMilli(),
	).Scan(&event.Id)
	if err != nil {
		err := fmt.Errorf("could not upsert calendar event %s: %w", event.ExternalId, err)
		log.Error(err)
		return Event{}, err
	}

	event.UserId = userId
	event.LastSyncedAt = syncedAt
	return event, nil
}

func (r *RepositoryImpl) GetEvents(ctx context.Context, userId int, from, to time.Time) ([]Event, error) {
	// All events overlapping the window: start before the window ends and
	// end after the window starts.
	const query = `
		SELECT id, external_id, title, description, start_time, end_time, all_day, location, external_link, last_synced_at
		FROM calendar_event
		WHERE user_id = $1
		  AND start_time <= $2
		  AND end_time >= $3
		ORDER BY start_time`

	rows, err := r.db.Query(ctx, query, userId, to.UnixMilli(), from.UnixMilli())
	if err != nil {
		err := fmt.Errorf("could not query calendar events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 10)
	for rows.Next() {
		event, err := scanEvent(rows, userId)
		if err != nil {
			log.Error(err)
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return events, nil
}

func (r *RepositoryImpl) GetEvent(ctx context.Context, userId int, id int64) (Event, error) {
	const query = `
		SELECT id, external_id, title, description, start_time, end_time, all_day, location, external_link, last_synced_at
		FROM calendar_event
		WHERE user_id = $1 AND id = $2`

	row := r.db.QueryRow(ctx, query, userId, id)
	event, err := scanEvent(row, userId)
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	} else if err != nil {
		log.Error(err)
		return Event{}, err
	}
	return event, nil
}

func (r *RepositoryImpl) DeleteEvent(ctx context.Context, userId int, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM calendar_event WHERE user_id = $1 AND id = $2", userId, id)
	if err != nil {
		err := fmt.Errorf("could not delete calendar event: %w", err)
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func scanEvent(row pgx.Row, userId int) (Event, error) {
	var event Event
	var startMillis, endMillis, syncedMillis int64
	err := row.Scan(&event.Id, &event.ExternalId, &event.Title, &event.Description,
		&startMillis, &endMillis, &event.AllDay, &event.Location, &event.ExternalLink, &syncedMillis)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, err
		}
		return Event{}, fmt.Errorf("could not scan calendar event row: %w", err)
	}
	event.UserId = userId
	event.StartTime = time.UnixMilli(startMillis).UTC()
	event.EndTime = time.UnixMilli(endMillis).UTC()
	event.LastSyncedAt = time.UnixMilli(syncedMillis).UTC()
	return event, nil
}
