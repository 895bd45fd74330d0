package calendar

import (
	"context"
	"sort"
	"sync"
	"time"
)

type RepositoryStub struct {
	mu     sync.Mutex
	nextId int64
	data   map[int64]Event

	FailUpsertFor map[string]error // external id -> error, for partial-failure tests
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{data: map[int64]Event{}, FailUpsertFor: map[string]error{}}
}

func (r *RepositoryStub) UpsertEvent(ctx context.Context, userId int, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.FailUpsertFor[event.ExternalId]; ok {
		return Event{}, err
	}

	if event.LastSyncedAt.IsZero() {
		event.LastSyncedAt = time.Now()
	}
	event.UserId = userId

	for id, existing := range r.data {
		if existing.UserId == userId && existing.ExternalId == event.ExternalId {
			event.Id = id
			r.data[id] = event
			return event, nil
		}
	}

	r.nextId++
	event.Id = r.nextId
	r.data[event.Id] = event
	return event, nil
}

func (r *RepositoryStub) GetEvents(ctx context.Context, userId int, from, to time.Time) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]Event, 0, len(r.data))
	for _, event := range r.data {
		if event.UserId == userId && !event.StartTime.After(to) && !event.EndTime.Before(from) {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events, nil
}

func (r *RepositoryStub) GetEvent(ctx context.Context, userId int, id int64) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.data[id]
	if !ok || event.UserId != userId {
		return Event{}, ErrEventNotFound
	}
	return event, nil
}

func (r *RepositoryStub) DeleteEvent(ctx context.Context, userId int, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.data[id]
	if !ok || event.UserId != userId {
		return ErrEventNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *RepositoryStub) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = map[int64]Event{}
	r.FailUpsertFor = map[string]error{}
	r.nextId = 0
}
