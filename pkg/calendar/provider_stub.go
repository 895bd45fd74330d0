package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ProviderStub is an in-memory stand-in for the remote calendar.
type ProviderStub struct {
	mu     sync.Mutex
	nextId int
	data   map[string]Event

	ListErr   error
	WriteErr  error
	ListCalls int
}

func NewProviderStub() *ProviderStub {
	return &ProviderStub{data: map[string]Event{}}
}

// Seed places an event on the fake remote calendar without going through
// AddEvent bookkeeping.
func (p *ProviderStub) Seed(events ...Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range events {
		p.data[e.ExternalId] = e
	}
}

func (p *ProviderStub) Events(ctx context.Context, from, to time.Time) ([]Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ListCalls++
	if p.ListErr != nil {
		return nil, p.ListErr
	}

	events := make([]Event, 0, len(p.data))
	for _, event := range p.data {
		if event.StartTime.Before(to) && event.EndTime.After(from) {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events, nil
}

func (p *ProviderStub) AddEvent(ctx context.Context, event Event) (Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.WriteErr != nil {
		return Event{}, p.WriteErr
	}
	p.nextId++
	event.ExternalId = fmt.Sprintf("remote-%d", p.nextId)
	event.ExternalLink = "https://calendar.example.com/event/" + event.ExternalId
	p.data[event.ExternalId] = event
	return event, nil
}

func (p *ProviderStub) ModifyEvent(ctx context.Context, event Event) (Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.WriteErr != nil {
		return Event{}, p.WriteErr
	}
	existing, ok := p.data[event.ExternalId]
	if !ok {
		return Event{}, fmt.Errorf("event %s not found on remote calendar", event.ExternalId)
	}
	event.ExternalLink = existing.ExternalLink
	p.data[event.ExternalId] = event
	return event, nil
}

func (p *ProviderStub) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = map[string]Event{}
	p.ListErr = nil
	p.WriteErr = nil
	p.ListCalls = 0
	p.nextId = 0
}
