package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEvent EventType = "test.event"

func TestEventBus_PublishSubscribe(t *testing.T) {
	t.Run("Delivers events to all subscribers", func(t *testing.T) {
		bus := NewEventBus()
		var first, second []any
		bus.Subscribe(testEvent, func(e Event) error {
			first = append(first, e.Data)
			return nil
		})
		bus.Subscribe(testEvent, func(e Event) error {
			second = append(second, e.Data)
			return nil
		})

		err := bus.Publish(NewEvent(context.Background(), testEvent, "payload"))
		require.NoError(t, err)
		assert.Equal(t, []any{"payload"}, first)
		assert.Equal(t, []any{"payload"}, second)
	})

	t.Run("Handler error does not stop dispatch", func(t *testing.T) {
		bus := NewEventBus()
		bus.Subscribe(testEvent, func(e Event) error {
			return errors.New("handler failed")
		})
		var delivered int
		bus.Subscribe(testEvent, func(e Event) error {
			delivered++
			return nil
		})

		err := bus.Publish(NewEvent(context.Background(), testEvent, nil))
		assert.Error(t, err)
		assert.Equal(t, 1, delivered)
	})

	t.Run("Unsubscribe stops delivery", func(t *testing.T) {
		bus := NewEventBus()
		var delivered int
		unsubscribe := bus.Subscribe(testEvent, func(e Event) error {
			delivered++
			return nil
		})

		require.NoError(t, bus.Publish(NewEvent(context.Background(), testEvent, nil)))
		unsubscribe()
		require.NoError(t, bus.Publish(NewEvent(context.Background(), testEvent, nil)))
		assert.Equal(t, 1, delivered)
	})

	t.Run("Panicking handler is recovered", func(t *testing.T) {
		bus := NewEventBus()
		bus.Subscribe(testEvent, func(e Event) error {
			panic("boom")
		})

		err := bus.Publish(NewEvent(context.Background(), testEvent, nil))
		assert.Error(t, err)
	})

	t.Run("Cancelled context aborts publish", func(t *testing.T) {
		bus := NewEventBus()
		var delivered int
		bus.Subscribe(testEvent, func(e Event) error {
			delivered++
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := bus.Publish(NewEvent(ctx, testEvent, nil))
		assert.Error(t, err)
		assert.Equal(t, 0, delivered)
	})
}

func TestSubscribeTyped(t *testing.T) {
	t.Run("Delivers matching payloads", func(t *testing.T) {
		bus := NewEventBus()
		var got []int
		SubscribeTyped(bus, testEvent, func(e EventT[int]) error {
			got = append(got, e.Data)
			return nil
		})

		require.NoError(t, bus.Publish(NewEvent(context.Background(), testEvent, 42)))
		assert.Equal(t, []int{42}, got)
	})

	t.Run("Skips payloads of a different type", func(t *testing.T) {
		bus := NewEventBus()
		var got []int
		SubscribeTyped(bus, testEvent, func(e EventT[int]) error {
			got = append(got, e.Data)
			return nil
		})

		require.NoError(t, bus.Publish(NewEvent(context.Background(), testEvent, "not an int")))
		assert.Empty(t, got)
	})
}
