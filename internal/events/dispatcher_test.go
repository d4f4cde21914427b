package events

import (
	"context"
	"fmt"
	"testing"

	"clickup-bridge/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRoutesToSubscribedHandlers(t *testing.T) {
	dispatcher := NewDispatcher(logger.New("test"))
	ctx := context.Background()

	var got []string
	dispatcher.Subscribe(TypeTaskCreated, func(ctx context.Context, event DomainEvent) error {
		got = append(got, "created:"+string(event.EventType()))
		return nil
	})
	dispatcher.Subscribe(TypeTaskUpdated, func(ctx context.Context, event DomainEvent) error {
		got = append(got, "updated:"+string(event.EventType()))
		return nil
	})

	require.NoError(t, dispatcher.Dispatch(ctx, "taskCreated", map[string]interface{}{"task_id": "task-9"}))
	assert.Equal(t, []string{"created:taskCreated"}, got)
}

func TestDispatchWildcardReceivesEverything(t *testing.T) {
	dispatcher := NewDispatcher(logger.New("test"))
	ctx := context.Background()

	var typed, all int
	dispatcher.Subscribe(TypeListCreated, func(ctx context.Context, event DomainEvent) error {
		typed++
		return nil
	})
	dispatcher.SubscribeAll(func(ctx context.Context, event DomainEvent) error {
		all++
		return nil
	})

	require.NoError(t, dispatcher.Dispatch(ctx, "listCreated", map[string]interface{}{}))
	require.NoError(t, dispatcher.Dispatch(ctx, "spaceDeleted", map[string]interface{}{}))

	assert.Equal(t, 1, typed)
	assert.Equal(t, 2, all)
}

func TestDispatchDropsUnknownEvents(t *testing.T) {
	dispatcher := NewDispatcher(logger.New("test"))

	var calls int
	dispatcher.SubscribeAll(func(ctx context.Context, event DomainEvent) error {
		calls++
		return nil
	})

	require.NoError(t, dispatcher.Dispatch(context.Background(), "taskExploded", map[string]interface{}{}))
	// The wire wildcard is not dispatchable either
	require.NoError(t, dispatcher.Dispatch(context.Background(), "*", map[string]interface{}{}))
	assert.Zero(t, calls)
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	dispatcher := NewDispatcher(logger.New("test"))

	var reached bool
	dispatcher.Subscribe(TypeTaskCreated, func(ctx context.Context, event DomainEvent) error {
		return fmt.Errorf("handler blew up")
	})
	dispatcher.SubscribeAll(func(ctx context.Context, event DomainEvent) error {
		reached = true
		return nil
	})

	err := dispatcher.Dispatch(context.Background(), "taskCreated", map[string]interface{}{})
	require.EqualError(t, err, "handler blew up")
	// The failing handler aborts the run before the wildcard subscribers
	assert.False(t, reached)
}

func TestDispatchBuildsWebhookSourcedEvents(t *testing.T) {
	dispatcher := NewDispatcher(logger.New("test"))

	var received DomainEvent
	dispatcher.Subscribe(TypeTaskMoved, func(ctx context.Context, event DomainEvent) error {
		received = event
		return nil
	})

	payload := map[string]interface{}{"task_id": "task-9"}
	require.NoError(t, dispatcher.Dispatch(context.Background(), "taskMoved", payload))

	require.NotNil(t, received)
	assert.Equal(t, SourceWebhook, received.EventSource())
	taskEvent, ok := received.(TaskEvent)
	require.True(t, ok)
	assert.Equal(t, "task-9", taskEvent.TaskID())
}
