package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuflow/docuflow/internal/domain/event"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	d := NewDispatcher()

	var received []*event.Event
	d.Subscribe(event.TypeWorkflowStarted, func(_ context.Context, evt *event.Event) error {
		received = append(received, evt)
		return nil
	})

	evt := event.New(event.TypeWorkflowStarted, 5, 1, nil)
	d.Publish(context.Background(), evt)

	require.Len(t, received, 1)
	assert.Equal(t, evt.ID, received[0].ID)
}

func TestPublishIgnoresOtherEventTypes(t *testing.T) {
	d := NewDispatcher()

	var calls int
	d.Subscribe(event.TypeWorkflowCompleted, func(_ context.Context, _ *event.Event) error {
		calls++
		return nil
	})

	d.Publish(context.Background(), event.New(event.TypeWorkflowStarted, 5, 1, nil))
	assert.Zero(t, calls)
}

func TestPublishStampsMissingTimestamp(t *testing.T) {
	d := NewDispatcher()

	var stamped bool
	d.Subscribe(event.TypeWorkflowStarted, func(_ context.Context, evt *event.Event) error {
		stamped = !evt.Timestamp.IsZero()
		return nil
	})

	evt := event.New(event.TypeWorkflowStarted, 5, 1, nil)
	evt.Timestamp = time.Time{}

	d.Publish(context.Background(), evt)
	assert.True(t, stamped)
}

func TestHandlerErrorDoesNotStopDelivery(t *testing.T) {
	d := NewDispatcher()

	var secondCalled bool
	d.SubscribeNamed(event.TypeWorkflowStarted, "failing", func(_ context.Context, _ *event.Event) error {
		return errors.New("handler broke")
	})
	d.SubscribeNamed(event.TypeWorkflowStarted, "succeeding", func(_ context.Context, _ *event.Event) error {
		secondCalled = true
		return nil
	})

	d.Publish(context.Background(), event.New(event.TypeWorkflowStarted, 5, 1, nil))
	assert.True(t, secondCalled)
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	d := NewDispatcher()

	var secondCalled bool
	d.SubscribeNamed(event.TypeWorkflowStarted, "panicking", func(_ context.Context, _ *event.Event) error {
		panic("boom")
	})
	d.SubscribeNamed(event.TypeWorkflowStarted, "succeeding", func(_ context.Context, _ *event.Event) error {
		secondCalled = true
		return nil
	})

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), event.New(event.TypeWorkflowStarted, 5, 1, nil))
	})
	assert.True(t, secondCalled)
}

func TestUnsubscribeRemovesHandlerByName(t *testing.T) {
	d := NewDispatcher()

	var calls int
	d.SubscribeNamed(event.TypeWorkflowStarted, "observer", func(_ context.Context, _ *event.Event) error {
		calls++
		return nil
	})

	d.Unsubscribe(event.TypeWorkflowStarted, "observer")
	d.Publish(context.Background(), event.New(event.TypeWorkflowStarted, 5, 1, nil))

	assert.Zero(t, calls)
	assert.Empty(t, d.ListHandlers(event.TypeWorkflowStarted))
}

func TestConcurrentSubscribe(t *testing.T) {
	d := NewDispatcher()

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			d.Subscribe(event.TypeWorkflowStarted, func(_ context.Context, _ *event.Event) error { return nil })
		}()
	}
	wg.Wait()

	assert.Len(t, d.ListHandlers(event.TypeWorkflowStarted), n)
}

func TestListHandlers(t *testing.T) {
	d := NewDispatcher()

	d.SubscribeNamed(event.TypeWorkflowStarted, "first", func(_ context.Context, _ *event.Event) error { return nil })
	d.SubscribeNamed(event.TypeWorkflowStarted, "second", func(_ context.Context, _ *event.Event) error { return nil })

	infos := d.ListHandlers(event.TypeWorkflowStarted)
	require.Len(t, infos, 2)
	assert.Equal(t, "first", infos[0].Name)
	assert.Equal(t, "second", infos[1].Name)
}

func TestClosedDispatcherDropsEvents(t *testing.T) {
	d := NewDispatcher()

	var calls int
	d.Subscribe(event.TypeWorkflowStarted, func(_ context.Context, _ *event.Event) error {
		calls++
		return nil
	})

	require.NoError(t, d.Close())
	assert.Error(t, d.Close(), "closing twice reports an error")

	d.Publish(context.Background(), event.New(event.TypeWorkflowStarted, 5, 1, nil))
	assert.Zero(t, calls)
}
