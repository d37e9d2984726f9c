package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"mecanix/internal/core/id"
)

type recordingHandler struct {
	calls []Event
	err   error
	panic bool
}

func (h *recordingHandler) Handle(_ context.Context, e Event) error {
	h.calls = append(h.calls, e)
	if h.panic {
		panic("boom")
	}
	return h.err
}

func TestPublish_NoSubscribers(t *testing.T) {
	bus := NewBus()

	// Must be a silent no-op.
	bus.Publish(context.Background(), New(TypeOrderStatusChanged, id.New(), nil))
}

func TestPublish_DispatchesInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	first := &recordingHandler{}
	second := &recordingHandler{}
	bus.Subscribe(TypeOrderStatusChanged, first)
	bus.Subscribe(TypeOrderStatusChanged, second)

	e := New(TypeOrderStatusChanged, id.New(), map[string]any{"to": "received"})
	bus.Publish(context.Background(), e)

	assert.Len(t, first.calls, 1)
	assert.Len(t, second.calls, 1)
	assert.Equal(t, e.EventID, first.calls[0].EventID)
	assert.Equal(t, "received", second.calls[0].String("to"))
}

func TestPublish_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewBus()
	failing := &recordingHandler{err: errors.New("handler down")}
	succeeding := &recordingHandler{}
	bus.Subscribe(TypeBudgetApproved, failing)
	bus.Subscribe(TypeBudgetApproved, succeeding)

	bus.Publish(context.Background(), New(TypeBudgetApproved, id.New(), nil))

	assert.Len(t, failing.calls, 1)
	assert.Len(t, succeeding.calls, 1)
}

func TestPublish_HandlerPanicIsContained(t *testing.T) {
	bus := NewBus()
	panicking := &recordingHandler{panic: true}
	succeeding := &recordingHandler{}
	bus.Subscribe(TypeExecutionCompleted, panicking)
	bus.Subscribe(TypeExecutionCompleted, succeeding)

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), New(TypeExecutionCompleted, id.New(), nil))
	})
	assert.Len(t, succeeding.calls, 1)
}

func TestSubscribe_SameHandlerTwiceIsNoOp(t *testing.T) {
	bus := NewBus()
	h := &recordingHandler{}
	bus.Subscribe(TypeOrderStatusChanged, h)
	bus.Subscribe(TypeOrderStatusChanged, h)

	bus.Publish(context.Background(), New(TypeOrderStatusChanged, id.New(), nil))

	assert.Len(t, h.calls, 1)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	h := &recordingHandler{}
	bus.Subscribe(TypeOrderStatusChanged, h)
	bus.Unsubscribe(TypeOrderStatusChanged, h)

	bus.Publish(context.Background(), New(TypeOrderStatusChanged, id.New(), nil))

	assert.Empty(t, h.calls)

	// Unsubscribing an unknown handler must not panic.
	bus.Unsubscribe(TypeOrderStatusChanged, &recordingHandler{})
}

func TestPublish_OnlyMatchingType(t *testing.T) {
	bus := NewBus()
	h := &recordingHandler{}
	bus.Subscribe(TypeBudgetRejected, h)

	bus.Publish(context.Background(), New(TypeBudgetApproved, id.New(), nil))

	assert.Empty(t, h.calls)
}
