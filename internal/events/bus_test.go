package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBusPublishDeliversToSubscriber(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var received *Event
	bus.Subscribe(PeriodCompleted, func(e *Event) {
		received = e
	})

	bus.Emit(PeriodCompleted, "engine", "run-1", map[string]interface{}{"period": 3})

	assert.NotNil(t, received)
	assert.Equal(t, PeriodCompleted, received.Type)
	assert.Equal(t, "run-1", received.RunID)
	assert.Equal(t, 3, received.Data["period"])
}

func TestBusIgnoresUnsubscribedTypes(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	called := false
	bus.Subscribe(RunStarted, func(e *Event) { called = true })

	bus.Emit(PeriodStarted, "engine", "run-1", nil)

	assert.False(t, called)
}
