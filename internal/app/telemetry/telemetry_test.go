package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiFansOut(t *testing.T) {
	var a, b []Kind
	sink := Multi(
		SinkFunc(func(e Event) { a = append(a, e.Kind) }),
		nil,
		SinkFunc(func(e Event) { b = append(b, e.Kind) }),
	)

	sink.Record(Event{Kind: LinkCreated})
	sink.Record(Event{Kind: StoreTimeout, Op: OpFind})

	assert.Equal(t, []Kind{LinkCreated, StoreTimeout}, a)
	assert.Equal(t, a, b)
}

func TestMultiWithoutSinksIsNop(t *testing.T) {
	assert.Equal(t, Nop(), Multi())
	assert.Equal(t, Nop(), Multi(nil, nil))
	assert.NotPanics(t, func() { OrNop(nil).Record(Event{}) })
}
