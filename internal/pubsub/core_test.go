package pubsub

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/ferux/devicewatch/internal/model"
)

func TestCoreFanOut(t *testing.T) {
	c := New(zerolog.Nop())

	var got []string
	c.Subscribe(func(o model.Observation) { got = append(got, "a:"+o.Name) })
	c.Subscribe(func(o model.Observation) { got = append(got, "b:"+o.Name) })

	c.OnStatusObserved(model.Observation{Name: "router"})

	assert.Equal(t, []string{"a:router", "b:router"}, got)
}

func TestCoreWithoutSubscribers(t *testing.T) {
	c := New(zerolog.Nop())
	assert.NotPanics(t, func() { c.OnStatusObserved(model.Observation{}) })
}

func TestCoreSurvivesPanickingSubscriber(t *testing.T) {
	c := New(zerolog.Nop())

	var got []string
	c.Subscribe(func(model.Observation) { panic("boom") })
	c.Subscribe(func(o model.Observation) { got = append(got, o.Name) })

	c.OnStatusObserved(model.Observation{Name: "first"})
	c.OnStatusObserved(model.Observation{Name: "second"})

	assert.Equal(t, []string{"first", "second"}, got)
}
