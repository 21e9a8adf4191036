// Package pubsub fans status observations out to subscribers.
package pubsub

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ferux/devicewatch/internal/model"
)

type Handler func(o model.Observation)

// Core implements model.StatusSink. Handlers are called one by one, so they
// must hand any slow work off to their own goroutines.
type Core struct {
	subs []Handler

	logger zerolog.Logger
	mu     sync.RWMutex
}

func New(logger zerolog.Logger) *Core {
	return &Core{
		logger: logger.With().Str("pkg", "pubsub").Logger(),
	}
}

// Subscribe handler to observations.
func (c *Core) Subscribe(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subs = append(c.subs, h)
}

// OnStatusObserved notifies subscribers.
func (c *Core) OnStatusObserved(o model.Observation) {
	c.mu.RLock()
	hs := c.subs
	c.mu.RUnlock()

	for _, h := range hs {
		c.call(h, o)
	}
}

func (c *Core) call(h Handler, o model.Observation) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Str("device_id", string(o.DeviceID)).Msg("subscriber panicked")
		}
	}()

	h(o)
}
