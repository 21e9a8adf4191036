package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ferux/devicewatch/internal/fcontext"
	"github.com/ferux/devicewatch/internal/model"
	"github.com/ferux/devicewatch/internal/telemetry"
)

type taskState uint32

const (
	stateStarting taskState = iota
	stateRunning
	stateStopping
	stateStopped
)

func (s taskState) String() string {
	switch s {
	case stateStarting:
		return "starting"
	case stateRunning:
		return "running"
	case stateStopping:
		return "stopping"
	case stateStopped:
		return "stopped"
	default:
		return "undefined"
	}
}

// task polls single device with fixed parameters. Changing parameters means
// replacing the task.
type task struct {
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	deviceID model.DeviceID
	address  string
	interval time.Duration
	state    uint32

	// recordMu makes retire and recording mutually exclusive.
	recordMu sync.Mutex
	retired  bool
}

func newTask(parent context.Context, d model.Device, interval time.Duration) *task {
	ctx, cancel := context.WithCancel(fcontext.WithDeviceID(parent, d.ID))

	return &task{
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		deviceID: d.ID,
		address:  d.Address,
		interval: interval,
		state:    uint32(stateStarting),
	}
}

func (t *task) setState(st taskState) { atomic.StoreUint32(&t.state, uint32(st)) }

func (t *task) getState() taskState { return taskState(atomic.LoadUint32(&t.state)) }

func (t *task) retire() {
	t.recordMu.Lock()
	t.retired = true
	t.recordMu.Unlock()
}

func (s *Scheduler) run(t *task) {
	defer close(t.done)

	logger := s.logger.With().
		Str("device_id", string(t.deviceID)).
		Str("address", t.address).
		Dur("interval", t.interval).
		Logger()

	t.setState(stateRunning)
	logger.Debug().Msg("poll task started")

	defer func() {
		logger.Debug().Stringer("state", t.getState()).Msg("poll task finished")
	}()

	for {
		if t.ctx.Err() != nil {
			return
		}

		start := time.Now()
		s.tick(t, logger)

		// next tick is counted from the start of this one. If probe took
		// longer than interval the next tick fires right away.
		wait := t.interval - time.Since(start)
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-t.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Scheduler) tick(t *task, logger zerolog.Logger) {
	reachable, elapsed, err := s.probe(t)

	result := telemetry.ResultInactive
	switch {
	case err != nil:
		result = telemetry.ResultError
		reachable = false
		logger.Debug().Err(err).Msg("probe failed")
	case reachable:
		result = telemetry.ResultActive
	}

	telemetry.ProbesTotal.WithLabelValues(result).Inc()
	telemetry.ProbeDuration.Observe(elapsed.Seconds())

	if t.ctx.Err() != nil {
		// result was measured with parameters which are not relevant anymore.
		return
	}

	t.recordMu.Lock()
	defer t.recordMu.Unlock()

	if t.retired {
		return
	}

	o, err := s.registry.RecordPoll(t.deviceID, reachable, time.Now(), elapsed)
	if err != nil {
		logger.Debug().Err(err).Msg("device is gone, dropping poll result")
		return
	}

	s.publish(o)
}

func (s *Scheduler) probe(t *task) (reachable bool, elapsed time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			reachable, err = false, fmt.Errorf("probe panicked: %v", r)
		}
	}()

	return s.prober.Probe(t.ctx, t.address, s.probeTimeout)
}
