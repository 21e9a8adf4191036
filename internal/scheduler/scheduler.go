// Package scheduler polls every registered device from its own goroutine.
//
// Exactly one task exists per device present in the registry. Tasks are
// reconciled against the registry whenever it changes: a task is started for
// a new device, replaced when address or interval change and stopped when the
// device is removed. Once Reconcile returns for a removed device no further
// poll result is recorded for it.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/ferux/devicewatch/internal/model"
	"github.com/ferux/devicewatch/internal/probe"
	"github.com/ferux/devicewatch/internal/registry"
	"github.com/ferux/devicewatch/internal/telemetry"
)

const (
	ErrClosed    model.Error = "scheduler is closed"
	ErrTaskLimit model.Error = "poll task limit reached"
)

const (
	defaultStopGrace  = time.Millisecond * 500
	defaultSinkBuffer = 256
)

// Registry is the part of the device registry used by the scheduler.
type Registry interface {
	Get(id model.DeviceID) (model.Device, error)
	List() []model.Device
	RecordPoll(id model.DeviceID, reachable bool, observedAt time.Time, elapsed time.Duration) (model.Observation, error)
}

// Option configures Scheduler.
type Option func(*Scheduler)

// WithTimeUnit sets the unit of refresh interval. Defaults to one second.
func WithTimeUnit(unit time.Duration) Option {
	return func(s *Scheduler) { s.unit = unit }
}

// WithProbeTimeout bounds every probe. Defaults to probe.DefaultTimeout.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(s *Scheduler) { s.probeTimeout = timeout }
}

// WithStopGrace sets how long to wait for a cancelled probe on top of the probe timeout.
func WithStopGrace(grace time.Duration) Option {
	return func(s *Scheduler) { s.stopGrace = grace }
}

// WithMaxTasks limits amount of concurrently running tasks. Zero means no limit.
func WithMaxTasks(n int) Option {
	return func(s *Scheduler) { s.maxTasks = n }
}

// WithSinkBuffer sets capacity of the queue of not yet delivered observations.
func WithSinkBuffer(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.sinkBuffer = n
		}
	}
}

// WithNotifier reports infrastructure failures to sentry.
func WithNotifier(client *sentry.Client) Option {
	return func(s *Scheduler) { s.notifier = client }
}

// Scheduler owns poll tasks.
type Scheduler struct {
	registry Registry
	prober   probe.Prober
	sink     model.StatusSink
	logger   zerolog.Logger
	notifier *sentry.Client

	unit         time.Duration
	probeTimeout time.Duration
	stopGrace    time.Duration
	maxTasks     int
	sinkBuffer   int

	base       context.Context
	cancelBase context.CancelFunc
	observed   chan model.Observation

	// deliverMu is held for reading while the sink runs. Removal takes it
	// for writing once, so no observation of a removed device is delivered
	// after Reconcile returns.
	deliverMu sync.RWMutex

	mu      sync.Mutex
	slots   map[model.DeviceID]*slot
	running int
	closed  bool
}

// New creates scheduler. No task is started until Start or Reconcile is called.
func New(r Registry, p probe.Prober, sink model.StatusSink, logger zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry: r,
		prober:   p,
		sink:     sink,
		logger:   logger.With().Str("pkg", "scheduler").Logger(),

		unit:         time.Second,
		probeTimeout: probe.DefaultTimeout,
		stopGrace:    defaultStopGrace,
		sinkBuffer:   defaultSinkBuffer,

		slots: make(map[model.DeviceID]*slot),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.base, s.cancelBase = context.WithCancel(context.Background())
	s.observed = make(chan model.Observation, s.sinkBuffer)

	go s.dispatch()

	return s
}

// slot serializes reconciliation of a single device.
type slot struct {
	mu      sync.Mutex
	task    *task
	retired bool
}

func (s *Scheduler) slot(id model.DeviceID) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[id]
	if !ok {
		sl = &slot{}
		s.slots[id] = sl
	}

	return sl
}

func (s *Scheduler) retire(id model.DeviceID, sl *slot) {
	sl.retired = true

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots[id] == sl {
		delete(s.slots, id)
	}
}

// Start launches tasks for every device already in the registry.
func (s *Scheduler) Start() error {
	var errs []error

	for _, d := range s.registry.List() {
		if err := s.Reconcile(d.ID); err != nil {
			errs = append(errs, fmt.Errorf("scheduling %s: %w", d.Name, err))
		}
	}

	return errors.Join(errs...)
}

// OnDeviceChanged reconciles tasks with the registry. It is meant to be
// subscribed to registry changes.
func (s *Scheduler) OnDeviceChanged(c registry.Change) {
	if err := s.Reconcile(c.Device.ID); err != nil {
		s.logger.Error().
			Err(err).
			Str("device_id", string(c.Device.ID)).
			Stringer("change", c.Kind).
			Msg("unable to reconcile poll task")
	}
}

// Reconcile brings task of the device in line with the registry: starts,
// replaces or stops it. Reconciliations of different devices never wait for
// each other.
func (s *Scheduler) Reconcile(id model.DeviceID) error {
	for {
		sl := s.slot(id)
		sl.mu.Lock()
		if sl.retired {
			// slot has been dropped while we were waiting, take a fresh one.
			sl.mu.Unlock()
			continue
		}

		err := s.reconcile(id, sl)
		sl.mu.Unlock()

		return err
	}
}

func (s *Scheduler) reconcile(id model.DeviceID, sl *slot) error {
	d, err := s.registry.Get(id)
	if errors.Is(err, model.ErrNotFound) {
		s.stopTask(sl.task)
		sl.task = nil
		s.retire(id, sl)

		s.deliverMu.Lock()
		s.deliverMu.Unlock() //nolint:staticcheck // waits for in-flight delivery

		return nil
	}

	if err != nil {
		return fmt.Errorf("getting device: %w", err)
	}

	interval := d.Interval(s.unit)
	if sl.task != nil && sl.task.address == d.Address && sl.task.interval == interval {
		return nil
	}

	s.stopTask(sl.task)
	sl.task = nil

	t, err := s.startTask(d, interval)
	if err != nil {
		s.reportStartFailure(d, err)
		return err
	}

	sl.task = t

	return nil
}

func (s *Scheduler) reportStartFailure(d model.Device, err error) {
	telemetry.TaskStartFailures.Inc()

	s.logger.Error().
		Err(err).
		Str("device_id", string(d.ID)).
		Str("name", d.Name).
		Msg("device left without poller")

	if s.notifier == nil || errors.Is(err, ErrClosed) {
		return
	}

	s.notifier.CaptureException(
		err,
		&sentry.EventHint{
			Data: map[string]interface{}{
				"device_id": d.ID,
				"name":      d.Name,
			},
		},
		sentry.NewScope(),
	)
}

func (s *Scheduler) startTask(d model.Device, interval time.Duration) (*task, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	if s.maxTasks > 0 && s.running >= s.maxTasks {
		s.mu.Unlock()
		return nil, ErrTaskLimit
	}

	s.running++
	s.mu.Unlock()

	t := newTask(s.base, d, interval)
	telemetry.ActiveTasks.Inc()

	go s.run(t)

	return t, nil
}

// stopTask cancels the task and makes sure it records nothing anymore. It
// waits for the task goroutine to exit for at most probe timeout plus grace,
// an overrunning probe is abandoned.
func (s *Scheduler) stopTask(t *task) {
	if t == nil {
		return
	}

	t.setState(stateStopping)
	t.cancel()
	t.retire()

	wait := time.NewTimer(s.probeTimeout + s.stopGrace)
	defer wait.Stop()

	select {
	case <-t.done:
	case <-wait.C:
		s.logger.Warn().
			Str("device_id", string(t.deviceID)).
			Msg("probe did not finish in time, abandoning task")
	}

	t.setState(stateStopped)
	telemetry.ActiveTasks.Dec()

	s.mu.Lock()
	s.running--
	s.mu.Unlock()
}

// ActiveTasks returns amount of running tasks.
func (s *Scheduler) ActiveTasks() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// Stop retires every task. Scheduler can't be started again.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	slots := make(map[model.DeviceID]*slot, len(s.slots))
	for id, sl := range s.slots {
		slots[id] = sl
	}
	s.mu.Unlock()

	done := make(chan struct{})

	go func() {
		var wg sync.WaitGroup
		for id, sl := range slots {
			wg.Add(1)
			go func(id model.DeviceID, sl *slot) {
				defer wg.Done()

				sl.mu.Lock()
				defer sl.mu.Unlock()

				s.stopTask(sl.task)
				sl.task = nil
				s.retire(id, sl)
			}(id, sl)
		}
		wg.Wait()

		s.cancelBase()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) publish(o model.Observation) {
	select {
	case s.observed <- o:
	default:
		telemetry.NotificationsDropped.WithLabelValues("scheduler").Inc()
		s.logger.Warn().Str("device_id", string(o.DeviceID)).Msg("sink is too slow, dropping observation")
	}
}

// dispatch hands observations to the sink so a slow sink never holds a poller.
func (s *Scheduler) dispatch() {
	for {
		select {
		case <-s.base.Done():
			return
		case o := <-s.observed:
			s.deliver(o)
		}
	}
}

func (s *Scheduler) deliver(o model.Observation) {
	if s.sink == nil {
		return
	}

	s.deliverMu.RLock()
	defer s.deliverMu.RUnlock()

	if _, err := s.registry.Get(o.DeviceID); err != nil {
		// device was removed while observation waited in the queue
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("device_id", string(o.DeviceID)).Msg("status sink panicked")
		}
	}()

	s.sink.OnStatusObserved(o)
}
