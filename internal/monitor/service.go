// Package monitor glues device registry, poll scheduler and storage together.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ferux/devicewatch/internal/model"
	"github.com/ferux/devicewatch/internal/registry"
	"github.com/ferux/devicewatch/internal/scheduler"
	"github.com/ferux/devicewatch/internal/storage"
	"github.com/ferux/devicewatch/internal/telemetry"
)

// Service is what the presentation layer talks to.
type Service struct {
	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	store     storage.Store
	logger    zerolog.Logger

	// persistMu makes snapshot and save one step so saves never go back in time.
	persistMu sync.Mutex

	warnMu   sync.RWMutex
	warnings []string
}

// New wires scheduler to registry changes.
func New(reg *registry.Registry, sched *scheduler.Scheduler, store storage.Store, logger zerolog.Logger) *Service {
	reg.Subscribe(sched.OnDeviceChanged)
	reg.Subscribe(func(registry.Change) { telemetry.Devices.Set(float64(reg.Len())) })

	return &Service{
		registry:  reg,
		scheduler: sched,
		store:     store,
		logger:    logger.With().Str("pkg", "monitor").Logger(),
	}
}

// Bootstrap seeds registry from the storage. Corrupted storage is not fatal:
// the service starts with no devices and keeps a warning.
func (s *Service) Bootstrap(ctx context.Context) error {
	records, err := s.store.Load(ctx)

	switch {
	case errors.Is(err, storage.ErrCorruptData):
		s.logger.Warn().Err(err).Msg("starting with empty device list")
		s.warn(fmt.Sprintf("stored devices could not be read, starting with empty list: %v", err))

		records = nil
	case err != nil:
		return fmt.Errorf("loading devices: %w", err)
	}

	restored, skipped := s.registry.Restore(records)
	for _, err := range skipped {
		s.logger.Warn().Err(err).Msg("skipping stored device")
		s.warn(err.Error())
	}

	if err := s.scheduler.Start(); err != nil {
		s.logger.Warn().Err(err).Msg("some devices are not polled")
		s.warn(err.Error())
	}

	s.logger.Info().Int("devices", len(restored)).Msg("devices restored")

	return nil
}

func (s *Service) warn(msg string) {
	s.warnMu.Lock()
	defer s.warnMu.Unlock()

	s.warnings = append(s.warnings, msg)
}

// Warnings collected during bootstrap.
func (s *Service) Warnings() []string {
	s.warnMu.RLock()
	defer s.warnMu.RUnlock()

	return append([]string(nil), s.warnings...)
}

func (s *Service) persist(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.store.Save(ctx, s.registry.Persisted()); err != nil {
		s.logger.Error().Err(err).Msg("saving devices")
		return fmt.Errorf("saving devices: %w", err)
	}

	return nil
}

// Add registers device, starts polling it and saves the list.
func (s *Service) Add(ctx context.Context, name, address string, interval int) (model.Device, error) {
	d, err := s.registry.Add(name, address, interval)
	if err != nil {
		return model.Device{}, err
	}

	return d, s.persist(ctx)
}

// Edit changes device. Polling is restarted when address or interval change.
func (s *Service) Edit(ctx context.Context, id model.DeviceID, edit model.DeviceEdit) (model.Device, error) {
	d, err := s.registry.Edit(id, edit)
	if err != nil {
		return model.Device{}, err
	}

	return d, s.persist(ctx)
}

// Remove stops polling the device and forgets it.
func (s *Service) Remove(ctx context.Context, id model.DeviceID) error {
	if err := s.registry.Remove(id); err != nil {
		return err
	}

	return s.persist(ctx)
}

// Get device by id.
func (s *Service) Get(id model.DeviceID) (model.Device, error) {
	return s.registry.Get(id)
}

// List devices in order of addition.
func (s *Service) List() []model.Device {
	return s.registry.List()
}

// ActiveTasks returns amount of devices being polled right now.
func (s *Service) ActiveTasks() int {
	return s.scheduler.ActiveTasks()
}

// Shutdown stops polling.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.scheduler.Stop(ctx)
}
