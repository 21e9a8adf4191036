// Package registry keeps the authoritative in-memory list of monitored devices
// together with their live status.
package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pborman/uuid"
	"github.com/rs/zerolog"

	"github.com/ferux/devicewatch/internal/model"
)

// ChangeKind describes structural mutation of the registry.
type ChangeKind uint8

const (
	ChangeAdded ChangeKind = iota + 1
	ChangeEdited
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeEdited:
		return "edited"
	case ChangeRemoved:
		return "removed"
	default:
		return "undefined"
	}
}

// Change is emitted after every add, edit or remove.
type Change struct {
	Kind   ChangeKind
	Device model.Device
	// ParamsChanged is set when address or refresh interval were modified.
	ParamsChanged bool
}

// ChangeHandler is called synchronously in the goroutine which mutated the
// registry, after the registry lock has been released.
type ChangeHandler func(c Change)

// Registry is safe for concurrent use. It never hands out pointers to its records.
type Registry struct {
	mu      sync.RWMutex
	devices map[model.DeviceID]*model.Device
	names   map[string]model.DeviceID
	order   []model.DeviceID

	subsMu sync.RWMutex
	subs   []ChangeHandler

	logger zerolog.Logger
	now    func() time.Time
}

// New creates empty registry.
func New(logger zerolog.Logger) *Registry {
	return &Registry{
		devices: make(map[model.DeviceID]*model.Device),
		names:   make(map[string]model.DeviceID),
		logger:  logger.With().Str("pkg", "registry").Logger(),
		now:     time.Now,
	}
}

// Subscribe handler to structural changes.
func (r *Registry) Subscribe(fn ChangeHandler) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	r.subs = append(r.subs, fn)
}

func (r *Registry) notify(c Change) {
	r.subsMu.RLock()
	subs := r.subs
	r.subsMu.RUnlock()

	for _, fn := range subs {
		fn(c)
	}
}

// Add registers a new device. Status starts as unknown.
func (r *Registry) Add(name, address string, interval int) (model.Device, error) {
	return r.insert(model.PersistedDevice{
		Name:                   name,
		Address:                address,
		AddedAt:                r.now(),
		RefreshIntervalSeconds: interval,
	})
}

// Restore registers devices loaded from storage keeping their creation time.
// Invalid or duplicated records are skipped and reported.
func (r *Registry) Restore(records []model.PersistedDevice) (restored []model.Device, skipped []error) {
	for _, rec := range records {
		if rec.AddedAt.IsZero() {
			rec.AddedAt = r.now()
		}

		d, err := r.insert(rec)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("restoring %q: %w", rec.Name, err))
			continue
		}

		restored = append(restored, d)
	}

	return restored, skipped
}

func (r *Registry) insert(rec model.PersistedDevice) (model.Device, error) {
	name := strings.TrimSpace(rec.Name)
	address := strings.TrimSpace(rec.Address)

	if err := model.ValidateDevice(name, address, rec.RefreshIntervalSeconds); err != nil {
		return model.Device{}, err
	}

	r.mu.Lock()
	if _, ok := r.names[name]; ok {
		r.mu.Unlock()
		return model.Device{}, model.ErrDuplicateName
	}

	d := &model.Device{
		ID:              model.DeviceID(uuid.New()),
		Name:            name,
		Address:         address,
		RefreshInterval: rec.RefreshIntervalSeconds,
		AddedAt:         rec.AddedAt,
		Status:          model.StatusUnknown,
	}

	r.devices[d.ID] = d
	r.names[name] = d.ID
	r.order = append(r.order, d.ID)
	out := *d
	r.mu.Unlock()

	r.logger.Debug().Str("device_id", string(out.ID)).Str("name", out.Name).Msg("registered")
	r.notify(Change{Kind: ChangeAdded, Device: out, ParamsChanged: true})

	return out, nil
}

// Edit changes fields of the device. Nothing is changed when validation fails.
func (r *Registry) Edit(id model.DeviceID, edit model.DeviceEdit) (model.Device, error) {
	r.mu.Lock()
	d, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return model.Device{}, model.ErrNotFound
	}

	name, address, interval := d.Name, d.Address, d.RefreshInterval
	if edit.Name != nil {
		name = strings.TrimSpace(*edit.Name)
	}

	if edit.Address != nil {
		address = strings.TrimSpace(*edit.Address)
	}

	if edit.Interval != nil {
		interval = *edit.Interval
	}

	if err := model.ValidateDevice(name, address, interval); err != nil {
		r.mu.Unlock()
		return model.Device{}, err
	}

	if owner, taken := r.names[name]; taken && owner != id {
		r.mu.Unlock()
		return model.Device{}, model.ErrDuplicateName
	}

	paramsChanged := address != d.Address || interval != d.RefreshInterval

	if name != d.Name {
		delete(r.names, d.Name)
		r.names[name] = id
	}

	d.Name, d.Address, d.RefreshInterval = name, address, interval
	out := *d
	r.mu.Unlock()

	r.logger.Debug().
		Str("device_id", string(id)).
		Bool("params_changed", paramsChanged).
		Msg("edited")
	r.notify(Change{Kind: ChangeEdited, Device: out, ParamsChanged: paramsChanged})

	return out, nil
}

// Remove deletes the device.
func (r *Registry) Remove(id model.DeviceID) error {
	r.mu.Lock()
	d, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return model.ErrNotFound
	}

	delete(r.devices, id)
	delete(r.names, d.Name)

	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	out := *d
	r.mu.Unlock()

	r.logger.Debug().Str("device_id", string(id)).Msg("removed")
	r.notify(Change{Kind: ChangeRemoved, Device: out, ParamsChanged: true})

	return nil
}

// Get device by its id.
func (r *Registry) Get(id model.DeviceID) (model.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return model.Device{}, model.ErrNotFound
	}

	return *d, nil
}

// GetByName looks the device up by its unique name.
func (r *Registry) GetByName(name string) (model.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.names[strings.TrimSpace(name)]
	if !ok {
		return model.Device{}, model.ErrNotFound
	}

	return *r.devices[id], nil
}

// List returns devices in order of insertion.
func (r *Registry) List() []model.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]model.Device, 0, len(r.order))
	for _, id := range r.order {
		devices = append(devices, *r.devices[id])
	}

	return devices
}

// Len returns amount of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.devices)
}

// Persisted returns snapshot suitable for the storage.
func (r *Registry) Persisted() []model.PersistedDevice {
	devices := r.List()

	records := make([]model.PersistedDevice, 0, len(devices))
	for _, d := range devices {
		records = append(records, d.Persisted())
	}

	return records
}

// RecordPoll stores result of a single poll. ErrNotFound means the device has
// been removed in the meantime and the result should be dropped.
func (r *Registry) RecordPoll(id model.DeviceID, reachable bool, observedAt time.Time, elapsed time.Duration) (model.Observation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return model.Observation{}, model.ErrNotFound
	}

	previous := d.Status
	d.Status = model.StatusFromReachable(reachable)
	d.LastCheckAt = observedAt
	d.LastElapsed = elapsed

	if previous != d.Status {
		r.logger.Debug().
			Str("device_id", string(id)).
			Stringer("from", previous).
			Stringer("to", d.Status).
			Msg("status changed")
	}

	return model.Observation{
		DeviceID:   id,
		Name:       d.Name,
		Address:    d.Address,
		Status:     d.Status,
		Previous:   previous,
		ObservedAt: observedAt,
		Elapsed:    elapsed,
	}, nil
}
