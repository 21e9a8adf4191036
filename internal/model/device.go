package model

import (
	"math"
	"strings"
	"time"
)

// MaxRefreshInterval is the longest refresh interval in seconds which still
// fits into time.Duration.
const MaxRefreshInterval int64 = math.MaxInt64 / int64(time.Second)

// DeviceID identifies device inside the registry. It is not persisted.
type DeviceID string

// Device is a monitored network endpoint.
type Device struct {
	ID              DeviceID `json:"id"`
	Name            string   `json:"name"`
	Address         string   `json:"address"`
	RefreshInterval int      `json:"refresh_interval"`

	AddedAt     time.Time     `json:"added_at"`
	Status      Status        `json:"status"`
	LastCheckAt time.Time     `json:"last_check_at"`
	LastElapsed time.Duration `json:"last_elapsed"`
}

// Age returns how long ago the device was checked. Zero if it was never checked.
func (d Device) Age(now time.Time) time.Duration {
	if d.LastCheckAt.IsZero() {
		return 0
	}

	return now.Sub(d.LastCheckAt)
}

// Interval returns refresh interval as a duration measured in unit. It
// saturates instead of overflowing.
func (d Device) Interval(unit time.Duration) time.Duration {
	if d.RefreshInterval <= 0 || unit <= 0 {
		return 0
	}

	if int64(d.RefreshInterval) > math.MaxInt64/int64(unit) {
		return math.MaxInt64
	}

	return time.Duration(d.RefreshInterval) * unit
}

// Persisted strips runtime fields off the device.
func (d Device) Persisted() PersistedDevice {
	return PersistedDevice{
		Name:                   d.Name,
		Address:                d.Address,
		AddedAt:                d.AddedAt,
		RefreshIntervalSeconds: d.RefreshInterval,
	}
}

// DeviceEdit holds fields to change. Nil fields stay untouched.
type DeviceEdit struct {
	Name     *string `json:"name,omitempty"`
	Address  *string `json:"address,omitempty"`
	Interval *int    `json:"refresh_interval,omitempty"`
}

// PersistedDevice is the only on-disk representation of the device.
type PersistedDevice struct {
	Name                   string    `json:"name"`
	Address                string    `json:"address"`
	AddedAt                time.Time `json:"addedAt"`
	RefreshIntervalSeconds int       `json:"refreshIntervalSeconds"`
}

// Validate checks the record fields.
func (p PersistedDevice) Validate() error {
	return ValidateDevice(p.Name, p.Address, p.RefreshIntervalSeconds)
}

// ValidateDevice checks user provided device fields.
func ValidateDevice(name, address string, interval int) error {
	if len(strings.TrimSpace(name)) == 0 {
		return ErrEmptyName
	}

	if len(strings.TrimSpace(address)) == 0 {
		return ErrEmptyAddress
	}

	if interval < 1 || int64(interval) > MaxRefreshInterval {
		return ErrInvalidInterval
	}

	return nil
}
