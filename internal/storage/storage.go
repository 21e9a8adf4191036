// Package storage defines where the list of monitored devices is kept
// between restarts. Only the device definition is stored, live status never is.
package storage

import (
	"context"

	"github.com/ferux/devicewatch/internal/model"
)

// ErrCorruptData means stored data can't be read back.
const ErrCorruptData model.Error = "stored data is corrupted"

// Store loads and saves the device list.
type Store interface {
	// Load returns stored devices. Missing storage is not an error.
	Load(ctx context.Context) ([]model.PersistedDevice, error)
	// Save replaces stored devices with the given ones.
	Save(ctx context.Context, devices []model.PersistedDevice) error
}
