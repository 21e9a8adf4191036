// Package sqlite keeps devices in a SQLite database.
package sqlite

import (
	"context"
	"fmt"
	"time"

	driver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ferux/devicewatch/internal/model"
	"github.com/ferux/devicewatch/internal/storage"
)

// DeviceModel is the GORM model for devices.
type DeviceModel struct {
	ID                     uint   `gorm:"primaryKey"`
	Position               int    `gorm:"index"`
	Name                   string `gorm:"uniqueIndex"`
	Address                string
	AddedAt                time.Time
	RefreshIntervalSeconds int
}

func (DeviceModel) TableName() string { return "devices" }

// Store implements storage.Store using GORM and SQLite.
type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// New opens the database and migrates schema.
func New(path string) (*Store, error) {
	db, err := gorm.Open(driver.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	if err := db.AutoMigrate(&DeviceModel{}); err != nil {
		return nil, fmt.Errorf("migrating: %w", err)
	}

	return &Store{db: db}, nil
}

// Load implements storage.Store.
func (s *Store) Load(ctx context.Context) ([]model.PersistedDevice, error) {
	var models []DeviceModel
	if err := s.db.WithContext(ctx).Order("position").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrCorruptData, err)
	}

	devices := make([]model.PersistedDevice, 0, len(models))
	for _, m := range models {
		devices = append(devices, model.PersistedDevice{
			Name:                   m.Name,
			Address:                m.Address,
			AddedAt:                m.AddedAt,
			RefreshIntervalSeconds: m.RefreshIntervalSeconds,
		})
	}

	return devices, nil
}

// Save implements storage.Store. Stored set is replaced in a single transaction.
func (s *Store) Save(ctx context.Context, devices []model.PersistedDevice) error {
	models := make([]DeviceModel, len(devices))
	for i, d := range devices {
		models[i] = DeviceModel{
			Position:               i,
			Name:                   d.Name,
			Address:                d.Address,
			AddedAt:                d.AddedAt,
			RefreshIntervalSeconds: d.RefreshIntervalSeconds,
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&DeviceModel{}).Error; err != nil {
			return fmt.Errorf("clearing devices: %w", err)
		}

		if len(models) == 0 {
			return nil
		}

		if err := tx.CreateInBatches(models, 100).Error; err != nil {
			return fmt.Errorf("inserting devices: %w", err)
		}

		return nil
	})
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
