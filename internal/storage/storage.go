// Package storage records runtime installs and asset sync runs using GORM and SQLite.
package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Sentinel errors following Dave Cheney's principle: define errors as values
var (
	ErrNilRecord = errors.New("record cannot be nil")
	ErrNotFound  = errors.New("record not found")
)

// RuntimeInstall records a runtime archive that was downloaded, verified and unpacked.
type RuntimeInstall struct {
	ID uint `gorm:"primaryKey"`

	// What was installed
	ImageType    string `gorm:"not null;index:idx_runtime"`
	MajorVersion int    `gorm:"not null;index:idx_runtime"`
	Release      string
	OS           string `gorm:"not null"`
	Arch         string `gorm:"not null"`
	ArchiveName  string `gorm:"not null"`
	Checksum     string
	SourceURL    string `gorm:"not null"`
	Catalog      string

	// Where
	InstallPath    string `gorm:"not null;index"`
	ExecutablePath string `gorm:"not null"`

	// When
	InstalledAt time.Time `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store defines the interface for history storage operations
type Store interface {
	Close() error
	RecordInstall(*RuntimeInstall) error
	LatestInstall(installPath, imageType string, majorVersion int) (*RuntimeInstall, error)
	ListInstalls() ([]*RuntimeInstall, error)
	StartSyncRun(*SyncRun) error
	FinishSyncRun(runID string, status string, counts SyncCounts, errorMsg string) error
	GetSyncRun(runID string) (*SyncRun, error)
	ListSyncRuns(limit int) ([]*SyncRun, error)
	GetStats() (map[string]interface{}, error)
}

// DB wraps gorm.DB with our history operations
type DB struct {
	db *gorm.DB
}

var _ Store = (*DB)(nil)

// Config holds database configuration
type Config struct {
	DatabasePath string
	LogLevel     string // silent, error, warn, info
}

// InitDB initializes the database connection and runs migrations
func InitDB(cfg Config) (*DB, error) {
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	logLevel := logger.Silent
	switch cfg.LogLevel {
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Every connection to :memory: opens a separate database.
	if cfg.DatabasePath == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// Auto-migrate schema
	if err := db.AutoMigrate(&RuntimeInstall{}, &SyncRun{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// RecordInstall creates a new install record
func (d *DB) RecordInstall(install *RuntimeInstall) error {
	if install == nil {
		return ErrNilRecord
	}
	if install.InstalledAt.IsZero() {
		install.InstalledAt = time.Now()
	}
	if err := d.db.Create(install).Error; err != nil {
		return fmt.Errorf("failed to record install: %w", err)
	}
	return nil
}

// LatestInstall returns the most recent install of a runtime into installPath
func (d *DB) LatestInstall(installPath, imageType string, majorVersion int) (*RuntimeInstall, error) {
	var install RuntimeInstall
	err := d.db.Where("install_path = ? AND image_type = ? AND major_version = ?",
		installPath, imageType, majorVersion).
		Order("installed_at DESC").First(&install).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get install: %w", err)
	}
	return &install, nil
}

// ListInstalls returns all installs, newest first
func (d *DB) ListInstalls() ([]*RuntimeInstall, error) {
	var installs []*RuntimeInstall
	if err := d.db.Order("installed_at DESC").Find(&installs).Error; err != nil {
		return nil, fmt.Errorf("failed to list installs: %w", err)
	}
	return installs, nil
}

// GetStats returns install and sync statistics
func (d *DB) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	// Total installs
	var installs int64
	if err := d.db.Model(&RuntimeInstall{}).Count(&installs).Error; err != nil {
		return nil, fmt.Errorf("failed to count installs: %w", err)
	}
	stats["total_installs"] = installs

	// By catalog
	var catalogCounts []struct {
		Catalog string
		Count   int64
	}
	if err := d.db.Model(&RuntimeInstall{}).Select("catalog, COUNT(*) as count").
		Group("catalog").Scan(&catalogCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to get catalog counts: %w", err)
	}
	stats["by_catalog"] = catalogCounts

	// Total sync runs
	var runs int64
	if err := d.db.Model(&SyncRun{}).Count(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to count sync runs: %w", err)
	}
	stats["total_sync_runs"] = runs

	// Sync status
	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := d.db.Model(&SyncRun{}).Select("status, COUNT(*) as count").
		Group("status").Scan(&statusCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to get status counts: %w", err)
	}
	stats["by_status"] = statusCounts

	return stats, nil
}
