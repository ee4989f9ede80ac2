package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Sync run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// SyncRun records one asset reconciliation.
type SyncRun struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       string `gorm:"not null;uniqueIndex"`
	ManifestURL string
	InstallPath string `gorm:"not null;index"`

	StartedAt  time.Time `gorm:"not null"`
	FinishedAt *time.Time
	Status     string `gorm:"not null;index"`

	Removed    int
	Missing    int
	Downloaded int
	Ignored    int

	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SyncCounts are the per-run totals stored on completion.
type SyncCounts struct {
	Removed    int
	Missing    int
	Downloaded int
	Ignored    int
}

// StartSyncRun inserts a run in the running state.
func (d *DB) StartSyncRun(run *SyncRun) error {
	if run == nil {
		return ErrNilRecord
	}
	if run.RunID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}

	if err := d.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to start sync run: %w", err)
	}
	return nil
}

// FinishSyncRun stores the outcome of a run.
// Returns ErrNotFound if no run has the given ID.
func (d *DB) FinishSyncRun(runID, status string, counts SyncCounts, errorMsg string) error {
	now := time.Now()
	result := d.db.Model(&SyncRun{}).Where("run_id = ?", runID).Updates(map[string]interface{}{
		"status":        status,
		"finished_at":   &now,
		"removed":       counts.Removed,
		"missing":       counts.Missing,
		"downloaded":    counts.Downloaded,
		"ignored":       counts.Ignored,
		"error_message": errorMsg,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to finish sync run %s: %w", runID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: sync run %s", ErrNotFound, runID)
	}
	return nil
}

// GetSyncRun retrieves a run by its ID.
// Returns ErrNotFound if no matching run exists.
func (d *DB) GetSyncRun(runID string) (*SyncRun, error) {
	if runID == "" {
		return nil, fmt.Errorf("run ID cannot be empty")
	}

	var run SyncRun
	if err := d.db.Where("run_id = ?", runID).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sync run: %w", err)
	}

	return &run, nil
}

// ListSyncRuns returns the most recent runs, newest first. A limit of zero returns all runs.
func (d *DB) ListSyncRuns(limit int) ([]*SyncRun, error) {
	var runs []*SyncRun
	query := d.db.Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runs, nil
}
