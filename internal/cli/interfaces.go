package cli

import (
	"github.com/clean-dependency-project/gamesync/internal/storage"
)

// HistoryReader abstracts the history queries for testing.
// Following Dave Cheney's principle: "Accept interfaces, return structs"
type HistoryReader interface {
	// ListInstalls returns recorded runtime installs, newest first.
	ListInstalls() ([]*storage.RuntimeInstall, error)

	// ListSyncRuns returns at most limit asset sync runs, newest first.
	ListSyncRuns(limit int) ([]*storage.SyncRun, error)

	// GetSyncRun returns one asset sync run by ID.
	GetSyncRun(runID string) (*storage.SyncRun, error)

	// GetStats returns aggregate counts.
	GetStats() (map[string]interface{}, error)
}

// InstallReader looks up the install record behind a ready runtime.
type InstallReader interface {
	LatestInstall(installPath, imageType string, majorVersion int) (*storage.RuntimeInstall, error)
}

var (
	_ HistoryReader = (*storage.DB)(nil)
	_ InstallReader = (*storage.DB)(nil)
)
