// Package installer runs the launcher workflows and records them in the history store.
package installer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clean-dependency-project/gamesync/internal/assets"
	"github.com/clean-dependency-project/gamesync/internal/platform"
	"github.com/clean-dependency-project/gamesync/internal/runtime"
	"github.com/clean-dependency-project/gamesync/internal/storage"
)

// ErrNotConfigured is returned when a workflow has no component to run it.
var ErrNotConfigured = errors.New("workflow not configured")

// RuntimeEnsurer installs runtimes.
type RuntimeEnsurer interface {
	Ensure(ctx context.Context, req runtime.Request) (*runtime.Result, error)
}

// AssetSyncer converges an install directory with the asset manifest.
type AssetSyncer interface {
	Reconcile(ctx context.Context, installPath string) (*assets.Report, error)
}

// Recorder is the subset of the history store the installer writes to.
type Recorder interface {
	RecordInstall(*storage.RuntimeInstall) error
	StartSyncRun(*storage.SyncRun) error
	FinishSyncRun(runID string, status string, counts storage.SyncCounts, errorMsg string) error
}

// RuntimeOptions selects the runtime EnsureRuntime installs.
type RuntimeOptions struct {
	InstallPath  string
	ImageType    string
	MajorVersion int
	Platform     platform.Platform
}

// Installer runs the runtime and asset workflows. The store is optional.
type Installer struct {
	runtime     RuntimeEnsurer
	assets      AssetSyncer
	store       Recorder
	stdout      *slog.Logger
	stderr      *slog.Logger
	manifestURL string
	newID       func() string
	now         func() time.Time
}

// Option configures an Installer.
type Option func(*Installer)

// WithManifestURL sets the manifest URL stored on sync run records.
func WithManifestURL(url string) Option {
	return func(i *Installer) {
		i.manifestURL = url
	}
}

// New creates an Installer. Any of acq, rec and store may be nil; a nil store
// disables history.
func New(acq RuntimeEnsurer, rec AssetSyncer, store Recorder, stdout, stderr *slog.Logger, opts ...Option) *Installer {
	i := &Installer{
		runtime: acq,
		assets:  rec,
		store:   store,
		stdout:  stdout,
		stderr:  stderr,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// EnsureRuntime returns the path of the runtime executable, installing the
// runtime first when needed. Fresh installs are recorded.
func (i *Installer) EnsureRuntime(ctx context.Context, opts RuntimeOptions) (string, error) {
	if i.runtime == nil {
		return "", fmt.Errorf("runtime: %w", ErrNotConfigured)
	}

	res, err := i.runtime.Ensure(ctx, runtime.Request{
		InstallRoot:  opts.InstallPath,
		MajorVersion: opts.MajorVersion,
		ImageType:    opts.ImageType,
		Platform:     opts.Platform,
	})
	if err != nil {
		return "", fmt.Errorf("failed to ensure runtime: %w", err)
	}

	if res.Installed && res.Descriptor != nil && i.store != nil {
		d := res.Descriptor
		install := &storage.RuntimeInstall{
			ImageType:      d.ImageType,
			MajorVersion:   opts.MajorVersion,
			Release:        d.Version,
			OS:             d.OS,
			Arch:           d.Arch,
			ArchiveName:    d.ArchiveName,
			Checksum:       d.Checksum,
			SourceURL:      d.URL,
			Catalog:        d.Source,
			InstallPath:    opts.InstallPath,
			ExecutablePath: res.Path,
			InstalledAt:    i.now(),
		}
		if install.MajorVersion == 0 {
			install.MajorVersion = runtime.DefaultMajorVersion
		}
		// The runtime is usable even when history cannot be written.
		if err := i.store.RecordInstall(install); err != nil {
			i.stderr.Warn("failed to record runtime install", "path", res.Path, "error", err)
		}
	}

	i.stdout.Info("runtime ready", "path", res.Path, "installed", res.Installed)
	return res.Path, nil
}

// SyncAssets reconciles installPath with the asset manifest under a fresh run id.
func (i *Installer) SyncAssets(ctx context.Context, installPath string) (*assets.Report, error) {
	if i.assets == nil {
		return nil, fmt.Errorf("assets: %w", ErrNotConfigured)
	}

	runID := i.newID()
	if i.store != nil {
		run := &storage.SyncRun{
			RunID:       runID,
			ManifestURL: i.manifestURL,
			InstallPath: installPath,
			StartedAt:   i.now(),
			Status:      storage.StatusRunning,
		}
		if err := i.store.StartSyncRun(run); err != nil {
			i.stderr.Warn("failed to record sync run start", "run_id", runID, "error", err)
		}
	}

	report, err := i.assets.Reconcile(ctx, installPath)
	i.finish(runID, report, err)
	if err != nil {
		return report, fmt.Errorf("failed to sync assets (run %s): %w", runID, err)
	}

	i.stdout.Info("assets synced", "run_id", runID, "install_path", installPath)
	return report, nil
}

func (i *Installer) finish(runID string, report *assets.Report, runErr error) {
	if i.store == nil {
		return
	}

	var counts storage.SyncCounts
	if report != nil {
		counts = storage.SyncCounts{
			Removed:    len(report.Removed),
			Missing:    len(report.Missing),
			Downloaded: len(report.Downloaded),
			Ignored:    len(report.Ignored),
		}
	}

	status, msg := storage.StatusSuccess, ""
	if runErr != nil {
		status, msg = storage.StatusFailed, runErr.Error()
	}
	if err := i.store.FinishSyncRun(runID, status, counts, msg); err != nil {
		i.stderr.Warn("failed to record sync run result", "run_id", runID, "error", err)
	}
}
