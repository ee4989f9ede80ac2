package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/clean-dependency-project/gamesync/internal/archive"
	"github.com/clean-dependency-project/gamesync/internal/events"
	"github.com/clean-dependency-project/gamesync/internal/hashing"
	"github.com/clean-dependency-project/gamesync/internal/platform"
)

const (
	// DefaultImageType is requested when Request.ImageType is empty.
	DefaultImageType = "jdk"
	// DefaultMajorVersion is requested when Request.MajorVersion is zero.
	DefaultMajorVersion = 11
	// DefaultExecutable is the runtime binary looked up below the install dir.
	DefaultExecutable = "java"
)

// Workflow states, logged on every transition.
const (
	stateChecking          = "checking"
	stateResolving         = "resolving"
	stateResolved          = "resolved"
	stateVerifyingLocal    = "verifying-local"
	stateDownloading       = "downloading"
	stateVerifyingDownload = "verifying-download"
	stateExtracting        = "extracting"
	stateNormalizing       = "normalizing"
	statePermissions       = "permissions"
	stateReady             = "ready"
	stateFatal             = "fatal"
)

// Fetcher downloads a single file into dir.
type Fetcher interface {
	FetchSingle(ctx context.Context, url, dir, fileName string) (int64, error)
}

// Request selects the runtime to install.
type Request struct {
	InstallRoot  string
	MajorVersion int
	ImageType    string
	// Platform defaults to the host platform.
	Platform platform.Platform
}

// Result describes an installed runtime.
type Result struct {
	// Path is the runtime executable.
	Path       string
	InstallDir string
	// Installed is false when an existing install was reused.
	Installed  bool
	Descriptor *ArtifactDescriptor
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithExecutable overrides the executable name looked up below the install dir.
func WithExecutable(name string) Option {
	return func(a *Acquirer) {
		if name != "" {
			a.executable = name
		}
	}
}

// Acquirer installs runtimes into an install root.
type Acquirer struct {
	catalogs   *Registry
	fetcher    Fetcher
	sink       events.Sink
	executable string
	stdout     *slog.Logger
	stderr     *slog.Logger
}

// NewAcquirer creates an Acquirer. A nil sink discards notifications.
func NewAcquirer(catalogs *Registry, fetcher Fetcher, sink events.Sink, stdout, stderr *slog.Logger, opts ...Option) *Acquirer {
	a := &Acquirer{
		catalogs:   catalogs,
		fetcher:    fetcher,
		sink:       events.OrDiscard(sink),
		executable: DefaultExecutable,
		stdout:     stdout,
		stderr:     stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ensure returns the path of the requested runtime's executable, installing it first when missing.
func (a *Acquirer) Ensure(ctx context.Context, req Request) (*Result, error) {
	req = withDefaults(req)

	a.sink.Publish(events.Started{Workflow: events.WorkflowRuntime})

	res, err := a.ensure(ctx, req)
	if err != nil {
		a.transition(stateFatal, "error", err)
		a.sink.Publish(events.Error{Err: err})
		return nil, err
	}

	a.transition(stateReady, "path", res.Path, "installed", res.Installed)
	a.sink.Publish(events.Finished{Workflow: events.WorkflowRuntime})
	return res, nil
}

func withDefaults(req Request) Request {
	if req.ImageType == "" {
		req.ImageType = DefaultImageType
	}
	if req.MajorVersion == 0 {
		req.MajorVersion = DefaultMajorVersion
	}
	if req.Platform.OS == "" {
		req.Platform = platform.CurrentPlatform()
	}
	return req
}

func (a *Acquirer) ensure(ctx context.Context, req Request) (*Result, error) {
	installDir := InstallDir(req.InstallRoot, req.ImageType, req.MajorVersion)
	exe := req.Platform.ExecutablePath(installDir, a.executable)

	a.transition(stateChecking, "path", exe)
	if fileExists(exe) {
		a.stdout.Info("runtime already installed", "path", exe)
		return &Result{Path: exe, InstallDir: installDir}, nil
	}

	a.transition(stateResolving,
		"major_version", req.MajorVersion,
		"image_type", req.ImageType,
		"os", req.Platform.OS,
		"arch", req.Platform.Arch)
	desc, err := a.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	a.transition(stateResolved, "version", desc.Version, "source", desc.Source, "url", desc.URL)
	if dirExists(installDir) {
		a.stdout.Info("removing incomplete runtime install", "install_dir", installDir)
		if err := os.RemoveAll(installDir); err != nil {
			return nil, fmt.Errorf("failed to remove stale install directory: %w", err)
		}
	}

	archivePath := filepath.Join(installDir, desc.ArchiveName)

	a.transition(stateVerifyingLocal, "archive", archivePath)
	if fileExists(archivePath) {
		if err := hashing.Verify(archivePath, desc.Checksum); err != nil {
			a.stderr.Warn("discarding corrupt runtime archive", "archive", archivePath, "error", err)
			_ = os.Remove(archivePath)
			if err := os.RemoveAll(installDir); err != nil {
				return nil, fmt.Errorf("failed to remove install directory: %w", err)
			}
		}
	}

	if !fileExists(archivePath) {
		a.transition(stateDownloading, "url", desc.URL)
		if err := os.MkdirAll(installDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create install directory: %w", err)
		}
		a.sink.Publish(events.DownloadStarted{URL: desc.URL})
		n, err := a.fetcher.FetchSingle(ctx, desc.URL, installDir, desc.ArchiveName)
		if err != nil {
			a.stderr.Error("runtime download failed", "url", desc.URL, "error", err)
			return nil, fmt.Errorf("failed to download runtime archive: %w", err)
		}
		a.sink.Publish(events.DownloadFinished{URL: desc.URL, Bytes: n})
	}

	a.transition(stateVerifyingDownload, "archive", archivePath)
	if err := hashing.Verify(archivePath, desc.Checksum); err != nil {
		a.stderr.Error("runtime archive verification failed", "archive", archivePath, "error", err)
		var mismatch *hashing.ChecksumError
		if errors.As(err, &mismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to verify runtime archive: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.transition(stateExtracting, "archive", archivePath)
	if err := a.extract(ctx, archivePath, installDir, desc.ArchiveName); err != nil {
		return nil, err
	}
	if err := os.Remove(archivePath); err != nil {
		return nil, fmt.Errorf("failed to remove runtime archive: %w", err)
	}

	a.transition(stateNormalizing, "install_dir", installDir)
	hoisted, err := Normalize(installDir)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize runtime layout: %w", err)
	}
	if hoisted {
		a.stdout.Debug("hoisted wrapping directory", "install_dir", installDir)
	}

	if !fileExists(exe) {
		return nil, fmt.Errorf("%w: %s", ErrExecutableMissing, exe)
	}

	a.transition(statePermissions, "path", exe)
	if !req.Platform.IsWindows() {
		if err := os.Chmod(exe, 0755); err != nil {
			return nil, fmt.Errorf("failed to make runtime executable: %w", err)
		}
	}

	return &Result{Path: exe, InstallDir: installDir, Installed: true, Descriptor: &desc}, nil
}

// resolve queries catalogs in registry order. A catalog that fails is skipped;
// the first one that answers decides.
func (a *Acquirer) resolve(ctx context.Context, req Request) (ArtifactDescriptor, error) {
	names := a.catalogs.List()
	if len(names) == 0 {
		return ArtifactDescriptor{}, ErrNoCatalogs
	}
	a.stdout.Debug("resolving runtime build", "catalogs", names, "major", req.MajorVersion)

	var errs []error
	for _, name := range names {
		c, err := a.catalogs.Get(name)
		if err != nil {
			return ArtifactDescriptor{}, err
		}
		candidates, err := c.Artifacts(ctx, Query{
			Major:     req.MajorVersion,
			ImageType: req.ImageType,
			OS:        req.Platform.OS,
			Arch:      req.Platform.Arch,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ArtifactDescriptor{}, ctx.Err()
			}
			a.stderr.Warn("runtime catalog unavailable", "catalog", c.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
			continue
		}

		desc, matches := Select(candidates, req.Platform.OS, req.Platform.Arch, req.ImageType)
		if matches == 0 {
			return ArtifactDescriptor{}, &ResolutionError{
				OS:        req.Platform.OS,
				Arch:      req.Platform.Arch,
				ImageType: req.ImageType,
				Major:     req.MajorVersion,
			}
		}
		if matches > 1 {
			a.stderr.Warn("several runtime builds match, using the first",
				"catalog", c.Name(),
				"matches", matches,
				"archive", desc.ArchiveName)
		}
		if desc.Source == "" {
			desc.Source = c.Name()
		}
		return desc, nil
	}

	return ArtifactDescriptor{}, fmt.Errorf("failed to query runtime catalogs: %w", errors.Join(errs...))
}

func (a *Acquirer) extract(ctx context.Context, archivePath, installDir, name string) error {
	a.sink.Publish(events.DecompressStarted{Archive: name})

	entries, err := archive.Extract(ctx, archivePath, installDir, func(n, total int) {
		percent := -1
		if total > 0 {
			percent = n * 100 / total
		}
		a.sink.Publish(events.DecompressProgress{Entries: n, Total: total, Percent: percent})
	})
	if err != nil {
		a.stderr.Error("runtime extraction failed", "archive", archivePath, "error", err)
		return err
	}

	a.sink.Publish(events.DecompressFinished{Archive: name, Entries: entries})
	a.stdout.Debug("runtime archive extracted", "archive", archivePath, "entries", entries)
	return nil
}

func (a *Acquirer) transition(state string, args ...any) {
	a.stdout.Debug("runtime state", append([]any{"state", state}, args...)...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
