package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/clean-dependency-project/gamesync/internal/config"
	"github.com/clean-dependency-project/gamesync/internal/downloader"
	"github.com/clean-dependency-project/gamesync/internal/events"
	"github.com/clean-dependency-project/gamesync/internal/hashing"
)

// DefaultManifestTimeout bounds the manifest request when Options.HTTPClient is nil.
const DefaultManifestTimeout = 30 * time.Second

// ErrNotRegular is returned when a manifest path exists locally but is not a
// regular file.
var ErrNotRegular = errors.New("asset path is not a regular file")

// Fetcher transfers single files and finds mirrors for them.
type Fetcher interface {
	FetchSingle(ctx context.Context, url, dir, fileName string) (int64, error)
	ProbeMirrors(ctx context.Context, relativePath string, mirrors []string) (*downloader.MirrorResult, error)
}

// Options configures a Reconciler.
type Options struct {
	ManifestURL string
	// Ignore lists paths that are never deleted. Ignored paths are still
	// downloaded when absent.
	Ignore config.IgnoreList
	// Mirrors are base URLs tried in order when an entry's own URL fails.
	Mirrors    []string
	UserAgent  string
	HTTPClient *http.Client
}

// Report lists the relative paths touched by a run.
type Report struct {
	Removed    []string `json:"removed"`
	Missing    []string `json:"missing"`
	Downloaded []string `json:"downloaded"`
	Ignored    []string `json:"ignored"`
}

// Reconciler converges an install directory with the remote manifest.
type Reconciler struct {
	fetcher Fetcher
	opts    Options
	client  *http.Client
	sink    events.Sink
	stdout  *slog.Logger
	stderr  *slog.Logger
}

// NewReconciler creates a Reconciler. A nil sink discards notifications.
func NewReconciler(fetcher Fetcher, sink events.Sink, stdout, stderr *slog.Logger, opts Options) *Reconciler {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultManifestTimeout}
	}
	return &Reconciler{
		fetcher: fetcher,
		opts:    opts,
		client:  client,
		sink:    events.OrDiscard(sink),
		stdout:  stdout,
		stderr:  stderr,
	}
}

// Reconcile deletes files whose hash differs from the manifest, then downloads
// every file that is absent. Files not named by the manifest are left alone.
func (r *Reconciler) Reconcile(ctx context.Context, installPath string) (*Report, error) {
	r.sink.Publish(events.Started{Workflow: events.WorkflowAssets})

	report, err := r.reconcile(ctx, installPath)
	if err != nil {
		r.stderr.Error("asset sync failed", "install_path", installPath, "error", err)
		r.sink.Publish(events.Error{URL: r.opts.ManifestURL, Err: err})
		return report, err
	}

	r.stdout.Info("asset sync finished",
		"install_path", installPath,
		"removed", len(report.Removed),
		"downloaded", len(report.Downloaded),
		"ignored", len(report.Ignored))
	r.sink.Publish(events.Finished{Workflow: events.WorkflowAssets})
	return report, nil
}

func (r *Reconciler) reconcile(ctx context.Context, installPath string) (*Report, error) {
	report := &Report{}

	if r.opts.ManifestURL == "" {
		return report, fmt.Errorf("manifest URL cannot be empty")
	}

	r.stdout.Debug("fetching asset manifest", "url", r.opts.ManifestURL)
	entries, err := FetchManifest(ctx, r.client, r.opts.ManifestURL, r.opts.UserAgent)
	if err != nil {
		return report, err
	}
	if err := Validate(entries); err != nil {
		return report, err
	}
	r.stdout.Debug("asset manifest loaded", "entries", len(entries))

	// Deletion runs to completion before discovery so a stale file is never
	// counted as present.
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if r.opts.Ignore.Match(e.Path) {
			report.Ignored = append(report.Ignored, e.Path)
			r.sink.Publish(events.Ignored{Path: e.Path})
			continue
		}

		target := e.Target(installPath)
		exists, err := regularFile(target, e.Path)
		if err != nil {
			return report, err
		}
		if !exists {
			continue
		}
		sum, err := hashing.File(target)
		if err != nil {
			return report, fmt.Errorf("failed to hash %s: %w", e.Path, err)
		}
		if hashing.Equal(sum, e.Hash) {
			continue
		}
		if err := os.Remove(target); err != nil {
			return report, fmt.Errorf("failed to remove stale file %s: %w", e.Path, err)
		}
		r.stdout.Debug("removed stale asset", "path", e.Path, "expected", e.Hash, "actual", sum)
		report.Removed = append(report.Removed, e.Path)
		r.sink.Publish(events.Removed{Path: e.Path})
	}

	var queue []RemoteFileEntry
	for _, e := range entries {
		exists, err := regularFile(e.Target(installPath), e.Path)
		if err != nil {
			return report, err
		}
		if exists {
			continue
		}
		queue = append(queue, e)
		report.Missing = append(report.Missing, e.Path)
		r.sink.Publish(events.Missing{Path: e.Path})
	}

	for i, e := range queue {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := r.download(ctx, installPath, e); err != nil {
			return report, err
		}
		report.Downloaded = append(report.Downloaded, e.Path)
		r.sink.Publish(events.FileProgress{Current: i + 1, Total: len(queue)})
	}

	return report, nil
}

// download fetches one entry, falling back to the first mirror that answers a
// probe, and verifies the result.
func (r *Reconciler) download(ctx context.Context, installPath string, e RemoteFileEntry) error {
	target := e.Target(installPath)
	dir, name := filepath.Dir(target), filepath.Base(target)

	_, err := r.fetcher.FetchSingle(ctx, e.URL, dir, name)
	if err != nil && len(r.opts.Mirrors) > 0 && ctx.Err() == nil {
		r.stderr.Warn("asset download failed, probing mirrors", "path", e.Path, "url", e.URL, "error", err)
		mirror, probeErr := r.fetcher.ProbeMirrors(ctx, e.Path, r.opts.Mirrors)
		if probeErr != nil {
			return fmt.Errorf("failed to download %s: %w", e.Path, errors.Join(err, probeErr))
		}
		_, err = r.fetcher.FetchSingle(ctx, mirror.URL, dir, name)
	}
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", e.Path, err)
	}

	if err := hashing.Verify(target, e.Hash); err != nil {
		_ = os.Remove(target)
		var mismatch *hashing.ChecksumError
		if errors.As(err, &mismatch) {
			mismatch.Path = e.Path
			return mismatch
		}
		return fmt.Errorf("failed to verify %s: %w", e.Path, err)
	}
	return nil
}

// regularFile reports whether a file exists at path. Anything else standing
// at the path is an error because a download could never replace it.
func regularFile(path, rel string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to stat %s: %w", rel, err)
	case !info.Mode().IsRegular():
		return false, fmt.Errorf("%w: %s is a %s", ErrNotRegular, rel, describeMode(info.Mode()))
	}
	return true, nil
}

func describeMode(m fs.FileMode) string {
	if m.IsDir() {
		return "directory"
	}
	return "special file"
}
