// Package assets converges an install directory with a remote manifest of
// path, url and hash triples.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/clean-dependency-project/gamesync/internal/downloader"
)

// maxManifestSize bounds the manifest body.
const maxManifestSize = 32 << 20

// ErrManifest is matched by every ManifestError.
var ErrManifest = errors.New("invalid asset manifest")

// ManifestError reports a manifest that cannot be applied. Index is -1 when
// the document as a whole is invalid.
type ManifestError struct {
	Index  int
	Reason string
}

func (e *ManifestError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid asset manifest: %s", e.Reason)
	}
	return fmt.Sprintf("invalid asset manifest entry %d: %s", e.Index, e.Reason)
}

func (e *ManifestError) Is(target error) bool {
	return target == ErrManifest
}

// RemoteFileEntry is one file the install directory must contain.
type RemoteFileEntry struct {
	// Path is relative to the install directory and uses forward slashes.
	Path string `json:"path"`
	URL  string `json:"url"`
	// Hash is the hex SHA-256 of the file.
	Hash string `json:"hash"`
}

// Target returns the local location of the entry below root.
func (e RemoteFileEntry) Target(root string) string {
	return filepath.Join(root, filepath.FromSlash(e.Path))
}

// Validate checks every entry before anything touches the filesystem.
func Validate(entries []RemoteFileEntry) error {
	for i, e := range entries {
		switch {
		case e.Path == "":
			return &ManifestError{Index: i, Reason: "missing path"}
		case !filepath.IsLocal(filepath.FromSlash(e.Path)):
			return &ManifestError{Index: i, Reason: fmt.Sprintf("path %q escapes the install directory", e.Path)}
		case e.Hash == "":
			return &ManifestError{Index: i, Reason: fmt.Sprintf("missing hash for %s", e.Path)}
		case e.URL == "":
			return &ManifestError{Index: i, Reason: fmt.Sprintf("missing url for %s", e.Path)}
		}
	}
	return nil
}

// FetchManifest downloads and decodes the manifest at url. An empty userAgent
// sends downloader.DefaultUserAgent.
func FetchManifest(ctx context.Context, client *http.Client, url, userAgent string) ([]RemoteFileEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	downloader.SetUserAgent(req.Header, userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &downloader.TransferError{URL: url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &downloader.TransferError{URL: url, StatusCode: resp.StatusCode}
	}

	var entries []RemoteFileEntry
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxManifestSize)).Decode(&entries); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ManifestError{Index: -1, Reason: err.Error()}
	}
	return entries, nil
}
