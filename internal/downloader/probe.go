package downloader

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/clean-dependency-project/gamesync/internal/events"
)

// ProbeResult describes a reachable resource. Size is -1 when the server
// does not send Content-Length.
type ProbeResult struct {
	Size   int64
	Status int
}

// MirrorResult is the first mirror that answered a probe.
type MirrorResult struct {
	URL    string
	Size   int64
	Status int
}

// Probe issues a HEAD request. Only 200 counts as reachable.
func (d *Downloader) Probe(ctx context.Context, url string, timeout time.Duration) (*ProbeResult, error) {
	if timeout <= 0 {
		timeout = d.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, &TransferError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	d.setHeaders(req)

	resp, err := d.client.Do(req)
	if err != nil {
		d.sink.Publish(events.Error{URL: url, Err: err})
		return nil, &TransferError{URL: url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransferError{URL: url, StatusCode: resp.StatusCode}
	}
	return &ProbeResult{Size: resp.ContentLength, Status: resp.StatusCode}, nil
}

// ProbeMirrors tries "<mirror>/<relativePath>" for each mirror in order and
// returns the first that answers.
func (d *Downloader) ProbeMirrors(ctx context.Context, relativePath string, mirrors []string) (*MirrorResult, error) {
	for _, mirror := range mirrors {
		url := MirrorURL(mirror, relativePath)
		res, err := d.Probe(ctx, url, d.timeout)
		if err == nil {
			d.stdout.Debug("mirror selected", "url", url, "size_bytes", res.Size)
			return &MirrorResult{URL: url, Size: res.Size, Status: res.Status}, nil
		}
		d.stdout.Debug("mirror probe failed", "url", url, "error", err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrNoMirror, relativePath)
}

// MirrorURL joins a mirror base URL and a relative path with a single slash.
func MirrorURL(mirror, relativePath string) string {
	return strings.TrimRight(mirror, "/") + "/" + strings.TrimLeft(relativePath, "/")
}
