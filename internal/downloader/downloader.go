// Package downloader transfers files over HTTP with progress notifications,
// bounded-concurrency batches and mirror probing.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"github.com/vfaronov/httpheader"

	"github.com/clean-dependency-project/gamesync/internal/events"
)

const (
	// DefaultTimeout bounds the wait for response headers and for each chunk
	// of the body.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent is sent when Options.UserAgent is empty.
	DefaultUserAgent = "gamesync/1.0"

	sampleInterval = 500 * time.Millisecond
	sampleWindow   = 5
	fallbackName   = "download.bin"
)

// Options configures a Downloader.
type Options struct {
	// Timeout bounds the wait for response headers of a single request and
	// the silence between two chunks of its body.
	Timeout time.Duration
	// UserAgent is a product token such as "gamesync/1.0".
	UserAgent string
	Metrics   *Metrics
	// HTTPClient replaces the default client. Timeout is then not applied to it.
	HTTPClient *http.Client
}

// Downloader fetches files and reports progress to a sink.
type Downloader struct {
	client    *http.Client
	custom    bool
	timeout   time.Duration
	userAgent []httpheader.Product
	metrics   *Metrics
	sink      events.Sink
	stdout    *slog.Logger
	stderr    *slog.Logger

	interval time.Duration
}

// New creates a Downloader. A nil sink discards notifications.
func New(opts Options, sink events.Sink, stdout, stderr *slog.Logger) *Downloader {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	d := &Downloader{
		timeout:   timeout,
		userAgent: parseUserAgent(opts.UserAgent),
		metrics:   opts.Metrics,
		sink:      events.OrDiscard(sink),
		stdout:    stdout,
		stderr:    stderr,
		interval:  sampleInterval,
	}
	if opts.HTTPClient != nil {
		d.client = opts.HTTPClient
		d.custom = true
	} else {
		d.client = newHTTPClient(timeout)
	}
	return d
}

// newHTTPClient builds a client whose timeout covers connection and response
// headers only, so long bodies are not cut off.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}

func (d *Downloader) clientFor(timeout time.Duration) *http.Client {
	if d.custom || timeout <= 0 || timeout == d.timeout {
		return d.client
	}
	return newHTTPClient(timeout)
}

// FetchSingle downloads url into dir. When fileName is empty it is taken from
// the Content-Disposition header, then from the final URL path.
// It returns the number of bytes written.
func (d *Downloader) FetchSingle(ctx context.Context, url, dir, fileName string) (int64, error) {
	dest := func(resp *http.Response) string {
		name := fileName
		if name == "" {
			name = responseFileName(resp)
		}
		return filepath.Join(dir, name)
	}

	var downloaded int64
	return d.transfer(ctx, d.client, d.timeout, url, dest, func(chunk, total int64) {
		downloaded += chunk
		d.sink.Publish(events.Progress{Downloaded: downloaded, Total: total})
	})
}

// transfer streams url into the path chosen by dest. The body is written to
// "<path>.part" and renamed once complete. The request is cancelled with
// ErrStalled when no body data arrives for idle.
func (d *Downloader) transfer(ctx context.Context, client *http.Client, idle time.Duration, url string, dest func(*http.Response) string, onChunk func(n, total int64)) (int64, error) {
	start := time.Now()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	d.stdout.Debug("starting file download", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &TransferError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	d.setHeaders(req)

	d.metrics.begin()
	var written int64
	ok := false
	defer func() { d.metrics.finish(ok, written, time.Since(start)) }()

	resp, err := client.Do(req)
	if err != nil {
		d.stderr.Error("HTTP request failed",
			"url", url,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return 0, &TransferError{URL: url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.stderr.Error("download failed with HTTP error",
			"url", url,
			"status_code", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds())
		return 0, &TransferError{URL: url, StatusCode: resp.StatusCode}
	}

	target := dest(resp)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	part := target + ".part"
	out, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	watchdog := time.AfterFunc(idle, func() {
		cancel(fmt.Errorf("%w: no data for %s", ErrStalled, idle))
	})
	defer watchdog.Stop()
	reader := &ProgressReader{
		Reader: resp.Body,
		Reporter: func(r int64) {
			watchdog.Reset(idle)
			written += r
			onChunk(r, total)
		},
	}

	_, copyErr := io.Copy(out, reader)
	closeErr := out.Close()
	if copyErr != nil && errors.Is(context.Cause(ctx), ErrStalled) {
		copyErr = context.Cause(ctx)
	}
	if copyErr != nil {
		_ = os.Remove(part)
		d.stderr.Error("failed to write downloaded content",
			"url", url,
			"output_path", target,
			"error", copyErr,
			"duration_ms", time.Since(start).Milliseconds())
		return written, &TransferError{URL: url, Err: copyErr}
	}
	if closeErr != nil {
		_ = os.Remove(part)
		return written, fmt.Errorf("failed to write file: %w", closeErr)
	}
	if err := os.Rename(part, target); err != nil {
		_ = os.Remove(part)
		return written, fmt.Errorf("failed to move downloaded file into place: %w", err)
	}

	ok = true
	d.stdout.Debug("file download completed",
		"url", url,
		"output_path", target,
		"size_bytes", written,
		"duration_ms", time.Since(start).Milliseconds())
	return written, nil
}

func (d *Downloader) setHeaders(req *http.Request) {
	httpheader.SetUserAgent(req.Header, d.userAgent)
}

// parseUserAgent turns "name/version" into a product list, adding the host platform as a comment.
// SetUserAgent writes ua to h the way every download request carries it, with
// the platform as a comment. An empty ua uses DefaultUserAgent.
func SetUserAgent(h http.Header, ua string) {
	httpheader.SetUserAgent(h, parseUserAgent(ua))
}

func parseUserAgent(ua string) []httpheader.Product {
	if ua == "" {
		ua = DefaultUserAgent
	}
	name, version, _ := strings.Cut(ua, "/")
	return []httpheader.Product{{
		Name:    name,
		Version: version,
		Comment: goruntime.GOOS + "; " + goruntime.GOARCH,
	}}
}

// responseFileName picks a local name for a response that was fetched without one.
func responseFileName(resp *http.Response) string {
	if _, name, _ := httpheader.ContentDisposition(resp.Header); name != "" {
		if base := filepath.Base(filepath.Clean(name)); base != "." && base != string(filepath.Separator) && base != ".." {
			return base
		}
	}
	if resp.Request != nil && resp.Request.URL != nil {
		if base := path.Base(resp.Request.URL.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	return fallbackName
}

// ProgressReader wraps an io.Reader to provide progress updates
type ProgressReader struct {
	Reader   io.Reader
	Reporter func(r int64)
}

func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.Reader.Read(p)
	if n > 0 {
		pr.Reporter(int64(n))
	}
	return
}
