// Package testutil provides HTTP fixtures and archive builders shared by package tests.
package testutil

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// FileServer is a configurable HTTP test server that serves in-memory files.
type FileServer struct {
	Server *httptest.Server
	URL    string

	// Tracking
	RequestCount   atomic.Int64
	ActiveRequests atomic.Int64
	MaxActive      atomic.Int64

	mu         sync.RWMutex
	files      map[string][]byte
	statuses   map[string]int
	redirects  map[string]string
	perPath    map[string]int
	latency    time.Duration
	pathDelays map[string]time.Duration
}

// Option configures a FileServer.
type Option func(*FileServer)

// WithFile serves data at path.
func WithFile(path string, data []byte) Option {
	return func(s *FileServer) {
		s.files[normalize(path)] = data
	}
}

// WithStatus makes path answer with the given status code and no body.
func WithStatus(path string, code int) Option {
	return func(s *FileServer) {
		s.statuses[normalize(path)] = code
	}
}

// WithRedirect answers requests for from with a 302 to to.
func WithRedirect(from, to string) Option {
	return func(s *FileServer) {
		s.redirects[normalize(from)] = to
	}
}

// WithLatency delays every response.
func WithLatency(d time.Duration) Option {
	return func(s *FileServer) {
		s.latency = d
	}
}

// WithPathLatency delays responses for a single path.
func WithPathLatency(path string, d time.Duration) Option {
	return func(s *FileServer) {
		s.pathDelays[normalize(path)] = d
	}
}

// NewFileServer starts a server that is closed when the test ends.
func NewFileServer(t testing.TB, opts ...Option) *FileServer {
	t.Helper()

	s := &FileServer{
		files:      make(map[string][]byte),
		statuses:   make(map[string]int),
		redirects:  make(map[string]string),
		perPath:    make(map[string]int),
		pathDelays: make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Server = NewHTTPServerT(t, http.HandlerFunc(s.handle))
	s.URL = s.Server.URL
	return s
}

// NewHTTPServerT starts an httptest server on an IPv4 loopback listener and
// registers its shutdown with t.
func NewHTTPServerT(t testing.TB, handler http.Handler) *httptest.Server {
	t.Helper()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	srv := httptest.NewUnstartedServer(handler)
	_ = srv.Listener.Close()
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

// URLFor returns the absolute URL of path on this server.
func (s *FileServer) URLFor(path string) string {
	return s.URL + normalize(path)
}

// SetFile replaces the content served at path.
func (s *FileServer) SetFile(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[normalize(path)] = data
	delete(s.statuses, normalize(path))
}

// SetStatus makes path answer with code.
func (s *FileServer) SetStatus(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[normalize(path)] = code
}

// Requests returns how many requests reached path.
func (s *FileServer) Requests(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.perPath[normalize(path)]
}

func (s *FileServer) handle(w http.ResponseWriter, r *http.Request) {
	s.RequestCount.Add(1)
	cur := s.ActiveRequests.Add(1)
	defer s.ActiveRequests.Add(-1)
	for {
		peak := s.MaxActive.Load()
		if cur <= peak || s.MaxActive.CompareAndSwap(peak, cur) {
			break
		}
	}

	p := normalize(r.URL.Path)

	s.mu.Lock()
	s.perPath[p]++
	delay := s.latency + s.pathDelays[p]
	redirect, isRedirect := s.redirects[p]
	status, hasStatus := s.statuses[p]
	data, hasFile := s.files[p]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	switch {
	case isRedirect:
		http.Redirect(w, r, redirect, http.StatusFound)
		return
	case hasStatus:
		w.WriteHeader(status)
		return
	case !hasFile:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	_, _ = w.Write(data)
}

func normalize(path string) string {
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

// DiscardLoggers returns a stdout/stderr logger pair that writes nowhere.
func DiscardLoggers() (*slog.Logger, *slog.Logger) {
	return slog.New(slog.NewJSONHandler(io.Discard, nil)), slog.New(slog.NewJSONHandler(io.Discard, nil))
}
