// Package adoptium provides a runtime catalog backed by the Adoptium API
// (https://api.adoptium.net).
package adoptium

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/clean-dependency-project/gamesync/internal/runtime"
)

const (
	// Name identifies this catalog in configuration and install records.
	Name = "adoptium"

	DefaultBaseURL   = "https://api.adoptium.net"
	DefaultUserAgent = "gamesync/1.0"
	DefaultTimeout   = 30 * time.Second
)

var (
	// ErrNotFound indicates the API has no builds for the requested version
	ErrNotFound = errors.New("release not found")

	// ErrInvalidResponse indicates the API response was invalid
	ErrInvalidResponse = errors.New("invalid API response")

	// ErrNetworkError indicates a network-related error
	ErrNetworkError = errors.New("network error")
)

// APIError represents an Adoptium API error
type APIError struct {
	StatusCode int
	Message    string
	Major      int
}

func (e APIError) Error() string {
	return fmt.Sprintf("adoptium API error for version %d: %d %s", e.Major, e.StatusCode, e.Message)
}

func (e APIError) Is(target error) bool {
	if target == ErrNotFound && e.StatusCode == http.StatusNotFound {
		return true
	}
	if target == ErrInvalidResponse && e.StatusCode >= 400 && e.StatusCode < 500 {
		return true
	}
	if target == ErrNetworkError && (e.StatusCode == 0 || e.StatusCode >= 500) {
		return true
	}
	return false
}

// Asset is one entry of /v3/assets/latest/<major>/hotspot.
type Asset struct {
	Binary      Binary `json:"binary"`
	ReleaseName string `json:"release_name"`
	Vendor      string `json:"vendor"`
}

// Binary describes a build.
type Binary struct {
	Architecture string  `json:"architecture"`
	ImageType    string  `json:"image_type"`
	OS           string  `json:"os"`
	JVMImpl      string  `json:"jvm_impl"`
	Package      Package `json:"package"`
}

// Package is the downloadable archive of a build.
type Package struct {
	Checksum string `json:"checksum"`
	Link     string `json:"link"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
}

// HTTPClient defines the interface for HTTP operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds configuration for the Adoptium client
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient HTTPClient
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// Client queries the Adoptium assets API and implements runtime.Catalog.
type Client struct {
	config Config
}

var _ runtime.Catalog = (*Client)(nil)

// NewClient creates a new Adoptium API client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: config.Timeout,
		}
	}
	return &Client{config: config}
}

// Name returns the catalog name.
func (c *Client) Name() string {
	return Name
}

// LatestAssets returns the latest hotspot builds of a major version for every platform.
func (c *Client) LatestAssets(ctx context.Context, major int) ([]Asset, error) {
	if major <= 0 {
		return nil, APIError{StatusCode: http.StatusBadRequest, Message: "major version must be positive", Major: major}
	}

	apiURL, err := url.JoinPath(c.config.BaseURL, "v3", "assets", "latest", strconv.Itoa(major), "hotspot")
	if err != nil {
		return nil, fmt.Errorf("failed to construct API URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, APIError{StatusCode: 0, Message: err.Error(), Major: major}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, APIError{StatusCode: resp.StatusCode, Message: resp.Status, Major: major}
	}

	var assets []Asset
	if err := json.NewDecoder(resp.Body).Decode(&assets); err != nil {
		return nil, fmt.Errorf("%w: failed to decode assets for version %d: %v", ErrInvalidResponse, major, err)
	}
	return assets, nil
}

// Artifacts implements runtime.Catalog. Every platform is returned; builds of
// other image types are dropped.
func (c *Client) Artifacts(ctx context.Context, q runtime.Query) ([]runtime.ArtifactDescriptor, error) {
	assets, err := c.LatestAssets(ctx, q.Major)
	if err != nil {
		return nil, err
	}

	out := make([]runtime.ArtifactDescriptor, 0, len(assets))
	for _, a := range assets {
		if q.ImageType != "" && a.Binary.ImageType != q.ImageType {
			continue
		}
		out = append(out, a.Descriptor())
	}
	return out, nil
}

// Descriptor converts the asset into a runtime artifact.
func (a Asset) Descriptor() runtime.ArtifactDescriptor {
	return runtime.ArtifactDescriptor{
		OS:          a.Binary.OS,
		Arch:        a.Binary.Architecture,
		ImageType:   a.Binary.ImageType,
		URL:         a.Binary.Package.Link,
		Checksum:    a.Binary.Package.Checksum,
		ArchiveName: a.Binary.Package.Name,
		Size:        a.Binary.Package.Size,
		Version:     a.ReleaseName,
		Source:      Name,
	}
}
