// Package endoflife looks up runtime release cycles on endoflife.date.
package endoflife

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/clean-dependency-project/gamesync/internal/version"
)

const (
	DefaultBaseURL   = "https://endoflife.date/api/v1"
	DefaultProduct   = "eclipse-temurin"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "gamesync/1.0"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidResponse = errors.New("invalid API response")
	ErrNetworkError    = errors.New("network error")
	ErrNoLTS           = errors.New("no maintained LTS release")
	ErrCycleNotFound   = errors.New("release cycle not found")
)

// APIError is a failed endoflife.date request. StatusCode is 0 when no
// response was received.
type APIError struct {
	Product    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("endoflife.date request for %q failed: %d %s", e.Product, e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrProductNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrInvalidResponse:
		return e.StatusCode >= 400 && e.StatusCode < 500
	case ErrNetworkError:
		return e.StatusCode == 0 || e.StatusCode >= 500
	}
	return false
}

// ProductInfo is the body of /products/<product>.
type ProductInfo struct {
	Result struct {
		Name     string    `json:"name"`
		Releases []Release `json:"releases"`
	} `json:"result"`
}

// Release is one release cycle as reported by the API.
type Release struct {
	Name         string  `json:"name"`
	IsLTS        bool    `json:"isLts"`
	IsEOL        bool    `json:"isEol"`
	EOLFrom      *string `json:"eolFrom"`
	IsMaintained bool    `json:"isMaintained"`
	Latest       struct {
		Name string `json:"name"`
	} `json:"latest"`
}

// Cycle is the support status of one major version.
type Cycle struct {
	Major        int
	LatestPatch  string
	IsLTS        bool
	IsEOL        bool
	IsMaintained bool
	EOLDate      string
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client. Zero values take the package defaults.
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient Doer
}

// DefaultConfig returns the endoflife.date production settings.
func DefaultConfig() Config {
	return withDefaults(Config{})
}

func withDefaults(cfg Config) Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return cfg
}

// Client queries endoflife.date.
type Client struct {
	config Config
}

// NewClient creates an endoflife.date client.
func NewClient(cfg Config) *Client {
	return &Client{config: withDefaults(cfg)}
}

// GetProductInfo fetches /products/<product>.
func (c *Client) GetProductInfo(ctx context.Context, product string) (*ProductInfo, error) {
	if product == "" {
		return nil, &APIError{StatusCode: http.StatusBadRequest, Message: "empty product name"}
	}

	endpoint, err := url.JoinPath(c.config.BaseURL, "products", product)
	if err != nil {
		return nil, fmt.Errorf("failed to build product URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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
		return nil, &APIError{Product: product, Message: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Product: product, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var info ProductInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrInvalidResponse, product, err)
	}
	return &info, nil
}

// Cycles returns the release cycles of product whose name has a major version.
func (c *Client) Cycles(ctx context.Context, product string) ([]Cycle, error) {
	info, err := c.GetProductInfo(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("failed to get product info for %s: %w", product, err)
	}

	cycles := make([]Cycle, 0, len(info.Result.Releases))
	for _, r := range info.Result.Releases {
		major, err := version.ParseMajor(r.Name)
		if err != nil {
			continue
		}
		cycle := Cycle{
			Major:        major,
			LatestPatch:  r.Latest.Name,
			IsLTS:        r.IsLTS,
			IsEOL:        r.IsEOL,
			IsMaintained: r.IsMaintained,
		}
		if r.EOLFrom != nil {
			cycle.EOLDate = *r.EOLFrom
		}
		cycles = append(cycles, cycle)
	}
	return cycles, nil
}

// LatestLTS returns the highest LTS major version that is still maintained.
func (c *Client) LatestLTS(ctx context.Context, product string) (int, error) {
	cycles, err := c.Cycles(ctx, product)
	if err != nil {
		return 0, err
	}
	best := 0
	for _, cycle := range cycles {
		if cycle.IsLTS && cycle.IsMaintained && !cycle.IsEOL && cycle.Major > best {
			best = cycle.Major
		}
	}
	if best == 0 {
		return 0, fmt.Errorf("%w for %s", ErrNoLTS, product)
	}
	return best, nil
}

// Cycle returns the support status of one major version.
func (c *Client) Cycle(ctx context.Context, product string, major int) (Cycle, error) {
	cycles, err := c.Cycles(ctx, product)
	if err != nil {
		return Cycle{}, err
	}
	for _, cycle := range cycles {
		if cycle.Major == major {
			return cycle, nil
		}
	}
	return Cycle{}, fmt.Errorf("%w: %s %d", ErrCycleNotFound, product, major)
}
