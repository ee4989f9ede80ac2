// Package github reads runtime releases published on GitHub.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
)

// Sentinel errors for GitHub operations.
var (
	ErrInvalidRepo     = errors.New("repository must be in format 'owner/repo'")
	ErrNilAsset        = errors.New("github release asset cannot be nil")
	ErrReleaseNotFound = errors.New("release not found")
)

// maxTextAsset bounds the size of small text assets such as checksum files.
const maxTextAsset = 64 << 10

// Client wraps the GitHub API client for release lookups on one repository.
type Client struct {
	client     *github.Client
	downloader *http.Client
	owner      string
	repo       string
}

// NewClient creates a GitHub API client for the specified repository.
// An empty token gives an anonymous client, which is enough for public
// releases but subject to lower rate limits. A nil httpClient uses a default
// one and an empty baseURL targets api.github.com.
// Repository must be in the format "owner/repo".
func NewClient(httpClient *http.Client, baseURL, token, repository string) (*Client, error) {
	owner, repo, err := parseRepository(repository)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(httpClient)
	if token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}

	if baseURL != "" {
		// go-github requires a trailing slash on both URLs.
		parsedURL, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("failed to parse base URL: %w", err)
		}
		ghClient.BaseURL = parsedURL
		ghClient.UploadURL = parsedURL
	}

	downloader := httpClient
	if downloader == nil {
		downloader = &http.Client{}
	}

	return &Client{
		client:     ghClient,
		downloader: downloader,
		owner:      owner,
		repo:       repo,
	}, nil
}

// Repository returns the "owner/repo" the client reads from.
func (c *Client) Repository() string {
	return c.owner + "/" + c.repo
}

// LatestRelease returns the most recent non-prerelease release.
// Returns ErrReleaseNotFound if the repository has none.
func (c *Client) LatestRelease(ctx context.Context) (*github.RepositoryRelease, error) {
	release, resp, err := c.client.Repositories.GetLatestRelease(ctx, c.owner, c.repo)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: latest release of %s", ErrReleaseNotFound, c.Repository())
		}
		return nil, fmt.Errorf("failed to get latest release of %s: %w", c.Repository(), err)
	}
	return release, nil
}

// ListReleases returns the first page of releases, newest first.
func (c *Client) ListReleases(ctx context.Context, perPage int) ([]*github.RepositoryRelease, error) {
	releases, _, err := c.client.Repositories.ListReleases(ctx, c.owner, c.repo, &github.ListOptions{PerPage: perPage})
	if err != nil {
		return nil, fmt.Errorf("failed to list releases of %s: %w", c.Repository(), err)
	}
	return releases, nil
}

// DownloadText returns the content of a small text asset, following redirects
// to the storage host.
func (c *Client) DownloadText(ctx context.Context, asset *github.ReleaseAsset) (string, error) {
	if asset == nil {
		return "", ErrNilAsset
	}

	rc, _, err := c.client.Repositories.DownloadReleaseAsset(ctx, c.owner, c.repo, asset.GetID(), c.downloader)
	if err != nil {
		return "", fmt.Errorf("failed to download asset %s: %w", asset.GetName(), err)
	}
	defer func() { _ = rc.Close() }()

	body, err := io.ReadAll(io.LimitReader(rc, maxTextAsset))
	if err != nil {
		return "", fmt.Errorf("failed to read asset %s: %w", asset.GetName(), err)
	}
	return string(body), nil
}

// parseRepository splits a repository string into owner and repo.
// Returns an error if the format is invalid.
func parseRepository(repository string) (owner, repo string, err error) {
	if repository == "" {
		return "", "", ErrInvalidRepo
	}

	parts := strings.Split(repository, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: got %s", ErrInvalidRepo, repository)
	}

	owner = strings.TrimSpace(parts[0])
	repo = strings.TrimSpace(parts[1])

	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("%w: owner or repo is empty", ErrInvalidRepo)
	}

	return owner, repo, nil
}
