package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/go-github/v57/github"

	"github.com/clean-dependency-project/gamesync/internal/runtime"
	"github.com/clean-dependency-project/gamesync/internal/version"
)

const (
	// CatalogName identifies release-backed builds in logs and install records.
	CatalogName = "github"
	// DefaultRepositoryTemplate is formatted with the major version.
	DefaultRepositoryTemplate = "adoptium/temurin%d-binaries"

	checksumSuffix = ".sha256.txt"
	listPageSize   = 30
)

// ErrMajorMismatch is returned when the newest release does not belong to the requested major version.
var ErrMajorMismatch = errors.New("release does not match requested major version")

// assetPattern matches Temurin archive names such as
// OpenJDK17U-jdk_x64_linux_hotspot_17.0.8_7.tar.gz.
var assetPattern = regexp.MustCompile(`^OpenJDK(\d+)U-(jdk|jre)_([a-z0-9-]+)_([a-z]+)_hotspot_(.+)\.(tar\.gz|zip)$`)

// AssetName is a parsed Temurin archive name.
type AssetName struct {
	Major     int
	ImageType string
	Arch      string
	OS        string
	Version   string
	Ext       string
}

// ParseAssetName parses a Temurin archive name. Checksum files, installers and
// other image types report false.
func ParseAssetName(name string) (AssetName, bool) {
	m := assetPattern.FindStringSubmatch(name)
	if m == nil {
		return AssetName{}, false
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return AssetName{}, false
	}
	arch := m[3]
	if arch == "x86-32" {
		arch = "x32"
	}
	return AssetName{
		Major:     major,
		ImageType: m[2],
		Arch:      arch,
		OS:        m[4],
		Version:   m[5],
		Ext:       m[6],
	}, true
}

// CatalogConfig configures a Catalog.
type CatalogConfig struct {
	// RepositoryTemplate is formatted with the major version, e.g. "adoptium/temurin%d-binaries".
	RepositoryTemplate string
	Token              string
	// BaseURL overrides the GitHub API endpoint.
	BaseURL    string
	HTTPClient *http.Client
}

// Catalog resolves runtime builds from GitHub release assets.
type Catalog struct {
	config CatalogConfig
	stderr *slog.Logger
}

// NewCatalog creates a release catalog. An empty template uses DefaultRepositoryTemplate.
func NewCatalog(config CatalogConfig, stderr *slog.Logger) *Catalog {
	if config.RepositoryTemplate == "" {
		config.RepositoryTemplate = DefaultRepositoryTemplate
	}
	return &Catalog{config: config, stderr: stderr}
}

// Name implements runtime.Catalog.
func (c *Catalog) Name() string {
	return CatalogName
}

// Artifacts implements runtime.Catalog. Only builds matching the query's
// platform are returned when it names one, which keeps checksum lookups to a minimum.
func (c *Catalog) Artifacts(ctx context.Context, q runtime.Query) ([]runtime.ArtifactDescriptor, error) {
	if q.Major <= 0 {
		return nil, fmt.Errorf("invalid major version %d", q.Major)
	}

	client, err := NewClient(c.config.HTTPClient, c.config.BaseURL, c.config.Token, fmt.Sprintf(c.config.RepositoryTemplate, q.Major))
	if err != nil {
		return nil, err
	}

	release, err := c.release(ctx, client)
	if err != nil {
		return nil, err
	}

	tag := release.GetTagName()
	major, err := version.ParseMajor(tag)
	if err != nil {
		return nil, fmt.Errorf("failed to parse release tag %s: %w", tag, err)
	}
	if major != q.Major {
		return nil, fmt.Errorf("%w: %s is not %d", ErrMajorMismatch, tag, q.Major)
	}

	byName := make(map[string]*github.ReleaseAsset, len(release.Assets))
	for _, a := range release.Assets {
		byName[a.GetName()] = a
	}

	var out []runtime.ArtifactDescriptor
	for _, a := range release.Assets {
		parsed, ok := ParseAssetName(a.GetName())
		if !ok || !matches(parsed, q) {
			continue
		}

		sumAsset, ok := byName[a.GetName()+checksumSuffix]
		if !ok {
			c.stderr.Warn("skipping release asset without checksum", "asset", a.GetName(), "release", tag)
			continue
		}
		text, err := client.DownloadText(ctx, sumAsset)
		if err != nil {
			return nil, err
		}
		sum, err := parseChecksum(text)
		if err != nil {
			return nil, fmt.Errorf("failed to read checksum for %s: %w", a.GetName(), err)
		}

		out = append(out, runtime.ArtifactDescriptor{
			OS:          parsed.OS,
			Arch:        parsed.Arch,
			ImageType:   parsed.ImageType,
			URL:         a.GetBrowserDownloadURL(),
			Checksum:    sum,
			ArchiveName: a.GetName(),
			Size:        int64(a.GetSize()),
			Version:     tag,
			Source:      CatalogName,
		})
	}

	return out, nil
}

// release returns the latest release, falling back to the highest tag on the
// first page when the repository marks none as latest.
func (c *Catalog) release(ctx context.Context, client *Client) (*github.RepositoryRelease, error) {
	latest, err := client.LatestRelease(ctx)
	if err == nil {
		return latest, nil
	}
	if !errors.Is(err, ErrReleaseNotFound) {
		return nil, err
	}

	releases, err := client.ListReleases(ctx, listPageSize)
	if err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(releases))
	byTag := make(map[string]*github.RepositoryRelease, len(releases))
	for _, r := range releases {
		if r.GetDraft() {
			continue
		}
		tags = append(tags, r.GetTagName())
		byTag[r.GetTagName()] = r
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: %s has no releases", ErrReleaseNotFound, client.Repository())
	}

	tag, err := version.Latest(tags)
	if err != nil {
		return nil, fmt.Errorf("%w: no parsable release tag in %s", ErrReleaseNotFound, client.Repository())
	}
	return byTag[tag], nil
}

func matches(a AssetName, q runtime.Query) bool {
	if q.ImageType != "" && a.ImageType != q.ImageType {
		return false
	}
	if q.OS != "" && a.OS != q.OS {
		return false
	}
	if q.Arch != "" && a.Arch != q.Arch {
		return false
	}
	return true
}

// parseChecksum reads the first field of a "<hex>  <name>" line.
func parseChecksum(text string) (string, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty checksum file")
	}
	sum := strings.ToLower(fields[0])
	if len(sum) != 64 {
		return "", fmt.Errorf("malformed checksum %q", fields[0])
	}
	for _, r := range sum {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return "", fmt.Errorf("malformed checksum %q", fields[0])
		}
	}
	return sum, nil
}
