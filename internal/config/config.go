// Package config provides configuration management for gamesync.
// It handles the YAML configuration of the runtime catalogs, the asset
// manifest and the download settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clean-dependency-project/gamesync/internal/platform"
	"github.com/clean-dependency-project/gamesync/internal/version"
)

// Defaults applied by DefaultConfig and the accessors.
const (
	DefaultInstallPath        = "./game"
	DefaultDownloadTimeout    = 10 * time.Second
	DefaultConcurrency        = 5
	DefaultUserAgent          = "gamesync/1.0"
	DefaultDatabasePath       = "gamesync.db"
	DefaultImageType          = "jdk"
	DefaultMajorVersion       = "11"
	DefaultExecutable         = "java"
	DefaultAdoptiumURL        = "https://api.adoptium.net"
	DefaultRepositoryTemplate = "adoptium/temurin%d-binaries"
	DefaultTokenEnv           = "GITHUB_TOKEN"
	DefaultLifecycleURL       = "https://endoflife.date/api/v1"
	DefaultLifecycleProduct   = "eclipse-temurin"
)

// MajorVersionLTS selects the newest maintained LTS release as major_version.
const MajorVersionLTS = "lts"

// Catalog names accepted in runtime.catalogs.
const (
	CatalogAdoptium = "adoptium"
	CatalogGitHub   = "github"
)

// Sentinel errors for configuration validation
var (
	ErrVersionRequired     = errors.New("version is required")
	ErrInstallPathRequired = errors.New("install_path is required")
	ErrImageTypeRequired   = errors.New("runtime image_type is required")
	ErrUnknownCatalog      = errors.New("unknown runtime catalog")
	ErrConcurrencyInvalid  = errors.New("concurrency must not be negative")
)

// Config represents the top-level configuration structure.
type Config struct {
	Version  string        `yaml:"version"`
	Metadata Metadata      `yaml:"metadata"`
	Config   GlobalConfig  `yaml:"config"`
	Runtime  RuntimeConfig `yaml:"runtime"`
	Assets   AssetsConfig  `yaml:"assets"`
}

// Metadata represents metadata about the configuration.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// StorageConfig represents storage configuration for install and sync history.
// An empty database path disables history.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// MetricsConfig controls the prometheus textfile written after each command.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// GlobalConfig represents global configuration settings.
type GlobalConfig struct {
	InstallPath     string        `yaml:"install_path"`
	DownloadTimeout string        `yaml:"download_timeout"`
	Concurrency     int           `yaml:"concurrency"`
	UserAgent       string        `yaml:"user_agent"`
	Storage         StorageConfig `yaml:"storage"`
	Metrics         MetricsConfig `yaml:"metrics"`
}

// GetDownloadTimeout parses and returns the download timeout duration
func (g *GlobalConfig) GetDownloadTimeout() time.Duration {
	if g.DownloadTimeout == "" {
		return DefaultDownloadTimeout
	}
	timeout, err := time.ParseDuration(g.DownloadTimeout)
	if err != nil || timeout <= 0 {
		return DefaultDownloadTimeout // Default on parse error
	}
	return timeout
}

// GetConcurrency returns the batch download worker limit.
func (g *GlobalConfig) GetConcurrency() int {
	if g.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return g.Concurrency
}

// RuntimeConfig selects the managed runtime and where it is resolved from.
type RuntimeConfig struct {
	ImageType    string `yaml:"image_type"`
	MajorVersion string `yaml:"major_version"`
	Executable   string `yaml:"executable"`
	// Platform overrides host detection, e.g. "linux-x64".
	Platform string         `yaml:"platform,omitempty"`
	Catalogs []string       `yaml:"catalogs"`
	Adoptium AdoptiumConfig `yaml:"adoptium"`
	GitHub   GitHubConfig   `yaml:"github"`
	// Lifecycle resolves "lts" and flags end-of-life majors.
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
}

// LifecycleConfig configures the endoflife.date lookup.
type LifecycleConfig struct {
	BaseURL string `yaml:"base_url"`
	Product string `yaml:"product"`
}

// AdoptiumConfig configures the Adoptium API catalog.
type AdoptiumConfig struct {
	BaseURL string `yaml:"base_url"`
}

// GitHubConfig configures the GitHub release catalog.
type GitHubConfig struct {
	RepositoryTemplate string `yaml:"repository_template"`
	TokenEnv           string `yaml:"token_env"`
}

// Token returns the GitHub token from the configured environment variable, if any.
func (g *GitHubConfig) Token() string {
	if g.TokenEnv == "" {
		return ""
	}
	return os.Getenv(g.TokenEnv)
}

// IsLTS reports whether major_version asks for the newest LTS release.
func (r *RuntimeConfig) IsLTS() bool {
	return strings.EqualFold(strings.TrimSpace(r.MajorVersion), MajorVersionLTS)
}

// GetMajorVersion returns the major component of major_version. It fails
// for "lts", which is resolved at run time.
func (r *RuntimeConfig) GetMajorVersion() (int, error) {
	return version.ParseMajor(r.MajorVersion)
}

// GetPlatform returns the configured platform override, or the host platform.
func (r *RuntimeConfig) GetPlatform() (platform.Platform, error) {
	if r.Platform == "" {
		return platform.CurrentPlatform(), nil
	}
	return platform.FindPlatform(r.Platform)
}

// AssetsConfig configures asset reconciliation.
type AssetsConfig struct {
	ManifestURL string   `yaml:"manifest_url"`
	Mirrors     []string `yaml:"mirrors"`
	Ignore      []string `yaml:"ignore"`
	// IgnoreFile is a JSON or YAML list merged with Ignore.
	IgnoreFile string `yaml:"ignore_file"`
}

// GetIgnoreList merges the inline ignore entries with the ignore file.
func (a *AssetsConfig) GetIgnoreList() (IgnoreList, error) {
	fromFile, err := LoadIgnoreList(a.IgnoreFile)
	if err != nil {
		return nil, err
	}
	return NewIgnoreList(append(slices.Clone(a.Ignore), fromFile...)...), nil
}

// LoadConfig loads the configuration from a YAML file. Values missing from the
// file keep their DefaultConfig values.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}
	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Validate validates the configuration structure and required fields.
func (c *Config) Validate() error {
	if c.Version == "" {
		return ErrVersionRequired
	}
	if c.Config.InstallPath == "" {
		return ErrInstallPathRequired
	}
	if c.Config.Concurrency < 0 {
		return ErrConcurrencyInvalid
	}
	if err := c.Runtime.Validate(); err != nil {
		return fmt.Errorf("runtime: %w", err)
	}
	return nil
}

// Validate validates a runtime configuration.
func (r *RuntimeConfig) Validate() error {
	if r.ImageType == "" {
		return ErrImageTypeRequired
	}
	if !r.IsLTS() {
		if _, err := r.GetMajorVersion(); err != nil {
			return fmt.Errorf("major_version: %w", err)
		}
	}
	for _, name := range r.Catalogs {
		if name != CatalogAdoptium && name != CatalogGitHub {
			return fmt.Errorf("%w: %s", ErrUnknownCatalog, name)
		}
	}
	if r.Platform != "" {
		if _, err := platform.FindPlatform(r.Platform); err != nil {
			return fmt.Errorf("platform: %w", err)
		}
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Metadata: Metadata{
			Name: "gamesync",
		},
		Config: GlobalConfig{
			InstallPath:     DefaultInstallPath,
			DownloadTimeout: DefaultDownloadTimeout.String(),
			Concurrency:     DefaultConcurrency,
			UserAgent:       DefaultUserAgent,
			Storage: StorageConfig{
				DatabasePath: DefaultDatabasePath,
			},
		},
		Runtime: RuntimeConfig{
			ImageType:    DefaultImageType,
			MajorVersion: DefaultMajorVersion,
			Executable:   DefaultExecutable,
			Catalogs:     []string{CatalogAdoptium, CatalogGitHub},
			Adoptium: AdoptiumConfig{
				BaseURL: DefaultAdoptiumURL,
			},
			GitHub: GitHubConfig{
				RepositoryTemplate: DefaultRepositoryTemplate,
				TokenEnv:           DefaultTokenEnv,
			},
			Lifecycle: LifecycleConfig{
				BaseURL: DefaultLifecycleURL,
				Product: DefaultLifecycleProduct,
			},
		},
	}
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(config *Config, filePath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filePath, err)
	}
	return nil
}
