package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gamesync.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		configData  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config",
			configData: `
version: "1.0"
metadata:
  name: "test config"
  description: "test description"
config:
  install_path: "/opt/game"
  download_timeout: "30s"
  concurrency: 8
  user_agent: "launcher/2.0"
  storage:
    database_path: "history.db"
  metrics:
    textfile: "metrics.prom"
runtime:
  image_type: "jre"
  major_version: "17"
  executable: "java"
  catalogs: ["github"]
  github:
    repository_template: "mirror/temurin%d"
    token_env: "MIRROR_TOKEN"
assets:
  manifest_url: "https://example.com/manifest.json"
  mirrors: ["https://m1.example.com"]
  ignore: ["options.txt", "saves/"]
`,
			expectError: false,
		},
		{
			name: "partial config keeps defaults",
			configData: `
version: "1.0"
assets:
  manifest_url: "https://example.com/manifest.json"
`,
			expectError: false,
		},
		{
			name: "missing version",
			configData: `
version: ""
`,
			expectError: true,
			errorMsg:    "version is required",
		},
		{
			name: "unknown catalog",
			configData: `
version: "1.0"
runtime:
  catalogs: ["adoptium", "corretto"]
`,
			expectError: true,
			errorMsg:    "unknown runtime catalog",
		},
		{
			name: "invalid major version",
			configData: `
version: "1.0"
runtime:
  major_version: "latest"
`,
			expectError: true,
			errorMsg:    "major_version",
		},
		{
			name: "invalid yaml",
			configData: `
version: "1.0"
config: [broken
`,
			expectError: true,
			errorMsg:    "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfig(writeConfig(t, tt.configData))

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
					return
				}
				if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain %q, got %q", tt.errorMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}

			if config == nil {
				t.Errorf("Expected config to be non-nil")
			}
		})
	}
}

func TestLoadConfig_Values(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, `
version: "1.0"
config:
  install_path: "/opt/game"
  concurrency: 8
runtime:
  major_version: "jdk-17.0.8+7"
  catalogs: ["github"]
assets:
  manifest_url: "https://example.com/manifest.json"
`))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if config.Config.InstallPath != "/opt/game" {
		t.Errorf("InstallPath = %q", config.Config.InstallPath)
	}
	if config.Config.GetConcurrency() != 8 {
		t.Errorf("GetConcurrency() = %d, want 8", config.Config.GetConcurrency())
	}
	// Unset values keep their defaults.
	if config.Config.GetDownloadTimeout() != DefaultDownloadTimeout {
		t.Errorf("GetDownloadTimeout() = %v", config.Config.GetDownloadTimeout())
	}
	if config.Runtime.ImageType != DefaultImageType {
		t.Errorf("ImageType = %q", config.Runtime.ImageType)
	}
	if config.Runtime.GitHub.RepositoryTemplate != DefaultRepositoryTemplate {
		t.Errorf("RepositoryTemplate = %q", config.Runtime.GitHub.RepositoryTemplate)
	}
	if len(config.Runtime.Catalogs) != 1 || config.Runtime.Catalogs[0] != CatalogGitHub {
		t.Errorf("Catalogs = %v, want [github]", config.Runtime.Catalogs)
	}

	major, err := config.Runtime.GetMajorVersion()
	if err != nil || major != 17 {
		t.Errorf("GetMajorVersion() = %d, %v", major, err)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("nonexistent-file.yaml")
	if err == nil {
		t.Errorf("Expected error for nonexistent file")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:   "default config",
			modify: func(c *Config) {},
		},
		{
			name:    "missing version",
			modify:  func(c *Config) { c.Version = "" },
			wantErr: ErrVersionRequired,
		},
		{
			name:    "missing install path",
			modify:  func(c *Config) { c.Config.InstallPath = "" },
			wantErr: ErrInstallPathRequired,
		},
		{
			name:    "negative concurrency",
			modify:  func(c *Config) { c.Config.Concurrency = -1 },
			wantErr: ErrConcurrencyInvalid,
		},
		{
			name:    "missing image type",
			modify:  func(c *Config) { c.Runtime.ImageType = "" },
			wantErr: ErrImageTypeRequired,
		},
		{
			name:    "unknown catalog",
			modify:  func(c *Config) { c.Runtime.Catalogs = []string{"corretto"} },
			wantErr: ErrUnknownCatalog,
		},
		{
			name:   "no catalogs",
			modify: func(c *Config) { c.Runtime.Catalogs = nil },
		},
		{
			name:   "platform override",
			modify: func(c *Config) { c.Runtime.Platform = "windows-x64" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			err := config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRuntimeConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		runtime RuntimeConfig
		wantErr bool
	}{
		{
			name:    "valid",
			runtime: RuntimeConfig{ImageType: "jdk", MajorVersion: "21"},
			wantErr: false,
		},
		{
			name:    "release name",
			runtime: RuntimeConfig{ImageType: "jre", MajorVersion: "jdk-17.0.8+7"},
			wantErr: false,
		},
		{
			name:    "lts keyword",
			runtime: RuntimeConfig{ImageType: "jdk", MajorVersion: "LTS"},
			wantErr: false,
		},
		{
			name:    "empty major version",
			runtime: RuntimeConfig{ImageType: "jdk"},
			wantErr: true,
		},
		{
			name:    "unknown platform",
			runtime: RuntimeConfig{ImageType: "jdk", MajorVersion: "17", Platform: "plan9-mips"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.runtime.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRuntimeConfig_IsLTS(t *testing.T) {
	tests := []struct {
		major string
		want  bool
	}{
		{major: "lts", want: true},
		{major: " LTS ", want: true},
		{major: "17", want: false},
		{major: "", want: false},
	}
	for _, tt := range tests {
		r := RuntimeConfig{MajorVersion: tt.major}
		if got := r.IsLTS(); got != tt.want {
			t.Errorf("IsLTS(%q) = %v, want %v", tt.major, got, tt.want)
		}
	}
}

func TestRuntimeConfig_GetPlatform(t *testing.T) {
	r := RuntimeConfig{Platform: "mac-aarch64"}
	p, err := r.GetPlatform()
	if err != nil {
		t.Fatalf("GetPlatform() error: %v", err)
	}
	if p.OS != "mac" || p.Arch != "aarch64" {
		t.Errorf("GetPlatform() = %+v", p)
	}

	r = RuntimeConfig{}
	if p, err := r.GetPlatform(); err != nil || p.OS == "" {
		t.Errorf("GetPlatform() host = %+v, %v", p, err)
	}
}

func TestGlobalConfig_GetDownloadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout string
		want    time.Duration
	}{
		{name: "empty", timeout: "", want: DefaultDownloadTimeout},
		{name: "valid", timeout: "45s", want: 45 * time.Second},
		{name: "unparsable", timeout: "soon", want: DefaultDownloadTimeout},
		{name: "negative", timeout: "-1s", want: DefaultDownloadTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := GlobalConfig{DownloadTimeout: tt.timeout}
			if got := g.GetDownloadTimeout(); got != tt.want {
				t.Errorf("GetDownloadTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGlobalConfig_GetConcurrency(t *testing.T) {
	tests := []struct {
		concurrency int
		want        int
	}{
		{0, DefaultConcurrency},
		{-3, DefaultConcurrency},
		{1, 1},
		{12, 12},
	}

	for _, tt := range tests {
		g := GlobalConfig{Concurrency: tt.concurrency}
		if got := g.GetConcurrency(); got != tt.want {
			t.Errorf("GetConcurrency(%d) = %d, want %d", tt.concurrency, got, tt.want)
		}
	}
}

func TestGitHubConfig_Token(t *testing.T) {
	t.Setenv("GAMESYNC_TEST_TOKEN", "ghp_secret")

	g := GitHubConfig{TokenEnv: "GAMESYNC_TEST_TOKEN"}
	if got := g.Token(); got != "ghp_secret" {
		t.Errorf("Token() = %q", got)
	}

	g = GitHubConfig{}
	if got := g.Token(); got != "" {
		t.Errorf("Token() with no env = %q", got)
	}
}

func TestAssetsConfig_GetIgnoreList(t *testing.T) {
	file := filepath.Join(t.TempDir(), "ignore.json")
	if err := os.WriteFile(file, []byte(`["mods/", "*.log"]`), 0644); err != nil {
		t.Fatalf("Failed to write ignore file: %v", err)
	}

	a := AssetsConfig{Ignore: []string{"options.txt"}, IgnoreFile: file}
	list, err := a.GetIgnoreList()
	if err != nil {
		t.Fatalf("GetIgnoreList() error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("GetIgnoreList() = %v, want 3 entries", list)
	}
	for _, p := range []string{"options.txt", "mods/a.jar", "latest.log"} {
		if !list.Match(p) {
			t.Errorf("Match(%q) = false", p)
		}
	}

	a.IgnoreFile = filepath.Join(t.TempDir(), "missing.json")
	if _, err := a.GetIgnoreList(); err == nil {
		t.Error("GetIgnoreList() expected error for missing file")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", config.Version)
	}
	if config.Config.InstallPath != DefaultInstallPath {
		t.Errorf("Expected install path %s, got %s", DefaultInstallPath, config.Config.InstallPath)
	}
	if len(config.Runtime.Catalogs) != 2 || config.Runtime.Catalogs[0] != CatalogAdoptium {
		t.Errorf("Expected catalogs [adoptium github], got %v", config.Runtime.Catalogs)
	}
	if config.Runtime.Lifecycle.Product != DefaultLifecycleProduct {
		t.Errorf("Expected lifecycle product %s, got %s", DefaultLifecycleProduct, config.Runtime.Lifecycle.Product)
	}
	if config.Config.Storage.DatabasePath != DefaultDatabasePath {
		t.Errorf("Expected database path %s, got %s", DefaultDatabasePath, config.Config.Storage.DatabasePath)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestSaveConfig(t *testing.T) {
	config := DefaultConfig()
	config.Metadata.Description = "test description"
	config.Assets.ManifestURL = "https://example.com/manifest.json"
	config.Assets.Ignore = []string{"saves/"}

	filePath := filepath.Join(t.TempDir(), "config.yaml")

	// Test SaveConfig
	if err := SaveConfig(config, filePath); err != nil {
		t.Errorf("Unexpected error saving config: %v", err)
		return
	}

	// Verify file was written by loading it back
	loadedConfig, err := LoadConfig(filePath)
	if err != nil {
		t.Errorf("Failed to load saved config: %v", err)
		return
	}

	if loadedConfig.Metadata.Description != config.Metadata.Description {
		t.Errorf("Expected description %q, got %q", config.Metadata.Description, loadedConfig.Metadata.Description)
	}
	if loadedConfig.Assets.ManifestURL != config.Assets.ManifestURL {
		t.Errorf("Expected manifest URL %q, got %q", config.Assets.ManifestURL, loadedConfig.Assets.ManifestURL)
	}
	if len(loadedConfig.Assets.Ignore) != 1 {
		t.Errorf("Expected 1 ignore entry, got %v", loadedConfig.Assets.Ignore)
	}
}

func TestSaveConfig_InvalidPath(t *testing.T) {
	config := DefaultConfig()

	// Try to save to an invalid path
	err := SaveConfig(config, "/nonexistent/directory/config.yaml")
	if err == nil {
		t.Errorf("Expected error when saving to invalid path")
	}
}
