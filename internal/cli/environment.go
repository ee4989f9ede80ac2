package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/clean-dependency-project/gamesync/internal/assets"
	"github.com/clean-dependency-project/gamesync/internal/config"
	"github.com/clean-dependency-project/gamesync/internal/downloader"
	"github.com/clean-dependency-project/gamesync/internal/endoflife"
	"github.com/clean-dependency-project/gamesync/internal/events"
	gh "github.com/clean-dependency-project/gamesync/internal/github"
	"github.com/clean-dependency-project/gamesync/internal/installer"
	"github.com/clean-dependency-project/gamesync/internal/runtime"
	"github.com/clean-dependency-project/gamesync/internal/runtimes/adoptium"
	"github.com/clean-dependency-project/gamesync/internal/storage"
)

const (
	metricsNamespace = "gamesync"
	eventBuffer      = 64
)

// LoadEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set are kept. A missing file is not an error.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// environment holds what every command needs: configuration, loggers, the
// event renderer, metrics and the optional history store.
type environment struct {
	cfg    *config.Config
	stdout *slog.Logger
	stderr *slog.Logger
	out    io.Writer
	json   bool

	db       *storage.DB
	registry *prometheus.Registry
	metrics  *downloader.Metrics
	sink     *events.ChannelSink
	rendered <-chan struct{}
	flush    sync.Once
}

// newEnvironment loads configuration and sets up logging and metrics.
// The history store is opened only when withStore is true and a database path
// is configured.
func newEnvironment(c *cli.Context, withStore bool) (*environment, error) {
	stdout, stderr := NewLoggersTo(c.App.ErrWriter, c.String("log-level"))

	cfg, err := loadConfig(c)
	if err != nil {
		stderr.Error("failed to load config", "error", err)
		return nil, err
	}

	env := &environment{
		cfg:      cfg,
		stdout:   stdout,
		stderr:   stderr,
		out:      c.App.Writer,
		json:     c.String("output") == "json",
		registry: prometheus.NewRegistry(),
		sink:     events.NewChannelSink(eventBuffer),
	}
	env.metrics = downloader.NewMetrics(metricsNamespace, env.registry)

	// Event lines would corrupt JSON output.
	eventOut := env.out
	if env.json {
		eventOut = io.Discard
	}
	env.rendered = renderEvents(eventOut, env.sink)

	if withStore && cfg.Config.Storage.DatabasePath != "" {
		db, err := storage.InitDB(storage.Config{
			DatabasePath: cfg.Config.Storage.DatabasePath,
			LogLevel:     "silent",
		})
		if err != nil {
			env.close()
			stderr.Error("failed to initialize database", "error", err)
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		env.db = db
	}

	return env, nil
}

// loadConfig reads the configuration file and applies the global flag
// overrides. When --config was not given and the default file is absent the
// built-in defaults are used.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		if c.IsSet("config") || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = config.DefaultConfig()
	}

	if c.IsSet("install-path") {
		cfg.Config.InstallPath = c.String("install-path")
	}
	if c.IsSet("metrics-textfile") {
		cfg.Config.Metrics.Textfile = c.String("metrics-textfile")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// close flushes pending event lines, writes the metrics textfile and closes
// the store.
func (e *environment) close() {
	e.flushEvents()

	if path := e.cfg.Config.Metrics.Textfile; path != "" {
		if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
			e.stderr.Warn("failed to write metrics textfile", "path", path, "error", err)
		}
	}

	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.stderr.Warn("failed to close database", "error", err)
		}
	}
}

// flushEvents stops the renderer once every published event is written.
// Command results are printed after it so they never interleave with events.
func (e *environment) flushEvents() {
	e.flush.Do(func() {
		e.sink.Close()
		<-e.rendered
	})
}

// store returns the history store as an installer.Recorder, or nil when
// history is disabled.
func (e *environment) store() installer.Recorder {
	if e.db == nil {
		return nil
	}
	return e.db
}

func (e *environment) newDownloader() *downloader.Downloader {
	return downloader.New(downloader.Options{
		Timeout:   e.cfg.Config.GetDownloadTimeout(),
		UserAgent: e.cfg.Config.UserAgent,
		Metrics:   e.metrics,
	}, e.sink, e.stdout, e.stderr)
}

// newCatalogs registers the configured runtime catalogs in resolution order.
func (e *environment) newCatalogs() (*runtime.Registry, error) {
	rc := e.cfg.Runtime
	registry := runtime.NewRegistry()
	for _, name := range rc.Catalogs {
		var catalog runtime.Catalog
		switch name {
		case config.CatalogAdoptium:
			catalog = adoptium.NewClient(adoptium.Config{
				BaseURL:   rc.Adoptium.BaseURL,
				UserAgent: e.cfg.Config.UserAgent,
			})
		case config.CatalogGitHub:
			catalog = gh.NewCatalog(gh.CatalogConfig{
				RepositoryTemplate: rc.GitHub.RepositoryTemplate,
				Token:              rc.GitHub.Token(),
			}, e.stderr)
		default:
			return nil, fmt.Errorf("%w: %s", config.ErrUnknownCatalog, name)
		}
		if err := registry.Register(name, catalog); err != nil {
			return nil, fmt.Errorf("failed to register %s catalog: %w", name, err)
		}
		e.stdout.Debug("registered runtime catalog", "catalog", name)
	}
	return registry, nil
}

func (e *environment) newLifecycle() *endoflife.Client {
	return endoflife.NewClient(endoflife.Config{
		BaseURL:   e.cfg.Runtime.Lifecycle.BaseURL,
		UserAgent: e.cfg.Config.UserAgent,
	})
}

// newInstaller wires the acquirer and the reconciler around one downloader.
// manifestURL may be empty for runtime-only commands.
func (e *environment) newInstaller(manifestURL string) (*installer.Installer, error) {
	dl := e.newDownloader()

	catalogs, err := e.newCatalogs()
	if err != nil {
		return nil, err
	}
	acq := runtime.NewAcquirer(catalogs, dl, e.sink, e.stdout, e.stderr,
		runtime.WithExecutable(e.cfg.Runtime.Executable))

	var syncer installer.AssetSyncer
	if manifestURL != "" {
		ignore, err := e.cfg.Assets.GetIgnoreList()
		if err != nil {
			return nil, fmt.Errorf("failed to load ignore list: %w", err)
		}
		syncer = assets.NewReconciler(dl, e.sink, e.stdout, e.stderr, assets.Options{
			ManifestURL: manifestURL,
			Ignore:      ignore,
			Mirrors:     e.cfg.Assets.Mirrors,
			UserAgent:   e.cfg.Config.UserAgent,
		})
	}

	return installer.New(acq, syncer, e.store(), e.stdout, e.stderr,
		installer.WithManifestURL(manifestURL)), nil
}

// printJSON writes v as indented JSON to the command output.
func (e *environment) printJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

// printf writes a text line to the command output.
func (e *environment) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.out, format+"\n", args...)
}
