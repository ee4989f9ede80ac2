package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/clean-dependency-project/gamesync/internal/assets"
	"github.com/clean-dependency-project/gamesync/internal/config"
	"github.com/clean-dependency-project/gamesync/internal/downloader"
	"github.com/clean-dependency-project/gamesync/internal/endoflife"
	"github.com/clean-dependency-project/gamesync/internal/installer"
	"github.com/clean-dependency-project/gamesync/internal/storage"
	"github.com/clean-dependency-project/gamesync/internal/version"
)

// Sentinel errors for command usage.
var (
	ErrManifestURLRequired = errors.New("manifest URL is required (--manifest-url or assets.manifest_url)")
	ErrStorageDisabled     = errors.New("history storage is disabled (config.storage.database_path is empty)")
	ErrMissingArgument     = errors.New("missing argument")
	ErrConfigExists        = errors.New("configuration file already exists (use --force to overwrite)")
)

// RuntimeOutput is the JSON result of the runtime command. The release
// fields come from the install history and are empty when it is disabled.
type RuntimeOutput struct {
	Path         string     `json:"path"`
	ImageType    string     `json:"image_type"`
	MajorVersion int        `json:"major_version"`
	Platform     string     `json:"platform"`
	Release      string     `json:"release,omitempty"`
	Catalog      string     `json:"catalog,omitempty"`
	InstalledAt  *time.Time `json:"installed_at,omitempty"`
}

// SyncOutput is the JSON result of the sync command.
type SyncOutput struct {
	Runtime RuntimeOutput  `json:"runtime"`
	Assets  *assets.Report `json:"assets"`
}

// ProbeOutput is the JSON result of the probe command.
type ProbeOutput struct {
	URL    string `json:"url"`
	Size   int64  `json:"size"`
	Status int    `json:"status"`
}

// FetchOutput is the JSON result of the fetch command.
type FetchOutput struct {
	OutputDir  string   `json:"output_dir"`
	Completed  []string `json:"completed"`
	Failed     []string `json:"failed"`
	Bytes      int64    `json:"bytes"`
	DurationMs int64    `json:"duration_ms"`
}

// CycleOutput is one row of the cycles command.
type CycleOutput struct {
	Major       int    `json:"major"`
	LTS         bool   `json:"lts"`
	EOL         bool   `json:"eol"`
	EOLDate     string `json:"eol_date,omitempty"`
	LatestPatch string `json:"latest_patch"`
}

// HistoryOutput is the JSON result of the history command.
type HistoryOutput struct {
	Installs []*storage.RuntimeInstall `json:"installs"`
	SyncRuns []*storage.SyncRun        `json:"sync_runs"`
	Stats    map[string]interface{}    `json:"stats"`
}

// runtimeOptions applies the runtime flags to the configuration. A major
// version of "lts" is resolved through endoflife.date.
func runtimeOptions(c *cli.Context, env *environment) (installer.RuntimeOptions, error) {
	rc := env.cfg.Runtime
	if v := c.String("image-type"); v != "" {
		rc.ImageType = v
	}
	if v := c.String("version"); v != "" {
		rc.MajorVersion = v
	}
	if v := c.String("platform"); v != "" {
		rc.Platform = v
	}

	major, err := resolveMajor(c, env, rc)
	if err != nil {
		return installer.RuntimeOptions{}, err
	}
	plat, err := rc.GetPlatform()
	if err != nil {
		return installer.RuntimeOptions{}, fmt.Errorf("invalid platform: %w", err)
	}

	return installer.RuntimeOptions{
		InstallPath:  env.cfg.Config.InstallPath,
		ImageType:    rc.ImageType,
		MajorVersion: major,
		Platform:     plat,
	}, nil
}

func resolveMajor(c *cli.Context, env *environment, rc config.RuntimeConfig) (int, error) {
	if !rc.IsLTS() {
		major, err := version.ParseMajor(rc.MajorVersion)
		if err != nil {
			return 0, fmt.Errorf("invalid runtime version: %w", err)
		}
		return major, nil
	}

	major, err := env.newLifecycle().LatestLTS(c.Context, rc.Lifecycle.Product)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve LTS runtime version: %w", err)
	}
	env.stdout.Info("resolved LTS runtime version", "product", rc.Lifecycle.Product, "major", major)
	return major, nil
}

func manifestURL(c *cli.Context, cfg *config.Config) (string, error) {
	if v := c.String("manifest-url"); v != "" {
		return v, nil
	}
	if cfg.Assets.ManifestURL != "" {
		return cfg.Assets.ManifestURL, nil
	}
	return "", ErrManifestURLRequired
}

// runtimeCommand implements the runtime command.
func runtimeCommand(c *cli.Context) error {
	env, err := newEnvironment(c, true)
	if err != nil {
		return err
	}
	defer env.close()

	opts, err := runtimeOptions(c, env)
	if err != nil {
		return err
	}

	unlock, err := lockInstallPath(c.Context, opts.InstallPath)
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	inst, err := env.newInstaller("")
	if err != nil {
		return err
	}
	exe, err := inst.EnsureRuntime(c.Context, opts)
	if err != nil {
		return err
	}

	env.flushEvents()
	out := runtimeOutput(exe, opts)
	if env.db != nil {
		describeInstall(env, env.db, &out, opts)
	}
	if env.json {
		return env.printJSON(out)
	}
	printRuntime(env, out)
	return nil
}

// assetsCommand implements the assets command.
func assetsCommand(c *cli.Context) error {
	env, err := newEnvironment(c, true)
	if err != nil {
		return err
	}
	defer env.close()

	manifest, err := manifestURL(c, env.cfg)
	if err != nil {
		return err
	}
	installPath := env.cfg.Config.InstallPath

	unlock, err := lockInstallPath(c.Context, installPath)
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	inst, err := env.newInstaller(manifest)
	if err != nil {
		return err
	}
	report, err := inst.SyncAssets(c.Context, installPath)
	if err != nil {
		return err
	}

	env.flushEvents()
	if env.json {
		return env.printJSON(report)
	}
	printReport(env, report)
	return nil
}

// syncCommand implements the sync command: the runtime first, then the assets.
func syncCommand(c *cli.Context) error {
	env, err := newEnvironment(c, true)
	if err != nil {
		return err
	}
	defer env.close()

	opts, err := runtimeOptions(c, env)
	if err != nil {
		return err
	}
	manifest, err := manifestURL(c, env.cfg)
	if err != nil {
		return err
	}

	unlock, err := lockInstallPath(c.Context, opts.InstallPath)
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	inst, err := env.newInstaller(manifest)
	if err != nil {
		return err
	}
	exe, err := inst.EnsureRuntime(c.Context, opts)
	if err != nil {
		return err
	}
	report, err := inst.SyncAssets(c.Context, opts.InstallPath)
	if err != nil {
		return err
	}

	env.flushEvents()
	rt := runtimeOutput(exe, opts)
	if env.db != nil {
		describeInstall(env, env.db, &rt, opts)
	}
	if env.json {
		return env.printJSON(SyncOutput{Runtime: rt, Assets: report})
	}
	printRuntime(env, rt)
	printReport(env, report)
	return nil
}

// probeCommand implements the probe command.
func probeCommand(c *cli.Context) error {
	target := c.Args().First()
	if target == "" {
		return fmt.Errorf("%w: <relative-path|url>", ErrMissingArgument)
	}

	env, err := newEnvironment(c, false)
	if err != nil {
		return err
	}
	defer env.close()

	mirrors := c.StringSlice("mirror")
	if len(mirrors) == 0 && !isURL(target) {
		mirrors = env.cfg.Assets.Mirrors
	}

	dl := env.newDownloader()
	var out ProbeOutput
	if len(mirrors) == 0 {
		res, err := dl.Probe(c.Context, target, env.cfg.Config.GetDownloadTimeout())
		if err != nil {
			return err
		}
		out = ProbeOutput{URL: target, Size: res.Size, Status: res.Status}
	} else {
		res, err := dl.ProbeMirrors(c.Context, target, mirrors)
		if err != nil {
			return err
		}
		out = ProbeOutput{URL: res.URL, Size: res.Size, Status: res.Status}
	}

	env.flushEvents()
	if env.json {
		return env.printJSON(out)
	}
	size := "unknown size"
	if out.Size >= 0 {
		size = formatBytes(out.Size)
	}
	env.printf("%s: HTTP %d, %s", out.URL, out.Status, size)
	return nil
}

// fetchCommand implements the fetch command.
func fetchCommand(c *cli.Context) error {
	urls := c.Args().Slice()
	if len(urls) == 0 {
		return fmt.Errorf("%w: <url>...", ErrMissingArgument)
	}

	env, err := newEnvironment(c, false)
	if err != nil {
		return err
	}
	defer env.close()

	dir := c.String("dir")
	limit := c.Int("concurrency")
	if limit <= 0 {
		limit = env.cfg.Config.GetConcurrency()
	}
	timeout := env.cfg.Config.GetDownloadTimeout()
	dl := env.newDownloader()

	// Sizes drive the ETA; a failed probe only leaves the size unknown.
	jobs := make([]downloader.Job, 0, len(urls))
	var total int64
	for _, u := range urls {
		job := downloader.Job{URL: u, Path: filepath.Join(dir, fileNameFromURL(u))}
		if res, err := dl.Probe(c.Context, u, timeout); err == nil && res.Size > 0 {
			job.Size = res.Size
			total += res.Size
		}
		jobs = append(jobs, job)
	}

	env.stdout.Info("starting batch download",
		"files", len(jobs),
		"total_bytes", total,
		"concurrency", limit,
		"output_dir", dir)
	result := dl.FetchMany(c.Context, jobs, total, limit, timeout)

	env.flushEvents()
	out := FetchOutput{
		OutputDir:  dir,
		Completed:  []string{},
		Failed:     []string{},
		Bytes:      result.Bytes,
		DurationMs: result.Duration.Milliseconds(),
	}
	for _, j := range result.Completed {
		out.Completed = append(out.Completed, j.Path)
	}
	for _, f := range result.Failed {
		out.Failed = append(out.Failed, f.Job.Path)
	}

	if env.json {
		if err := env.printJSON(out); err != nil {
			return err
		}
	} else {
		env.printf("Fetched %d/%d files (%s) in %s", len(out.Completed), len(jobs),
			formatBytes(out.Bytes), result.Duration.Round(time.Millisecond))
	}

	if err := result.Err(); err != nil {
		return fmt.Errorf("%d of %d downloads failed: %w", len(result.Failed), len(jobs), err)
	}
	return nil
}

// historyCommand implements the history command.
func historyCommand(c *cli.Context) error {
	env, err := newEnvironment(c, true)
	if err != nil {
		return err
	}
	defer env.close()

	if env.db == nil {
		return ErrStorageDisabled
	}

	env.flushEvents()
	if runID := c.String("run"); runID != "" {
		return writeSyncRun(env, env.db, runID)
	}
	return writeHistory(env, env.db, c.Int("limit"))
}

// writeSyncRun prints the details of one sync run.
func writeSyncRun(env *environment, h HistoryReader, runID string) error {
	run, err := h.GetSyncRun(runID)
	if err != nil {
		return fmt.Errorf("failed to get sync run %s: %w", runID, err)
	}
	if env.json {
		return env.printJSON(run)
	}

	tw := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Run:\t%s\n", run.RunID)
	_, _ = fmt.Fprintf(tw, "Status:\t%s\n", title(run.Status))
	_, _ = fmt.Fprintf(tw, "Install path:\t%s\n", run.InstallPath)
	if run.ManifestURL != "" {
		_, _ = fmt.Fprintf(tw, "Manifest:\t%s\n", run.ManifestURL)
	}
	_, _ = fmt.Fprintf(tw, "Started:\t%s\n", run.StartedAt.Format(time.RFC3339))
	if run.FinishedAt != nil {
		_, _ = fmt.Fprintf(tw, "Finished:\t%s\n", run.FinishedAt.Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(tw, "Files:\t%d removed, %d missing, %d downloaded, %d ignored\n",
		run.Removed, run.Missing, run.Downloaded, run.Ignored)
	if run.ErrorMessage != "" {
		_, _ = fmt.Fprintf(tw, "Error:\t%s\n", run.ErrorMessage)
	}
	return tw.Flush()
}

// writeHistory prints installs and sync runs from h.
func writeHistory(env *environment, h HistoryReader, limit int) error {
	installs, err := h.ListInstalls()
	if err != nil {
		return err
	}
	runs, err := h.ListSyncRuns(limit)
	if err != nil {
		return err
	}
	stats, err := h.GetStats()
	if err != nil {
		return err
	}

	if env.json {
		return env.printJSON(HistoryOutput{Installs: installs, SyncRuns: runs, Stats: stats})
	}

	tw := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUNTIME\tRELEASE\tPLATFORM\tCATALOG\tINSTALLED")
	for _, in := range installs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s-%s\t%s\t%s\n",
			runtimeLabel(in.ImageType, in.MajorVersion), in.Release, in.OS, in.Arch,
			in.Catalog, in.InstalledAt.Format("2006-01-02 15:04"))
	}
	_, _ = fmt.Fprintln(tw)
	_, _ = fmt.Fprintln(tw, "RUN\tSTATUS\tREMOVED\tDOWNLOADED\tIGNORED\tSTARTED")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.RunID, title(r.Status), r.Removed, r.Downloaded, r.Ignored,
			r.StartedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runtimeOutput(exe string, opts installer.RuntimeOptions) RuntimeOutput {
	return RuntimeOutput{
		Path:         exe,
		ImageType:    opts.ImageType,
		MajorVersion: opts.MajorVersion,
		Platform:     opts.Platform.Classifier,
	}
}

// describeInstall fills the release fields of out from the latest install
// record. A runtime installed before history was enabled has none.
func describeInstall(env *environment, h InstallReader, out *RuntimeOutput, opts installer.RuntimeOptions) {
	install, err := h.LatestInstall(opts.InstallPath, opts.ImageType, opts.MajorVersion)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			env.stderr.Warn("failed to look up runtime install", "error", err)
		}
		return
	}
	out.Release = install.Release
	out.Catalog = install.Catalog
	installedAt := install.InstalledAt
	out.InstalledAt = &installedAt
}

func printRuntime(env *environment, out RuntimeOutput) {
	label := runtimeLabel(out.ImageType, out.MajorVersion)
	if out.Release == "" {
		env.printf("%s ready: %s", label, out.Path)
		return
	}
	env.printf("%s ready: %s (%s from %s)", label, out.Path, out.Release, out.Catalog)
}

func printReport(env *environment, r *assets.Report) {
	env.printf("Assets: %d removed, %d missing, %d downloaded, %d ignored",
		len(r.Removed), len(r.Missing), len(r.Downloaded), len(r.Ignored))
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// fileNameFromURL returns the last path segment of rawURL.
func fileNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download.bin"
	}
	name := path.Base(strings.TrimSuffix(u.Path, "/"))
	if name == "." || name == "/" || name == "" {
		return "download.bin"
	}
	return name
}

// cyclesCommand implements the cycles command.
func cyclesCommand(c *cli.Context) error {
	env, err := newEnvironment(c, false)
	if err != nil {
		return err
	}
	defer env.close()

	product := env.cfg.Runtime.Lifecycle.Product
	lifecycle := env.newLifecycle()
	var cycles []endoflife.Cycle
	if major := c.Int("major"); major > 0 {
		cycle, err := lifecycle.Cycle(c.Context, product, major)
		if err != nil {
			return err
		}
		cycles = []endoflife.Cycle{cycle}
	} else {
		cycles, err = lifecycle.Cycles(c.Context, product)
		if err != nil {
			return err
		}
	}

	env.flushEvents()
	out := make([]CycleOutput, 0, len(cycles))
	for _, cycle := range cycles {
		out = append(out, CycleOutput{
			Major:       cycle.Major,
			LTS:         cycle.IsLTS,
			EOL:         cycle.IsEOL,
			EOLDate:     cycle.EOLDate,
			LatestPatch: cycle.LatestPatch,
		})
	}
	if env.json {
		return env.printJSON(out)
	}

	w := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MAJOR\tLTS\tSTATUS\tLATEST")
	for _, cycle := range out {
		status := "supported"
		if cycle.EOL {
			status = "end of life"
			if cycle.EOLDate != "" {
				status += " since " + cycle.EOLDate
			}
		}
		lts := ""
		if cycle.LTS {
			lts = "yes"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", cycle.Major, lts, status, cycle.LatestPatch)
	}
	return w.Flush()
}

// initCommand writes the built-in configuration to the --config path.
func initCommand(c *cli.Context) error {
	stdout, stderr := NewLoggersTo(c.App.ErrWriter, c.String("log-level"))
	path := c.String("config")

	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	cfg := config.DefaultConfig()
	if c.IsSet("install-path") {
		cfg.Config.InstallPath = c.String("install-path")
	}
	if v := c.String("manifest-url"); v != "" {
		cfg.Assets.ManifestURL = v
	}
	if err := config.SaveConfig(cfg, path); err != nil {
		stderr.Error("failed to write config", "path", path, "error", err)
		return err
	}

	stdout.Info("configuration written", "path", path)
	_, _ = fmt.Fprintf(c.App.Writer, "Wrote default configuration to %s\n", path)
	return nil
}
